package auth

import "errors"

// Sentinel errors for the auth package.
var (
	// ErrTokenInvalid indicates a malformed, expired, or badly signed token.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrKeyNotFound indicates no stored API key matched.
	ErrKeyNotFound = errors.New("api key not found")

	// ErrKeyMismatch indicates the presented key does not match the stored hash.
	ErrKeyMismatch = errors.New("api key mismatch")
)
