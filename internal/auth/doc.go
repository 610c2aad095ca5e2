// Package auth holds the caller identity model for command envelopes and
// the credential mechanisms used at the local transport boundary: signed
// identity tokens (JWT) and stored API keys (Argon2id hashed).
//
// Authorisation decisions themselves live in the permission package;
// auth only answers "who is this" and "is this credential genuine".
package auth
