package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims extends JWT registered claims with the identity fields the
// dispatcher needs on every envelope.
type Claims struct {
	jwt.RegisteredClaims
	UserName  string `json:"name"`
	UserLevel Level  `json:"level"`
	UserEmail string `json:"email,omitempty"`
}

// GenerateToken creates a signed identity token for a local-channel
// session. Tokens are short-lived and validated by signature alone.
func GenerateToken(ident Identity, secret string, ttlMinutes int) (string, error) {
	if ttlMinutes <= 0 {
		ttlMinutes = 60 //nolint:mnd // default one-hour session token TTL
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlMinutes) * time.Minute)),
			ID:        uuid.NewString(),
		},
		UserName:  ident.UserName,
		UserLevel: ident.UserLevel,
		UserEmail: ident.UserEmail,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a session token and returns the embedded identity.
// It checks the signature, expiry, and required fields.
func ParseToken(tokenString, secret string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if claims.UserLevel == "" {
		return Identity{}, fmt.Errorf("%w: missing level", ErrTokenInvalid)
	}

	return Identity{
		UserID:    claims.Subject,
		UserName:  claims.UserName,
		UserLevel: claims.UserLevel,
		UserEmail: claims.UserEmail,
	}, nil
}
