package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bbellwfu/moip-manager/internal/infrastructure/config"
)

// Claims are the JWT claims carried by a manager API access token.
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateToken creates a signed JWT access token for the operator.
// Tokens are short-lived and validated by signature only (no server-side
// session state).
func GenerateToken(username, secret string, ttlMinutes int) (token string, expiresAt time.Time, err error) {
	if ttlMinutes <= 0 {
		ttlMinutes = 15
	}

	now := time.Now()
	expiresAt = now.Add(time.Duration(ttlMinutes) * time.Minute)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseToken validates and parses a JWT access token, returning the claims.
// It checks the signature, expiry, and required fields.
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	return claims, nil
}

// VerifyCredentials checks a login attempt against the configured operator
// account. The password check prefers the Argon2id hash when one is
// configured and falls back to constant-time comparison of the development
// plaintext password.
func VerifyCredentials(username, password string, cfg config.AuthConfig) error {
	usernameOK := subtle.ConstantTimeCompare([]byte(username), []byte(cfg.Username)) == 1

	var passwordOK bool
	switch {
	case strings.HasPrefix(cfg.PasswordHash, "$argon2id$"):
		ok, err := VerifyPassword(password, cfg.PasswordHash)
		if err != nil {
			return fmt.Errorf("verifying password hash: %w", err)
		}
		passwordOK = ok
	case cfg.Password != "":
		passwordOK = subtle.ConstantTimeCompare([]byte(password), []byte(cfg.Password)) == 1
	}

	if !usernameOK || !passwordOK {
		return ErrInvalidCredentials
	}
	return nil
}
