package auth

import "errors"

// Domain errors for the auth package.
var (
	// ErrInvalidCredentials is returned when a login attempt fails.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrTokenInvalid is returned when a token fails signature, expiry,
	// or claim validation.
	ErrTokenInvalid = errors.New("auth: invalid token")
)
