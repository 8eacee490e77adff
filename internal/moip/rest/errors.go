package rest

import (
	"errors"
	"fmt"
)

// Domain errors for the structured API client.
var (
	// ErrUnreachable is returned when the controller API cannot be reached
	// at the transport level.
	ErrUnreachable = errors.New("rest: controller api unreachable")

	// ErrUnauthorized is returned on HTTP 401, so callers can distinguish
	// bad credentials from an unreachable controller.
	ErrUnauthorized = errors.New("rest: authentication failed")

	// ErrResourceNotFound is returned when cross-protocol ID resolution
	// finds no resource for the given device index.
	ErrResourceNotFound = errors.New("rest: resource not found")

	// ErrStatus matches any StatusError via errors.Is.
	ErrStatus = errors.New("rest: unexpected api status")
)

// StatusError reports a non-2xx API response that is not a 401.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("rest: api status %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("rest: api status %d", e.Code)
}

// Is lets errors.Is(err, ErrStatus) match without knowing the code.
func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}
