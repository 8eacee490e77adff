package inventory

import "errors"

// Domain errors for the inventory package.
var (
	// ErrNotFound is returned when no device matches the given key.
	ErrNotFound = errors.New("inventory: device not found")
)
