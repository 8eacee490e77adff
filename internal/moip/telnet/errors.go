package telnet

import "errors"

// Domain errors for the line protocol client.
var (
	// ErrUnreachable is returned when the controller cannot be dialled or
	// drops the connection before the command is written. Read timeouts are
	// not failures; they yield empty results instead.
	ErrUnreachable = errors.New("telnet: controller unreachable")
)
