package access

import "errors"

var (
	// ErrNotFound is returned by Registry.Unregister when the identity is unknown.
	ErrNotFound = errors.New("registry: device not registered")

	// ErrInvalidDecision is returned when a decision string cannot be parsed.
	ErrInvalidDecision = errors.New("access: invalid decision")
)
