package presence

import "errors"

var (
	// ErrFeedFailed is returned by WaitForDevice once the sighting feed has
	// stopped for good. The feed's own error is wrapped alongside it.
	ErrFeedFailed = errors.New("presence: sighting feed failed")

	// ErrInvalidSighting is returned by ParseSighting for undecodable payloads.
	ErrInvalidSighting = errors.New("presence: invalid sighting")
)
