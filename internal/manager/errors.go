package manager

import "fmt"

// Stage names the protocol step a failure originated from.
type Stage string

const (
	StageDetector     Stage = "detector"
	StageAuthenticate Stage = "authenticate"
	StageActuate      Stage = "actuate"
	StageLock         Stage = "lock"
)

// Error is a capability failure tagged with the stage that produced it.
//
// The underlying capability error is preserved, so callers can match it with
// errors.Is or errors.As through the Error.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("manager: %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(stage Stage, err error) error {
	return &Error{Stage: stage, Err: err}
}
