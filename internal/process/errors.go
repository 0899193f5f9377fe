package process

import "errors"

var (
	// ErrAlreadyRunning is returned by Start on a running process.
	ErrAlreadyRunning = errors.New("process: already running")

	// ErrExited marks a clean exit that nobody asked for.
	ErrExited = errors.New("process: exited unexpectedly")
)
