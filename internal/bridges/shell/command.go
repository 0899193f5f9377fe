// Package shell opens the door by running an external helper, such as a
// script that pulses a GPIO line or drives a servo.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/nerrad567/doorman/internal/access"
	"github.com/nerrad567/doorman/internal/infrastructure/config"
)

// DefaultTimeout bounds the helper when the config leaves it unset.
const DefaultTimeout = 10 * time.Second

var (
	// ErrCommandFailed is returned when the helper exits non-zero.
	ErrCommandFailed = errors.New("shell: open command failed")

	// ErrCommandTimeout is returned when the helper outlives its timeout.
	ErrCommandTimeout = errors.New("shell: open command timed out")
)

// Logger defines the logging interface used by the actuator.
type Logger interface {
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

// Actuator runs one helper invocation per Open.
type Actuator struct {
	path    string
	args    []string
	timeout time.Duration
	logger  Logger
}

var _ access.Actuator = (*Actuator)(nil)

// NewActuator creates a command actuator from cfg.
func NewActuator(cfg config.CommandConfig) *Actuator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Actuator{path: cfg.Path, args: cfg.Args, timeout: timeout, logger: noopLogger{}}
}

// SetLogger sets the logger for the actuator.
func (a *Actuator) SetLogger(logger Logger) {
	a.logger = logger
}

// Open runs the helper and waits for it to exit. The helper is killed when
// the timeout expires.
func (a *Actuator) Open() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, a.path, a.args...) //nolint:gosec // helper comes from operator config
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	a.logger.Debug("open command finished", "path", a.path, "output", strings.TrimSpace(output.String()))

	switch {
	case err == nil:
		return nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w after %v", ErrCommandTimeout, a.timeout)
	default:
		msg := strings.TrimSpace(output.String())
		if msg == "" {
			return fmt.Errorf("%w: %w", ErrCommandFailed, err)
		}
		return fmt.Errorf("%w: %w: %s", ErrCommandFailed, err, msg)
	}
}
