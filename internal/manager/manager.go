// Package manager drives the access-control protocol.
//
// A Manager composes a Detector, an Authenticator, an Actuator and a Locker.
// Run performs one attempt: wait for a known device, ask for approval and open
// the door on Allow. Daemon repeats the lock, confirm and attempt cycle until
// a capability fails or the context is cancelled.
//
// Capability failures are returned as *Error naming the stage they came from.
// A Deny is not a failure: Run reports it as a result and Daemon retries it
// after the configured cooldown.
package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/doorman/internal/access"
)

// Logger defines the logging interface used by the Manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// SleepFunc waits for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures optional Manager behaviour.
type Option func(*options)

type options struct {
	sleep SleepFunc
}

// WithSleep replaces the cooldown sleep. Tests use it to observe cooldowns
// without waiting for them.
func WithSleep(sleep SleepFunc) Option {
	return func(o *options) {
		o.sleep = sleep
	}
}

// Manager runs the access protocol for devices of type D.
type Manager[D any] struct {
	detector      access.Detector[D]
	authenticator access.Authenticator[D]
	actuator      access.Actuator
	locker        access.Locker

	cfg      Config
	sleep    SleepFunc
	logger   Logger
	recorder access.Recorder
	now      func() time.Time
}

// New creates a Manager over the given capabilities.
func New[D any](
	detector access.Detector[D],
	authenticator access.Authenticator[D],
	actuator access.Actuator,
	locker access.Locker,
	cfg Config,
	opts ...Option,
) *Manager[D] {
	o := options{sleep: sleepContext}
	for _, opt := range opts {
		opt(&o)
	}

	return &Manager[D]{
		detector:      detector,
		authenticator: authenticator,
		actuator:      actuator,
		locker:        locker,
		cfg:           cfg,
		sleep:         o.sleep,
		logger:        noopLogger{},
		recorder:      access.Recorders(nil),
		now:           time.Now,
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager[D]) SetLogger(logger Logger) {
	m.logger = logger
}

// SetRecorder sets the recorder that receives protocol events.
func (m *Manager[D]) SetRecorder(recorder access.Recorder) {
	if recorder == nil {
		recorder = access.Recorders(nil)
	}
	m.recorder = recorder
}

// Config returns the protocol timing the manager was built with.
func (m *Manager[D]) Config() Config {
	return m.cfg
}

// Run performs a single access attempt.
//
// It returns access.Allow once the door was opened and access.Deny when the
// authenticator refused; in both cases the error is nil. Any capability
// failure aborts the attempt and is returned as *Error.
func (m *Manager[D]) Run(ctx context.Context) (access.Result, error) {
	result, _, err := m.run(ctx)
	return result, err
}

// Daemon runs the lock, confirm and attempt cycle forever.
//
// Each iteration waits for a lock signal, confirms it, then repeats attempts
// until one is allowed, sleeping ReauthorizeTimeout after every Deny.
// Daemon only returns on a capability failure (*Error) or when ctx is done.
func (m *Manager[D]) Daemon(ctx context.Context) error {
	m.logger.Info("daemon started",
		"authorize_timeout", m.cfg.AuthorizeTimeout,
		"reauthorize_timeout", m.cfg.ReauthorizeTimeout,
		"retry", m.cfg.Retry.String(),
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := m.lock(ctx); err != nil {
			return err
		}

		if err := m.untilAllowed(ctx); err != nil {
			return err
		}
	}
}

func (m *Manager[D]) lock(ctx context.Context) error {
	m.logger.Debug("waiting for lock signal")
	if err := m.locker.WaitForLock(ctx); err != nil {
		return m.fail(ctx, StageLock, "", err)
	}
	m.emit(ctx, access.Event{Kind: access.EventLockRequested})

	if err := m.locker.ConfirmLock(ctx); err != nil {
		return m.fail(ctx, StageLock, "", err)
	}
	m.emit(ctx, access.Event{Kind: access.EventLocked})
	m.logger.Info("door locked")
	return nil
}

func (m *Manager[D]) untilAllowed(ctx context.Context) error {
	result, device, err := m.run(ctx)
	for {
		if err != nil {
			return err
		}
		if result == access.Allow {
			return nil
		}

		m.logger.Info("access denied, cooling down", "cooldown", m.cfg.ReauthorizeTimeout)
		if err := m.sleep(ctx, m.cfg.ReauthorizeTimeout); err != nil {
			return err
		}

		switch m.cfg.Retry {
		case RetryReauthenticate:
			result, err = m.attempt(ctx, device)
		default:
			result, device, err = m.run(ctx)
		}
	}
}

func (m *Manager[D]) run(ctx context.Context) (access.Result, D, error) {
	m.logger.Debug("waiting for device")
	device, err := m.detector.WaitForDevice(ctx)
	if err != nil {
		var zero D
		return access.Deny, zero, m.fail(ctx, StageDetector, "", err)
	}

	m.logger.Info("device detected", "device", describe(device))
	m.emit(ctx, access.Event{Kind: access.EventDetected, Device: describe(device)})

	result, err := m.attempt(ctx, device)
	return result, device, err
}

// attempt authenticates an already detected device and opens on Allow.
func (m *Manager[D]) attempt(ctx context.Context, device D) (access.Result, error) {
	name := describe(device)

	result, err := m.authenticator.Authenticate(ctx, device, m.cfg.AuthorizeTimeout)
	if err != nil {
		return access.Deny, m.fail(ctx, StageAuthenticate, name, err)
	}

	if result != access.Allow {
		m.logger.Info("access denied", "device", name)
		m.emit(ctx, access.Event{Kind: access.EventDenied, Device: name})
		return access.Deny, nil
	}

	m.logger.Info("access allowed", "device", name)
	m.emit(ctx, access.Event{Kind: access.EventAllowed, Device: name})

	if err := m.actuator.Open(); err != nil {
		return access.Deny, m.fail(ctx, StageActuate, name, err)
	}

	m.logger.Info("door opened", "device", name)
	m.emit(ctx, access.Event{Kind: access.EventOpened, Device: name})
	return access.Allow, nil
}

func (m *Manager[D]) fail(ctx context.Context, stage Stage, device string, err error) error {
	m.logger.Error("access protocol failed", "stage", string(stage), "device", device, "error", err)
	m.emit(ctx, access.Event{Kind: access.EventFailed, Device: device, Stage: string(stage), Err: err})
	return wrap(stage, err)
}

func (m *Manager[D]) emit(ctx context.Context, event access.Event) {
	event.At = m.now()
	m.recorder.Record(ctx, event)
}

func describe(device any) string {
	if s, ok := device.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(device)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
