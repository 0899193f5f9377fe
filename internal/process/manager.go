package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Status represents the current state of a managed process.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusFailed   Status = "failed"
)

// maxLineLength bounds a single line of subprocess output.
const maxLineLength = 64 * 1024

// Config holds configuration for a managed subprocess.
type Config struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Binary is the path to the executable.
	Binary string

	// Args are command-line arguments to pass to the binary.
	Args []string

	// Env are additional environment variables (key=value format).
	Env []string

	// RestartOnFailure restarts the process whenever it exits without Stop.
	RestartOnFailure bool

	// RestartDelay is the time to wait before restarting.
	RestartDelay time.Duration

	// MaxRestartAttempts limits consecutive restart attempts. 0 means unlimited.
	MaxRestartAttempts int

	// StableAfter is how long a launch must stay up before the restart count
	// starts again from zero. Defaults to ten times RestartDelay.
	StableAfter time.Duration

	// GracefulTimeout is how long to wait after SIGTERM before SIGKILL.
	GracefulTimeout time.Duration

	// OnLine receives every line the process writes to stdout, in order.
	// It runs on the reader goroutine and should not block.
	OnLine func(line string)

	// OnStart is called each time the process starts.
	OnStart func()

	// OnExit is called each time the process exits on its own.
	OnExit func(err error)

	// OnGiveUp is called once when the process has exited and will not be
	// restarted again, with the error of the last exit.
	OnGiveUp func(err error)
}

// Logger defines the logging interface for the process manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Manager runs a subprocess, streams its output and restarts it when it dies.
type Manager struct {
	config Config
	logger Logger

	mu            sync.RWMutex
	cmd           *exec.Cmd
	output        sync.WaitGroup
	status        Status
	restartCount  int
	startedAt     time.Time
	lastError     error
	stopRequested bool
	done          chan struct{}
}

// NewManager creates a process manager. Zero delays get defaults.
func NewManager(cfg Config) *Manager {
	if cfg.RestartDelay == 0 {
		cfg.RestartDelay = 5 * time.Second
	}
	if cfg.StableAfter == 0 {
		cfg.StableAfter = 10 * cfg.RestartDelay
	}
	if cfg.GracefulTimeout == 0 {
		cfg.GracefulTimeout = 10 * time.Second
	}

	return &Manager{
		config: cfg,
		logger: noopLogger{},
		status: StatusStopped,
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// Start launches the subprocess and begins supervising it. It fails only if
// the first launch fails; later failures go through OnExit and OnGiveUp.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.status == StatusRunning || m.status == StatusStarting {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, m.config.Name)
	}
	m.status = StatusStarting
	m.stopRequested = false
	m.restartCount = 0
	m.done = make(chan struct{})
	m.mu.Unlock()

	if err := m.launch(ctx); err != nil {
		m.mu.Lock()
		m.status = StatusFailed
		m.lastError = err
		close(m.done)
		m.mu.Unlock()
		return err
	}

	go m.supervise(ctx)
	return nil
}

func (m *Manager) launch(ctx context.Context) error {
	m.logger.Info("starting process", "name", m.config.Name, "binary", m.config.Binary, "args", m.config.Args)

	cmd := exec.CommandContext(ctx, m.config.Binary, m.config.Args...) //nolint:gosec // binary comes from operator config
	// Own process group so Stop reaches helpers the scanner spawns.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if m.config.Env != nil {
		cmd.Env = append(os.Environ(), m.config.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", m.config.Name, err)
	}

	m.output.Add(2)
	go m.readLines(stdout, m.config.OnLine)
	go m.readLines(stderr, func(line string) {
		m.logger.Debug("process stderr", "name", m.config.Name, "line", line)
	})

	m.mu.Lock()
	m.cmd = cmd
	m.status = StatusRunning
	m.startedAt = time.Now()
	m.mu.Unlock()

	m.logger.Info("process started", "name", m.config.Name, "pid", cmd.Process.Pid)
	if m.config.OnStart != nil {
		m.config.OnStart()
	}
	return nil
}

func (m *Manager) readLines(r io.Reader, onLine func(string)) {
	defer m.output.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)
	for scanner.Scan() {
		if onLine != nil {
			onLine(scanner.Text())
		}
	}
	if err := scanner.Err(); err != nil {
		m.logger.Debug("output stream closed", "name", m.config.Name, "error", err)
	}
}

// wait collects the exit of cmd after its output has been drained.
func (m *Manager) wait(cmd *exec.Cmd) error {
	m.output.Wait()
	err := cmd.Wait()
	if err == nil {
		err = ErrExited
	}
	return err
}

func (m *Manager) supervise(ctx context.Context) {
	defer close(m.done)

	for {
		m.mu.RLock()
		cmd := m.cmd
		startedAt := m.startedAt
		m.mu.RUnlock()

		err := m.wait(cmd)
		uptime := time.Since(startedAt)

		m.mu.Lock()
		stopRequested := m.stopRequested
		if stopRequested {
			m.status = StatusStopped
		} else {
			m.status = StatusFailed
			m.lastError = err
		}
		m.mu.Unlock()

		if stopRequested {
			m.logger.Info("process stopped as requested", "name", m.config.Name)
			return
		}

		m.logger.Warn("process exited", "name", m.config.Name, "error", err, "uptime", uptime)
		if m.config.OnExit != nil {
			m.config.OnExit(err)
		}

		if !m.shouldRestart(ctx, uptime) {
			if m.config.OnGiveUp != nil {
				m.config.OnGiveUp(err)
			}
			return
		}

		if err := m.launch(ctx); err != nil {
			m.logger.Error("failed to restart process", "name", m.config.Name, "error", err)
			m.mu.Lock()
			m.lastError = err
			m.mu.Unlock()
			if m.config.OnGiveUp != nil {
				m.config.OnGiveUp(err)
			}
			return
		}
	}
}

// shouldRestart counts the attempt and sleeps the restart delay. A launch
// that stayed up for StableAfter clears the count first. It reports false
// when restarts are disabled, exhausted or cancelled.
func (m *Manager) shouldRestart(ctx context.Context, uptime time.Duration) bool {
	if !m.config.RestartOnFailure {
		return false
	}

	m.mu.Lock()
	if uptime >= m.config.StableAfter {
		m.restartCount = 0
	}
	m.restartCount++
	attempt := m.restartCount
	m.mu.Unlock()

	if m.config.MaxRestartAttempts > 0 && attempt > m.config.MaxRestartAttempts {
		m.logger.Error("max restart attempts reached", "name", m.config.Name, "attempts", attempt-1)
		return false
	}

	m.logger.Info("restarting process", "name", m.config.Name, "attempt", attempt, "delay", m.config.RestartDelay)

	timer := time.NewTimer(m.config.RestartDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.stopRequested
}

// Stop sends SIGTERM to the process group, then SIGKILL after the graceful
// timeout, and waits for supervision to end.
func (m *Manager) Stop() error {
	m.mu.Lock()
	done := m.done
	if done == nil {
		m.mu.Unlock()
		return nil
	}
	m.stopRequested = true
	cmd := m.cmd
	running := m.status == StatusRunning
	m.mu.Unlock()

	if !running || cmd == nil || cmd.Process == nil {
		<-done
		return nil
	}

	pid := cmd.Process.Pid
	m.logger.Info("stopping process", "name", m.config.Name, "pid", pid)
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		m.logger.Warn("failed to send SIGTERM", "name", m.config.Name, "error", err)
	}

	select {
	case <-done:
		return nil
	case <-time.After(m.config.GracefulTimeout):
		m.logger.Warn("graceful shutdown timeout, sending SIGKILL", "name", m.config.Name)
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("killing process group %s: %w", m.config.Name, err)
	}
	<-done
	return nil
}

// Done is closed when supervision ends.
func (m *Manager) Done() <-chan struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.done
}

// Status returns the current status of the managed process.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// LastError returns the error of the last unexpected exit.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError
}

// RestartCount returns the number of restarts since Start.
func (m *Manager) RestartCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.restartCount
}

// PID returns the process ID, or 0 if never started.
func (m *Manager) PID() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cmd != nil && m.cmd.Process != nil {
		return m.cmd.Process.Pid
	}
	return 0
}
