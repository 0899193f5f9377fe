package process

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type lineCollector struct {
	mu    sync.Mutex
	lines []string
}

func (c *lineCollector) add(line string) {
	c.mu.Lock()
	c.lines = append(c.lines, line)
	c.mu.Unlock()
}

func (c *lineCollector) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func waitDone(t *testing.T, m *Manager) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("supervision did not end")
	}
}

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager(Config{Name: "scan", Binary: "/bin/true"})

	if m.config.RestartDelay != 5*time.Second {
		t.Errorf("RestartDelay = %v, want 5s", m.config.RestartDelay)
	}
	if m.config.StableAfter != 50*time.Second {
		t.Errorf("StableAfter = %v, want 50s", m.config.StableAfter)
	}
	if m.config.GracefulTimeout != 10*time.Second {
		t.Errorf("GracefulTimeout = %v, want 10s", m.config.GracefulTimeout)
	}
	if m.Status() != StatusStopped {
		t.Errorf("Status() = %q, want stopped", m.Status())
	}
	if m.PID() != 0 {
		t.Errorf("PID() = %d, want 0", m.PID())
	}
}

func TestManager_StreamsStdoutLines(t *testing.T) {
	var lines lineCollector
	var gaveUp error
	m := NewManager(Config{
		Name:     "echo",
		Binary:   "/bin/sh",
		Args:     []string{"-c", "echo 'AA:BB:CC:DD:EE:FF -60'; echo second; echo ignored >&2"},
		OnLine:   lines.add,
		OnGiveUp: func(err error) { gaveUp = err },
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitDone(t, m)

	got := lines.get()
	if len(got) != 2 || got[0] != "AA:BB:CC:DD:EE:FF -60" || got[1] != "second" {
		t.Errorf("lines = %q", got)
	}
	if !errors.Is(gaveUp, ErrExited) {
		t.Errorf("OnGiveUp error = %v, want ErrExited", gaveUp)
	}
	if m.Status() != StatusFailed {
		t.Errorf("Status() = %q, want failed", m.Status())
	}
}

func TestManager_RestartsUpToLimit(t *testing.T) {
	var (
		mu     sync.Mutex
		starts int
		exits  int
	)
	gaveUp := make(chan error, 1)
	m := NewManager(Config{
		Name:               "crash",
		Binary:             "/bin/sh",
		Args:               []string{"-c", "exit 3"},
		RestartOnFailure:   true,
		RestartDelay:       10 * time.Millisecond,
		MaxRestartAttempts: 2,
		OnStart:            func() { mu.Lock(); starts++; mu.Unlock() },
		OnExit:             func(error) { mu.Lock(); exits++; mu.Unlock() },
		OnGiveUp:           func(err error) { gaveUp <- err },
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case err := <-gaveUp:
		var exitErr interface{ ExitCode() int }
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 3 {
			t.Errorf("OnGiveUp error = %v, want exit status 3", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("OnGiveUp not called")
	}
	waitDone(t, m)

	mu.Lock()
	defer mu.Unlock()
	if starts != 3 || exits != 3 {
		t.Errorf("starts = %d, exits = %d, want 3 and 3", starts, exits)
	}
	if m.LastError() == nil {
		t.Error("LastError() = nil after crash")
	}
}

func TestManager_StableRunResetsRestartCount(t *testing.T) {
	gaveUp := make(chan error, 1)
	m := NewManager(Config{
		Name:               "flaky",
		Binary:             "/bin/sh",
		Args:               []string{"-c", "sleep 0.3; exit 1"},
		RestartOnFailure:   true,
		RestartDelay:       10 * time.Millisecond,
		MaxRestartAttempts: 2,
		StableAfter:        100 * time.Millisecond,
		OnGiveUp:           func(err error) { gaveUp <- err },
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer m.Stop() //nolint:errcheck // test cleanup

	// Several crashes, each after a stable run, stay within a budget of two.
	select {
	case err := <-gaveUp:
		t.Fatalf("gave up on a helper that ran longer than StableAfter each time: %v", err)
	case <-time.After(1500 * time.Millisecond):
	}

	if got := m.RestartCount(); got != 1 {
		t.Errorf("RestartCount() = %d, want 1 after stable runs", got)
	}
	if m.Status() != StatusRunning && m.Status() != StatusFailed {
		t.Errorf("Status() = %s, want the helper still supervised", m.Status())
	}
}

func TestManager_StopIsNotAFailure(t *testing.T) {
	called := false
	m := NewManager(Config{
		Name:             "sleeper",
		Binary:           "/bin/sleep",
		Args:             []string{"30"},
		RestartOnFailure: true,
		GracefulTimeout:  2 * time.Second,
		OnGiveUp:         func(error) { called = true },
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if m.Status() != StatusRunning || m.PID() == 0 {
		t.Fatalf("Status() = %q, PID() = %d", m.Status(), m.PID())
	}
	if err := m.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if m.Status() != StatusStopped {
		t.Errorf("Status() = %q, want stopped", m.Status())
	}
	if called {
		t.Error("OnGiveUp called after Stop")
	}
	if m.RestartCount() != 0 {
		t.Errorf("RestartCount() = %d, want 0", m.RestartCount())
	}
}

func TestManager_StartMissingBinary(t *testing.T) {
	m := NewManager(Config{Name: "missing", Binary: "/nonexistent/ble-scan"})

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("Start() expected error for missing binary")
	}
	if m.Status() != StatusFailed {
		t.Errorf("Status() = %q, want failed", m.Status())
	}
	if err := m.Stop(); err != nil {
		t.Errorf("Stop() after failed start error = %v", err)
	}
}

func TestManager_StopBeforeStart(t *testing.T) {
	if err := NewManager(Config{Name: "idle", Binary: "/bin/true"}).Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
