// Package ble feeds sightings from a Bluetooth scan helper into the presence
// tracker.
//
// The helper is any program that prints one advertisement per line on
// stdout, either as "<address> [rssi]" or as a JSON sighting. A wrapper
// around hcitool, bluetoothctl or a small BlueZ D-Bus client all work.
package ble

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/doorman/internal/infrastructure/config"
	"github.com/nerrad567/doorman/internal/presence"
	"github.com/nerrad567/doorman/internal/process"
)

// ErrInvalidLine is returned for helper output that is not a sighting.
var ErrInvalidLine = errors.New("ble: invalid scan line")

// Tracker is what the scanner feeds. *presence.Tracker implements it.
type Tracker interface {
	Observe(s presence.Sighting) bool
	Fail(err error)
}

// Logger defines the logging interface used by the scanner.
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

// Scanner runs the scan helper under a process manager.
type Scanner struct {
	tracker Tracker
	name    string
	proc    *process.Manager
	logger  Logger
}

// NewScanner creates a scanner for the helper described by cfg. When the
// helper cannot be kept running the tracker is failed, which ends detection.
func NewScanner(cfg config.BLEConfig, tracker Tracker) *Scanner {
	s := &Scanner{tracker: tracker, name: "ble", logger: noopLogger{}}
	s.proc = process.NewManager(process.Config{
		Name:               "ble-scan",
		Binary:             cfg.Binary,
		Args:               cfg.Args,
		RestartOnFailure:   true,
		RestartDelay:       cfg.RestartDelay,
		MaxRestartAttempts: cfg.MaxRestartAttempts,
		StableAfter:        cfg.StableAfter,
		OnLine:             s.handleLine,
		OnGiveUp: func(err error) {
			tracker.Fail(fmt.Errorf("ble scan helper: %w", err))
		},
	})
	return s
}

// SetLogger sets the logger for the scanner and its process manager.
func (s *Scanner) SetLogger(logger Logger) {
	s.logger = logger
	s.proc.SetLogger(logger)
}

// Start launches the helper.
func (s *Scanner) Start(ctx context.Context) error {
	return s.proc.Start(ctx)
}

// Stop terminates the helper.
func (s *Scanner) Stop() error {
	return s.proc.Stop()
}

// Stats returns the helper's process status and restart count.
func (s *Scanner) Stats() (process.Status, int) {
	return s.proc.Status(), s.proc.RestartCount()
}

func (s *Scanner) handleLine(line string) {
	sighting, err := ParseLine(line)
	if err != nil {
		if !errors.Is(err, errBlankLine) {
			s.logger.Debug("ignoring scan output", "line", line, "error", err)
		}
		return
	}
	if sighting.Scanner == "" {
		sighting.Scanner = s.name
	}
	s.tracker.Observe(sighting)
}

var errBlankLine = fmt.Errorf("%w: blank", ErrInvalidLine)

// ParseLine decodes one line of helper output. Accepted forms:
//
//	AA:BB:CC:DD:EE:FF
//	AA:BB:CC:DD:EE:FF -62
//	{"address":"AA:BB:CC:DD:EE:FF","rssi":-62}
func ParseLine(line string) (presence.Sighting, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return presence.Sighting{}, errBlankLine
	}
	if strings.HasPrefix(line, "{") {
		s, err := presence.ParseSighting([]byte(line))
		if err != nil {
			return presence.Sighting{}, fmt.Errorf("%w: %w", ErrInvalidLine, err)
		}
		if s.At.IsZero() {
			s.At = time.Now()
		}
		return s, nil
	}

	fields := strings.Fields(line)
	s := presence.Sighting{Address: fields[0], At: time.Now()}
	switch len(fields) {
	case 1:
	case 2:
		rssi, err := strconv.Atoi(fields[1])
		if err != nil {
			return presence.Sighting{}, fmt.Errorf("%w: rssi %q", ErrInvalidLine, fields[1])
		}
		s.RSSI = rssi
	default:
		return presence.Sighting{}, fmt.Errorf("%w: %d fields", ErrInvalidLine, len(fields))
	}
	return s, nil
}
