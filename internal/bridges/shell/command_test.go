package shell

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/doorman/internal/infrastructure/config"
)

func TestActuatorOpen(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "opened")
	a := NewActuator(config.CommandConfig{
		Path: "/bin/sh",
		Args: []string{"-c", "echo open > " + marker},
	})

	if err := a.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	data, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("helper did not run: %v", err)
	}
	if strings.TrimSpace(string(data)) != "open" {
		t.Errorf("marker = %q", data)
	}
}

func TestActuatorOpenFailures(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.CommandConfig
		wantErr error
		wantMsg string
	}{
		{
			name:    "non-zero exit",
			cfg:     config.CommandConfig{Path: "/bin/sh", Args: []string{"-c", "echo servo jammed >&2; exit 2"}},
			wantErr: ErrCommandFailed,
			wantMsg: "servo jammed",
		},
		{
			name:    "missing helper",
			cfg:     config.CommandConfig{Path: "/nonexistent/open-door"},
			wantErr: ErrCommandFailed,
		},
		{
			name:    "timeout",
			cfg:     config.CommandConfig{Path: "/bin/sleep", Args: []string{"5"}, Timeout: 50 * time.Millisecond},
			wantErr: ErrCommandTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewActuator(tt.cfg).Open()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Open() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestNewActuatorDefaultTimeout(t *testing.T) {
	if a := NewActuator(config.CommandConfig{Path: "/bin/true"}); a.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", a.timeout, DefaultTimeout)
	}
}
