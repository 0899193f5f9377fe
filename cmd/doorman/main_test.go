package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/doorman/internal/api"
	"github.com/nerrad567/doorman/internal/console"
	"github.com/nerrad567/doorman/internal/manager"
)

const testSecret = "test-secret-for-development-only-0123456789"

// writeTestConfig writes a console-only config with a file device source
// into dir and returns its path. extra is appended verbatim and must not
// repeat a top-level key used here.
func writeTestConfig(t *testing.T, dir, extra string) string {
	t.Helper()
	return writeConfig(t, dir, "file", false, extra)
}

// writeDatabaseConfig is writeTestConfig with devices kept in SQLite.
func writeDatabaseConfig(t *testing.T, dir string) string {
	t.Helper()
	return writeConfig(t, dir, "database", true, "")
}

func writeConfig(t *testing.T, dir, source string, dbEnabled bool, extra string) string {
	t.Helper()

	devicesPath := filepath.Join(dir, "devices.yaml")
	devices := `devices:
  - address: "AA:BB:CC:DD:EE:FF"
    name: "alice phone"
`
	if err := os.WriteFile(devicesPath, []byte(devices), 0o600); err != nil {
		t.Fatalf("failed to write devices file: %v", err)
	}

	content := fmt.Sprintf(`
site:
  id: test-door
manager:
  authorize_timeout: 5s
  reauthorize_timeout: 10ms
logging:
  level: error
  format: text
  output: stderr
security:
  jwt:
    secret: %q
    token_ttl: 1h
devices:
  source: %s
  file: %q
actuator:
  backend: console
database:
  enabled: %t
  path: %q
%s`, testSecret, source, devicesPath, dbEnabled, filepath.Join(dir, "doorman.db"), extra)

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, input string, args ...string) (int, string, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out, errOut bytes.Buffer
	code := execute(ctx, args, strings.NewReader(input), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestExitCode(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"canceled", context.Canceled, exitOK},
		{"plain error", boom, exitFailure},
		{"detector", &manager.Error{Stage: manager.StageDetector, Err: boom}, exitDetector},
		{"authenticate", &manager.Error{Stage: manager.StageAuthenticate, Err: boom}, exitAuthenticate},
		{"actuate", &manager.Error{Stage: manager.StageActuate, Err: boom}, exitActuate},
		{"lock", &manager.Error{Stage: manager.StageLock, Err: boom}, exitLock},
		{"wrapped", fmt.Errorf("daemon: %w", &manager.Error{Stage: manager.StageLock, Err: boom}), exitLock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExecute_MissingConfig(t *testing.T) {
	code, _, errOut := runCLI(t, "", "run", "--config", "/nonexistent/path/config.yaml")
	if code != exitFailure {
		t.Errorf("exit code = %d, want %d", code, exitFailure)
	}
	if !strings.Contains(errOut, "loading config") {
		t.Errorf("stderr = %q, want loading config error", errOut)
	}
}

func TestExecute_InvalidConfig(t *testing.T) {
	cfg := writeTestConfig(t, t.TempDir(), "detector:\n  backend: carrier-pigeon\n")

	code, _, _ := runCLI(t, "", "run", "--config", cfg)
	if code != exitFailure {
		t.Errorf("exit code = %d, want %d", code, exitFailure)
	}
}

func TestRunOnce_ConsoleAllow(t *testing.T) {
	cfg := writeTestConfig(t, t.TempDir(), "")

	code, out, errOut := runCLI(t, "aa:bb:cc:dd:ee:ff\ny\n", "run", "--config", cfg)
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr = %q", code, errOut)
	}
	if !strings.Contains(out, "Open sesame") {
		t.Errorf("output %q does not show the door opening", out)
	}
	if !strings.Contains(out, "allow") {
		t.Errorf("output %q does not report allow", out)
	}
}

func TestRunOnce_ConsoleDeny(t *testing.T) {
	cfg := writeTestConfig(t, t.TempDir(), "")

	code, out, _ := runCLI(t, "AA:BB:CC:DD:EE:FF\nn\n", "run", "--config", cfg)
	if code != exitOK {
		t.Fatalf("exit code = %d, want %d", code, exitOK)
	}
	if strings.Contains(out, "Open sesame") {
		t.Errorf("door opened on deny: %q", out)
	}
	if !strings.Contains(out, "deny") {
		t.Errorf("output %q does not report deny", out)
	}
}

func TestRunOnce_UnregisteredThenRegistered(t *testing.T) {
	cfg := writeTestConfig(t, t.TempDir(), "")

	code, out, _ := runCLI(t, "11:22:33:44:55:66\nnot-an-address\nAA:BB:CC:DD:EE:FF\ny\n", "run", "--config", cfg)
	if code != exitOK {
		t.Fatalf("exit code = %d, want %d", code, exitOK)
	}
	if !strings.Contains(out, "11:22:33:44:55:66 is not registered") {
		t.Errorf("output %q does not reject the unknown device", out)
	}
	if !strings.Contains(out, "Open sesame") {
		t.Errorf("output %q does not show the door opening", out)
	}
}

func TestRunOnce_DetectorFailure(t *testing.T) {
	cfg := writeTestConfig(t, t.TempDir(), "")

	code, _, errOut := runCLI(t, "", "run", "--config", cfg)
	if code != exitDetector {
		t.Fatalf("exit code = %d, want %d", code, exitDetector)
	}
	if !strings.Contains(errOut, console.ErrEOF.Error()) {
		t.Errorf("stderr = %q, want end of input error", errOut)
	}
}

func TestDaemon_LockFailure(t *testing.T) {
	cfg := writeTestConfig(t, t.TempDir(), "")

	// No input: waiting for the lock signal hits end of input first.
	code, out, _ := runCLI(t, "", "daemon", "--config", cfg)
	if code != exitLock {
		t.Fatalf("exit code = %d, want %d", code, exitLock)
	}
	if !strings.Contains(out, "Press [Enter] to lock") {
		t.Errorf("output %q does not prompt for the lock", out)
	}
}

func TestDevices_FileSource(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, "")

	code, out, errOut := runCLI(t, "", "devices", "add", "11:22:33:44:55:66", "--name", "bob tag", "--rssi", "-60", "--config", cfg)
	if code != exitOK {
		t.Fatalf("add: exit code = %d, stderr = %q", code, errOut)
	}
	if !strings.Contains(out, "registered 11:22:33:44:55:66") {
		t.Errorf("add output = %q", out)
	}

	_, out, _ = runCLI(t, "", "devices", "list", "--config", cfg)
	for _, want := range []string{"AA:BB:CC:DD:EE:FF", "alice phone", "11:22:33:44:55:66", "bob tag", "-60"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output %q missing %q", out, want)
		}
	}
	if strings.Index(out, "11:22:33:44:55:66") > strings.Index(out, "AA:BB:CC:DD:EE:FF") {
		t.Errorf("list output is not sorted by address: %q", out)
	}

	code, _, _ = runCLI(t, "", "devices", "remove", "aa-bb-cc-dd-ee-ff", "--config", cfg)
	if code != exitOK {
		t.Fatalf("remove: exit code = %d", code)
	}

	_, out, _ = runCLI(t, "", "devices", "export", "--config", cfg)
	if strings.Contains(out, "AA:BB:CC:DD:EE:FF") {
		t.Errorf("removed device still exported: %q", out)
	}
	if !strings.Contains(out, "11:22:33:44:55:66") {
		t.Errorf("export output %q missing remaining device", out)
	}

	code, _, errOut = runCLI(t, "", "devices", "remove", "AA:BB:CC:DD:EE:FF", "--config", cfg)
	if code != exitFailure {
		t.Errorf("removing an unknown device: exit code = %d, want %d", code, exitFailure)
	}
	if !strings.Contains(errOut, "not found") {
		t.Errorf("stderr = %q, want not found", errOut)
	}
}

func TestDevices_FileWithRepeatedAddress(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, "")

	repeated := `devices:
  - address: "AA:BB:CC:DD:EE:FF"
    name: "old phone"
  - address: "aa:bb:cc:dd:ee:ff"
    name: "alice phone"
`
	if err := os.WriteFile(filepath.Join(dir, "devices.yaml"), []byte(repeated), 0o600); err != nil {
		t.Fatal(err)
	}

	_, out, _ := runCLI(t, "", "devices", "list", "--config", cfg)
	if strings.Contains(out, "old phone") || !strings.Contains(out, "alice phone") {
		t.Errorf("list output %q should show only the last entry for the address", out)
	}

	if code, _, errOut := runCLI(t, "", "devices", "add", "AA:BB:CC:DD:EE:FF", "--name", "new phone", "--config", cfg); code != exitOK {
		t.Fatalf("add: exit code = %d, stderr = %q", code, errOut)
	}

	_, out, _ = runCLI(t, "", "devices", "export", "--config", cfg)
	if n := strings.Count(out, "AA:BB:CC:DD:EE:FF"); n != 1 {
		t.Errorf("export lists the address %d times, want 1: %q", n, out)
	}
	if !strings.Contains(out, "new phone") {
		t.Errorf("export output %q does not carry the update", out)
	}
}

func TestDevices_AddInvalidAddress(t *testing.T) {
	cfg := writeTestConfig(t, t.TempDir(), "")

	code, _, _ := runCLI(t, "", "devices", "add", "not-a-mac", "--config", cfg)
	if code != exitFailure {
		t.Errorf("exit code = %d, want %d", code, exitFailure)
	}
}

func TestDevices_DatabaseSource(t *testing.T) {
	cfg := writeDatabaseConfig(t, t.TempDir())

	if code, _, errOut := runCLI(t, "", "devices", "add", "AA:BB:CC:DD:EE:01", "--name", "db phone", "--config", cfg); code != exitOK {
		t.Fatalf("add: exit code = %d, stderr = %q", code, errOut)
	}

	_, out, _ := runCLI(t, "", "devices", "list", "--config", cfg)
	if !strings.Contains(out, "AA:BB:CC:DD:EE:01") || !strings.Contains(out, "db phone") {
		t.Errorf("list output = %q", out)
	}
	if strings.Contains(out, "AA:BB:CC:DD:EE:FF") {
		t.Errorf("database source listed a device from the file: %q", out)
	}

	code, out, errOut := runCLI(t, "AA:BB:CC:DD:EE:01\ny\n", "run", "--config", cfg)
	if code != exitOK {
		t.Fatalf("run: exit code = %d, stderr = %q", code, errOut)
	}
	if !strings.Contains(out, "Open sesame") {
		t.Errorf("run output %q does not show the door opening", out)
	}
}

func TestDevices_ExportToFile(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir, "")

	exportPath := filepath.Join(dir, "export.yaml")
	if code, _, errOut := runCLI(t, "", "devices", "export", exportPath, "--config", cfg); code != exitOK {
		t.Fatalf("export: exit code = %d, stderr = %q", code, errOut)
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("export file not written: %v", err)
	}
	if !strings.Contains(string(data), "alice phone") {
		t.Errorf("export file = %q", data)
	}
}

func TestToken(t *testing.T) {
	cfg := writeTestConfig(t, t.TempDir(), "")

	code, out, errOut := runCLI(t, "", "token", "--subject", "alice", "--config", cfg)
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr = %q", code, errOut)
	}

	claims, err := api.ParseToken(strings.TrimSpace(out), testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "alice" {
		t.Errorf("subject = %q, want alice", claims.Subject)
	}
	if claims.Site != "test-door" {
		t.Errorf("site = %q, want test-door", claims.Site)
	}
	if ttl := time.Until(claims.ExpiresAt.Time); ttl > time.Hour || ttl < 59*time.Minute {
		t.Errorf("token expires in %s, want about an hour", ttl)
	}
}
