package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret-key-at-least-32-chars!"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
site:
  id: "back-door"
manager:
  authorize_timeout: 45s
  reauthorize_timeout: 2m
  retry: reauthenticate
mqtt:
  enabled: true
  prefix: "home/doorman"
  broker:
    host: "broker.lan"
detector:
  backend: mqtt
  presence_ttl: 15s
authenticator:
  backend: mqtt
actuator:
  backend: command
  command:
    path: /usr/local/bin/servo-open
    args: ["--pulse", "1000"]
locker:
  backend: mqtt
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "back-door" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "back-door")
	}
	if cfg.Manager.AuthorizeTimeout != 45*time.Second {
		t.Errorf("AuthorizeTimeout = %v, want 45s", cfg.Manager.AuthorizeTimeout)
	}
	if cfg.Manager.ReauthorizeTimeout != 2*time.Minute {
		t.Errorf("ReauthorizeTimeout = %v, want 2m", cfg.Manager.ReauthorizeTimeout)
	}
	if cfg.MQTT.Prefix != "home/doorman" || cfg.MQTT.Broker.Host != "broker.lan" {
		t.Errorf("MQTT = %+v", cfg.MQTT)
	}
	// Defaults survive for keys the file does not mention.
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want default 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.Actuator.Command.Timeout != 10*time.Second {
		t.Errorf("Actuator.Command.Timeout = %v, want default 10s", cfg.Actuator.Command.Timeout)
	}
	if len(cfg.Actuator.Command.Args) != 2 {
		t.Errorf("Actuator.Command.Args = %v", cfg.Actuator.Command.Args)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
api:
  enabled: true
locker:
  backend: http
`)
	t.Setenv("DOORMAN_JWT_SECRET", testSecret)
	t.Setenv("DOORMAN_LOG_LEVEL", "debug")
	t.Setenv("DOORMAN_DATABASE_PATH", "/var/lib/doorman/test.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Security.JWT.Secret != testSecret {
		t.Error("JWT secret not taken from environment")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Database.Path != "/var/lib/doorman/test.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "missing site id",
			mutate:  func(c *Config) { c.Site.ID = "" },
			wantErr: "site.id is required",
		},
		{
			name:    "zero cooldown",
			mutate:  func(c *Config) { c.Manager.ReauthorizeTimeout = 0 },
			wantErr: "manager.reauthorize_timeout must be positive",
		},
		{
			name:    "unknown retry policy",
			mutate:  func(c *Config) { c.Manager.Retry = "always" },
			wantErr: "manager.retry",
		},
		{
			name:    "mqtt backend without mqtt",
			mutate:  func(c *Config) { c.Detector.Backend = BackendMQTT },
			wantErr: "detector.backend mqtt requires mqtt.enabled",
		},
		{
			name:    "http backend without api",
			mutate:  func(c *Config) { c.Authenticator.Backend = BackendHTTP },
			wantErr: "authenticator.backend http requires api.enabled",
		},
		{
			name:    "unknown actuator",
			mutate:  func(c *Config) { c.Actuator.Backend = "gpio" },
			wantErr: "actuator.backend must be one of log, console, mqtt, command",
		},
		{
			name: "short jwt secret",
			mutate: func(c *Config) {
				c.API.Enabled = true
				c.Security.JWT.Secret = "short"
			},
			wantErr: "at least 32 characters",
		},
		{
			name:    "database source without database",
			mutate:  func(c *Config) { c.Devices.Source = DeviceSourceDatabase },
			wantErr: "requires database.enabled",
		},
		{
			name:    "ble without binary",
			mutate:  func(c *Config) { c.Detector.Backend = BackendBLE },
			wantErr: "detector.ble.binary is required",
		},
		{
			name:    "negative ble stable_after",
			mutate:  func(c *Config) { c.Detector.BLE.StableAfter = -time.Second },
			wantErr: "detector.ble.stable_after cannot be negative",
		},
		{
			name:    "command without path",
			mutate:  func(c *Config) { c.Actuator.Backend = BackendCommand },
			wantErr: "actuator.command.path is required",
		},
		{
			name: "wildcard prefix",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.Prefix = "doorman/#"
			},
			wantErr: "mqtt.prefix",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Site.ID = ""
	cfg.Locker.Backend = "doorbell"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	for _, want := range []string{"site.id", "locker.backend"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv("DOORMAN_CONFIG", "")
	if got := ResolvePath(""); got != DefaultPath {
		t.Errorf("ResolvePath(\"\") = %q, want %q", got, DefaultPath)
	}

	t.Setenv("DOORMAN_CONFIG", "/etc/doorman.yaml")
	if got := ResolvePath(""); got != "/etc/doorman.yaml" {
		t.Errorf("ResolvePath(\"\") with env = %q", got)
	}
	if got := ResolvePath("cli.yaml"); got != "cli.yaml" {
		t.Errorf("ResolvePath(flag) = %q, want flag to win", got)
	}
}
