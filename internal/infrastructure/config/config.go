package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted in the capability sections.
const (
	BackendConsole = "console"
	BackendMQTT    = "mqtt"
	BackendBLE     = "ble"
	BackendHTTP    = "http"
	BackendLog     = "log"
	BackendCommand = "command"

	DeviceSourceFile     = "file"
	DeviceSourceDatabase = "database"
)

// DefaultPath is used when neither --config nor DOORMAN_CONFIG is set.
const DefaultPath = "configs/config.yaml"

// Config is the root configuration structure for Doorman.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site          SiteConfig          `yaml:"site"`
	Manager       ManagerConfig       `yaml:"manager"`
	Devices       DevicesConfig       `yaml:"devices"`
	Database      DatabaseConfig      `yaml:"database"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	API           APIConfig           `yaml:"api"`
	Security      SecurityConfig      `yaml:"security"`
	Logging       LoggingConfig       `yaml:"logging"`
	Detector      DetectorConfig      `yaml:"detector"`
	Authenticator AuthenticatorConfig `yaml:"authenticator"`
	Actuator      ActuatorConfig      `yaml:"actuator"`
	Locker        LockerConfig        `yaml:"locker"`
}

// SiteConfig identifies the door this instance controls.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// ManagerConfig contains the protocol timing.
type ManagerConfig struct {
	// AuthorizeTimeout bounds each approval request. Zero waits forever.
	AuthorizeTimeout time.Duration `yaml:"authorize_timeout"`

	// ReauthorizeTimeout is the cooldown after a denied attempt.
	ReauthorizeTimeout time.Duration `yaml:"reauthorize_timeout"`

	// Retry is "redetect" (default) or "reauthenticate".
	Retry string `yaml:"retry"`
}

// DevicesConfig selects where the registry is loaded from at startup.
type DevicesConfig struct {
	Source string `yaml:"source"`
	File   string `yaml:"file"`
}

// DatabaseConfig contains SQLite database settings.
// The database holds the devices table and the access audit trail.
type DatabaseConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Path        string        `yaml:"path"`
	WALMode     bool          `yaml:"wal_mode"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Prefix    string              `yaml:"prefix"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool          `yaml:"enabled"`
	URL           string        `yaml:"url"`
	Token         string        `yaml:"token"`
	Org           string        `yaml:"org"`
	Bucket        string        `yaml:"bucket"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  time.Duration `yaml:"read"`
	Write time.Duration `yaml:"write"`
	Idle  time.Duration `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// SecurityConfig contains API authentication settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains the signing secret and lifetime of approval tokens.
type JWTConfig struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DetectorConfig selects how devices are detected.
type DetectorConfig struct {
	// Backend is one of console, mqtt, ble.
	Backend string `yaml:"backend"`

	// PresenceTTL is how long a sighting counts as presence (mqtt, ble).
	PresenceTTL time.Duration `yaml:"presence_ttl"`

	BLE BLEConfig `yaml:"ble"`
}

// BLEConfig describes the external scan tool supervised by the ble backend.
// The tool must print one sighting per line ("<address> <rssi>" or JSON).
type BLEConfig struct {
	Binary             string        `yaml:"binary"`
	Args               []string      `yaml:"args"`
	RestartDelay       time.Duration `yaml:"restart_delay"`
	MaxRestartAttempts int           `yaml:"max_restart_attempts"`

	// StableAfter is the uptime after which earlier crashes stop counting
	// towards MaxRestartAttempts.
	StableAfter time.Duration `yaml:"stable_after"`
}

// AuthenticatorConfig selects how approvals are requested.
type AuthenticatorConfig struct {
	// Backend is one of console, mqtt, http.
	Backend string `yaml:"backend"`
}

// ActuatorConfig selects how the door is opened.
type ActuatorConfig struct {
	// Backend is one of log, console, mqtt, command.
	Backend string `yaml:"backend"`

	// AckTimeout bounds the wait for a relay acknowledgement (mqtt).
	AckTimeout time.Duration `yaml:"ack_timeout"`

	Command CommandConfig `yaml:"command"`
}

// CommandConfig describes the helper program run by the command actuator.
type CommandConfig struct {
	Path    string        `yaml:"path"`
	Args    []string      `yaml:"args"`
	Timeout time.Duration `yaml:"timeout"`
}

// LockerConfig selects where lock signals come from.
type LockerConfig struct {
	// Backend is one of console, mqtt, http.
	Backend string `yaml:"backend"`
}

// ResolvePath returns the configuration file to load: flag wins over the
// DOORMAN_CONFIG environment variable, which wins over DefaultPath.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv("DOORMAN_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads configuration from a YAML file, applies environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration of a console-only bench setup.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "door-001",
			Name: "Front door",
		},
		Manager: ManagerConfig{
			AuthorizeTimeout:   60 * time.Second,
			ReauthorizeTimeout: 10 * time.Second,
			Retry:              "redetect",
		},
		Devices: DevicesConfig{
			Source: DeviceSourceFile,
			File:   "./configs/devices.yaml",
		},
		Database: DatabaseConfig{
			Path:        "./data/doorman.db",
			WALMode:     true,
			BusyTimeout: 5 * time.Second,
		},
		MQTT: MQTTConfig{
			Prefix: "doorman",
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "doorman",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: time.Second,
				MaxDelay:     time.Minute,
			},
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Bucket:        "doorman",
			BatchSize:     100,
			FlushInterval: 10 * time.Second,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30 * time.Second,
				Write: 30 * time.Second,
				Idle:  60 * time.Second,
			},
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				TokenTTL: 24 * time.Hour,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Detector: DetectorConfig{
			Backend:     BackendConsole,
			PresenceTTL: 10 * time.Second,
			BLE: BLEConfig{
				RestartDelay:       5 * time.Second,
				MaxRestartAttempts: 10,
				StableAfter:        time.Minute,
			},
		},
		Authenticator: AuthenticatorConfig{Backend: BackendConsole},
		Actuator: ActuatorConfig{
			Backend:    BackendLog,
			AckTimeout: 5 * time.Second,
			Command: CommandConfig{
				Timeout: 10 * time.Second,
			},
		},
		Locker: LockerConfig{Backend: BackendConsole},
	}
}

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over file-based configuration.
//
// Supported variables:
//   - DOORMAN_DATABASE_PATH: database.path
//   - DOORMAN_MQTT_HOST: mqtt.broker.host
//   - DOORMAN_MQTT_USERNAME: mqtt.auth.username
//   - DOORMAN_MQTT_PASSWORD: mqtt.auth.password
//   - DOORMAN_API_HOST: api.host
//   - DOORMAN_INFLUXDB_TOKEN: influxdb.token
//   - DOORMAN_JWT_SECRET: security.jwt.secret
//   - DOORMAN_LOG_LEVEL: logging.level
func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"DOORMAN_DATABASE_PATH", &cfg.Database.Path},
		{"DOORMAN_MQTT_HOST", &cfg.MQTT.Broker.Host},
		{"DOORMAN_MQTT_USERNAME", &cfg.MQTT.Auth.Username},
		{"DOORMAN_MQTT_PASSWORD", &cfg.MQTT.Auth.Password},
		{"DOORMAN_API_HOST", &cfg.API.Host},
		{"DOORMAN_INFLUXDB_TOKEN", &cfg.InfluxDB.Token},
		{"DOORMAN_JWT_SECRET", &cfg.Security.JWT.Secret},
		{"DOORMAN_LOG_LEVEL", &cfg.Logging.Level},
	}

	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

// Validate checks that the configuration is internally consistent.
// It reports every problem found, not just the first.
func (c *Config) Validate() error {
	var errs []string
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, msg)
		}
	}

	check(c.Site.ID != "", "site.id is required")

	check(c.Manager.AuthorizeTimeout >= 0, "manager.authorize_timeout cannot be negative")
	check(c.Manager.ReauthorizeTimeout > 0, "manager.reauthorize_timeout must be positive")
	check(slices.Contains([]string{"", "redetect", "reauthenticate"}, c.Manager.Retry),
		"manager.retry must be redetect or reauthenticate")

	switch c.Devices.Source {
	case DeviceSourceFile:
		check(c.Devices.File != "", "devices.file is required when devices.source is file")
	case DeviceSourceDatabase:
		check(c.Database.Enabled, "devices.source database requires database.enabled")
	default:
		errs = append(errs, "devices.source must be file or database")
	}

	if c.Database.Enabled {
		check(c.Database.Path != "", "database.path is required")
	}

	if c.MQTT.Enabled {
		check(c.MQTT.Broker.Host != "", "mqtt.broker.host is required")
		check(c.MQTT.Prefix != "" && !strings.ContainsAny(c.MQTT.Prefix, "+#"),
			"mqtt.prefix must be non-empty and contain no wildcards")
	}
	check(c.MQTT.QoS >= 0 && c.MQTT.QoS <= 2, "mqtt.qos must be 0, 1, or 2")

	if c.InfluxDB.Enabled {
		check(c.InfluxDB.URL != "", "influxdb.url is required")
		check(c.InfluxDB.Org != "", "influxdb.org is required")
		check(c.InfluxDB.Bucket != "", "influxdb.bucket is required")
	}

	if c.API.Enabled {
		check(c.API.Port >= 1 && c.API.Port <= 65535, "api.port must be between 1 and 65535")

		const minJWTSecretLength = 32
		if c.Security.JWT.Secret == "" {
			errs = append(errs, "security.jwt.secret is required (set DOORMAN_JWT_SECRET environment variable)")
		} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
			errs = append(errs, "security.jwt.secret must be at least 32 characters")
		}
	}

	errs = append(errs, c.validateBackends()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateBackends checks backend names and the services each one needs.
func (c *Config) validateBackends() []string {
	var errs []string

	sections := []struct {
		name    string
		backend string
		allowed []string
	}{
		{"detector", c.Detector.Backend, []string{BackendConsole, BackendMQTT, BackendBLE}},
		{"authenticator", c.Authenticator.Backend, []string{BackendConsole, BackendMQTT, BackendHTTP}},
		{"actuator", c.Actuator.Backend, []string{BackendLog, BackendConsole, BackendMQTT, BackendCommand}},
		{"locker", c.Locker.Backend, []string{BackendConsole, BackendMQTT, BackendHTTP}},
	}

	for _, s := range sections {
		if !slices.Contains(s.allowed, s.backend) {
			errs = append(errs, fmt.Sprintf("%s.backend must be one of %s", s.name, strings.Join(s.allowed, ", ")))
			continue
		}
		if s.backend == BackendMQTT && !c.MQTT.Enabled {
			errs = append(errs, fmt.Sprintf("%s.backend mqtt requires mqtt.enabled", s.name))
		}
		if s.backend == BackendHTTP && !c.API.Enabled {
			errs = append(errs, fmt.Sprintf("%s.backend http requires api.enabled", s.name))
		}
	}

	if c.Detector.Backend == BackendBLE && c.Detector.BLE.Binary == "" {
		errs = append(errs, "detector.ble.binary is required for the ble backend")
	}
	if c.Detector.BLE.StableAfter < 0 {
		errs = append(errs, "detector.ble.stable_after cannot be negative")
	}
	if c.Actuator.Backend == BackendCommand {
		if c.Actuator.Command.Path == "" {
			errs = append(errs, "actuator.command.path is required for the command backend")
		}
		if c.Actuator.Command.Timeout <= 0 {
			errs = append(errs, "actuator.command.timeout must be positive")
		}
	}

	return errs
}
