package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the NaviLink client.
// All configuration is loaded from YAML; credentials and device identity
// normally come from the external account service, but can be supplied
// statically here for long-running monitor deployments.
type Config struct {
	Device      DeviceConfig      `yaml:"device"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Broker      BrokerConfig      `yaml:"broker"`
	Reconnect   ReconnectConfig   `yaml:"reconnect"`
	Polling     PollingConfig     `yaml:"polling"`
	Status      StatusConfig      `yaml:"status"`
	History     HistoryConfig     `yaml:"history"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// DeviceConfig identifies the single device this client instance talks to.
// The values mirror what the NaviLink device directory returns.
type DeviceConfig struct {
	Type            int    `yaml:"type"`
	MACAddress      string `yaml:"mac_address"`
	AdditionalValue string `yaml:"additional_value"`
	GroupID         string `yaml:"group_id"`
	UserID          string `yaml:"user_id"`
}

// CredentialsConfig holds static temporary AWS credentials for the broker
// session. ExpiresAt is RFC3339; empty means "treat as non-expiring".
type CredentialsConfig struct {
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	ExpiresAt       string `yaml:"expires_at"`
}

// BrokerConfig contains AWS IoT broker connection settings.
type BrokerConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Region         string `yaml:"region"`
	QoS            int    `yaml:"qos"`
	ConnectTimeout int    `yaml:"connect_timeout"`
	KeepAlive      int    `yaml:"keep_alive"`
}

// ReconnectConfig contains reconnection backoff settings.
// Delays are in seconds.
type ReconnectConfig struct {
	MaxRetries        int     `yaml:"max_retries"`
	InitialDelay      int     `yaml:"initial_delay"`
	MaxDelay          int     `yaml:"max_delay"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	Jitter            bool    `yaml:"jitter"`
}

// PollingConfig contains status polling settings.
type PollingConfig struct {
	Interval int `yaml:"interval"`
}

// StatusConfig contains status normalization and delivery settings.
type StatusConfig struct {
	// CalibrationOffset is added to display-unit temperatures on read and
	// subtracted on write. Empirically derived, not protocol-mandated.
	CalibrationOffset int `yaml:"calibration_offset"`

	// Buffer is the capacity of the decoded-status delivery channel.
	Buffer int `yaml:"buffer"`

	// CommandTimeout is the per-request response wait in seconds.
	CommandTimeout int `yaml:"command_timeout"`
}

// HistoryConfig contains SQLite status history settings.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TelemetryConfig contains InfluxDB connection settings.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
//
// Reconnect and keepalive values match the behaviour observed against the
// production NaviLink service.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Type: 52, // heat pump water heater
		},
		Broker: BrokerConfig{
			Region:         "us-east-1",
			QoS:            1,
			ConnectTimeout: 60,
			KeepAlive:      300,
		},
		Reconnect: ReconnectConfig{
			MaxRetries:        20,
			InitialDelay:      2,
			MaxDelay:          120,
			BackoffMultiplier: 2.0,
			Jitter:            true,
		},
		Polling: PollingConfig{
			Interval: 15,
		},
		Status: StatusConfig{
			CalibrationOffset: 20,
			Buffer:            16,
			CommandTimeout:    30,
		},
		History: HistoryConfig{
			Enabled: false,
			Path:    "./data/navilink.db",
		},
		Telemetry: TelemetryConfig{
			Enabled:       false,
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Device validation
	if c.Device.MACAddress == "" {
		errs = append(errs, "device.mac_address is required")
	}
	if c.Device.Type <= 0 {
		errs = append(errs, "device.type must be positive")
	}

	// Broker validation
	if c.Broker.Endpoint == "" {
		errs = append(errs, "broker.endpoint is required")
	}
	if c.Broker.Region == "" {
		errs = append(errs, "broker.region is required")
	}
	// QoS 2 is deliberately unsupported; the device protocol never uses it.
	if c.Broker.QoS < 0 || c.Broker.QoS > 1 {
		errs = append(errs, "broker.qos must be 0 or 1")
	}

	// Reconnect validation
	if c.Reconnect.MaxRetries < 0 {
		errs = append(errs, "reconnect.max_retries must be >= 0")
	}
	if c.Reconnect.InitialDelay <= 0 {
		errs = append(errs, "reconnect.initial_delay must be > 0")
	}
	if c.Reconnect.MaxDelay < c.Reconnect.InitialDelay {
		errs = append(errs, "reconnect.max_delay must be >= reconnect.initial_delay")
	}
	if c.Reconnect.BackoffMultiplier <= 1 {
		errs = append(errs, "reconnect.backoff_multiplier must be > 1")
	}

	// Polling validation
	if c.Polling.Interval <= 0 {
		errs = append(errs, "polling.interval must be > 0")
	}

	// Status validation
	if c.Status.Buffer <= 0 {
		errs = append(errs, "status.buffer must be > 0")
	}
	if c.Status.CommandTimeout <= 0 {
		errs = append(errs, "status.command_timeout must be > 0")
	}

	// History validation
	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, "history.path is required when history is enabled")
	}

	// Telemetry validation
	if c.Telemetry.Enabled {
		if c.Telemetry.URL == "" {
			errs = append(errs, "telemetry.url is required when telemetry is enabled")
		}
		if c.Telemetry.Bucket == "" {
			errs = append(errs, "telemetry.bucket is required when telemetry is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// CredentialExpiry parses the configured credential expiry time.
// A zero time is returned when expires_at is unset.
func (c *Config) CredentialExpiry() (time.Time, error) {
	if c.Credentials.ExpiresAt == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, c.Credentials.ExpiresAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing credentials.expires_at: %w", err)
	}
	return t, nil
}

// GetConnectTimeout returns the broker connect timeout as a Duration.
func (b BrokerConfig) GetConnectTimeout() time.Duration {
	return time.Duration(b.ConnectTimeout) * time.Second
}

// GetKeepAlive returns the broker keepalive interval as a Duration.
func (b BrokerConfig) GetKeepAlive() time.Duration {
	return time.Duration(b.KeepAlive) * time.Second
}

// GetPollingInterval returns the status polling interval as a Duration.
func (c *Config) GetPollingInterval() time.Duration {
	return time.Duration(c.Polling.Interval) * time.Second
}

// GetCommandTimeout returns the per-request response wait as a Duration.
func (c *Config) GetCommandTimeout() time.Duration {
	return time.Duration(c.Status.CommandTimeout) * time.Second
}
