package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Control Loop Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Component ComponentConfig `yaml:"component"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	History   HistoryConfig   `yaml:"history"`
	Audit     AuditConfig     `yaml:"audit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ComponentConfig identifies this component instance and the parameters
// it exposes for remote reconfiguration.
type ComponentConfig struct {
	// ID is the component identifier used as the reconfiguration topic root.
	// "info" is reserved for discovery requests and is rejected at startup.
	ID string `yaml:"id"`

	// Params holds the initial parameter set (name -> starting value).
	// Values may be integers, floats, strings or booleans.
	Params map[string]any `yaml:"params"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      AuthConfig          `yaml:"auth"`
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

// AuthConfig contains the OAuth2 client-credentials settings used to
// obtain the access token that authenticates the MQTT session.
type AuthConfig struct {
	// TokenEndpoint is the URL of the token issuing endpoint.
	// When empty, the session connects without token authentication
	// (local development brokers only).
	TokenEndpoint string `yaml:"token_endpoint"`

	// ClientID and ClientSecret are the client credentials presented
	// during the token exchange.
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	// Scope is the requested token scope.
	Scope string `yaml:"scope"`
}

// MQTTReconnectConfig contains MQTT reconnection settings. Reconnects
// are retried indefinitely; the delays bound the backoff schedule.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// HistoryConfig contains InfluxDB settings for the reconfiguration history.
type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// AuditConfig contains SQLite settings for the request audit trail.
type AuditConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: CONTROLLOOP_SECTION_KEY
// For example: CONTROLLOOP_MQTT_HOST, CONTROLLOOP_AUTH_CLIENT_SECRET
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: 8883,
				TLS:  true,
			},
			Auth: AuthConfig{
				Scope: "salted",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Audit: AuditConfig{
			Path:        "./data/controlloop.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CONTROLLOOP_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Component
	if v := os.Getenv("CONTROLLOOP_COMPONENT_ID"); v != "" {
		cfg.Component.ID = v
	}

	// MQTT
	if v := os.Getenv("CONTROLLOOP_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("CONTROLLOOP_AUTH_ENDPOINT"); v != "" {
		cfg.MQTT.Auth.TokenEndpoint = v
	}
	if v := os.Getenv("CONTROLLOOP_AUTH_CLIENT_ID"); v != "" {
		cfg.MQTT.Auth.ClientID = v
	}
	if v := os.Getenv("CONTROLLOOP_AUTH_CLIENT_SECRET"); v != "" {
		cfg.MQTT.Auth.ClientSecret = v
	}

	// History
	if v := os.Getenv("CONTROLLOOP_HISTORY_TOKEN"); v != "" {
		cfg.History.Token = v
	}

	// Audit
	if v := os.Getenv("CONTROLLOOP_AUDIT_PATH"); v != "" {
		cfg.Audit.Path = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Component validation
	if c.Component.ID == "" {
		errs = append(errs, "component.id is required")
	}

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Auth validation - a token endpoint without credentials can never
	// complete the client-credentials exchange, so fail fast at startup.
	if c.MQTT.Auth.TokenEndpoint != "" {
		if c.MQTT.Auth.ClientID == "" {
			errs = append(errs, "mqtt.auth.client_id is required when token_endpoint is set")
		}
		if c.MQTT.Auth.ClientSecret == "" {
			errs = append(errs, "mqtt.auth.client_secret is required when token_endpoint is set (set CONTROLLOOP_AUTH_CLIENT_SECRET environment variable)")
		}
	}

	// History validation
	if c.History.Enabled && c.History.URL == "" {
		errs = append(errs, "history.url is required when history is enabled")
	}

	// Audit validation
	if c.Audit.Enabled && c.Audit.Path == "" {
		errs = append(errs, "audit.path is required when audit is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetInitialReconnectDelay returns the reconnect initial delay as a Duration.
func (c MQTTConfig) GetInitialReconnectDelay() time.Duration {
	return time.Duration(c.Reconnect.InitialDelay) * time.Second
}

// GetMaxReconnectDelay returns the reconnect maximum delay as a Duration.
func (c MQTTConfig) GetMaxReconnectDelay() time.Duration {
	return time.Duration(c.Reconnect.MaxDelay) * time.Second
}
