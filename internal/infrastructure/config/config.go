package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for MoIP Manager.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Controller ControllerConfig `yaml:"controller"`
	Database   DatabaseConfig   `yaml:"database"`
	API        APIConfig        `yaml:"api"`
	Auth       AuthConfig       `yaml:"auth"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ControllerConfig contains default connection settings for the MoIP controller.
//
// These are fallback values: settings persisted through the management API take
// precedence, these values take precedence over built-in defaults. The host may
// legitimately be empty on first boot; it is then set through the settings endpoint.
type ControllerConfig struct {
	Host       string `yaml:"host"`
	TelnetPort int    `yaml:"telnet_port"`
	APIPort    int    `yaml:"api_port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	VerifySSL  bool   `yaml:"verify_ssl"`
	Timeout    int    `yaml:"timeout"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// AuthConfig contains management API authentication settings.
//
// When disabled the API is open, matching a deployment on a trusted network.
// When enabled, a single operator account is configured here and all routes
// except login, health, and the WebSocket upgrade require a bearer token.
type AuthConfig struct {
	Enabled        bool   `yaml:"enabled"`
	JWTSecret      string `yaml:"jwt_secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	PasswordHash   string `yaml:"password_hash"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
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
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// TelemetryConfig contains video statistics sampling settings.
type TelemetryConfig struct {
	Enabled  bool `yaml:"enabled"`
	Interval int  `yaml:"interval"`
	Workers  int  `yaml:"workers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
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
// Environment variables follow the pattern: MOIP_SECTION_KEY
// For example: MOIP_CONTROLLER_HOST, MOIP_DATABASE_PATH
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
		Controller: ControllerConfig{
			TelnetPort: 23,
			APIPort:    443,
			VerifySSL:  false,
			Timeout:    10,
		},
		Database: DatabaseConfig{
			Path:        "./data/moip.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Auth: AuthConfig{
			Enabled:        false,
			AccessTokenTTL: 15,
			Username:       "admin",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "moip-manager",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Telemetry: TelemetryConfig{
			Interval: 60,
			Workers:  10,
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: MOIP_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Controller
	if v := os.Getenv("MOIP_CONTROLLER_HOST"); v != "" {
		cfg.Controller.Host = v
	}
	if v := os.Getenv("MOIP_CONTROLLER_TELNET_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Controller.TelnetPort = port
		}
	}
	if v := os.Getenv("MOIP_CONTROLLER_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Controller.APIPort = port
		}
	}
	if v := os.Getenv("MOIP_CONTROLLER_USERNAME"); v != "" {
		cfg.Controller.Username = v
	}
	if v := os.Getenv("MOIP_CONTROLLER_PASSWORD"); v != "" {
		cfg.Controller.Password = v
	}

	// Database
	if v := os.Getenv("MOIP_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// API
	if v := os.Getenv("MOIP_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// MQTT
	if v := os.Getenv("MOIP_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MOIP_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MOIP_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("MOIP_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Auth - JWT secret (always override in production)
	if v := os.Getenv("MOIP_AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// Controller validation
	if c.Controller.TelnetPort < 1 || c.Controller.TelnetPort > 65535 {
		errs = append(errs, "controller.telnet_port must be between 1 and 65535")
	}
	if c.Controller.APIPort < 1 || c.Controller.APIPort > 65535 {
		errs = append(errs, "controller.api_port must be between 1 and 65535")
	}
	if c.Controller.Timeout < 1 {
		errs = append(errs, "controller.timeout must be at least 1 second")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Auth validation - the JWT secret guards every mutating route, so a weak
	// secret would let an attacker forge tokens and drive the video matrix.
	const minJWTSecretLength = 32
	if c.Auth.Enabled {
		if c.Auth.JWTSecret == "" {
			errs = append(errs, "auth.jwt_secret is required when auth is enabled (set MOIP_AUTH_JWT_SECRET environment variable)")
		} else if len(c.Auth.JWTSecret) < minJWTSecretLength {
			errs = append(errs, "auth.jwt_secret must be at least 32 characters for adequate security")
		}
		if c.Auth.Username == "" {
			errs = append(errs, "auth.username is required when auth is enabled")
		}
		if c.Auth.Password == "" && c.Auth.PasswordHash == "" {
			errs = append(errs, "auth.password or auth.password_hash is required when auth is enabled")
		}
	}

	// Telemetry validation
	if c.Telemetry.Enabled {
		if !c.InfluxDB.Enabled {
			errs = append(errs, "telemetry.enabled requires influxdb.enabled")
		}
		if c.Telemetry.Interval < 1 {
			errs = append(errs, "telemetry.interval must be at least 1 second")
		}
		if c.Telemetry.Workers < 1 {
			errs = append(errs, "telemetry.workers must be at least 1")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetControllerTimeout returns the controller command timeout as a Duration.
func (c *Config) GetControllerTimeout() time.Duration {
	return time.Duration(c.Controller.Timeout) * time.Second
}

// GetTelemetryInterval returns the telemetry sampling interval as a Duration.
func (c *Config) GetTelemetryInterval() time.Duration {
	return time.Duration(c.Telemetry.Interval) * time.Second
}
