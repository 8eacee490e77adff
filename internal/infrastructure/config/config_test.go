package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
controller:
  host: "192.168.1.50"
  telnet_port: 23
  api_port: 443
  username: "admin"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8080
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Controller.Host != "192.168.1.50" {
		t.Errorf("Controller.Host = %q, want %q", cfg.Controller.Host, "192.168.1.50")
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
database:
  path: ""
api:
  port: 8080
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty database.path, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	// validJWTSecret is a secret that meets the 32-character minimum requirement
	validJWTSecret := "test-secret-key-at-least-32-chars!"

	valid := func() *Config {
		return &Config{
			Controller: ControllerConfig{
				TelnetPort: 23,
				APIPort:    443,
				Timeout:    10,
			},
			Database: DatabaseConfig{
				Path: "/data/moip.db",
			},
			MQTT: MQTTConfig{
				QoS: 1,
			},
			API: APIConfig{
				Port: 8080,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "invalid api port low",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid api port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "invalid telnet port",
			mutate:  func(c *Config) { c.Controller.TelnetPort = 0 },
			wantErr: true,
		},
		{
			name:    "invalid controller timeout",
			mutate:  func(c *Config) { c.Controller.Timeout = 0 },
			wantErr: true,
		},
		{
			name: "auth enabled without secret",
			mutate: func(c *Config) {
				c.Auth.Enabled = true
				c.Auth.Username = "admin"
				c.Auth.Password = "pass"
			},
			wantErr: true,
		},
		{
			name: "auth enabled with short secret",
			mutate: func(c *Config) {
				c.Auth.Enabled = true
				c.Auth.JWTSecret = "short"
				c.Auth.Username = "admin"
				c.Auth.Password = "pass"
			},
			wantErr: true,
		},
		{
			name: "auth enabled without credentials",
			mutate: func(c *Config) {
				c.Auth.Enabled = true
				c.Auth.JWTSecret = validJWTSecret
				c.Auth.Username = "admin"
			},
			wantErr: true,
		},
		{
			name: "auth enabled fully configured",
			mutate: func(c *Config) {
				c.Auth.Enabled = true
				c.Auth.JWTSecret = validJWTSecret
				c.Auth.Username = "admin"
				c.Auth.Password = "pass"
			},
			wantErr: false,
		},
		{
			name: "telemetry without influxdb",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Interval = 60
				c.Telemetry.Workers = 10
			},
			wantErr: true,
		},
		{
			name: "telemetry with influxdb",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.Telemetry.Enabled = true
				c.Telemetry.Interval = 60
				c.Telemetry.Workers = 10
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
		Controller: ControllerConfig{Timeout: 10},
		Telemetry:  TelemetryConfig{Interval: 120},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}

	if got := cfg.GetControllerTimeout().Seconds(); got != 10 {
		t.Errorf("GetControllerTimeout() = %v, want 10", got)
	}

	if got := cfg.GetTelemetryInterval().Seconds(); got != 120 {
		t.Errorf("GetTelemetryInterval() = %v, want 120", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	// Set environment variables
	t.Setenv("MOIP_CONTROLLER_HOST", "10.0.0.5")
	t.Setenv("MOIP_CONTROLLER_TELNET_PORT", "2323")
	t.Setenv("MOIP_CONTROLLER_USERNAME", "moipadmin")
	t.Setenv("MOIP_CONTROLLER_PASSWORD", "moippass")
	t.Setenv("MOIP_DATABASE_PATH", "/custom/path.db")
	t.Setenv("MOIP_MQTT_HOST", "mqtt.example.com")
	t.Setenv("MOIP_MQTT_USERNAME", "testuser")
	t.Setenv("MOIP_MQTT_PASSWORD", "testpass")
	t.Setenv("MOIP_API_HOST", "192.168.1.1")
	t.Setenv("MOIP_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("MOIP_AUTH_JWT_SECRET", "jwt-secret")

	applyEnvOverrides(cfg)

	if cfg.Controller.Host != "10.0.0.5" {
		t.Errorf("Controller.Host = %q, want %q", cfg.Controller.Host, "10.0.0.5")
	}

	if cfg.Controller.TelnetPort != 2323 {
		t.Errorf("Controller.TelnetPort = %d, want 2323", cfg.Controller.TelnetPort)
	}

	if cfg.Controller.Username != "moipadmin" {
		t.Errorf("Controller.Username = %q, want %q", cfg.Controller.Username, "moipadmin")
	}

	if cfg.Controller.Password != "moippass" {
		t.Errorf("Controller.Password = %q, want %q", cfg.Controller.Password, "moippass")
	}

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}

	if cfg.Auth.JWTSecret != "jwt-secret" {
		t.Errorf("Auth.JWTSecret = %q, want %q", cfg.Auth.JWTSecret, "jwt-secret")
	}
}

func TestApplyEnvOverrides_InvalidPort(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("MOIP_CONTROLLER_TELNET_PORT", "not-a-port")

	applyEnvOverrides(cfg)

	if cfg.Controller.TelnetPort != 23 {
		t.Errorf("Controller.TelnetPort = %d, want default 23 for unparsable override", cfg.Controller.TelnetPort)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}

	if cfg.Controller.TelnetPort != 23 {
		t.Errorf("defaultConfig Controller.TelnetPort = %d, want 23", cfg.Controller.TelnetPort)
	}

	if cfg.Controller.APIPort != 443 {
		t.Errorf("defaultConfig Controller.APIPort = %d, want 443", cfg.Controller.APIPort)
	}

	if cfg.Controller.Timeout != 10 {
		t.Errorf("defaultConfig Controller.Timeout = %d, want 10", cfg.Controller.Timeout)
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}

	if cfg.Telemetry.Workers != 10 {
		t.Errorf("defaultConfig Telemetry.Workers = %d, want 10", cfg.Telemetry.Workers)
	}
}
