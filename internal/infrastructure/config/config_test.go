package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
site:
  id: "test-site"
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
nvm:
  backend: "sqlite"
  name: "secret"
  size: 128
security:
  auth:
    pin_duration: 60
    max_attempts: 3
  secret:
    offset: 32
    length: 20
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

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}

	if cfg.NVM.Backend != NVMBackendSQLite {
		t.Errorf("NVM.Backend = %q, want %q", cfg.NVM.Backend, NVMBackendSQLite)
	}

	if cfg.Security.Auth.MaxAttempts != 3 {
		t.Errorf("Security.Auth.MaxAttempts = %d, want 3", cfg.Security.Auth.MaxAttempts)
	}

	// Unset keys keep their defaults.
	if cfg.Security.Auth.TokenLength != 32 {
		t.Errorf("Security.Auth.TokenLength = %d, want default 32", cfg.Security.Auth.TokenLength)
	}

	if cfg.Security.Secret.Offset != 32 || cfg.Security.Secret.Length != 20 {
		t.Errorf("Security.Secret = %+v, want offset 32 length 20", cfg.Security.Secret)
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
site:
  id: ""
database:
  path: "/tmp/test.db"
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
		t.Error("Load() expected validation error for empty site.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(_ *Config) {},
			wantErr: false,
		},
		{
			name:    "missing site ID",
			mutate:  func(c *Config) { c.Site.ID = "" },
			wantErr: true,
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
			name:    "invalid port low",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "unknown nvm backend",
			mutate:  func(c *Config) { c.NVM.Backend = "eeprom" },
			wantErr: true,
		},
		{
			name:    "file backend without path",
			mutate:  func(c *Config) { c.NVM.Path = "" },
			wantErr: true,
		},
		{
			name: "sqlite backend without name",
			mutate: func(c *Config) {
				c.NVM.Backend = NVMBackendSQLite
				c.NVM.Name = ""
			},
			wantErr: true,
		},
		{
			name:    "memory backend",
			mutate:  func(c *Config) { c.NVM.Backend = NVMBackendMemory },
			wantErr: false,
		},
		{
			name:    "negative audit retention",
			mutate:  func(c *Config) { c.Audit.RetentionDays = -1 },
			wantErr: true,
		},
		{
			name:    "relative metrics path",
			mutate:  func(c *Config) { c.Metrics.Path = "metrics" },
			wantErr: true,
		},
		{
			name:    "metrics path under api",
			mutate:  func(c *Config) { c.Metrics.Path = "/api/metrics" },
			wantErr: true,
		},
		{
			name: "metrics disabled ignores path",
			mutate: func(c *Config) {
				c.Metrics.Enabled = false
				c.Metrics.Path = ""
			},
			wantErr: false,
		},
		{
			name: "discovery without instance",
			mutate: func(c *Config) {
				c.Discovery.Enabled = true
				c.Discovery.Instance = ""
			},
			wantErr: true,
		},
		{
			name:    "zero secret length",
			mutate:  func(c *Config) { c.Security.Secret.Length = 0 },
			wantErr: true,
		},
		{
			name:    "negative secret length",
			mutate:  func(c *Config) { c.Security.Secret.Length = -4 },
			wantErr: true,
		},
		{
			name: "secret length above one byte",
			mutate: func(c *Config) {
				c.NVM.Size = 1024
				c.Security.Secret.Length = 256
			},
			wantErr: true,
		},
		{
			name:    "negative secret offset",
			mutate:  func(c *Config) { c.Security.Secret.Offset = -1 },
			wantErr: true,
		},
		{
			name: "frame does not fit region",
			mutate: func(c *Config) {
				c.NVM.Size = 64
				c.Security.Secret.Offset = 48
			},
			wantErr: true,
		},
		{
			name: "frame fits region exactly",
			mutate: func(c *Config) {
				c.NVM.Size = 21
				c.Security.Secret.Offset = 0
				c.Security.Secret.Length = 16
			},
			wantErr: false,
		},
		{
			name:    "zero pin duration",
			mutate:  func(c *Config) { c.Security.Auth.PINDuration = 0 },
			wantErr: true,
		},
		{
			name:    "zero max attempts",
			mutate:  func(c *Config) { c.Security.Auth.MaxAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "short token length",
			mutate:  func(c *Config) { c.Security.Auth.TokenLength = 8 },
			wantErr: true,
		},
		{
			name:    "rate limit without budget",
			mutate:  func(c *Config) { c.Security.RateLimit.RequestsPerMinute = 0 },
			wantErr: true,
		},
		{
			name:    "mqtt display without mqtt",
			mutate:  func(c *Config) { c.Display.MQTT = true },
			wantErr: true,
		},
		{
			name:    "otp digits out of range",
			mutate:  func(c *Config) { c.OTP.Digits = 10 },
			wantErr: true,
		},
		{
			name:    "otp without issuer",
			mutate:  func(c *Config) { c.OTP.Issuer = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAPITimeoutConfig_Durations(t *testing.T) {
	timeouts := APITimeoutConfig{Read: 30, Write: 45, Idle: 60}

	if got := timeouts.ReadTimeout().Seconds(); got != 30 {
		t.Errorf("ReadTimeout() = %v, want 30", got)
	}
	if got := timeouts.WriteTimeout().Seconds(); got != 45 {
		t.Errorf("WriteTimeout() = %v, want 45", got)
	}
	if got := timeouts.IdleTimeout().Seconds(); got != 60 {
		t.Errorf("IdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	// Set environment variables
	t.Setenv("STAGETWO_DATABASE_PATH", "/custom/path.db")
	t.Setenv("STAGETWO_MQTT_HOST", "mqtt.example.com")
	t.Setenv("STAGETWO_MQTT_USERNAME", "testuser")
	t.Setenv("STAGETWO_MQTT_PASSWORD", "testpass")
	t.Setenv("STAGETWO_API_HOST", "192.168.1.1")
	t.Setenv("STAGETWO_API_PORT", "8081")
	t.Setenv("STAGETWO_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("STAGETWO_NVM_PATH", "/var/lib/stagetwo/nvm.bin")
	t.Setenv("STAGETWO_AUTH_REQUIRED", "false")

	applyEnvOverrides(cfg)

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

	if cfg.API.Port != 8081 {
		t.Errorf("API.Port = %d, want 8081", cfg.API.Port)
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}

	if cfg.NVM.Path != "/var/lib/stagetwo/nvm.bin" {
		t.Errorf("NVM.Path = %q, want %q", cfg.NVM.Path, "/var/lib/stagetwo/nvm.bin")
	}

	if cfg.Security.Auth.Required {
		t.Error("Security.Auth.Required = true, want false after STAGETWO_AUTH_REQUIRED=false")
	}
}

func TestApplyEnvOverrides_IgnoresMalformedValues(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("STAGETWO_API_PORT", "eighty")
	t.Setenv("STAGETWO_AUTH_REQUIRED", "maybe")

	applyEnvOverrides(cfg)

	if cfg.API.Port != 80 {
		t.Errorf("API.Port = %d, want default 80", cfg.API.Port)
	}
	if !cfg.Security.Auth.Required {
		t.Error("Security.Auth.Required should keep its default")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaultConfig should validate, got %v", err)
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.API.Port != 80 {
		t.Errorf("defaultConfig API.Port = %d, want 80", cfg.API.Port)
	}

	auth := cfg.Security.Auth
	if auth.PINDuration != 120 || auth.MaxAttempts != 5 || auth.TokenLength != 32 {
		t.Errorf("defaultConfig auth = %+v, want 120s/5 attempts/32 chars", auth)
	}
	if !auth.Required {
		t.Error("defaultConfig should require auth")
	}

	if cfg.Security.Secret.Length != 16 || cfg.Security.Secret.Offset != 0 {
		t.Errorf("defaultConfig secret = %+v, want offset 0 length 16", cfg.Security.Secret)
	}

	if got := cfg.PINDuration().Seconds(); got != 120 {
		t.Errorf("PINDuration() = %v, want 120", got)
	}

	if !cfg.Audit.Enabled || cfg.Audit.RetentionDays != 90 {
		t.Errorf("defaultConfig audit = %+v, want enabled with 90 days", cfg.Audit)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("defaultConfig metrics = %+v, want enabled at /metrics", cfg.Metrics)
	}
	if cfg.Discovery.Enabled {
		t.Error("defaultConfig should not advertise over mDNS")
	}
}

func TestDefault_AppliesEnv(t *testing.T) {
	t.Setenv("STAGETWO_DATABASE_PATH", "/tmp/env.db")
	t.Setenv("STAGETWO_DISCOVERY_ENABLED", "true")

	cfg := Default()
	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("Default().Database.Path = %q, want %q", cfg.Database.Path, "/tmp/env.db")
	}
	if !cfg.Discovery.Enabled {
		t.Error("STAGETWO_DISCOVERY_ENABLED=true not applied")
	}
}
