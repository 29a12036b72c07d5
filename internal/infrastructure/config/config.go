package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the StageTwo WebGate core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	NVM       NVMConfig       `yaml:"nvm"`
	Security  SecurityConfig  `yaml:"security"`
	Display   DisplayConfig   `yaml:"display"`
	OTP       OTPConfig       `yaml:"otp"`
	Audit     AuditConfig     `yaml:"audit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Discovery DiscoveryConfig `yaml:"discovery"`
}

// SiteConfig identifies the device.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	// Enabled turns on the device-local broker connection used by the
	// display presenter and auth event publishing.
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

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`

	// UIDir serves the login page from disk instead of the embedded copy.
	UIDir string `yaml:"ui_dir"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
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

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// NVM backend names.
const (
	NVMBackendFile   = "file"
	NVMBackendSQLite = "sqlite"
	NVMBackendMemory = "memory"
)

// NVMConfig selects and sizes the non-volatile byte region that holds the
// device secret.
type NVMConfig struct {
	// Backend is "file", "sqlite" or "memory".
	// Default: "file"
	Backend string `yaml:"backend"`

	// Path is the backing file for the file backend.
	Path string `yaml:"path"`

	// Name is the region row name for the sqlite backend.
	Name string `yaml:"name"`

	// Size is the region size in bytes.
	// Default: 256
	Size int `yaml:"size"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	Auth      AuthConfig      `yaml:"auth"`
	Secret    SecretConfig    `yaml:"secret"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// AuthConfig controls the display PIN challenge and session tokens.
type AuthConfig struct {
	// Required gates protected routes. Turning it off admits every request
	// and is meant for bench development only.
	Required bool `yaml:"required"`

	// PINDuration is the PIN rotation window in seconds.
	// Default: 120
	PINDuration int `yaml:"pin_duration"`

	// MaxAttempts is the number of failed PIN submissions per client before lockout.
	// Default: 5
	MaxAttempts int `yaml:"max_attempts"`

	// TokenLength is the session token length in characters.
	// Default: 32
	TokenLength int `yaml:"token_length"`

	// ExposePINInfo controls whether GET /api/auth/info includes the live PIN.
	// Default: true
	ExposePINInfo bool `yaml:"expose_pin_info"`
}

// SecretConfig describes where the device secret frame lives in the NVM region.
type SecretConfig struct {
	Offset int `yaml:"offset"`

	// Length is the secret length in bytes (1-255).
	// Default: 16
	Length int `yaml:"length"`
}

// RateLimitConfig contains request rate limiting settings for the auth endpoint.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

// DisplayConfig selects the output surfaces the PIN is shown on.
type DisplayConfig struct {
	Console bool `yaml:"console"`
	MQTT    bool `yaml:"mqtt"`

	// QuickAccessHost, when set, adds an http://host/?pin=... URL to the
	// display frame so the screen can render it as a QR code.
	QuickAccessHost string `yaml:"quick_access_host"`
}

// OTPConfig contains settings for the counter-based code exposed by /api/totp/setup.
type OTPConfig struct {
	Issuer  string `yaml:"issuer"`
	Account string `yaml:"account"`
	Period  int    `yaml:"period"`
	Digits  int    `yaml:"digits"`
}

// AuditConfig contains audit trail settings.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`

	// RetentionDays prunes older entries at startup. Zero keeps everything.
	RetentionDays int `yaml:"retention_days"`

	// QueueSize bounds the asynchronous write queue.
	QueueSize int `yaml:"queue_size"`
}

// MetricsConfig controls the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DiscoveryConfig controls mDNS/DNS-SD advertisement of the admin interface.
type DiscoveryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance"`
	Domain   string `yaml:"domain"`
}

// Limits enforced by Validate.
const (
	maxSecretLength   = 255
	secretFrameHeader = 5
	minOTPDigits      = 6
	maxOTPDigits      = 8
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: STAGETWO_SECTION_KEY
// For example: STAGETWO_DATABASE_PATH, STAGETWO_API_PORT
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

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with environment overrides
// applied. Used when no config file is present on a freshly flashed device.
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "stagetwo-001",
			Name: "StageTwo",
		},
		Database: DatabaseConfig{
			Path:        "./data/webgate.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "stagetwo-webgate",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 80,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		NVM: NVMConfig{
			Backend: NVMBackendFile,
			Path:    "./data/nvm.bin",
			Name:    "secret",
			Size:    256,
		},
		Security: SecurityConfig{
			Auth: AuthConfig{
				Required:      true,
				PINDuration:   120,
				MaxAttempts:   5,
				TokenLength:   32,
				ExposePINInfo: true,
			},
			Secret: SecretConfig{
				Offset: 0,
				Length: 16,
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 30,
			},
		},
		Display: DisplayConfig{
			Console: true,
		},
		OTP: OTPConfig{
			Issuer:  "StageTwo",
			Account: "admin",
			Period:  30,
			Digits:  6,
		},
		Audit: AuditConfig{
			Enabled:       true,
			RetentionDays: 90,
			QueueSize:     256,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Discovery: DiscoveryConfig{
			Enabled:  false,
			Instance: "StageTwo WebGate",
			Domain:   "local.",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: STAGETWO_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("STAGETWO_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("STAGETWO_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("STAGETWO_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("STAGETWO_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("STAGETWO_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("STAGETWO_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("STAGETWO_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// NVM
	if v := os.Getenv("STAGETWO_NVM_PATH"); v != "" {
		cfg.NVM.Path = v
	}

	// Discovery
	if v := os.Getenv("STAGETWO_DISCOVERY_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Discovery.Enabled = enabled
		}
	}

	// Auth toggle for bench work; only "false" disables it.
	if v := os.Getenv("STAGETWO_AUTH_REQUIRED"); v != "" {
		if required, err := strconv.ParseBool(v); err == nil {
			cfg.Security.Auth.Required = required
		}
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error { //nolint:gocognit,gocyclo // flat list of independent checks
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// NVM region
	switch c.NVM.Backend {
	case NVMBackendFile:
		if c.NVM.Path == "" {
			errs = append(errs, "nvm.path is required for the file backend")
		}
	case NVMBackendSQLite:
		if c.NVM.Name == "" {
			errs = append(errs, "nvm.name is required for the sqlite backend")
		}
	case NVMBackendMemory:
	default:
		errs = append(errs, "nvm.backend must be file, sqlite, or memory")
	}

	// Secret frame must fit: magic(4) + length(1) + payload.
	sec := c.Security.Secret
	if sec.Length < 1 || sec.Length > maxSecretLength {
		errs = append(errs, "security.secret.length must be between 1 and 255")
	}
	if sec.Offset < 0 {
		errs = append(errs, "security.secret.offset must not be negative")
	}
	if c.NVM.Size < sec.Offset+secretFrameHeader+sec.Length {
		errs = append(errs, "nvm.size is too small for the secret frame at security.secret.offset")
	}

	auth := c.Security.Auth
	if auth.PINDuration < 1 {
		errs = append(errs, "security.auth.pin_duration must be at least 1 second")
	}
	if auth.MaxAttempts < 1 {
		errs = append(errs, "security.auth.max_attempts must be at least 1")
	}
	if auth.TokenLength < 16 {
		errs = append(errs, "security.auth.token_length must be at least 16")
	}

	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RequestsPerMinute < 1 {
		errs = append(errs, "security.rate_limit.requests_per_minute must be positive when enabled")
	}

	if c.Display.MQTT && !c.MQTT.Enabled {
		errs = append(errs, "display.mqtt requires mqtt.enabled")
	}

	if c.OTP.Issuer == "" || c.OTP.Account == "" {
		errs = append(errs, "otp.issuer and otp.account are required")
	}
	if c.OTP.Period < 1 {
		errs = append(errs, "otp.period must be at least 1 second")
	}
	if c.OTP.Digits < minOTPDigits || c.OTP.Digits > maxOTPDigits {
		errs = append(errs, "otp.digits must be between 6 and 8")
	}

	if c.Audit.RetentionDays < 0 {
		errs = append(errs, "audit.retention_days must not be negative")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, "metrics.path must start with /")
	}
	if c.Metrics.Enabled && strings.HasPrefix(c.Metrics.Path, "/api/") {
		errs = append(errs, "metrics.path must not be under /api/")
	}

	if c.Discovery.Enabled && c.Discovery.Instance == "" {
		errs = append(errs, "discovery.instance is required when discovery is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ReadTimeout returns the read timeout as a Duration.
func (t APITimeoutConfig) ReadTimeout() time.Duration {
	return time.Duration(t.Read) * time.Second
}

// WriteTimeout returns the write timeout as a Duration.
func (t APITimeoutConfig) WriteTimeout() time.Duration {
	return time.Duration(t.Write) * time.Second
}

// IdleTimeout returns the keep-alive idle timeout as a Duration.
func (t APITimeoutConfig) IdleTimeout() time.Duration {
	return time.Duration(t.Idle) * time.Second
}

// PINDuration returns the PIN rotation window as a Duration.
func (c *Config) PINDuration() time.Duration {
	return time.Duration(c.Security.Auth.PINDuration) * time.Second
}
