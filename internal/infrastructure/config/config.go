package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Hearth Core.
type Config struct {
	Hub       HubConfig       `yaml:"hub"`
	Database  DatabaseConfig  `yaml:"database"`
	Cloud     CloudConfig     `yaml:"cloud"`
	Local     LocalConfig     `yaml:"local"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// HubConfig identifies this hub installation.
type HubConfig struct {
	// ServerID is the account-assigned identity of this hub.
	ServerID string `yaml:"server_id"`

	// InstallID is the install-unique identifier presented to the cloud
	// relay at connect time alongside ServerID.
	InstallID string `yaml:"install_id"`

	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// CloudConfig contains cloud relay connection settings.
type CloudConfig struct {
	Broker    CloudBrokerConfig    `yaml:"broker"`
	Auth      CloudAuthConfig      `yaml:"auth"`
	QoS       int                  `yaml:"qos"`
	Reconnect CloudReconnectConfig `yaml:"reconnect"`
}

// CloudBrokerConfig contains relay broker connection details.
type CloudBrokerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	TLS  bool   `yaml:"tls"`
}

// CloudAuthConfig contains relay authentication credentials.
type CloudAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// CloudReconnectConfig contains relay reconnection settings.
type CloudReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// LocalConfig contains local-network control server settings.
type LocalConfig struct {
	Host      string          `yaml:"host"`
	Port      int             `yaml:"port"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

// WebSocketConfig contains WebSocket server settings for the local channel.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// DispatchConfig contains command dispatcher settings.
type DispatchConfig struct {
	// ResponseTimeout is how long to wait for driver replies, in
	// milliseconds. Expired dispatches return whatever partial result has
	// accumulated, tagged with reason "timeout".
	ResponseTimeout int `yaml:"response_timeout"`
}

// TelemetryConfig contains InfluxDB telemetry settings.
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

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains token validation settings for the local channel.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// Load reads configuration from a YAML file and applies environment
// variable overrides, then validates the result.
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

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Hub: HubConfig{
			Name: "Hearth",
		},
		Database: DatabaseConfig{
			Path:        "./data/hearth.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Cloud: CloudConfig{
			Broker: CloudBrokerConfig{
				Host: "relay.hearthwire.io",
				Port: 8883,
				TLS:  true,
			},
			QoS: 1,
			Reconnect: CloudReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Local: LocalConfig{
			Host: "0.0.0.0",
			Port: 38736,
			WebSocket: WebSocketConfig{
				Path:           "/client",
				MaxMessageSize: 65536,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		Dispatch: DispatchConfig{
			ResponseTimeout: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
		},
	}
}

// applyEnvOverrides applies HEARTH_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HEARTH_SERVER_ID"); v != "" {
		cfg.Hub.ServerID = v
	}
	if v := os.Getenv("HEARTH_INSTALL_ID"); v != "" {
		cfg.Hub.InstallID = v
	}
	if v := os.Getenv("HEARTH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("HEARTH_CLOUD_HOST"); v != "" {
		cfg.Cloud.Broker.Host = v
	}
	if v := os.Getenv("HEARTH_CLOUD_USERNAME"); v != "" {
		cfg.Cloud.Auth.Username = v
	}
	if v := os.Getenv("HEARTH_CLOUD_PASSWORD"); v != "" {
		cfg.Cloud.Auth.Password = v
	}
	if v := os.Getenv("HEARTH_INFLUXDB_TOKEN"); v != "" {
		cfg.Telemetry.Token = v
	}
	if v := os.Getenv("HEARTH_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	if c.Hub.ServerID == "" {
		errs = append(errs, "hub.server_id is required")
	}
	if c.Hub.InstallID == "" {
		errs = append(errs, "hub.install_id is required")
	}
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Cloud.QoS < 0 || c.Cloud.QoS > 2 {
		errs = append(errs, "cloud.qos must be 0, 1, or 2")
	}
	if c.Local.Port < 1 || c.Local.Port > 65535 {
		errs = append(errs, "local.port must be between 1 and 65535")
	}
	if c.Dispatch.ResponseTimeout <= 0 {
		errs = append(errs, "dispatch.response_timeout must be positive")
	}

	// The local channel accepts signed identity tokens. A missing or weak
	// secret would let anyone on the LAN forge an OWNER identity.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set HEARTH_JWT_SECRET)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ResponseTimeout returns the dispatcher response timeout as a Duration.
func (c *Config) ResponseTimeout() time.Duration {
	return time.Duration(c.Dispatch.ResponseTimeout) * time.Millisecond
}
