// Package config defines the configuration structures of the lead scoring
// service. No I/O lives in this file, only data types and validation.
package config

import (
	"fmt"
	"strings"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// AssetsDir holds service-definition.json and logo.png.
	AssetsDir string `mapstructure:"assets_dir"`
	// SubmitRate limits submissions per client address, in requests per
	// second. Zero disables the limit.
	SubmitRate  float64 `mapstructure:"submit_rate"`
	SubmitBurst int     `mapstructure:"submit_burst"`
}

// GRPCConfig holds the gRPC health endpoint parameters.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// DispatcherConfig bounds admissions to the assistant backend.
type DispatcherConfig struct {
	// MaxConcurrent is the in-flight cap (C).
	MaxConcurrent int `mapstructure:"max_concurrent"`
	// Window is the rate window (W); admissions are spaced by Window/MaxConcurrent.
	Window time.Duration `mapstructure:"window"`
}

// Spacing returns the minimum interval between refill admissions.
func (d DispatcherConfig) Spacing() time.Duration {
	if d.MaxConcurrent <= 0 {
		return d.Window
	}
	return d.Window / time.Duration(d.MaxConcurrent)
}

// OperationConfig controls the per-item polling loop.
type OperationConfig struct {
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AssistantConfig configures the conversation backend.
type AssistantConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// APIKeySecretTemplate names the per-subscription API key secret;
	// "{subscription}" is replaced with the subscription id.
	APIKeySecretTemplate string `mapstructure:"api_key_secret_template"`
	// MessageRole is the role of the posted prompt message.
	MessageRole string `mapstructure:"message_role"`
}

// CallbackConfig configures result delivery.
type CallbackConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// DirectoryConfig selects where assistant ids are resolved.
type DirectoryConfig struct {
	Backend  string            `mapstructure:"backend"` // "postgres" | "static"
	Static   map[string]string `mapstructure:"static"`
	CacheTTL time.Duration     `mapstructure:"cache_ttl"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig holds Redis connection parameters for the directory cache.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// MinIOConfig holds S3-compatible object storage parameters.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
	// MaxObjectSize caps the size of a batch document in bytes.
	MaxObjectSize int64 `mapstructure:"max_object_size"`
}

// KafkaConfig holds batch event producer parameters.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
}

// LogConfig holds structured logging parameters.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `mapstructure:"format"` // "json" | "console"
	Output string `mapstructure:"output"`
}

// MetricsConfig holds Prometheus parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration of the service.
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	GRPC       GRPCConfig        `mapstructure:"grpc"`
	Dispatcher DispatcherConfig  `mapstructure:"dispatcher"`
	Operation  OperationConfig   `mapstructure:"operation"`
	Assistant  AssistantConfig   `mapstructure:"assistant"`
	Callback   CallbackConfig    `mapstructure:"callback"`
	Directory  DirectoryConfig   `mapstructure:"directory"`
	Database   DatabaseConfig    `mapstructure:"database"`
	Redis      RedisConfig       `mapstructure:"redis"`
	MinIO      MinIOConfig       `mapstructure:"minio"`
	Kafka      KafkaConfig       `mapstructure:"kafka"`
	Secrets    map[string]string `mapstructure:"secrets"`
	Log        LogConfig         `mapstructure:"log"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of a fully populated Config and
// returns the first error found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}
	if c.Server.SubmitRate < 0 {
		return fmt.Errorf("config: server.submit_rate must not be negative")
	}
	if c.GRPC.Enabled && (c.GRPC.Port < 1 || c.GRPC.Port > 65535) {
		return fmt.Errorf("config: grpc.port %d is out of range [1, 65535]", c.GRPC.Port)
	}

	if c.Dispatcher.MaxConcurrent < 1 {
		return fmt.Errorf("config: dispatcher.max_concurrent must be ≥ 1, got %d", c.Dispatcher.MaxConcurrent)
	}
	if c.Dispatcher.Window < 0 {
		return fmt.Errorf("config: dispatcher.window must not be negative")
	}

	if c.Operation.PollInterval <= 0 {
		return fmt.Errorf("config: operation.poll_interval must be positive")
	}
	if c.Operation.MaxAttempts < 1 {
		return fmt.Errorf("config: operation.max_attempts must be ≥ 1, got %d", c.Operation.MaxAttempts)
	}

	if !strings.Contains(c.Assistant.APIKeySecretTemplate, "{subscription}") {
		return fmt.Errorf("config: assistant.api_key_secret_template must contain {subscription}")
	}

	switch c.Directory.Backend {
	case "postgres":
		if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
			return fmt.Errorf("config: database host, user and db_name are required for the postgres directory")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
		}
	case "static":
	default:
		return fmt.Errorf("config: directory.backend %q is invalid; expected postgres|static", c.Directory.Backend)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when redis is enabled")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("config: kafka.topic is required when kafka is enabled")
		}
	}
	if c.MinIO.Endpoint == "" {
		return fmt.Errorf("config: minio.endpoint is required")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

// DSN renders the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

//Personal.AI order the ending
