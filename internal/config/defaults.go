package config

import (
	"math"
	"time"

	"github.com/spf13/viper"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort      = 8080
	DefaultServerMode      = "release"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultAssetsDir       = "./assets"

	DefaultGRPCPort = 9090

	DefaultMaxConcurrent = 20
	DefaultWindow        = 60 * time.Second

	DefaultPollInterval   = 5 * time.Second
	DefaultMaxAttempts    = 10
	DefaultRequestTimeout = 30 * time.Second

	DefaultAPIKeySecretTemplate = "openai-apikey-{subscription}"
	DefaultMessageRole          = "user"

	DefaultCallbackTimeout = 30 * time.Second

	DefaultDirectoryBackend  = "postgres"
	DefaultDirectoryCacheTTL = 10 * time.Minute

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "leadscore"
	DefaultDBMaxConns = 10

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "leadscore:"

	DefaultMinIOEndpoint      = "localhost:9000"
	DefaultMinIOMaxObjectSize = 64 << 20

	DefaultKafkaBroker = "localhost:9092"
	DefaultKafkaTopic  = "leadscore.batch.completed"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "leadscore"
	DefaultMetricsPath      = "/metrics"
)

// ApplyDefaults fills zero-value fields in cfg. Explicitly configured values
// are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 1 << 20
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.AssetsDir == "" {
		cfg.Server.AssetsDir = DefaultAssetsDir
	}
	if cfg.Server.SubmitRate > 0 && cfg.Server.SubmitBurst == 0 {
		cfg.Server.SubmitBurst = int(math.Ceil(cfg.Server.SubmitRate))
	}
	if cfg.GRPC.Port == 0 {
		cfg.GRPC.Port = DefaultGRPCPort
	}

	// ── Scoring pipeline ──────────────────────────────────────────────────────
	if cfg.Dispatcher.MaxConcurrent == 0 {
		cfg.Dispatcher.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.Dispatcher.Window == 0 {
		cfg.Dispatcher.Window = DefaultWindow
	}
	if cfg.Operation.PollInterval == 0 {
		cfg.Operation.PollInterval = DefaultPollInterval
	}
	if cfg.Operation.MaxAttempts == 0 {
		cfg.Operation.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Operation.RequestTimeout == 0 {
		cfg.Operation.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Assistant.APIKeySecretTemplate == "" {
		cfg.Assistant.APIKeySecretTemplate = DefaultAPIKeySecretTemplate
	}
	if cfg.Assistant.MessageRole == "" {
		cfg.Assistant.MessageRole = DefaultMessageRole
	}
	if cfg.Callback.Timeout == 0 {
		cfg.Callback.Timeout = DefaultCallbackTimeout
	}
	if cfg.Directory.Backend == "" {
		cfg.Directory.Backend = DefaultDirectoryBackend
	}
	if cfg.Directory.CacheTTL == 0 {
		cfg.Directory.CacheTTL = DefaultDirectoryCacheTTL
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "file://migrations"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.MaxObjectSize == 0 {
		cfg.MinIO.MaxObjectSize = DefaultMinIOMaxObjectSize
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}

	// ── Log / Metrics ─────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}

// registerDefaults seeds v with the defaults of every scalar key. Keys known
// to viper are the only ones AutomaticEnv resolves during Unmarshal, so this
// is what makes LEADSCORE_* overrides work without a config file.
func registerDefaults(v *viper.Viper) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.mode", cfg.Server.Mode)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.max_body_size", cfg.Server.MaxBodySize)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.SetDefault("server.assets_dir", cfg.Server.AssetsDir)
	v.SetDefault("server.submit_rate", cfg.Server.SubmitRate)
	v.SetDefault("server.submit_burst", cfg.Server.SubmitBurst)
	v.SetDefault("grpc.enabled", false)
	v.SetDefault("grpc.port", cfg.GRPC.Port)

	v.SetDefault("dispatcher.max_concurrent", cfg.Dispatcher.MaxConcurrent)
	v.SetDefault("dispatcher.window", cfg.Dispatcher.Window)
	v.SetDefault("operation.poll_interval", cfg.Operation.PollInterval)
	v.SetDefault("operation.max_attempts", cfg.Operation.MaxAttempts)
	v.SetDefault("operation.request_timeout", cfg.Operation.RequestTimeout)
	v.SetDefault("assistant.base_url", "")
	v.SetDefault("assistant.api_key_secret_template", cfg.Assistant.APIKeySecretTemplate)
	v.SetDefault("assistant.message_role", cfg.Assistant.MessageRole)
	v.SetDefault("callback.timeout", cfg.Callback.Timeout)
	v.SetDefault("directory.backend", cfg.Directory.Backend)
	v.SetDefault("directory.cache_ttl", cfg.Directory.CacheTTL)

	v.SetDefault("database.host", cfg.Database.Host)
	v.SetDefault("database.port", cfg.Database.Port)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.db_name", cfg.Database.DBName)
	v.SetDefault("database.ssl_mode", cfg.Database.SSLMode)
	v.SetDefault("database.max_conns", cfg.Database.MaxConns)
	v.SetDefault("database.migration_path", cfg.Database.MigrationPath)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", cfg.Redis.Addr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", cfg.Redis.KeyPrefix)

	v.SetDefault("minio.endpoint", cfg.MinIO.Endpoint)
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.region", "")
	v.SetDefault("minio.max_object_size", cfg.MinIO.MaxObjectSize)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", cfg.Kafka.Brokers)
	v.SetDefault("kafka.topic", cfg.Kafka.Topic)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", cfg.Metrics.Namespace)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}

//Personal.AI order the ending
