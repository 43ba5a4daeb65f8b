package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost            = "0.0.0.0"
	DefaultServerPort            = 5000
	DefaultServerWorkers         = 1
	DefaultServerReadTimeout     = 60 * time.Second
	DefaultServerWriteTimeout    = 60 * time.Second
	DefaultServerShutdownTimeout = 15 * time.Second
	DefaultGinMode               = "release"

	DefaultTask              = "ote"
	DefaultClearFeatures     = "no"
	DefaultOutputFormat      = "naf"
	DefaultDictionaryBackend = "file"
	DefaultModelTimeout      = 30 * time.Second

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "opinion:"

	DefaultMinIORegion = "us-east-1"

	DefaultKafkaGroupID    = "opinion-tagger"
	DefaultKafkaOffset     = "earliest"
	DefaultKafkaMaxRetries = 3

	DefaultMetricsNamespace = "opinion"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with its default.
// Explicitly configured values are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Workers == 0 {
		cfg.Server.Workers = DefaultServerWorkers
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if cfg.Server.GinMode == "" {
		cfg.Server.GinMode = DefaultGinMode
	}

	// ── Annotation ────────────────────────────────────────────────────────────
	if cfg.Annotation.Task == "" {
		cfg.Annotation.Task = DefaultTask
	}
	if cfg.Annotation.ClearFeatures == "" {
		cfg.Annotation.ClearFeatures = DefaultClearFeatures
	}
	if cfg.Annotation.OutputFormat == "" {
		cfg.Annotation.OutputFormat = DefaultOutputFormat
	}
	if cfg.Annotation.DictionaryBackend == "" {
		cfg.Annotation.DictionaryBackend = DefaultDictionaryBackend
	}
	if cfg.Annotation.ModelTimeout == 0 {
		cfg.Annotation.ModelTimeout = DefaultModelTimeout
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Region == "" {
		cfg.MinIO.Region = DefaultMinIORegion
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = DefaultKafkaOffset
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = DefaultKafkaMaxRetries
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// NewDefaultConfig returns a Config populated only with defaults.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
