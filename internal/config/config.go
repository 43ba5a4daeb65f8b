// Package config defines the configuration structures for Opinion-Intelligence.
// No I/O lives here, only plain data types and validation; loading is in
// loader.go and defaults in defaults.go.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds the TCP annotation service and HTTP side-car tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Workers         int           `mapstructure:"workers"` // 1 = strictly sequential
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	HTTPPort        int           `mapstructure:"http_port"` // 0 disables the HTTP side-car
	GinMode         string        `mapstructure:"gin_mode"`  // "debug" | "release" | "test"
}

// AnnotationConfig selects the strategy and the models it loads.
// Model and dictionary paths are local files or s3://bucket/key objects.
type AnnotationConfig struct {
	Task              string        `mapstructure:"task"` // ote | aspect-seq | aspect-doc | pol | absa
	Language          string        `mapstructure:"language"`
	ClearFeatures     string        `mapstructure:"clear_features"` // yes | no | docstart
	OutputFormat      string        `mapstructure:"output_format"`  // naf | tabulated
	TargetModel       string        `mapstructure:"target_model"`
	AspectModel       string        `mapstructure:"aspect_model"`
	PolarityModel     string        `mapstructure:"polarity_model"`
	Dictionary        string        `mapstructure:"dictionary"`
	DictionaryBackend string        `mapstructure:"dictionary_backend"` // file | redis
	ModelTimeout      time.Duration `mapstructure:"model_timeout"`
}

// RedisConfig holds Redis connection parameters for the dictionary backend.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// MinIOConfig holds the object-storage parameters used to fetch s3:// models.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
}

// KafkaConfig holds the stream worker parameters.
type KafkaConfig struct {
	Brokers         []string `mapstructure:"brokers"`
	GroupID         string   `mapstructure:"group_id"`
	InputTopic      string   `mapstructure:"input_topic"`
	OutputTopic     string   `mapstructure:"output_topic"`
	DeadLetterTopic string   `mapstructure:"dead_letter_topic"`
	AutoOffsetReset string   `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	MaxRetries      int      `mapstructure:"max_retries"`
}

// MetricsConfig controls the Prometheus registry.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Log        logging.LogConfig `mapstructure:"log"`
	Server     ServerConfig      `mapstructure:"server"`
	Annotation AnnotationConfig  `mapstructure:"annotation"`
	Redis      RedisConfig       `mapstructure:"redis"`
	MinIO      MinIOConfig       `mapstructure:"minio"`
	Kafka      KafkaConfig       `mapstructure:"kafka"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
}

// Valid enumerations.
var (
	ValidTasks         = []string{"ote", "aspect-seq", "aspect-doc", "pol", "absa"}
	ValidClearFeatures = []string{"yes", "no", "docstart"}
	ValidOutputFormats = []string{"naf", "tabulated"}
	ValidDictBackends  = []string{"file", "redis"}
	ValidLogLevels     = []string{"debug", "info", "warn", "error"}
	ValidLogFormats    = []string{"json", "console"}
	ValidGinModes      = []string{"debug", "release", "test"}
	ValidOffsetResets  = []string{"earliest", "latest"}
)

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of a fully-populated Config and
// returns the first error encountered.  Model paths are checked by the
// strategy constructors because CLI flags may still supply them.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	if c.Server.HTTPPort < 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("config: server.http_port %d is out of range [0, 65535]", c.Server.HTTPPort)
	}
	if c.Server.HTTPPort != 0 && c.Server.HTTPPort == c.Server.Port {
		return fmt.Errorf("config: server.http_port must differ from server.port (%d)", c.Server.Port)
	}
	if c.Server.Workers < 1 {
		return fmt.Errorf("config: server.workers must be >= 1, got %d", c.Server.Workers)
	}
	if !oneOf(c.Server.GinMode, ValidGinModes) {
		return fmt.Errorf("config: server.gin_mode %q is invalid; expected debug|release|test", c.Server.GinMode)
	}

	if !oneOf(c.Annotation.Task, ValidTasks) {
		return fmt.Errorf("config: annotation.task %q is invalid; expected ote|aspect-seq|aspect-doc|pol|absa", c.Annotation.Task)
	}
	if !oneOf(c.Annotation.ClearFeatures, ValidClearFeatures) {
		return fmt.Errorf("config: annotation.clear_features %q is invalid; expected yes|no|docstart", c.Annotation.ClearFeatures)
	}
	if !oneOf(c.Annotation.OutputFormat, ValidOutputFormats) {
		return fmt.Errorf("config: annotation.output_format %q is invalid; expected naf|tabulated", c.Annotation.OutputFormat)
	}
	if !oneOf(c.Annotation.DictionaryBackend, ValidDictBackends) {
		return fmt.Errorf("config: annotation.dictionary_backend %q is invalid; expected file|redis", c.Annotation.DictionaryBackend)
	}

	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
	}
	if c.Annotation.DictionaryBackend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when annotation.dictionary_backend is redis")
	}

	if !oneOf(c.Kafka.AutoOffsetReset, ValidOffsetResets) {
		return fmt.Errorf("config: kafka.auto_offset_reset %q is invalid; expected earliest|latest", c.Kafka.AutoOffsetReset)
	}
	if c.Kafka.MaxRetries < 0 {
		return fmt.Errorf("config: kafka.max_retries must be >= 0, got %d", c.Kafka.MaxRetries)
	}

	if !oneOf(c.Log.Level, ValidLogLevels) {
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	if !oneOf(c.Log.Format, ValidLogFormats) {
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}
	return nil
}

// ValidateWorker checks the settings only the stream worker needs.
func (c *Config) ValidateWorker() error {
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
	}
	if c.Kafka.GroupID == "" {
		return fmt.Errorf("config: kafka.group_id is required")
	}
	if c.Kafka.InputTopic == "" || c.Kafka.OutputTopic == "" {
		return fmt.Errorf("config: kafka.input_topic and kafka.output_topic are required")
	}
	if c.Kafka.InputTopic == c.Kafka.OutputTopic {
		return fmt.Errorf("config: kafka.input_topic and kafka.output_topic must differ")
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
