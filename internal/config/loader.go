package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix for every setting.
const envPrefix = "OPINION"

// boundKeys lists every leaf key so that AutomaticEnv can resolve
// OPINION_* variables even when the key is absent from the file.
var boundKeys = []string{
	"log.level", "log.format", "log.output_paths", "log.error_output_paths",
	"server.host", "server.port", "server.workers", "server.read_timeout",
	"server.write_timeout", "server.shutdown_timeout", "server.http_port", "server.gin_mode",
	"annotation.task", "annotation.language", "annotation.clear_features",
	"annotation.output_format", "annotation.target_model", "annotation.aspect_model",
	"annotation.polarity_model", "annotation.dictionary", "annotation.dictionary_backend",
	"annotation.model_timeout",
	"redis.addr", "redis.password", "redis.db", "redis.pool_size", "redis.dial_timeout",
	"redis.read_timeout", "redis.write_timeout", "redis.key_prefix",
	"minio.endpoint", "minio.access_key", "minio.secret_key", "minio.use_ssl", "minio.region",
	"kafka.brokers", "kafka.group_id", "kafka.input_topic", "kafka.output_topic",
	"kafka.dead_letter_topic", "kafka.auto_offset_reset", "kafka.max_retries",
	"metrics.enabled", "metrics.namespace",
}

// newViper builds a Viper instance with YAML file type, the OPINION_ env
// prefix and a "." to "_" key replacer, so "server.port" resolves to
// OPINION_SERVER_PORT.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range boundKeys {
		_ = v.BindEnv(k)
	}
	return v
}

// Load reads the YAML file at configPath, merges OPINION_* environment
// overrides, applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from OPINION_* environment variables and
// defaults only.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the newly parsed Config
// whenever the file is written.  Invalid intermediate states are reported to
// onError (when non-nil) and do not reach onChange.  Watch does not block.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad wraps Load and panics on error.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
