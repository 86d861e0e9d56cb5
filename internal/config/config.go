// Package config loads runtime configuration from .tracecore.yaml,
// TRACECORE_* environment variables and flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. TRACECORE_STORAGE_DRIVER.
const EnvPrefix = "TRACECORE"

// FileConfig configures the JSON workspace file driver.
type FileConfig struct {
	Dir string `mapstructure:"dir"`
}

// SQLiteConfig configures the sqlite driver.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig configures the postgres driver.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// BadgerConfig configures the embedded key-value driver.
type BadgerConfig struct {
	Path     string `mapstructure:"path"`
	InMemory bool   `mapstructure:"in_memory"`
}

// StorageConfig selects and configures the persistence driver.
type StorageConfig struct {
	Driver   string         `mapstructure:"driver" validate:"oneof=memory file sqlite postgres badger blob detached"`
	File     FileConfig     `mapstructure:"file"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Badger   BadgerConfig   `mapstructure:"badger"`
}

// S3Config configures the S3 blob backend.
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	PathStyle       bool   `mapstructure:"path_style"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// BlobFSConfig configures the filesystem blob backend.
type BlobFSConfig struct {
	Root string `mapstructure:"root"`
}

// BlobConfig configures the blob store used by the blob storage driver.
type BlobConfig struct {
	Driver string       `mapstructure:"driver" validate:"oneof=fs s3 memory"`
	FS     BlobFSConfig `mapstructure:"fs"`
	S3     S3Config     `mapstructure:"s3"`
	Key    string       `mapstructure:"key"`
}

// EngineConfig tunes the in-memory engine.
type EngineConfig struct {
	CacheCapacity int           `mapstructure:"cache_capacity" validate:"min=1"`
	FlushDelay    time.Duration `mapstructure:"flush_delay" validate:"min=0"`
	KeyPrefix     string        `mapstructure:"key_prefix" validate:"required,alphanum"`
	Actor         string        `mapstructure:"actor" validate:"required"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// MetricsConfig toggles the Prometheus recorder.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// Config holds all runtime configuration for a tracectl session.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Blob    BlobConfig    `mapstructure:"blob"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

var defaults = map[string]any{
	"storage.driver":            "file",
	"storage.file.dir":          ".tracecore",
	"storage.sqlite.path":       ".tracecore/tracecore.db",
	"storage.postgres.dsn":      "",
	"storage.badger.path":       ".tracecore/badger",
	"storage.badger.in_memory":  false,
	"blob.driver":               "fs",
	"blob.fs.root":              ".tracecore/blobs",
	"blob.s3.bucket":            "",
	"blob.s3.region":            "us-east-1",
	"blob.s3.endpoint":          "",
	"blob.s3.path_style":        false,
	"blob.s3.access_key_id":     "",
	"blob.s3.secret_access_key": "",
	"blob.key":                  "tracecore/workspace.json",
	"engine.cache_capacity":     500,
	"engine.flush_delay":        300 * time.Millisecond,
	"engine.key_prefix":         "REQ",
	"engine.actor":              "system",
	"log.level":                 "info",
	"log.format":                "text",
	"metrics.enabled":           false,
	"metrics.namespace":         "tracecore",
}

// SetDefaults registers built-in defaults and environment binding on v.
func SetDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// ReadFile points v at cfgFile, or at .tracecore.yaml in the working or home
// directory. A missing default file is not an error.
func ReadFile(v *viper.Viper, cfgFile string, searchPaths ...string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".tracecore")
		v.SetConfigType("yaml")
		for _, p := range searchPaths {
			v.AddConfigPath(p)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

var validate = validator.New()

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated and bounded settings.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid config %s: %q fails %s", fe.Namespace(), fmt.Sprint(fe.Value()), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Storage.Driver == "postgres" && c.Storage.Postgres.DSN == "" {
		return errors.New("invalid config: storage.postgres.dsn is required for the postgres driver")
	}
	if c.Storage.Driver == "blob" && c.Blob.Driver == "s3" && c.Blob.S3.Bucket == "" {
		return errors.New("invalid config: blob.s3.bucket is required for the s3 blob driver")
	}
	return nil
}
