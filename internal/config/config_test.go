package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, ".tracecore", cfg.Storage.File.Dir)
	assert.Equal(t, "fs", cfg.Blob.Driver)
	assert.Equal(t, "tracecore/workspace.json", cfg.Blob.Key)
	assert.Equal(t, 500, cfg.Engine.CacheCapacity)
	assert.Equal(t, 300*time.Millisecond, cfg.Engine.FlushDelay)
	assert.Equal(t, "REQ", cfg.Engine.KeyPrefix)
	assert.Equal(t, "system", cfg.Engine.Actor)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "tracecore", cfg.Metrics.Namespace)
}

func TestLoadEnvOverrides(t *testing.T) {
	tests := []struct {
		envKey string
		envVal string
		field  func(Config) any
		want   any
	}{
		{"TRACECORE_STORAGE_DRIVER", "sqlite", func(c Config) any { return c.Storage.Driver }, "sqlite"},
		{"TRACECORE_STORAGE_SQLITE_PATH", "/tmp/x.db", func(c Config) any { return c.Storage.SQLite.Path }, "/tmp/x.db"},
		{"TRACECORE_STORAGE_BADGER_IN_MEMORY", "true", func(c Config) any { return c.Storage.Badger.InMemory }, true},
		{"TRACECORE_ENGINE_FLUSH_DELAY", "1s", func(c Config) any { return c.Engine.FlushDelay }, time.Second},
		{"TRACECORE_ENGINE_CACHE_CAPACITY", "42", func(c Config) any { return c.Engine.CacheCapacity }, 42},
		{"TRACECORE_LOG_FORMAT", "json", func(c Config) any { return c.Log.Format }, "json"},
		{"TRACECORE_BLOB_S3_PATH_STYLE", "true", func(c Config) any { return c.Blob.S3.PathStyle }, true},
	}
	for _, tt := range tests {
		t.Run(tt.envKey, func(t *testing.T) {
			t.Setenv(tt.envKey, tt.envVal)
			cfg, err := Load(viper.New())
			require.NoError(t, err)
			assert.Equal(t, tt.want, tt.field(cfg))
		})
	}
}

func TestReadFileYAML(t *testing.T) {
	dir := t.TempDir()
	body := "storage:\n  driver: badger\n  badger:\n    path: /var/lib/tc\nengine:\n  key_prefix: SYS\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tracecore.yaml"), []byte(body), 0o600))

	v := viper.New()
	require.NoError(t, ReadFile(v, "", dir))
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "badger", cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/tc", cfg.Storage.Badger.Path)
	assert.Equal(t, "SYS", cfg.Engine.KeyPrefix)
	assert.Equal(t, 500, cfg.Engine.CacheCapacity, "unset keys keep defaults")
}

func TestReadFileMissing(t *testing.T) {
	require.NoError(t, ReadFile(viper.New(), "", t.TempDir()), "missing default file is fine")
	require.Error(t, ReadFile(viper.New(), filepath.Join(t.TempDir(), "nope.yaml")), "explicit file must exist")
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]any{
		"storage driver": {"storage.driver": "mongo"},
		"log format":     {"log.format": "xml"},
		"cache capacity": {"engine.cache_capacity": 0},
		"key prefix":     {"engine.key_prefix": "RE-Q"},
		"postgres dsn":   {"storage.driver": "postgres"},
		"s3 bucket":      {"storage.driver": "blob", "blob.driver": "s3"},
	}
	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			v := viper.New()
			for k, val := range overrides {
				v.Set(k, val)
			}
			_, err := Load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}
