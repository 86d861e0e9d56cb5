package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracecore/internal/config"
	"tracecore/internal/infra/persistence/badger"
	"tracecore/internal/infra/persistence/detached"
	"tracecore/internal/infra/persistence/file"
	"tracecore/internal/infra/persistence/memory"
	"tracecore/internal/infra/persistence/object"
	"tracecore/internal/infra/persistence/sqlite"
	"tracecore/pkg/domain"
)

func closeIfNeeded(t *testing.T, p domain.Persistence) {
	t.Helper()
	if c, ok := p.(domain.Closer); ok {
		t.Cleanup(func() { _ = c.Close() })
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name  string
		cfg   config.Config
		check func(t *testing.T, p domain.Persistence)
	}{
		{"memory", config.Config{Storage: config.StorageConfig{Driver: "memory"}}, func(t *testing.T, p domain.Persistence) {
			assert.IsType(t, &memory.Store{}, p)
		}},
		{"detached", config.Config{Storage: config.StorageConfig{Driver: "detached"}}, func(t *testing.T, p domain.Persistence) {
			assert.IsType(t, detached.Store{}, p)
			assert.False(t, p.HasWorkspace())
		}},
		{"default file", config.Config{Storage: config.StorageConfig{File: config.FileConfig{Dir: filepath.Join(dir, "ws")}}}, func(t *testing.T, p domain.Persistence) {
			require.IsType(t, &file.Store{}, p)
			_, watchable := p.(domain.Watchable)
			assert.True(t, watchable)
		}},
		{"sqlite", config.Config{Storage: config.StorageConfig{Driver: "sqlite", SQLite: config.SQLiteConfig{Path: filepath.Join(dir, "db", "t.db")}}}, func(t *testing.T, p domain.Persistence) {
			assert.IsType(t, &sqlite.Store{}, p)
		}},
		{"badger", config.Config{Storage: config.StorageConfig{Driver: "badger", Badger: config.BadgerConfig{InMemory: true}}}, func(t *testing.T, p domain.Persistence) {
			assert.IsType(t, &badger.Store{}, p)
		}},
		{"blob", config.Config{
			Storage: config.StorageConfig{Driver: "blob"},
			Blob:    config.BlobConfig{Driver: "memory", Key: "ws.json"},
		}, func(t *testing.T, p domain.Persistence) {
			require.IsType(t, &object.Store{}, p)
			assert.Equal(t, "ws.json", p.(*object.Store).Key())
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Open(context.Background(), tc.cfg, nil)
			require.NoError(t, err)
			closeIfNeeded(t, p)
			tc.check(t, p)
		})
	}
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()
	_, err := Open(ctx, config.Config{Storage: config.StorageConfig{Driver: "mongo"}}, nil)
	require.ErrorContains(t, err, "unknown storage driver")

	p, err := Open(ctx, config.Config{Storage: config.StorageConfig{Driver: "badger"}}, nil)
	require.Error(t, err)
	assert.Nil(t, p, "failed opens return a nil interface")

	_, err = Open(ctx, config.Config{Storage: config.StorageConfig{Driver: "blob"}, Blob: config.BlobConfig{Driver: "s3"}}, nil)
	require.ErrorContains(t, err, "open blob store")
}
