// Package storage selects the persistence driver named by configuration.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"tracecore/internal/blob"
	"tracecore/internal/config"
	"tracecore/internal/infra/persistence/badger"
	"tracecore/internal/infra/persistence/detached"
	"tracecore/internal/infra/persistence/file"
	"tracecore/internal/infra/persistence/memory"
	"tracecore/internal/infra/persistence/object"
	"tracecore/internal/infra/persistence/postgres"
	"tracecore/internal/infra/persistence/sqlite"
	"tracecore/pkg/domain"
)

// Driver identifies a persistence implementation.
type Driver string

// Supported drivers.
const (
	DriverMemory   Driver = "memory"   // in-process only (tests / ephemeral)
	DriverFile     Driver = "file"     // JSON workspace file, watchable
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
	DriverBadger   Driver = "badger"   // embedded key-value store
	DriverBlob     Driver = "blob"     // snapshot object in a blob store
	DriverDetached Driver = "detached" // no workspace; saves are discarded
)

// Open builds the driver selected by cfg.Storage.Driver. An empty driver
// selects file.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (domain.Persistence, error) {
	sc := cfg.Storage
	switch Driver(sc.Driver) {
	case DriverMemory:
		return memory.NewStore(), nil
	case DriverDetached:
		return detached.New(), nil
	case DriverFile, "":
		return opened(file.New(sc.File.Dir))
	case DriverSQLite:
		return opened(sqlite.NewStore(sc.SQLite.Path))
	case DriverPostgres:
		return opened(postgres.NewStore(ctx, sc.Postgres.DSN))
	case DriverBadger:
		return opened(badger.Open(badger.Config{
			Path:       sc.Badger.Path,
			InMemory:   sc.Badger.InMemory,
			SyncWrites: true,
			Logger:     logger,
		}))
	case DriverBlob:
		blobs, err := blob.Open(ctx, blobConfig(cfg.Blob))
		if err != nil {
			return nil, fmt.Errorf("open blob store: %w", err)
		}
		return object.New(blobs, cfg.Blob.Key), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", sc.Driver)
	}
}

// opened drops the typed pointer on failure so callers never receive a
// non-nil interface holding a nil driver.
func opened[T domain.Persistence](p T, err error) (domain.Persistence, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}

func blobConfig(bc config.BlobConfig) blob.Config {
	return blob.Config{
		Driver: blob.Driver(bc.Driver),
		FSRoot: bc.FS.Root,
		S3: blob.S3Config{
			Region:          bc.S3.Region,
			Bucket:          bc.S3.Bucket,
			Endpoint:        bc.S3.Endpoint,
			AccessKeyID:     bc.S3.AccessKeyID,
			SecretAccessKey: bc.S3.SecretAccessKey,
			PathStyle:       bc.S3.PathStyle,
		},
	}
}
