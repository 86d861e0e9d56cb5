// Package badger persists workspace snapshots in an embedded BadgerDB, one
// deterministic-CBOR value per bucket.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"tracecore/internal/infra/persistence/buckets"
	"tracecore/pkg/domain"
)

// keyPrefix namespaces bucket keys inside the database.
const keyPrefix = "tracecore/state/"

var (
	_ domain.Persistence = (*Store)(nil)
	_ domain.Closer      = (*Store)(nil)
)

// Config holds configuration for the BadgerDB instance.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string
	// InMemory keeps all data in RAM; used by tests.
	InMemory bool
	// SyncWrites fsyncs each commit.
	SyncWrites bool
	// Logger receives BadgerDB's internal logs. Nil silences them.
	Logger *slog.Logger
}

// Store persists snapshots to BadgerDB.
type Store struct {
	db *badger.DB
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Open opens the database described by cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger path is required for a persistent database")
	}
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

// Load reads every bucket key. A fresh database is an empty workspace.
func (s *Store) Load(context.Context) (domain.Snapshot, error) {
	payloads := make(map[string][]byte)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, Prefix: []byte(keyPrefix)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read %s: %w", item.Key(), err)
			}
			payloads[strings.TrimPrefix(string(item.Key()), keyPrefix)] = value
		}
		return nil
	})
	if err != nil {
		return domain.Snapshot{}, err
	}
	return buckets.Decode(payloads, buckets.CBOR)
}

// Save writes every bucket in a single transaction.
func (s *Store) Save(_ context.Context, snapshot domain.Snapshot) error {
	payloads, err := buckets.Encode(snapshot, buckets.CBOR)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, name := range buckets.Names {
			if err := txn.Set([]byte(keyPrefix+name), payloads[name]); err != nil {
				return fmt.Errorf("set %s: %w", name, err)
			}
		}
		return nil
	})
}

// HasWorkspace reports true.
func (s *Store) HasWorkspace() bool { return true }

// Close flushes and closes the database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying database for tests and maintenance.
func (s *Store) DB() *badger.DB { return s.db }
