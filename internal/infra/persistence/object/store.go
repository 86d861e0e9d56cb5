// Package object persists the workspace snapshot as a single JSON object in a
// blob store (local directory, S3 bucket or memory).
package object

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"tracecore/internal/blob"
	"tracecore/pkg/domain"
)

// DefaultKey is the object key used when none is configured.
const DefaultKey = "tracecore/workspace.json"

var _ domain.Persistence = (*Store)(nil)

// Store reads and overwrites one snapshot object.
type Store struct {
	blobs blob.Store
	key   string
}

// New wraps blobs, storing the snapshot under key.
func New(blobs blob.Store, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{blobs: blobs, key: key}
}

// Key returns the snapshot object key.
func (s *Store) Key() string { return s.key }

// Load fetches and decodes the snapshot object. A missing object is an empty
// workspace.
func (s *Store) Load(ctx context.Context) (domain.Snapshot, error) {
	_, rc, err := s.blobs.Get(ctx, s.key)
	if errors.Is(err, blob.ErrNotFound) {
		return domain.Snapshot{}, nil
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("get %s: %w", s.key, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read %s: %w", s.key, err)
	}
	var snapshot domain.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return snapshot, nil
}

// Save overwrites the snapshot object.
func (s *Store) Save(ctx context.Context, snapshot domain.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.blobs.Put(ctx, s.key, bytes.NewReader(data), blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"records": fmt.Sprint(len(snapshot.Requirements))},
		Overwrite:   true,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", s.key, err)
	}
	return nil
}

// HasWorkspace reports true.
func (s *Store) HasWorkspace() bool { return true }
