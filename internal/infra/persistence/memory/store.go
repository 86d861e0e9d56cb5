// Package memory provides an in-process snapshot store used for tests and
// ephemeral sessions.
package memory

import (
	"context"
	"sync"

	"tracecore/pkg/domain"
)

var _ domain.Persistence = (*Store)(nil)

// Store keeps the last saved snapshot in memory. Loads and saves deep-copy so
// callers never share slices with the stored state.
type Store struct {
	mu       sync.RWMutex
	snapshot domain.Snapshot
	saves    int
}

// NewStore returns an empty store, optionally seeded with an initial snapshot.
func NewStore(seed ...domain.Snapshot) *Store {
	s := &Store{}
	if len(seed) > 0 {
		s.snapshot = domain.CloneSnapshot(seed[0])
	}
	return s
}

// Load returns a copy of the stored snapshot.
func (s *Store) Load(context.Context) (domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneSnapshot(s.snapshot), nil
}

// Save replaces the stored snapshot.
func (s *Store) Save(_ context.Context, snapshot domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = domain.CloneSnapshot(snapshot)
	s.saves++
	return nil
}

// HasWorkspace is always true; saves last for the life of the process.
func (s *Store) HasWorkspace() bool { return true }

// Saves reports how many snapshots have been written.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
