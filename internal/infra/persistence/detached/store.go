// Package detached provides the persistence driver used when no workspace is
// configured: nothing is loaded and saves are discarded.
package detached

import (
	"context"

	"tracecore/pkg/domain"
)

var _ domain.Persistence = Store{}

// Store discards every save.
type Store struct{}

// New returns a detached driver.
func New() Store { return Store{} }

// Load always returns an empty snapshot.
func (Store) Load(context.Context) (domain.Snapshot, error) { return domain.Snapshot{}, nil }

// Save is a no-op.
func (Store) Save(context.Context, domain.Snapshot) error { return nil }

// HasWorkspace reports false.
func (Store) HasWorkspace() bool { return false }
