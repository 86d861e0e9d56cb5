package domain

import "context"

// Persistence loads and saves whole-engine snapshots. Drivers decide where and
// how the snapshot is stored.
type Persistence interface {
	// Load returns the stored snapshot, or an empty snapshot when nothing
	// has been saved yet.
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
	// HasWorkspace reports whether saves are durable at all.
	HasWorkspace() bool
}

// Watchable is implemented by drivers that can detect external edits to the
// stored snapshot. Watch blocks until ctx is done, invoking onChange after
// each external modification settles.
type Watchable interface {
	Watch(ctx context.Context, onChange func()) error
}

// Closer is implemented by drivers holding resources that must be released.
type Closer interface {
	Close() error
}
