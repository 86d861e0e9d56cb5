// Package file persists the workspace snapshot as a single JSON document and
// can watch it for edits made by other processes.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/zeebo/blake3"

	"tracecore/pkg/domain"
)

// FileName is the snapshot document inside the workspace directory.
const FileName = "workspace.json"

const defaultDebounce = 100 * time.Millisecond

var (
	_ domain.Persistence = (*Store)(nil)
	_ domain.Watchable   = (*Store)(nil)
)

// Store reads and writes <dir>/workspace.json. The blake3 digest of the last
// content it loaded or wrote lets Watch ignore its own saves.
type Store struct {
	dir      string
	path     string
	debounce time.Duration

	mu       sync.Mutex
	lastSeen [32]byte
}

// Option configures a Store.
type Option func(*Store)

// WithDebounce sets how long the file must be quiet before Watch reports a
// change.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// New returns a store rooted at dir, creating the directory if needed.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}
	s := &Store{dir: dir, path: filepath.Join(dir, FileName), debounce: defaultDebounce}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the snapshot file location.
func (s *Store) Path() string { return s.path }

// HasWorkspace reports true.
func (s *Store) HasWorkspace() bool { return true }

// Load decodes the snapshot file. A missing file is an empty workspace.
func (s *Store) Load(context.Context) (domain.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.remember(nil)
		return domain.Snapshot{}, nil
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	s.remember(data)
	if len(data) == 0 {
		return domain.Snapshot{}, nil
	}
	var snapshot domain.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return snapshot, nil
}

// Save writes the snapshot through a temp file and rename so readers never
// observe a partial document.
func (s *Store) Save(_ context.Context, snapshot domain.Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".workspace-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	// Record the digest before the rename so the watcher never sees an
	// unrecognised write of our own.
	s.remember(data)
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// Watch blocks until ctx is done, calling onChange once the snapshot file has
// been quiet for the debounce interval after an external modification.
func (s *Store) Watch(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()
	// Watch the directory: the file is replaced by rename on every save.
	if err := w.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	ticker := time.NewTicker(s.debounce)
	defer ticker.Stop()
	var pending time.Time
	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending = time.Now()
			}
		case <-ticker.C:
			if pending.IsZero() || time.Since(pending) < s.debounce {
				continue
			}
			pending = time.Time{}
			if s.changedExternally() {
				onChange()
			}
		case _, ok := <-w.Errors:
			if !ok {
				return nil
			}
		}
	}
}

func (s *Store) remember(data []byte) {
	sum := blake3.Sum256(data)
	s.mu.Lock()
	s.lastSeen = sum
	s.mu.Unlock()
}

// changedExternally reports whether the file differs from what this store
// last loaded or wrote, and records the new digest.
func (s *Store) changedExternally() bool {
	data, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false
	}
	sum := blake3.Sum256(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if sum == s.lastSeen {
		return false
	}
	s.lastSeen = sum
	return true
}
