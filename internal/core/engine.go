// Package core implements the traceability engine: the canonical record
// store, its index and cache, the trace graph with suspect propagation,
// impact and coverage analysis, baselines, and debounced persistence.
package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tracecore/internal/cache"
	"tracecore/internal/index"
	"tracecore/pkg/domain"
)

// Secondary index names declared on the record collection.
const (
	FieldProject = "project"
	FieldParent  = "parent"
	FieldStatus  = "status"
	FieldType    = "type"
)

// Engine owns every requirement, baseline and workspace record. It is the
// sole writer of record state; reads return copies.
type Engine struct {
	mu sync.RWMutex

	persistence   domain.Persistence
	clock         Clock
	logger        Logger
	metrics       MetricsRecorder
	newID         func() string
	keyPrefix     string
	flushDelay    time.Duration
	cacheCapacity int
	rules         []TransitionRule

	records  map[string]*domain.Requirement
	keys     map[string]string
	index    *index.Collection[*domain.Requirement]
	cache    *cache.LRU[string, domain.Requirement]
	coverage atomic.Pointer[CoverageReport]

	baselines     map[string]*domain.Baseline
	baselineOrder []string
	reviews       []domain.Review
	documents     []domain.Document
	customFields  []domain.CustomFieldDefinition
	meta          domain.Metadata

	flushMu sync.Mutex
	timer   *time.Timer
	dirty   bool
	closed  bool

	obsMu     sync.Mutex
	observers []observer
	obsSeq    int
}

// New constructs an empty engine. Call Open to load persisted state.
func New(opts ...Option) *Engine {
	e := &Engine{
		clock:         systemClock{},
		logger:        noopLogger{},
		metrics:       noopMetrics{},
		newID:         uuid.NewString,
		keyPrefix:     DefaultKeyPrefix,
		flushDelay:    DefaultFlushDelay,
		cacheCapacity: DefaultCacheCapacity,
		rules:         DefaultTransitionRules(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cache = cache.New[string, domain.Requirement](e.cacheCapacity)
	e.resetState()
	return e
}

func newRecordIndex() *index.Collection[*domain.Requirement] {
	return index.New(
		func(r *domain.Requirement) string { return r.ID },
		map[string]func(*domain.Requirement) string{
			FieldProject: func(r *domain.Requirement) string { return r.ProjectID },
			FieldParent:  func(r *domain.Requirement) string { return r.ParentID },
			FieldStatus:  func(r *domain.Requirement) string { return string(r.Status) },
			FieldType:    func(r *domain.Requirement) string { return string(r.Type) },
		},
	)
}

func (e *Engine) resetState() {
	e.records = make(map[string]*domain.Requirement)
	e.keys = make(map[string]string)
	e.index = newRecordIndex()
	e.baselines = make(map[string]*domain.Baseline)
	e.baselineOrder = nil
	e.reviews = []domain.Review{}
	e.documents = []domain.Document{}
	e.customFields = []domain.CustomFieldDefinition{}
	e.meta = domain.Metadata{}
	e.invalidateAll()
}

// HasWorkspace reports whether mutations are durably saved.
func (e *Engine) HasWorkspace() bool {
	return e.persistence != nil && e.persistence.HasWorkspace()
}

// Open loads the persisted snapshot. It is a structural reload and notifies
// subscribers.
func (e *Engine) Open(ctx context.Context) error {
	return e.Reload(ctx)
}

// Reload replaces all in-memory state with the persisted snapshot, clears
// every cache and notifies subscribers. Unsaved changes are discarded.
func (e *Engine) Reload(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { e.observe(ctx, "reload", start, err) }()

	snapshot := domain.Snapshot{}
	if e.HasWorkspace() {
		snapshot, err = e.persistence.Load(ctx)
		if err != nil {
			e.logger.Error("load snapshot", "error", err)
			return fmt.Errorf("load snapshot: %w", err)
		}
		if snapshot.Empty() {
			e.logger.Info("workspace is empty")
		}
	}
	e.mu.Lock()
	if e.dirty {
		e.logger.Warn("reload discards unsaved changes")
	}
	e.stopTimerLocked()
	e.dirty = false
	e.applySnapshotLocked(domain.NormalizeSnapshot(snapshot, e.keyPrefix))
	records := len(e.records)
	e.mu.Unlock()

	e.logger.Info("engine reloaded", "records", records, "workspace", e.HasWorkspace())
	e.notify()
	return nil
}

func (e *Engine) applySnapshotLocked(s domain.Snapshot) {
	e.resetState()
	items := make([]*domain.Requirement, 0, len(s.Requirements))
	for i := range s.Requirements {
		r := s.Requirements[i]
		e.records[r.ID] = &r
		if r.Key != "" {
			e.keys[r.Key] = r.ID
		}
		items = append(items, &r)
	}
	e.index.SetItems(items)
	for i := range s.Baselines {
		b := s.Baselines[i]
		if b.ID == "" {
			continue
		}
		if _, dup := e.baselines[b.ID]; dup {
			continue
		}
		e.baselines[b.ID] = &b
		e.baselineOrder = append(e.baselineOrder, b.ID)
	}
	e.reviews = s.Reviews
	e.documents = s.Documents
	e.customFields = s.CustomFields
	e.meta = s.Metadata
}

// CacheStats reports the record cache counters.
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

// Snapshot exports a deep copy of the full engine state.
func (e *Engine) Snapshot() domain.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() domain.Snapshot {
	s := domain.Snapshot{
		Requirements: make([]domain.Requirement, 0, len(e.records)),
		Baselines:    make([]domain.Baseline, 0, len(e.baselineOrder)),
		Reviews:      make([]domain.Review, 0, len(e.reviews)),
		Documents:    make([]domain.Document, 0, len(e.documents)),
		CustomFields: make([]domain.CustomFieldDefinition, 0, len(e.customFields)),
		Metadata:     e.meta,
	}
	for _, r := range e.index.Items() {
		s.Requirements = append(s.Requirements, domain.CloneRequirement(*r))
	}
	for _, id := range e.baselineOrder {
		s.Baselines = append(s.Baselines, domain.CloneBaseline(*e.baselines[id]))
	}
	for _, r := range e.reviews {
		s.Reviews = append(s.Reviews, domain.CloneReview(r))
	}
	for _, d := range e.documents {
		s.Documents = append(s.Documents, domain.CloneDocument(d))
	}
	for _, f := range e.customFields {
		s.CustomFields = append(s.CustomFields, domain.CloneCustomFieldDefinition(f))
	}
	s.Metadata.SavedAt = e.clock.Now().UTC()
	return s
}

// Close cancels any pending debounced save and force-flushes outstanding
// changes.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.stopTimerLocked()
	dirty := e.dirty
	e.mu.Unlock()

	var err error
	if dirty {
		err = e.Flush(ctx)
	}
	if closer, ok := e.persistence.(domain.Closer); ok {
		e.flushMu.Lock()
		cerr := closer.Close()
		e.flushMu.Unlock()
		if cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Watch blocks until ctx is done, reloading whenever the persistence driver
// reports an external change. Drivers that cannot watch return immediately.
func (e *Engine) Watch(ctx context.Context) error {
	w, ok := e.persistence.(domain.Watchable)
	if !ok {
		return nil
	}
	return w.Watch(ctx, func() {
		if err := e.Reload(ctx); err != nil {
			e.logger.Error("reload after external change", "error", err)
		}
	})
}

func (e *Engine) observe(ctx context.Context, op string, start time.Time, err error) {
	e.metrics.Observe(ctx, op, err == nil, time.Since(start))
}

func (e *Engine) now() time.Time {
	return e.clock.Now().UTC()
}

// invalidate evicts cached copies of the given records and drops
// whole-collection views.
func (e *Engine) invalidate(ids ...string) {
	for _, id := range ids {
		e.cache.Delete(id)
	}
	e.coverage.Store(nil)
}

func (e *Engine) invalidateAll() {
	e.cache.Clear()
	e.coverage.Store(nil)
}
