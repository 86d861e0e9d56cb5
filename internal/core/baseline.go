package core

import (
	"context"
	"fmt"
	"time"

	"tracecore/pkg/domain"
)

// baselineTransitions lists the legal lifecycle moves. Archived and
// superseded baselines are terminal and have no entry.
var baselineTransitions = map[domain.BaselineStatus]map[domain.BaselineStatus]struct{}{
	domain.BaselineDraft: toSet(domain.BaselineActive, domain.BaselineLocked),
	domain.BaselineActive: toSet(
		domain.BaselineLocked, domain.BaselineArchived, domain.BaselineSuperseded,
	),
	domain.BaselineLocked: toSet(domain.BaselineArchived, domain.BaselineSuperseded),
}

func toSet[T comparable](values ...T) map[T]struct{} {
	out := make(map[T]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

// CanTransition reports whether a baseline may move from one state to another.
func CanTransition(from, to domain.BaselineStatus) bool {
	_, ok := baselineTransitions[from][to]
	return ok
}

// CreateBaseline snapshots deep copies of the listed requirements in a new
// draft baseline. Ids that no longer resolve, and repeated ids, are skipped.
func (e *Engine) CreateBaseline(ctx context.Context, in domain.BaselineInput, actor string) (_ domain.Baseline, err error) {
	start := time.Now()
	defer func() { e.observe(ctx, "create_baseline", start, err) }()

	if err := in.Validate(); err != nil {
		return domain.Baseline{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	b := &domain.Baseline{
		ID:          e.newID(),
		Name:        in.Name,
		Description: in.Description,
		ProjectID:   in.ProjectID,
		Status:      domain.BaselineDraft,
		Snapshots:   []domain.BaselineSnapshot{},
		CreatedAt:   e.now(),
		CreatedBy:   actor,
	}
	seen := make(map[string]bool, len(in.RequirementIDs))
	for _, id := range in.RequirementIDs {
		r, ok := e.records[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		b.Snapshots = append(b.Snapshots, domain.BaselineSnapshot{
			RequirementID: r.ID,
			Version:       r.Version,
			Record:        domain.CloneRequirement(*r),
		})
	}
	e.baselines[b.ID] = b
	e.baselineOrder = append(e.baselineOrder, b.ID)
	e.scheduleFlushLocked()

	e.logger.Debug("baseline created", "id", b.ID, "name", b.Name, "records", len(b.Snapshots))
	return domain.CloneBaseline(*b), nil
}

// GetBaseline returns a copy of a baseline.
func (e *Engine) GetBaseline(id string) (domain.Baseline, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.baselines[id]
	if !ok {
		return domain.Baseline{}, false
	}
	return domain.CloneBaseline(*b), true
}

// FindBaseline resolves a baseline by id or by name. Names are matched
// against the most recently created baseline first.
func (e *Engine) FindBaseline(ref string) (domain.Baseline, bool) {
	if b, ok := e.GetBaseline(ref); ok {
		return b, true
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	for i := len(e.baselineOrder) - 1; i >= 0; i-- {
		if b := e.baselines[e.baselineOrder[i]]; b.Name == ref {
			return domain.CloneBaseline(*b), true
		}
	}
	return domain.Baseline{}, false
}

// ListBaselines returns every baseline in creation order.
func (e *Engine) ListBaselines() []domain.Baseline {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]domain.Baseline, 0, len(e.baselineOrder))
	for _, id := range e.baselineOrder {
		out = append(out, domain.CloneBaseline(*e.baselines[id]))
	}
	return out
}

// ActivateBaseline moves a draft baseline to active.
func (e *Engine) ActivateBaseline(ctx context.Context, id, actor string) (domain.Baseline, bool, error) {
	return e.transitionBaseline(ctx, "activate_baseline", id, domain.BaselineActive, actor, nil)
}

// ArchiveBaseline retires an active or locked baseline.
func (e *Engine) ArchiveBaseline(ctx context.Context, id, actor string) (domain.Baseline, bool, error) {
	return e.transitionBaseline(ctx, "archive_baseline", id, domain.BaselineArchived, actor, nil)
}

// LockBaseline locks a baseline and flags every still-live snapshotted
// requirement as locked to it. Locking is one-way.
func (e *Engine) LockBaseline(ctx context.Context, id, actor string) (domain.Baseline, bool, error) {
	return e.transitionBaseline(ctx, "lock_baseline", id, domain.BaselineLocked, actor, func(b *domain.Baseline, now time.Time) {
		b.LockedAt = &now
		b.LockedBy = actor
		var touched []string
		for _, snap := range b.Snapshots {
			r, ok := e.records[snap.RequirementID]
			if !ok {
				continue
			}
			r.IsLocked = true
			r.BaselineID = b.ID
			touched = append(touched, r.ID)
		}
		e.invalidate(touched...)
	})
}

// SupersedeBaseline marks oldID as superseded by newID. found is false when
// either baseline is unknown.
func (e *Engine) SupersedeBaseline(ctx context.Context, oldID, newID, actor string) (domain.Baseline, bool, error) {
	if oldID == newID {
		return domain.Baseline{}, true, fmt.Errorf("%w: baseline cannot supersede itself", domain.ErrInvalidTransition)
	}
	if _, ok := e.GetBaseline(newID); !ok {
		return domain.Baseline{}, false, nil
	}
	return e.transitionBaseline(ctx, "supersede_baseline", oldID, domain.BaselineSuperseded, actor, func(b *domain.Baseline, _ time.Time) {
		b.SupersededBy = newID
	})
}

func (e *Engine) transitionBaseline(ctx context.Context, op, id string, to domain.BaselineStatus, actor string, apply func(*domain.Baseline, time.Time)) (_ domain.Baseline, found bool, err error) {
	start := time.Now()
	defer func() { e.observe(ctx, op, start, err) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.baselines[id]
	if !ok {
		return domain.Baseline{}, false, nil
	}
	if !CanTransition(b.Status, to) {
		return domain.Baseline{}, true, fmt.Errorf("%w: baseline %s cannot move from %s to %s", domain.ErrInvalidTransition, b.Name, b.Status, to)
	}
	b.Status = to
	if apply != nil {
		apply(b, e.now())
	}
	e.scheduleFlushLocked()
	e.logger.Info("baseline transitioned", "id", b.ID, "status", to, "actor", actor)
	return domain.CloneBaseline(*b), true, nil
}

// DeleteBaseline removes a baseline that is not locked. Locked baselines are
// permanent records and return ErrBaselineLocked.
func (e *Engine) DeleteBaseline(ctx context.Context, id string) (found bool, err error) {
	start := time.Now()
	defer func() { e.observe(ctx, "delete_baseline", start, err) }()

	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.baselines[id]
	if !ok {
		return false, nil
	}
	if b.Status == domain.BaselineLocked {
		return true, fmt.Errorf("%w: %s", domain.ErrBaselineLocked, b.Name)
	}
	delete(e.baselines, id)
	e.baselineOrder = removeString(e.baselineOrder, id)
	e.scheduleFlushLocked()
	return true, nil
}

// BaselineChange describes a requirement whose live version moved past its
// baseline snapshot.
type BaselineChange struct {
	RequirementID string   `json:"requirementId"`
	Key           string   `json:"key"`
	FromVersion   int      `json:"fromVersion"`
	ToVersion     int      `json:"toVersion"`
	Fields        []string `json:"fields"`
}

// BaselineDiff compares a baseline against the live store.
type BaselineDiff struct {
	BaselineID string           `json:"baselineId"`
	Modified   []BaselineChange `json:"modified"`
	Deleted    []string         `json:"deleted"`
	Unchanged  []string         `json:"unchanged"`
}

// CompareBaseline reports which snapshotted requirements were modified or
// deleted since the baseline was taken.
func (e *Engine) CompareBaseline(id string) (BaselineDiff, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.baselines[id]
	if !ok {
		return BaselineDiff{}, false
	}
	diff := BaselineDiff{BaselineID: b.ID, Modified: []BaselineChange{}, Deleted: []string{}, Unchanged: []string{}}
	for _, snap := range b.Snapshots {
		live, ok := e.records[snap.RequirementID]
		if !ok {
			diff.Deleted = append(diff.Deleted, snap.RequirementID)
			continue
		}
		if live.Version == snap.Version {
			diff.Unchanged = append(diff.Unchanged, live.ID)
			continue
		}
		fields := changedFieldNames(snap.Record, *live)
		if len(live.TraceLinks) != len(snap.Record.TraceLinks) {
			fields = append(fields, FieldNameTraceLinks)
		}
		diff.Modified = append(diff.Modified, BaselineChange{
			RequirementID: live.ID,
			Key:           live.Key,
			FromVersion:   snap.Version,
			ToVersion:     live.Version,
			Fields:        fields,
		})
	}
	return diff, true
}
