package core

import (
	"context"
	"fmt"
	"time"

	"tracecore/pkg/domain"
)

// Create assigns identity and the next key, applies in over the documented
// defaults and files the record under its parent when that parent exists.
// A missing parent leaves the record orphaned at level 0.
func (e *Engine) Create(ctx context.Context, in domain.CreateInput, actor string) (_ domain.Requirement, err error) {
	start := time.Now()
	defer func() { e.observe(ctx, "create", start, err) }()

	if err := in.Validate(); err != nil {
		return domain.Requirement{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkCustomFieldsLocked(in.CustomFields); err != nil {
		return domain.Requirement{}, err
	}

	now := e.now()
	r := &domain.Requirement{
		ID:                  e.newID(),
		Key:                 e.nextKeyLocked(),
		ProjectID:           in.ProjectID,
		Title:               in.Title,
		Description:         in.Description,
		AcceptanceCriteria:  in.AcceptanceCriteria,
		Rationale:           in.Rationale,
		Type:                in.Type,
		Category:            orDefault(in.Category, domain.CategorySystem),
		Status:              orDefault(in.Status, domain.StatusDraft),
		Priority:            orDefault(in.Priority, domain.PriorityMedium),
		Risk:                orDefault(in.Risk, domain.RiskLow),
		Complexity:          orDefault(in.Complexity, domain.ComplexityMedium),
		SortOrder:           in.SortOrder,
		Children:            []string{},
		TraceLinks:          []domain.TraceLink{},
		VerificationMethods: dedupe(in.VerificationMethods),
		VerificationStatus:  orDefault(in.VerificationStatus, domain.VerificationNew),
		TestCoverage:        in.TestCoverage,
		Version:             1,
		SuspectLinkIDs:      []string{},
		CustomFields:        domain.CloneCustomFields(in.CustomFields),
		Tags:                append([]string{}, in.Tags...),
		Owner:               in.Owner,
		CreatedAt:           now,
		CreatedBy:           actor,
		UpdatedAt:           now,
		UpdatedBy:           actor,
	}
	if r.CustomFields == nil {
		r.CustomFields = map[string]domain.CustomFieldValue{}
	}
	r.ChangeHistory = []domain.ChangeRecord{{
		ID:         e.newID(),
		Timestamp:  now,
		UserID:     actor,
		ChangeType: domain.ChangeCreated,
		Version:    1,
	}}

	if in.ParentID != "" {
		if parent, ok := e.records[in.ParentID]; ok {
			r.ParentID = parent.ID
			r.Level = parent.Level + 1
		} else {
			e.logger.Warn("parent not found, record created orphaned", "parent", in.ParentID)
		}
	}

	e.records[r.ID] = r
	e.keys[r.Key] = r.ID
	e.index.Add(r)
	if r.ParentID != "" {
		e.attachChildLocked(r.ParentID, r.ID)
	}
	e.invalidate(r.ID, r.ParentID)
	e.scheduleFlushLocked()

	e.logger.Debug("requirement created", "id", r.ID, "key", r.Key)
	return domain.CloneRequirement(*r), nil
}

func (e *Engine) nextKeyLocked() string {
	for {
		e.meta.KeyCounter++
		key := domain.FormatKey(e.keyPrefix, e.meta.KeyCounter)
		if _, taken := e.keys[key]; !taken {
			return key
		}
	}
}

func (e *Engine) checkCustomFieldsLocked(values map[string]domain.CustomFieldValue) error {
	for name, v := range values {
		if !v.Kind.Valid() {
			return fmt.Errorf("%w: custom field %q has unknown kind %q", domain.ErrInvalidInput, name, v.Kind)
		}
		for _, def := range e.customFields {
			if def.Name != name {
				continue
			}
			if def.Kind != v.Kind {
				return fmt.Errorf("%w: custom field %q must be %s", domain.ErrInvalidInput, name, def.Kind)
			}
			if len(def.Options) == 0 {
				continue
			}
			for _, item := range v.List {
				if !containsString(def.Options, item) {
					return fmt.Errorf("%w: custom field %q does not allow %q", domain.ErrInvalidInput, name, item)
				}
			}
		}
	}
	return nil
}

// Get returns a copy of the requirement, serving it from the cache when
// possible.
func (e *Engine) Get(id string) (domain.Requirement, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.getLocked(id)
}

func (e *Engine) getLocked(id string) (domain.Requirement, bool) {
	if cached, ok := e.cache.Get(id); ok {
		return domain.CloneRequirement(cached), true
	}
	r, ok := e.index.Get(id)
	if !ok {
		return domain.Requirement{}, false
	}
	materialized := domain.CloneRequirement(*r)
	e.cache.Set(id, materialized)
	return domain.CloneRequirement(materialized), true
}

// GetByKey resolves a human-readable key.
func (e *Engine) GetByKey(key string) (domain.Requirement, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	id, ok := e.keys[key]
	if !ok {
		return domain.Requirement{}, false
	}
	return e.getLocked(id)
}

// Resolve accepts either an id or a key.
func (e *Engine) Resolve(ref string) (domain.Requirement, bool) {
	if r, ok := e.Get(ref); ok {
		return r, true
	}
	return e.GetByKey(ref)
}

// List returns every requirement in creation order.
func (e *Engine) List() []domain.Requirement {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneAll(e.index.Items())
}

// ListByProject returns the requirements of a project.
func (e *Engine) ListByProject(projectID string) []domain.Requirement {
	return e.listByField(FieldProject, projectID)
}

// ListByStatus returns the requirements in a workflow state.
func (e *Engine) ListByStatus(status domain.Status) []domain.Requirement {
	return e.listByField(FieldStatus, string(status))
}

// ListByType returns the requirements of a type.
func (e *Engine) ListByType(t domain.RequirementType) []domain.Requirement {
	return e.listByField(FieldType, string(t))
}

// Roots returns requirements without a parent.
func (e *Engine) Roots() []domain.Requirement {
	return e.listByField(FieldParent, "")
}

func (e *Engine) listByField(field, value string) []domain.Requirement {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneAll(e.index.GetByField(field, value))
}

// Children returns the direct children of id in sibling order.
func (e *Engine) Children(id string) []domain.Requirement {
	e.mu.RLock()
	defer e.mu.RUnlock()
	parent, ok := e.records[id]
	if !ok {
		return nil
	}
	out := make([]domain.Requirement, 0, len(parent.Children))
	for _, childID := range parent.Children {
		if child, ok := e.records[childID]; ok {
			out = append(out, domain.CloneRequirement(*child))
		}
	}
	return out
}

// Count reports the number of live requirements.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.records)
}

// Update applies patch in place. It returns found=false for an unknown id;
// a patch rejected for an existing record reports found=true with the error.
// Each changed field produces one ledger entry and the version advances by
// exactly one; a patch that changes nothing is not a mutation. Changing the
// title, description or acceptance criteria marks every link pointing at
// the record suspect.
func (e *Engine) Update(ctx context.Context, id string, patch domain.RequirementPatch, actor string) (_ domain.Requirement, found bool, err error) {
	start := time.Now()
	defer func() { e.observe(ctx, "update", start, err) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.records[id]
	if !ok {
		return domain.Requirement{}, false, nil
	}
	if err := patch.Validate(); err != nil {
		return domain.Requirement{}, true, err
	}
	if patch.ParentID != nil && *patch.ParentID != r.ParentID {
		if err := e.checkReparentLocked(r.ID, *patch.ParentID); err != nil {
			return domain.Requirement{}, true, err
		}
	}
	if patch.CustomFields != nil {
		if err := e.checkCustomFieldsLocked(*patch.CustomFields); err != nil {
			return domain.Requirement{}, true, err
		}
	}

	before := domain.CloneRequirement(*r)
	applyPatch(r, patch)
	changes := diffRequirements(before, domain.CloneRequirement(*r))
	if len(changes) == 0 {
		return domain.CloneRequirement(*r), true, nil
	}

	now := e.now()
	r.Version++
	r.UpdatedAt = now
	r.UpdatedBy = actor
	touched := []string{r.ID}
	propagate := false
	for _, c := range changes {
		changeType := domain.ChangeUpdated
		if c.field == FieldNameStatus {
			changeType = domain.ChangeStatusChanged
		}
		r.ChangeHistory = append(r.ChangeHistory, domain.ChangeRecord{
			ID:         e.newID(),
			Timestamp:  now,
			UserID:     actor,
			ChangeType: changeType,
			FieldName:  c.field,
			OldValue:   c.oldValue,
			NewValue:   c.newValue,
			Version:    r.Version,
		})
		switch c.field {
		case FieldNameParentID:
			touched = append(touched, e.moveLocked(r, before.ParentID)...)
		case FieldNameSortOrder:
			if r.ParentID != "" && before.ParentID == r.ParentID {
				e.sortChildrenLocked(r.ParentID)
				touched = append(touched, r.ParentID)
			}
		}
		if suspectFields[c.field] {
			propagate = true
		}
	}

	e.index.Add(r)
	e.invalidate(touched...)
	if propagate {
		if marked := e.propagateSuspectLocked(r.ID); marked > 0 {
			e.logger.Info("links marked suspect", "target", r.ID, "count", marked)
		}
	}
	e.scheduleFlushLocked()

	e.logger.Debug("requirement updated", "id", r.ID, "version", r.Version, "fields", len(changes))
	return domain.CloneRequirement(*r), true, nil
}

func applyPatch(r *domain.Requirement, p domain.RequirementPatch) {
	setIf(&r.Title, p.Title)
	setIf(&r.Description, p.Description)
	setIf(&r.AcceptanceCriteria, p.AcceptanceCriteria)
	setIf(&r.Rationale, p.Rationale)
	setIf(&r.Type, p.Type)
	setIf(&r.Category, p.Category)
	setIf(&r.Status, p.Status)
	setIf(&r.Priority, p.Priority)
	setIf(&r.Risk, p.Risk)
	setIf(&r.Complexity, p.Complexity)
	setIf(&r.ParentID, p.ParentID)
	setIf(&r.SortOrder, p.SortOrder)
	setIf(&r.VerificationStatus, p.VerificationStatus)
	setIf(&r.TestCoverage, p.TestCoverage)
	setIf(&r.ProjectID, p.ProjectID)
	setIf(&r.Owner, p.Owner)
	if p.VerificationMethods != nil {
		r.VerificationMethods = dedupe(*p.VerificationMethods)
	}
	if p.CustomFields != nil {
		r.CustomFields = domain.CloneCustomFields(*p.CustomFields)
		if r.CustomFields == nil {
			r.CustomFields = map[string]domain.CustomFieldValue{}
		}
	}
	if p.Tags != nil {
		r.Tags = append([]string{}, (*p.Tags)...)
	}
}

// checkReparentLocked rejects unknown parents and moves that would place a
// record beneath itself.
func (e *Engine) checkReparentLocked(id, newParent string) error {
	if newParent == "" {
		return nil
	}
	if _, ok := e.records[newParent]; !ok {
		return fmt.Errorf("%w: parent %s not found", domain.ErrInvalidInput, newParent)
	}
	for cur := newParent; cur != ""; {
		if cur == id {
			return fmt.Errorf("%w: %s cannot be moved under its own descendant %s", domain.ErrHierarchyCycle, id, newParent)
		}
		p, ok := e.records[cur]
		if !ok {
			break
		}
		cur = p.ParentID
	}
	return nil
}

// moveLocked detaches r from oldParent, files it under r.ParentID and
// recomputes levels for the moved subtree. It returns every touched id.
func (e *Engine) moveLocked(r *domain.Requirement, oldParent string) []string {
	var touched []string
	if oldParent != "" {
		if p, ok := e.records[oldParent]; ok {
			p.Children = removeString(p.Children, r.ID)
			touched = append(touched, oldParent)
		}
	}
	r.Level = 0
	if r.ParentID != "" {
		e.attachChildLocked(r.ParentID, r.ID)
		r.Level = e.records[r.ParentID].Level + 1
		touched = append(touched, r.ParentID)
	}
	return append(touched, e.relevelLocked(r)...)
}

func (e *Engine) relevelLocked(r *domain.Requirement) []string {
	var touched []string
	for _, childID := range r.Children {
		child, ok := e.records[childID]
		if !ok {
			continue
		}
		child.Level = r.Level + 1
		touched = append(touched, childID)
		touched = append(touched, e.relevelLocked(child)...)
	}
	return touched
}

func (e *Engine) attachChildLocked(parentID, childID string) {
	p, ok := e.records[parentID]
	if !ok {
		return
	}
	if !containsString(p.Children, childID) {
		p.Children = append(p.Children, childID)
	}
	e.sortChildrenLocked(parentID)
}

func (e *Engine) sortChildrenLocked(parentID string) {
	p, ok := e.records[parentID]
	if !ok {
		return
	}
	domain.SortChildren(p.Children, func(id string) (domain.Requirement, bool) {
		c, ok := e.records[id]
		if !ok {
			return domain.Requirement{}, false
		}
		return *c, true
	})
}

// Delete removes a requirement and, depth first, all of its descendants. It
// detaches the record from its parent and strips every inbound requirement
// link held elsewhere. It returns false for an unknown id.
func (e *Engine) Delete(ctx context.Context, id, actor string) bool {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.records[id]
	if !ok {
		e.observe(ctx, "delete", start, nil)
		return false
	}
	touched := []string{}
	if r.ParentID != "" {
		if p, ok := e.records[r.ParentID]; ok {
			p.Children = removeString(p.Children, id)
			touched = append(touched, p.ID)
		}
	}

	removed := make(map[string]bool)
	e.deleteSubtreeLocked(id, removed)

	for _, other := range e.records {
		if e.stripInboundLocked(other, removed) {
			touched = append(touched, other.ID)
		}
	}
	for rid := range removed {
		touched = append(touched, rid)
	}
	e.invalidate(touched...)
	e.scheduleFlushLocked()

	e.logger.Debug("requirement deleted", "id", id, "removed", len(removed), "actor", actor)
	e.observe(ctx, "delete", start, nil)
	return true
}

func (e *Engine) deleteSubtreeLocked(id string, removed map[string]bool) {
	r, ok := e.records[id]
	if !ok || removed[id] {
		return
	}
	for _, childID := range append([]string(nil), r.Children...) {
		e.deleteSubtreeLocked(childID, removed)
	}
	removed[id] = true
	delete(e.records, id)
	delete(e.keys, r.Key)
	e.index.Remove(id)
}

// stripInboundLocked drops links on r that target a removed requirement.
func (e *Engine) stripInboundLocked(r *domain.Requirement, removed map[string]bool) bool {
	kept := r.TraceLinks[:0]
	changed := false
	for _, link := range r.TraceLinks {
		if link.TargetType == domain.TargetRequirement && removed[link.TargetID] {
			r.SuspectLinkIDs = removeString(r.SuspectLinkIDs, link.ID)
			changed = true
			continue
		}
		kept = append(kept, link)
	}
	if changed {
		r.TraceLinks = kept
		r.HasSuspectLinks = len(r.SuspectLinkIDs) > 0
	}
	return changed
}

// History returns the change ledger of a requirement in insertion order.
func (e *Engine) History(id string) ([]domain.ChangeRecord, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.records[id]
	if !ok {
		return nil, false
	}
	out := make([]domain.ChangeRecord, len(r.ChangeHistory))
	for i, c := range r.ChangeHistory {
		out[i] = domain.CloneChangeRecord(c)
	}
	return out, true
}

func cloneAll(items []*domain.Requirement) []domain.Requirement {
	out := make([]domain.Requirement, 0, len(items))
	for _, r := range items {
		out = append(out, domain.CloneRequirement(*r))
	}
	return out
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func dedupe[T comparable](in []T) []T {
	out := make([]T, 0, len(in))
	seen := make(map[T]bool, len(in))
	for _, v := range in {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func containsString(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}

func removeString(values []string, v string) []string {
	out := values[:0]
	for _, existing := range values {
		if existing != v {
			out = append(out, existing)
		}
	}
	return out
}
