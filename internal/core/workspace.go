package core

import (
	"context"
	"fmt"
	"time"

	"tracecore/pkg/domain"
)

// Reviews returns the stored review rounds.
func (e *Engine) Reviews() []domain.Review {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]domain.Review, 0, len(e.reviews))
	for _, r := range e.reviews {
		out = append(out, domain.CloneReview(r))
	}
	return out
}

// SaveReview inserts a review, or replaces the one with the same id. An
// empty id is assigned.
func (e *Engine) SaveReview(ctx context.Context, review domain.Review) (_ domain.Review, err error) {
	start := time.Now()
	defer func() { e.observe(ctx, "save_review", start, err) }()

	if err := domain.ValidateReview(review); err != nil {
		return domain.Review{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	review = domain.CloneReview(review)
	if review.ID == "" {
		review.ID = e.newID()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = now
	e.reviews = upsert(e.reviews, review, func(r domain.Review) string { return r.ID })
	e.scheduleFlushLocked()
	return domain.CloneReview(review), nil
}

// Documents returns the stored specification documents.
func (e *Engine) Documents() []domain.Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]domain.Document, 0, len(e.documents))
	for _, d := range e.documents {
		out = append(out, domain.CloneDocument(d))
	}
	return out
}

// SaveDocument inserts or replaces a document.
func (e *Engine) SaveDocument(ctx context.Context, doc domain.Document) (_ domain.Document, err error) {
	start := time.Now()
	defer func() { e.observe(ctx, "save_document", start, err) }()

	if err := domain.ValidateDocument(doc); err != nil {
		return domain.Document{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	doc = domain.CloneDocument(doc)
	if doc.ID == "" {
		doc.ID = e.newID()
	}
	doc.UpdatedAt = e.now()
	e.documents = upsert(e.documents, doc, func(d domain.Document) string { return d.ID })
	e.scheduleFlushLocked()
	return domain.CloneDocument(doc), nil
}

// CustomFieldDefinitions returns the declared custom fields.
func (e *Engine) CustomFieldDefinitions() []domain.CustomFieldDefinition {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]domain.CustomFieldDefinition, 0, len(e.customFields))
	for _, f := range e.customFields {
		out = append(out, domain.CloneCustomFieldDefinition(f))
	}
	return out
}

// DefineCustomField declares a custom field, replacing any definition with
// the same name. Existing values are not migrated.
func (e *Engine) DefineCustomField(ctx context.Context, def domain.CustomFieldDefinition) (_ domain.CustomFieldDefinition, err error) {
	start := time.Now()
	defer func() { e.observe(ctx, "define_custom_field", start, err) }()

	if err := domain.ValidateCustomField(def); err != nil {
		return domain.CustomFieldDefinition{}, err
	}
	if def.Kind != domain.FieldList && len(def.Options) > 0 {
		return domain.CustomFieldDefinition{}, fmt.Errorf("%w: options are only valid for list fields", domain.ErrInvalidInput)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	def = domain.CloneCustomFieldDefinition(def)
	for _, existing := range e.customFields {
		if existing.Name == def.Name {
			def.ID = existing.ID
		}
	}
	if def.ID == "" {
		def.ID = e.newID()
	}
	e.customFields = upsert(e.customFields, def, func(f domain.CustomFieldDefinition) string { return f.ID })
	e.scheduleFlushLocked()
	return domain.CloneCustomFieldDefinition(def), nil
}

// ActiveProject returns the project the workspace last selected.
func (e *Engine) ActiveProject() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.meta.ActiveProjectID
}

// SetActiveProject records the selected project in workspace metadata.
func (e *Engine) SetActiveProject(ctx context.Context, projectID string) {
	start := time.Now()
	defer func() { e.observe(ctx, "set_active_project", start, nil) }()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.meta.ActiveProjectID == projectID {
		return
	}
	e.meta.ActiveProjectID = projectID
	e.scheduleFlushLocked()
}

func upsert[T any](items []T, item T, id func(T) string) []T {
	for i := range items {
		if id(items[i]) == id(item) {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}
