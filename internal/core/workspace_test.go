package core

import (
	"context"
	"errors"
	"testing"

	"tracecore/pkg/domain"
)

func TestWorkspaceRecords(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	review, err := e.SaveReview(ctx, domain.Review{Title: "Sprint 4 sign-off", Reviewers: []string{"ana"}})
	if err != nil {
		t.Fatalf("save review: %v", err)
	}
	if review.ID == "" || review.CreatedAt.IsZero() {
		t.Fatalf("review identity not assigned: %+v", review)
	}
	review.Status = "closed"
	if _, err := e.SaveReview(ctx, review); err != nil {
		t.Fatalf("update review: %v", err)
	}
	if got := e.Reviews(); len(got) != 1 || got[0].Status != "closed" {
		t.Fatalf("review must be replaced in place: %+v", got)
	}
	if _, err := e.SaveReview(ctx, domain.Review{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("untitled review must be rejected, got %v", err)
	}

	doc, err := e.SaveDocument(ctx, domain.Document{Title: "SRS", Path: "docs/srs.md"})
	if err != nil {
		t.Fatalf("save document: %v", err)
	}
	docs := e.Documents()
	if len(docs) != 1 || docs[0].ID != doc.ID {
		t.Fatalf("unexpected documents: %+v", docs)
	}

	first, err := e.DefineCustomField(ctx, domain.CustomFieldDefinition{Name: "owner-team", Kind: domain.FieldText})
	if err != nil {
		t.Fatalf("define: %v", err)
	}
	second, err := e.DefineCustomField(ctx, domain.CustomFieldDefinition{Name: "owner-team", Kind: domain.FieldText, Required: true})
	if err != nil {
		t.Fatalf("redefine: %v", err)
	}
	if first.ID != second.ID || len(e.CustomFieldDefinitions()) != 1 {
		t.Fatalf("redefining by name must replace the definition")
	}
	if _, err := e.DefineCustomField(ctx, domain.CustomFieldDefinition{Name: "x", Kind: domain.FieldBool, Options: []string{"y"}}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("options on a non-list field must be rejected, got %v", err)
	}

	e.SetActiveProject(ctx, "apollo")
	if e.ActiveProject() != "apollo" || !e.Pending() {
		t.Fatalf("active project must be stored and saved")
	}
	snap := e.Snapshot()
	if len(snap.Reviews) != 1 || len(snap.Documents) != 1 || len(snap.CustomFields) != 1 || snap.Metadata.ActiveProjectID != "apollo" {
		t.Fatalf("workspace data missing from snapshot: %+v", snap)
	}
}
