package codec

import (
	"bytes"
	"testing"
	"time"

	"tracecore/pkg/domain"
)

func TestMarshalIsDeterministic(t *testing.T) {
	a := map[string]int{"zeta": 1, "alpha": 2, "mid": 3}
	b := map[string]int{"mid": 3, "zeta": 1, "alpha": 2}
	first, err := Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding differs between equal maps")
		}
	}
}

func TestRequirementSurvivesEncoding(t *testing.T) {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 891011, time.UTC)
	in := domain.Requirement{
		ID:        "id-1",
		Key:       "REQ-0001",
		Title:     "Login",
		Type:      domain.TypeFunctional,
		Status:    domain.StatusDraft,
		CreatedAt: ts,
		TraceLinks: []domain.TraceLink{{
			ID: "l1", SourceID: "id-1", TargetID: "id-2",
			LinkType: domain.LinkDerivedFrom, TargetType: domain.TargetRequirement,
			IsSuspect: true, SuspectReason: "target requirement was modified",
		}},
	}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out domain.Requirement
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.CreatedAt.Equal(ts) {
		t.Fatalf("timestamp lost precision: %v vs %v", out.CreatedAt, ts)
	}
	if len(out.TraceLinks) != 1 || !out.TraceLinks[0].IsSuspect || out.TraceLinks[0].LinkType != domain.LinkDerivedFrom {
		t.Fatalf("links not preserved: %+v", out.TraceLinks)
	}
}

func TestAnyValuesDecodeAsStringMaps(t *testing.T) {
	data, err := Marshal(map[string]any{"nested": map[string]any{"k": "v"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := out["nested"].(map[string]any); !ok {
		t.Fatalf("expected map[string]any, got %T", out["nested"])
	}
}
