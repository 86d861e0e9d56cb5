package domain

import (
	"slices"
	"time"
)

// CloneRequirement deep-copies a requirement including its links and ledger.
func CloneRequirement(r Requirement) Requirement {
	cp := r
	cp.Children = cloneSlice(r.Children)
	cp.VerificationMethods = cloneSlice(r.VerificationMethods)
	cp.SuspectLinkIDs = cloneSlice(r.SuspectLinkIDs)
	cp.Tags = cloneSlice(r.Tags)
	if r.TraceLinks != nil {
		cp.TraceLinks = make([]TraceLink, len(r.TraceLinks))
		for i, link := range r.TraceLinks {
			cp.TraceLinks[i] = CloneTraceLink(link)
		}
	}
	if r.ChangeHistory != nil {
		cp.ChangeHistory = make([]ChangeRecord, len(r.ChangeHistory))
		for i, rec := range r.ChangeHistory {
			cp.ChangeHistory[i] = CloneChangeRecord(rec)
		}
	}
	if r.CustomFields != nil {
		cp.CustomFields = make(map[string]CustomFieldValue, len(r.CustomFields))
		for k, v := range r.CustomFields {
			cp.CustomFields[k] = CloneCustomFieldValue(v)
		}
	}
	return cp
}

// CloneTraceLink copies a trace link.
func CloneTraceLink(l TraceLink) TraceLink {
	cp := l
	cp.VerifiedAt = cloneTime(l.VerifiedAt)
	return cp
}

// CloneChangeRecord deep-copies a ledger entry including its old and new
// values.
func CloneChangeRecord(c ChangeRecord) ChangeRecord {
	cp := c
	cp.OldValue = cloneLedgerValue(c.OldValue)
	cp.NewValue = cloneLedgerValue(c.NewValue)
	return cp
}

// cloneLedgerValue copies the value kinds a ledger entry can hold: the typed
// field values recorded by updates and link changes, and the generic forms
// produced when a snapshot is decoded. Scalars are returned as is.
func cloneLedgerValue(v any) any {
	switch val := v.(type) {
	case []VerificationMethod:
		return cloneSlice(val)
	case []string:
		return cloneSlice(val)
	case map[string]CustomFieldValue:
		return CloneCustomFields(val)
	case TraceLink:
		return CloneTraceLink(val)
	case *TraceLink:
		if val == nil {
			return val
		}
		link := CloneTraceLink(*val)
		return &link
	case []any:
		if val == nil {
			return val
		}
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneLedgerValue(item)
		}
		return out
	case map[string]any:
		if val == nil {
			return val
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneLedgerValue(item)
		}
		return out
	default:
		return v
	}
}

// CloneCustomFieldValue deep-copies a custom field value.
func CloneCustomFieldValue(v CustomFieldValue) CustomFieldValue {
	cp := v
	if v.Number != nil {
		n := *v.Number
		cp.Number = &n
	}
	if v.Bool != nil {
		b := *v.Bool
		cp.Bool = &b
	}
	cp.Date = cloneTime(v.Date)
	cp.List = cloneSlice(v.List)
	return cp
}

// CloneCustomFields deep-copies a custom field map.
func CloneCustomFields(m map[string]CustomFieldValue) map[string]CustomFieldValue {
	if m == nil {
		return nil
	}
	cp := make(map[string]CustomFieldValue, len(m))
	for k, v := range m {
		cp[k] = CloneCustomFieldValue(v)
	}
	return cp
}

// CloneBaseline deep-copies a baseline and every snapshot it holds.
func CloneBaseline(b Baseline) Baseline {
	cp := b
	cp.LockedAt = cloneTime(b.LockedAt)
	if b.Snapshots != nil {
		cp.Snapshots = make([]BaselineSnapshot, len(b.Snapshots))
		for i, snap := range b.Snapshots {
			cp.Snapshots[i] = BaselineSnapshot{
				RequirementID: snap.RequirementID,
				Version:       snap.Version,
				Record:        CloneRequirement(snap.Record),
			}
		}
	}
	return cp
}

// CloneReview deep-copies a review.
func CloneReview(r Review) Review {
	cp := r
	cp.RequirementIDs = cloneSlice(r.RequirementIDs)
	cp.Reviewers = cloneSlice(r.Reviewers)
	cp.Comments = cloneSlice(r.Comments)
	return cp
}

// CloneDocument deep-copies a document.
func CloneDocument(d Document) Document {
	cp := d
	cp.RequirementIDs = cloneSlice(d.RequirementIDs)
	return cp
}

// CloneCustomFieldDefinition deep-copies a custom field definition.
func CloneCustomFieldDefinition(d CustomFieldDefinition) CustomFieldDefinition {
	cp := d
	cp.Options = cloneSlice(d.Options)
	return cp
}

// CloneSnapshot deep-copies an entire snapshot.
func CloneSnapshot(s Snapshot) Snapshot {
	cp := Snapshot{Metadata: s.Metadata}
	if s.Requirements != nil {
		cp.Requirements = make([]Requirement, len(s.Requirements))
		for i, r := range s.Requirements {
			cp.Requirements[i] = CloneRequirement(r)
		}
	}
	if s.Baselines != nil {
		cp.Baselines = make([]Baseline, len(s.Baselines))
		for i, b := range s.Baselines {
			cp.Baselines[i] = CloneBaseline(b)
		}
	}
	if s.Reviews != nil {
		cp.Reviews = make([]Review, len(s.Reviews))
		for i, r := range s.Reviews {
			cp.Reviews[i] = CloneReview(r)
		}
	}
	if s.Documents != nil {
		cp.Documents = make([]Document, len(s.Documents))
		for i, d := range s.Documents {
			cp.Documents[i] = CloneDocument(d)
		}
	}
	if s.CustomFields != nil {
		cp.CustomFields = make([]CustomFieldDefinition, len(s.CustomFields))
		for i, d := range s.CustomFields {
			cp.CustomFields[i] = CloneCustomFieldDefinition(d)
		}
	}
	return cp
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return slices.Clone(in)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
