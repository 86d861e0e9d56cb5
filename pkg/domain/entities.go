// Package domain defines the requirement records, trace links, baselines and
// persistence contracts shared by the tracecore engine and its drivers.
package domain

import "time"

// Requirement is the primary traceable record.
type Requirement struct {
	ID                  string                      `json:"id"`
	Key                 string                      `json:"key"`
	ProjectID           string                      `json:"projectId,omitempty"`
	Title               string                      `json:"title"`
	Description         string                      `json:"description,omitempty"`
	AcceptanceCriteria  string                      `json:"acceptanceCriteria,omitempty"`
	Rationale           string                      `json:"rationale,omitempty"`
	Type                RequirementType             `json:"type"`
	Category            Category                    `json:"category"`
	Status              Status                      `json:"status"`
	Priority            Priority                    `json:"priority"`
	Risk                Risk                        `json:"risk"`
	Complexity          Complexity                  `json:"complexity"`
	ParentID            string                      `json:"parentId,omitempty"`
	Children            []string                    `json:"children"`
	Level               int                         `json:"level"`
	SortOrder           int                         `json:"sortOrder"`
	TraceLinks          []TraceLink                 `json:"traceLinks"`
	VerificationMethods []VerificationMethod        `json:"verificationMethods"`
	VerificationStatus  VerificationStatus          `json:"verificationStatus"`
	TestCoverage        int                         `json:"testCoverage"`
	Version             int                         `json:"version"`
	ChangeHistory       []ChangeRecord              `json:"changeHistory"`
	IsLocked            bool                        `json:"isLocked"`
	BaselineID          string                      `json:"baselineId,omitempty"`
	HasSuspectLinks     bool                        `json:"hasSuspectLinks"`
	SuspectLinkIDs      []string                    `json:"suspectLinkIds"`
	CustomFields        map[string]CustomFieldValue `json:"customFields"`
	Tags                []string                    `json:"tags"`
	Owner               string                      `json:"owner,omitempty"`
	CreatedAt           time.Time                   `json:"createdAt"`
	CreatedBy           string                      `json:"createdBy,omitempty"`
	UpdatedAt           time.Time                   `json:"updatedAt"`
	UpdatedBy           string                      `json:"updatedBy,omitempty"`
}

// Link returns the trace link with the given id owned by r.
func (r Requirement) Link(id string) (TraceLink, bool) {
	for _, link := range r.TraceLinks {
		if link.ID == id {
			return link, true
		}
	}
	return TraceLink{}, false
}

// TraceLink is a directional edge owned by its source requirement.
type TraceLink struct {
	ID            string     `json:"id"`
	SourceID      string     `json:"sourceId"`
	TargetID      string     `json:"targetId"`
	TargetType    TargetType `json:"targetType"`
	LinkType      LinkType   `json:"linkType"`
	Description   string     `json:"description,omitempty"`
	IsSuspect     bool       `json:"isSuspect"`
	SuspectReason string     `json:"suspectReason,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	CreatedBy     string     `json:"createdBy,omitempty"`
	VerifiedAt    *time.Time `json:"verifiedAt,omitempty"`
	VerifiedBy    string     `json:"verifiedBy,omitempty"`
}

// ChangeRecord is one append-only audit entry in a requirement ledger.
type ChangeRecord struct {
	ID         string     `json:"id"`
	Timestamp  time.Time  `json:"timestamp"`
	UserID     string     `json:"userId"`
	ChangeType ChangeType `json:"changeType"`
	FieldName  string     `json:"fieldName,omitempty"`
	OldValue   any        `json:"oldValue,omitempty"`
	NewValue   any        `json:"newValue,omitempty"`
	Version    int        `json:"version"`
}

// CustomFieldValue holds one typed custom field value. Only the member that
// matches Kind is meaningful.
type CustomFieldValue struct {
	Kind   FieldKind  `json:"kind"`
	Text   string     `json:"text,omitempty"`
	Number *float64   `json:"number,omitempty"`
	Bool   *bool      `json:"bool,omitempty"`
	Date   *time.Time `json:"date,omitempty"`
	List   []string   `json:"list,omitempty"`
}

// CustomFieldDefinition declares a custom field available to requirements.
type CustomFieldDefinition struct {
	ID          string    `json:"id"`
	Name        string    `json:"name" validate:"required,max=100"`
	Kind        FieldKind `json:"kind" validate:"required,enum"`
	Required    bool      `json:"required"`
	Options     []string  `json:"options,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Baseline is a named, point-in-time set of requirement copies.
type Baseline struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	ProjectID    string             `json:"projectId,omitempty"`
	Status       BaselineStatus     `json:"status"`
	Snapshots    []BaselineSnapshot `json:"snapshots"`
	CreatedAt    time.Time          `json:"createdAt"`
	CreatedBy    string             `json:"createdBy,omitempty"`
	LockedAt     *time.Time         `json:"lockedAt,omitempty"`
	LockedBy     string             `json:"lockedBy,omitempty"`
	SupersededBy string             `json:"supersededBy,omitempty"`
}

// RequirementIDs returns the ids captured by the baseline in snapshot order.
func (b Baseline) RequirementIDs() []string {
	ids := make([]string, 0, len(b.Snapshots))
	for _, snap := range b.Snapshots {
		ids = append(ids, snap.RequirementID)
	}
	return ids
}

// BaselineSnapshot is a deep copy of a requirement taken at baseline creation.
type BaselineSnapshot struct {
	RequirementID string      `json:"requirementId"`
	Version       int         `json:"version"`
	Record        Requirement `json:"record"`
}

// Review groups requirements for a sign-off round.
type Review struct {
	ID             string          `json:"id"`
	Title          string          `json:"title" validate:"required"`
	Status         string          `json:"status,omitempty"`
	RequirementIDs []string        `json:"requirementIds"`
	Reviewers      []string        `json:"reviewers"`
	Comments       []ReviewComment `json:"comments"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// ReviewComment is a single remark left on a review.
type ReviewComment struct {
	Author        string    `json:"author"`
	RequirementID string    `json:"requirementId,omitempty"`
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Document is a specification document that references requirements.
type Document struct {
	ID             string    `json:"id"`
	Title          string    `json:"title" validate:"required"`
	ProjectID      string    `json:"projectId,omitempty"`
	Path           string    `json:"path,omitempty"`
	RequirementIDs []string  `json:"requirementIds"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
