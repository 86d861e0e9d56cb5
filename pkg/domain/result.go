package domain

import "errors"

// Sentinel errors returned by the engine. Callers match them with errors.Is.
var (
	// ErrInvalidInput marks input rejected at the boundary.
	ErrInvalidInput = errors.New("invalid input")
	// ErrHierarchyCycle is returned when a re-parent would make a record its own ancestor.
	ErrHierarchyCycle = errors.New("hierarchy cycle")
	// ErrBaselineLocked is returned when a locked baseline would be modified.
	ErrBaselineLocked = errors.New("baseline locked")
	// ErrInvalidTransition is returned for illegal baseline lifecycle moves.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
)

// Severity grades a validation finding.
type Severity string

const (
	// SeverityBlock findings should stop the transition.
	SeverityBlock Severity = "block"
	// SeverityWarn findings are reported but do not stop the transition.
	SeverityWarn Severity = "warn"
)

// Violation reports one failed check.
type Violation struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	EntityID string   `json:"entityId,omitempty"`
}

// Result aggregates violations from a validation pass.
type Result struct {
	Violations []Violation `json:"violations"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Messages returns the human-readable reasons in evaluation order.
func (r Result) Messages() []string {
	out := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		out = append(out, v.Message)
	}
	return out
}
