package core

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"tracecore/pkg/domain"
)

// MinDescriptionLength is the shortest description accepted for approval.
const MinDescriptionLength = 10

// TransitionRule checks whether a requirement is ready to enter a status.
type TransitionRule interface {
	Name() string
	Evaluate(r domain.Requirement, target domain.Status) domain.Result
}

// DefaultTransitionRules returns the readiness checks applied by
// ValidateTransition.
func DefaultTransitionRules() []TransitionRule {
	return []TransitionRule{knownStatusRule{}, approvalReadinessRule{}, verificationReadinessRule{}}
}

// ValidateTransition evaluates every transition rule for moving id to
// target. The check is advisory: Update does not consult it. found is false
// for an unknown id.
func (e *Engine) ValidateTransition(id string, target domain.Status) (domain.Result, bool) {
	r, ok := e.Get(id)
	if !ok {
		return domain.Result{}, false
	}
	res := domain.Result{}
	for _, rule := range e.rules {
		res.Merge(rule.Evaluate(r, target))
	}
	return res, true
}

type knownStatusRule struct{}

func (knownStatusRule) Name() string { return "known_status" }

func (knownStatusRule) Evaluate(r domain.Requirement, target domain.Status) domain.Result {
	if target.Valid() {
		return domain.Result{}
	}
	return domain.Result{Violations: []domain.Violation{
		transitionViolation("known_status", r.ID, fmt.Sprintf("unknown status %q", target)),
	}}
}

var approvalStatuses = toSet(domain.StatusApproved, domain.StatusActive, domain.StatusReleased)

type approvalReadinessRule struct{}

func (approvalReadinessRule) Name() string { return "approval_readiness" }

func (rule approvalReadinessRule) Evaluate(r domain.Requirement, target domain.Status) domain.Result {
	res := domain.Result{}
	if _, ok := approvalStatuses[target]; !ok {
		return res
	}
	if utf8.RuneCountInString(strings.TrimSpace(r.Description)) < MinDescriptionLength {
		res.Violations = append(res.Violations, transitionViolation(rule.Name(), r.ID,
			fmt.Sprintf("description must be at least %d characters", MinDescriptionLength)))
	}
	if len(r.VerificationMethods) == 0 {
		res.Violations = append(res.Violations, transitionViolation(rule.Name(), r.ID,
			"at least one verification method is required"))
	}
	if !r.Priority.Valid() {
		res.Violations = append(res.Violations, transitionViolation(rule.Name(), r.ID,
			"priority is required"))
	}
	return res
}

var verificationStatuses = toSet(domain.StatusVerified, domain.StatusValidated)

type verificationReadinessRule struct{}

func (verificationReadinessRule) Name() string { return "verification_readiness" }

func (rule verificationReadinessRule) Evaluate(r domain.Requirement, target domain.Status) domain.Result {
	res := domain.Result{}
	if _, ok := verificationStatuses[target]; !ok {
		return res
	}
	if r.TestCoverage < 100 {
		res.Violations = append(res.Violations, transitionViolation(rule.Name(), r.ID,
			"test coverage must be 100% before verification"))
	}
	if r.VerificationStatus != domain.VerificationVerified {
		res.Violations = append(res.Violations, transitionViolation(rule.Name(), r.ID,
			"verification status must be verified"))
	}
	return res
}

func transitionViolation(rule, entityID, message string) domain.Violation {
	return domain.Violation{
		Rule:     rule,
		Severity: domain.SeverityBlock,
		Message:  message,
		EntityID: entityID,
	}
}
