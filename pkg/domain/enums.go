package domain

// RequirementType classifies what a requirement constrains.
type RequirementType string

// Supported requirement types.
const (
	TypeFunctional    RequirementType = "functional"
	TypeNonFunctional RequirementType = "non-functional"
	TypeSystem        RequirementType = "system"
	TypeSoftware      RequirementType = "software"
	TypeHardware      RequirementType = "hardware"
	TypeInterface     RequirementType = "interface"
	TypePerformance   RequirementType = "performance"
	TypeSafety        RequirementType = "safety"
	TypeSecurity      RequirementType = "security"
	TypeRegulatory    RequirementType = "regulatory"
	TypeUserNeed      RequirementType = "user-need"
)

// AllRequirementTypes lists every requirement type in report order.
func AllRequirementTypes() []RequirementType {
	return []RequirementType{
		TypeFunctional, TypeNonFunctional, TypeSystem, TypeSoftware, TypeHardware,
		TypeInterface, TypePerformance, TypeSafety, TypeSecurity, TypeRegulatory, TypeUserNeed,
	}
}

// Valid reports whether t is a known requirement type.
func (t RequirementType) Valid() bool { return contains(AllRequirementTypes(), t) }

// Category places a requirement in the decomposition hierarchy.
type Category string

// Supported categories.
const (
	CategoryBusiness    Category = "business"
	CategoryStakeholder Category = "stakeholder"
	CategorySystem      Category = "system"
	CategorySubsystem   Category = "subsystem"
	CategoryComponent   Category = "component"
	CategoryTest        Category = "test"
)

// AllCategories lists every category.
func AllCategories() []Category {
	return []Category{CategoryBusiness, CategoryStakeholder, CategorySystem, CategorySubsystem, CategoryComponent, CategoryTest}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool { return contains(AllCategories(), c) }

// Status is the requirement workflow state.
type Status string

// Requirement workflow states.
const (
	StatusDraft       Status = "draft"
	StatusInReview    Status = "in-review"
	StatusApproved    Status = "approved"
	StatusActive      Status = "active"
	StatusImplemented Status = "implemented"
	StatusVerified    Status = "verified"
	StatusValidated   Status = "validated"
	StatusReleased    Status = "released"
	StatusDeprecated  Status = "deprecated"
	StatusRejected    Status = "rejected"
)

// AllStatuses lists every workflow state in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusDraft, StatusInReview, StatusApproved, StatusActive, StatusImplemented,
		StatusVerified, StatusValidated, StatusReleased, StatusDeprecated, StatusRejected,
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return contains(AllStatuses(), s) }

// Priority ranks requirement importance.
type Priority string

// Priorities.
const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// AllPriorities lists every priority from most to least important.
func AllPriorities() []Priority {
	return []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool { return contains(AllPriorities(), p) }

// Risk grades the consequence of getting a requirement wrong.
type Risk string

// Risk grades.
const (
	RiskHigh   Risk = "high"
	RiskMedium Risk = "medium"
	RiskLow    Risk = "low"
)

// AllRisks lists every risk grade.
func AllRisks() []Risk { return []Risk{RiskHigh, RiskMedium, RiskLow} }

// Valid reports whether r is a known risk grade.
func (r Risk) Valid() bool { return contains(AllRisks(), r) }

// Complexity estimates implementation effort.
type Complexity string

// Complexity grades.
const (
	ComplexityHigh   Complexity = "high"
	ComplexityMedium Complexity = "medium"
	ComplexityLow    Complexity = "low"
)

// AllComplexities lists every complexity grade.
func AllComplexities() []Complexity {
	return []Complexity{ComplexityHigh, ComplexityMedium, ComplexityLow}
}

// Valid reports whether c is a known complexity grade.
func (c Complexity) Valid() bool { return contains(AllComplexities(), c) }

// VerificationMethod is how a requirement is shown to be met.
type VerificationMethod string

// Verification methods (the classic TADI set).
const (
	VerifyByTest          VerificationMethod = "test"
	VerifyByAnalysis      VerificationMethod = "analysis"
	VerifyByInspection    VerificationMethod = "inspection"
	VerifyByDemonstration VerificationMethod = "demonstration"
)

// AllVerificationMethods lists every verification method.
func AllVerificationMethods() []VerificationMethod {
	return []VerificationMethod{VerifyByTest, VerifyByAnalysis, VerifyByInspection, VerifyByDemonstration}
}

// Valid reports whether m is a known verification method.
func (m VerificationMethod) Valid() bool { return contains(AllVerificationMethods(), m) }

// VerificationStatus tracks verification progress.
type VerificationStatus string

// Verification states.
const (
	VerificationNew        VerificationStatus = "new"
	VerificationInProgress VerificationStatus = "in-progress"
	VerificationVerified   VerificationStatus = "verified"
	VerificationFailed     VerificationStatus = "failed"
)

// AllVerificationStatuses lists every verification state.
func AllVerificationStatuses() []VerificationStatus {
	return []VerificationStatus{VerificationNew, VerificationInProgress, VerificationVerified, VerificationFailed}
}

// Valid reports whether v is a known verification state.
func (v VerificationStatus) Valid() bool { return contains(AllVerificationStatuses(), v) }

// TargetType identifies what kind of artifact a trace link points at.
type TargetType string

// Link target kinds. Only TargetRequirement targets participate in inverse links.
const (
	TargetRequirement TargetType = "requirement"
	TargetTestCase    TargetType = "test-case"
	TargetDocument    TargetType = "document"
	TargetDesign      TargetType = "design"
	TargetCode        TargetType = "code"
	TargetRisk        TargetType = "risk"
)

// AllTargetTypes lists every link target kind.
func AllTargetTypes() []TargetType {
	return []TargetType{TargetRequirement, TargetTestCase, TargetDocument, TargetDesign, TargetCode, TargetRisk}
}

// Valid reports whether t is a known target kind.
func (t TargetType) Valid() bool { return contains(AllTargetTypes(), t) }

// ChangeType labels a change ledger entry.
type ChangeType string

// Ledger entry kinds.
const (
	ChangeCreated          ChangeType = "created"
	ChangeUpdated          ChangeType = "updated"
	ChangeStatusChanged    ChangeType = "status-changed"
	ChangeTraceLinkAdded   ChangeType = "trace-link-added"
	ChangeTraceLinkRemoved ChangeType = "trace-link-removed"
)

// BaselineStatus is the baseline lifecycle state.
type BaselineStatus string

// Baseline lifecycle states.
const (
	BaselineDraft      BaselineStatus = "draft"
	BaselineActive     BaselineStatus = "active"
	BaselineLocked     BaselineStatus = "locked"
	BaselineArchived   BaselineStatus = "archived"
	BaselineSuperseded BaselineStatus = "superseded"
)

// Terminal reports whether no further lifecycle moves are allowed.
func (s BaselineStatus) Terminal() bool {
	return s == BaselineArchived || s == BaselineSuperseded
}

// FieldKind is the value type of a custom field.
type FieldKind string

// Custom field kinds.
const (
	FieldText   FieldKind = "text"
	FieldNumber FieldKind = "number"
	FieldBool   FieldKind = "bool"
	FieldDate   FieldKind = "date"
	FieldList   FieldKind = "list"
)

// AllFieldKinds lists every custom field kind.
func AllFieldKinds() []FieldKind {
	return []FieldKind{FieldText, FieldNumber, FieldBool, FieldDate, FieldList}
}

// Valid reports whether k is a known field kind.
func (k FieldKind) Valid() bool { return contains(AllFieldKinds(), k) }

func contains[T comparable](values []T, v T) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}
