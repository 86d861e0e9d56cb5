package core

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"tracecore/pkg/domain"
)

// Ledger field names.
const (
	FieldNameTitle               = "title"
	FieldNameDescription         = "description"
	FieldNameAcceptanceCriteria  = "acceptanceCriteria"
	FieldNameRationale           = "rationale"
	FieldNameType                = "type"
	FieldNameCategory            = "category"
	FieldNameStatus              = "status"
	FieldNamePriority            = "priority"
	FieldNameRisk                = "risk"
	FieldNameComplexity          = "complexity"
	FieldNameParentID            = "parentId"
	FieldNameSortOrder           = "sortOrder"
	FieldNameVerificationMethods = "verificationMethods"
	FieldNameVerificationStatus  = "verificationStatus"
	FieldNameTestCoverage        = "testCoverage"
	FieldNameCustomFields        = "customFields"
	FieldNameTags                = "tags"
	FieldNameProjectID           = "projectId"
	FieldNameOwner               = "owner"
	FieldNameTraceLinks          = "traceLinks"
)

type diffField struct {
	name string
	get  func(domain.Requirement) any
}

// diffFields is the closed list of user-editable fields compared when an
// update is applied. Every RequirementPatch field has an entry.
var diffFields = []diffField{
	{FieldNameTitle, func(r domain.Requirement) any { return r.Title }},
	{FieldNameDescription, func(r domain.Requirement) any { return r.Description }},
	{FieldNameAcceptanceCriteria, func(r domain.Requirement) any { return r.AcceptanceCriteria }},
	{FieldNameRationale, func(r domain.Requirement) any { return r.Rationale }},
	{FieldNameType, func(r domain.Requirement) any { return r.Type }},
	{FieldNameCategory, func(r domain.Requirement) any { return r.Category }},
	{FieldNameStatus, func(r domain.Requirement) any { return r.Status }},
	{FieldNamePriority, func(r domain.Requirement) any { return r.Priority }},
	{FieldNameRisk, func(r domain.Requirement) any { return r.Risk }},
	{FieldNameComplexity, func(r domain.Requirement) any { return r.Complexity }},
	{FieldNameParentID, func(r domain.Requirement) any { return r.ParentID }},
	{FieldNameSortOrder, func(r domain.Requirement) any { return r.SortOrder }},
	{FieldNameVerificationMethods, func(r domain.Requirement) any { return r.VerificationMethods }},
	{FieldNameVerificationStatus, func(r domain.Requirement) any { return r.VerificationStatus }},
	{FieldNameTestCoverage, func(r domain.Requirement) any { return r.TestCoverage }},
	{FieldNameCustomFields, func(r domain.Requirement) any { return r.CustomFields }},
	{FieldNameTags, func(r domain.Requirement) any { return r.Tags }},
	{FieldNameProjectID, func(r domain.Requirement) any { return r.ProjectID }},
	{FieldNameOwner, func(r domain.Requirement) any { return r.Owner }},
}

// suspectFields are the fields whose change invalidates links pointing at a
// requirement.
var suspectFields = map[string]bool{
	FieldNameTitle:              true,
	FieldNameDescription:        true,
	FieldNameAcceptanceCriteria: true,
}

var equalOpts = []cmp.Option{cmpopts.EquateEmpty()}

type fieldChange struct {
	field    string
	oldValue any
	newValue any
}

// diffRequirements compares before and after over diffFields. Values are
// taken from the supplied copies, which must not alias live records.
func diffRequirements(before, after domain.Requirement) []fieldChange {
	var changes []fieldChange
	for _, f := range diffFields {
		oldV, newV := f.get(before), f.get(after)
		if cmp.Equal(oldV, newV, equalOpts...) {
			continue
		}
		changes = append(changes, fieldChange{field: f.name, oldValue: oldV, newValue: newV})
	}
	return changes
}

// changedFieldNames lists the names of fields that differ between a and b.
func changedFieldNames(a, b domain.Requirement) []string {
	changes := diffRequirements(a, b)
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.field)
	}
	return out
}
