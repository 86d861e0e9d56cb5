package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// enum accepts any value exposing Valid() bool, so every closed
	// enumeration in this package shares one tag.
	_ = v.RegisterValidation("enum", func(fl validator.FieldLevel) bool {
		e, ok := fl.Field().Interface().(interface{ Valid() bool })
		return ok && e.Valid()
	})
	return v
}

// CreateInput carries the caller-supplied fields for a new requirement.
// Zero values fall back to the documented defaults.
type CreateInput struct {
	ProjectID           string                      `json:"projectId,omitempty"`
	Title               string                      `json:"title" validate:"required,max=500"`
	Description         string                      `json:"description,omitempty"`
	AcceptanceCriteria  string                      `json:"acceptanceCriteria,omitempty"`
	Rationale           string                      `json:"rationale,omitempty"`
	Type                RequirementType             `json:"type" validate:"required,enum"`
	Category            Category                    `json:"category,omitempty" validate:"omitempty,enum"`
	Status              Status                      `json:"status,omitempty" validate:"omitempty,enum"`
	Priority            Priority                    `json:"priority,omitempty" validate:"omitempty,enum"`
	Risk                Risk                        `json:"risk,omitempty" validate:"omitempty,enum"`
	Complexity          Complexity                  `json:"complexity,omitempty" validate:"omitempty,enum"`
	ParentID            string                      `json:"parentId,omitempty"`
	SortOrder           int                         `json:"sortOrder,omitempty"`
	VerificationMethods []VerificationMethod        `json:"verificationMethods,omitempty" validate:"omitempty,dive,enum"`
	VerificationStatus  VerificationStatus          `json:"verificationStatus,omitempty" validate:"omitempty,enum"`
	TestCoverage        int                         `json:"testCoverage,omitempty" validate:"min=0,max=100"`
	CustomFields        map[string]CustomFieldValue `json:"customFields,omitempty"`
	Tags                []string                    `json:"tags,omitempty"`
	Owner               string                      `json:"owner,omitempty"`
}

// Validate checks the input against its declared constraints.
func (in CreateInput) Validate() error {
	return structError(validate.Struct(in))
}

// RequirementPatch lists the fields an update may change. A nil field is left
// untouched.
type RequirementPatch struct {
	Title               *string                      `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Description         *string                      `json:"description,omitempty"`
	AcceptanceCriteria  *string                      `json:"acceptanceCriteria,omitempty"`
	Rationale           *string                      `json:"rationale,omitempty"`
	Type                *RequirementType             `json:"type,omitempty" validate:"omitempty,enum"`
	Category            *Category                    `json:"category,omitempty" validate:"omitempty,enum"`
	Status              *Status                      `json:"status,omitempty" validate:"omitempty,enum"`
	Priority            *Priority                    `json:"priority,omitempty" validate:"omitempty,enum"`
	Risk                *Risk                        `json:"risk,omitempty" validate:"omitempty,enum"`
	Complexity          *Complexity                  `json:"complexity,omitempty" validate:"omitempty,enum"`
	ParentID            *string                      `json:"parentId,omitempty"`
	SortOrder           *int                         `json:"sortOrder,omitempty"`
	VerificationMethods *[]VerificationMethod        `json:"verificationMethods,omitempty" validate:"omitempty,dive,enum"`
	VerificationStatus  *VerificationStatus          `json:"verificationStatus,omitempty" validate:"omitempty,enum"`
	TestCoverage        *int                         `json:"testCoverage,omitempty" validate:"omitempty,min=0,max=100"`
	CustomFields        *map[string]CustomFieldValue `json:"customFields,omitempty"`
	Tags                *[]string                    `json:"tags,omitempty"`
	ProjectID           *string                      `json:"projectId,omitempty"`
	Owner               *string                      `json:"owner,omitempty"`
}

// Validate checks the patch against its declared constraints.
func (p RequirementPatch) Validate() error {
	return structError(validate.Struct(p))
}

// Empty reports whether the patch changes nothing.
func (p RequirementPatch) Empty() bool {
	return p == RequirementPatch{}
}

// LinkInput describes a trace link to add.
type LinkInput struct {
	SourceID    string     `json:"sourceId" validate:"required"`
	TargetID    string     `json:"targetId" validate:"required"`
	LinkType    LinkType   `json:"linkType" validate:"required,max=64"`
	TargetType  TargetType `json:"targetType" validate:"required,enum"`
	Description string     `json:"description,omitempty" validate:"max=2000"`
}

// Validate checks the input against its declared constraints.
func (in LinkInput) Validate() error {
	return structError(validate.Struct(in))
}

// BaselineInput describes a baseline to create.
type BaselineInput struct {
	Name           string   `json:"name" validate:"required,max=200"`
	Description    string   `json:"description,omitempty"`
	ProjectID      string   `json:"projectId,omitempty"`
	RequirementIDs []string `json:"requirementIds" validate:"dive,required"`
}

// Validate checks the input against its declared constraints.
func (in BaselineInput) Validate() error {
	return structError(validate.Struct(in))
}

// ValidateCustomField checks a custom field definition.
func ValidateCustomField(def CustomFieldDefinition) error {
	return structError(validate.Struct(def))
}

// ValidateReview checks a review before it is stored.
func ValidateReview(r Review) error {
	return structError(validate.Struct(r))
}

// ValidateDocument checks a document before it is stored.
func ValidateDocument(d Document) error {
	return structError(validate.Struct(d))
}

// structError flattens validator output into a single ErrInvalidInput error.
func structError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(parts, "; "))
}
