package form

import (
	"fmt"
	"strings"

	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/shared"
)

// Form context errors
var (
	ErrInvalidStep  = shared.NewDomainError("INVALID_STEP", fmt.Sprintf("Step must be between 1 and %d", TotalSteps))
	ErrFormInactive = shared.NewDomainError("FORM_INACTIVE", "This form has been deactivated")
)

// Error codes that need special handling at the boundary
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeTransientSave = "SAVE_FAILED"
)

// ValidationError reports the required fields missing from a step submit
type ValidationError struct {
	*shared.DomainError
	Step          int
	MissingFields []string
}

// NewValidationError creates a ValidationError for the given step
func NewValidationError(step int, missing []string) *ValidationError {
	return &ValidationError{
		DomainError: shared.NewDomainError(CodeValidation,
			fmt.Sprintf("Step %d is missing required fields: %s", step, strings.Join(missing, ", "))),
		Step:          step,
		MissingFields: missing,
	}
}

// Unwrap exposes the embedded domain error to errors.As
func (e *ValidationError) Unwrap() error {
	return e.DomainError
}

// TransientSaveError reports a failed primary save. The caller's local state
// was not flushed and the user may retry.
type TransientSaveError struct {
	*shared.DomainError
	Cause error
}

// NewTransientSaveError wraps a persistence failure
func NewTransientSaveError(cause error) *TransientSaveError {
	return &TransientSaveError{
		DomainError: shared.NewDomainError(CodeTransientSave, "Could not save your progress, please try again"),
		Cause:       cause,
	}
}

// Unwrap exposes both the domain error and the underlying cause
func (e *TransientSaveError) Unwrap() []error {
	return []error{e.DomainError, e.Cause}
}
