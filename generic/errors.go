/*
errors.go - Centralized error types

PURPOSE:
  All error values in one place for consistency and discoverability.
  The resolution engine itself never fails: these errors belong to the
  mutation boundary, the document codec and the stores.

ERROR CATEGORIES:
  1. Input errors - rejected at the mutation boundary (400)
  2. Missing references - unknown charge/budget/account ids (404)
  3. Record errors - stored documents that are absent or unusable
  4. State errors - operations not allowed in the month's current mode (409)

USAGE:
  if errors.Is(err, generic.ErrMonthArchived) {
      // ask the user to unarchive first
  }

SEE ALSO:
  - household/reducer.go: returns input and reference errors
  - household/document.go: returns ErrNoUsableRecord
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned for amounts that cannot be parsed or are
	// not allowed where they were supplied.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidInput is the umbrella for rejected mutation input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrChargeNotFound is returned when an action names an unknown charge.
	ErrChargeNotFound = errors.New("charge not found")

	// ErrBudgetNotFound is returned when an action names an unknown budget.
	ErrBudgetNotFound = errors.New("budget not found")

	// ErrAccountNotFound is returned when an action names an unknown account.
	ErrAccountNotFound = errors.New("account not found")

	// ErrExpenseNotFound is returned when removing an unknown budget expense.
	ErrExpenseNotFound = errors.New("expense not found")

	// ErrDuplicateID is returned when adding a definition whose id exists.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrMonthArchived is returned when editing a frozen month.
	ErrMonthArchived = errors.New("month is archived")

	// ErrRecordNotFound is returned by stores when no document exists.
	ErrRecordNotFound = errors.New("record not found")

	// ErrNoUsableRecord is returned when a stored document is unparseable
	// or carries an unknown version tag. It is never partially trusted.
	ErrNoUsableRecord = errors.New("no usable record")

	// ErrUnknownAction is returned when decoding an action with an unknown type.
	ErrUnknownAction = errors.New("unknown action")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FieldError names the field that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidInput
}

// Invalid builds a FieldError.
func Invalid(field, format string, args ...any) error {
	return &FieldError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrUnknownAction) ||
		errors.Is(err, ErrDuplicateID)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrChargeNotFound) ||
		errors.Is(err, ErrBudgetNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrExpenseNotFound) ||
		errors.Is(err, ErrRecordNotFound)
}

// IsConflict returns true if the operation is not allowed in the current state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrMonthArchived)
}
