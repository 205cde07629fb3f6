/*
errors.go - Centralized error types for the ledger

ERROR CATEGORIES:
  1. Lookup errors     - Referenced records that do not exist
  2. Validation errors - Policy violations caught before any write
  3. Store errors      - Persistence-level failures

All validation failures are ordinary result values: they are returned
before anything is written, never thrown past the engine boundary, and
leave prior committed state untouched.

USAGE:
  Callers branch with errors.Is / errors.As:

    if errors.Is(err, ledger.ErrIllegalTransition) { ... }

    var missing *ledger.MissingFieldError
    if errors.As(err, &missing) { ... missing.Fields ... }
*/
package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAlreadyExists is returned when registering an equipment id that
	// is already present. The existing record is unchanged.
	ErrAlreadyExists = errors.New("equipment id already exists")

	// ErrUnknownEquipment is returned when an operation references an
	// equipment id that was never registered.
	ErrUnknownEquipment = errors.New("unknown equipment")

	// ErrEmployeeNotFound is returned by directory lookups that match
	// no record.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrMissingField is returned when a required field is blank.
	ErrMissingField = errors.New("missing required field")

	// ErrIllegalTransition is returned when an Issue is attempted on a
	// Loaned item or a Return on an Available one.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrStoreUnavailable is returned when the underlying store fails.
	// The caller must not assume partial success: the atomic append unit
	// is all-or-nothing.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MissingFieldError names every required field that was blank.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field(s): %s", strings.Join(e.Fields, ", "))
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}

// IllegalTransitionError describes a rejected state-machine transition.
type IllegalTransitionError struct {
	EquipmentID string
	Status      Status
	Kind        Kind
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("equipment %s is %s: %s not allowed",
		e.EquipmentID, e.Status, e.Kind)
}

func (e *IllegalTransitionError) Unwrap() error {
	return ErrIllegalTransition
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to invalid caller input
// rather than a system failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrIllegalTransition)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownEquipment) ||
		errors.Is(err, ErrEmployeeNotFound)
}
