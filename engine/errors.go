/*
errors.go - Centralized error types for the reconciliation engine

PURPOSE:
  All row-level error classes in one place. Each structured type renders the
  exact message recorded in the batch report, and unwraps to a sentinel so
  callers can classify outcomes with errors.Is().

ERROR CATEGORIES:
  1. Referential integrity - unknown instructor / class type
  2. Temporal conflict     - overlap with an existing booking
  3. Capacity              - daily cap reached for a resource
  4. Not found             - update/delete against a missing registration id
  5. Malformed action      - unrecognized action token

Storage failures are not modeled here; they surface verbatim in the row
outcome and never abort the batch.
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidReference is returned when an instruction names an
	// instructor or class type that does not exist.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrConflict is returned when a booking would overlap an existing
	// non-deleted booking for the same resource.
	ErrConflict = errors.New("time slot conflict")

	// ErrCapacity is returned when a resource's daily booking cap is
	// already reached.
	ErrCapacity = errors.New("daily capacity reached")

	// ErrNotFound is returned when no booking carries the registration id.
	ErrNotFound = errors.New("schedule not found")

	// ErrUnknownAction is returned for an unrecognized or empty action.
	ErrUnknownAction = errors.New("unknown action")
)

// =============================================================================
// STRUCTURED ERRORS - Carry row context and render report messages
// =============================================================================

// InvalidReferenceError reports an unknown instructor or class type id, or
// a required id the row left empty. Field is the instruction field name
// ("instructorId", "classTypeId", or "studentId").
type InvalidReferenceError struct {
	Field string
	ID    string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("Invalid %s: %s", e.Field, e.ID)
}

func (e *InvalidReferenceError) Unwrap() error { return ErrInvalidReference }

// ConflictError reports a time-slot overlap for a named resource.
// Resource is the display name ("Instructor" or "Student"); StartTime is the
// clock time of the booking already occupying the slot.
type ConflictError struct {
	Resource  string
	ID        string
	StartTime string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s already has a class scheduled at this time (%s)", e.Resource, e.ID, e.StartTime)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// CapacityError reports a reached daily cap for a named resource.
type CapacityError struct {
	Resource string
	ID       string
	Max      int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s %s has reached maximum %d classes per day", e.Resource, e.ID, e.Max)
}

func (e *CapacityError) Unwrap() error { return ErrCapacity }

// NotFoundError reports an update or delete against a missing registration id.
type NotFoundError struct {
	RegistrationID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("No schedule found with ID %s", e.RegistrationID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// UnknownActionError reports an unrecognized or empty action token.
type UnknownActionError struct {
	Action string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("Unknown or empty action '%s'. Expected: new, update, or delete", e.Action)
}

func (e *UnknownActionError) Unwrap() error { return ErrUnknownAction }

// IsRowError reports whether err is one of the engine's own row-level error
// classes, as opposed to an unexpected storage failure surfaced verbatim.
func IsRowError(err error) bool {
	return errors.Is(err, ErrInvalidReference) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrCapacity) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnknownAction)
}
