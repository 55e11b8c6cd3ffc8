package engine

import (
	"fmt"

	"ekanban/internal/domain"
)

// ValidationError means the request itself is malformed; retrying unchanged
// cannot succeed.
type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) ValidationError {
	return ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError means the operation would violate an invariant of the stored
// state (referenced status removal, deleting a chain with live cards, stale
// concurrent advance).
type ConflictError struct {
	Msg string
}

func (e ConflictError) Error() string { return e.Msg }

func conflictf(format string, args ...any) ConflictError {
	return ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// ForbiddenError: the requesting party is not the one authorized to move the
// card out of its current status.
type ForbiddenError struct {
	Required  domain.Role
	Requested domain.Role
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("only the %s may advance this kanban (requested as %s)", e.Required, e.Requested)
}

// CannotAutoShrinkError: lowering the active card count would silently retire
// in-flight physical inventory; cards must be retired individually.
type CannotAutoShrinkError struct {
	Current   int64
	Requested int64
}

func (e CannotAutoShrinkError) Error() string {
	return fmt.Sprintf("cannot shrink active kanbans from %d to %d; retire cards individually first", e.Current, e.Requested)
}

// InconsistentStateError signals corrupted data (a card whose current status
// is not part of its own chain). Not user-recoverable.
type InconsistentStateError struct {
	Msg string
}

func (e InconsistentStateError) Error() string { return e.Msg }

func inconsistentf(format string, args ...any) InconsistentStateError {
	return InconsistentStateError{Msg: fmt.Sprintf(format, args...)}
}
