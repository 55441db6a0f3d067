package models

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced by the service layer. Use errors.Is against these.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidState       = errors.New("invalid state")
	ErrAssignmentConflict = errors.New("assignment conflict")
	ErrValidation         = errors.New("validation error")
)

// NotFoundError names the missing entity
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// TransitionError is returned when a status change is not in the transition table
type TransitionError struct {
	From DispatchStatus
	To   DispatchStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition dispatch from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// StateError is returned when an operation requires a different current status
type StateError struct {
	Operation string
	Current   DispatchStatus
	Allowed   []DispatchStatus
}

func (e *StateError) Error() string {
	allowed := make([]string, 0, len(e.Allowed))
	for _, s := range e.Allowed {
		allowed = append(allowed, string(s))
	}
	return fmt.Sprintf("cannot %s dispatch in status %s (requires %s)", e.Operation, e.Current, strings.Join(allowed, " or "))
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

// ConflictError carries every conflict found while validating an assignment
type ConflictError struct {
	Conflicts []AssignmentConflict
}

func (e *ConflictError) Error() string {
	msgs := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		msgs = append(msgs, c.String())
	}
	return "assignment conflicts: " + strings.Join(msgs, "; ")
}

func (e *ConflictError) Unwrap() error { return ErrAssignmentConflict }

// ValidationError reports malformed input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsNotFound reports whether err is, or wraps, a not-found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
