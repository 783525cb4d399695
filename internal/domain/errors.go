package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation is returned when input is malformed.
	ErrValidation = errors.New("validation failed")
	// ErrInvariantViolation is returned when a transition is not legal from the current status.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrNotFound is returned when a referenced task, user or request does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the actor may not perform the action.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned when a write lost a race against another write,
	// or when a uniqueness rule would be broken.
	ErrConflict = errors.New("conflict")
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError collects every field problem found on one command.
type ValidationError struct {
	Errors []FieldError
}

// NewValidationError returns a validation error for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}

// Add appends a field error.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// OrNil returns nil when nothing was collected, so callers can write
// `return v.OrNil()` without tripping over typed nil interfaces.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		if fe.Field == "" {
			msgs = append(msgs, fe.Message)
			continue
		}
		msgs = append(msgs, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvariantViolationError is raised by the aggregate when a guard fails.
// Entity is set when the failing object is a ledger row rather than the task.
type InvariantViolationError struct {
	Action Action
	Status Status
	Reason string
	Entity string
}

func newInvariantViolation(action Action, status Status, reason string) *InvariantViolationError {
	return &InvariantViolationError{Action: action, Status: status, Reason: reason}
}

func (e *InvariantViolationError) Error() string {
	subject := "task in status " + e.Status.String()
	if e.Entity != "" {
		subject = e.Entity
	}
	if e.Reason == "" {
		return fmt.Sprintf("cannot %s %s", e.Action, subject)
	}
	return fmt.Sprintf("cannot %s %s: %s", e.Action, subject, e.Reason)
}

func (e *InvariantViolationError) Unwrap() error { return ErrInvariantViolation }
