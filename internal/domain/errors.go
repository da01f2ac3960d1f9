package domain

import (
	"errors"
	"fmt"
)

// Common domain errors returned by metric evaluation and summarization.
var (
	// ErrInvalidInput indicates that caller-supplied text or parameters
	// cannot be processed, for example invalid UTF-8.
	ErrInvalidInput = errors.New("invalid input")

	// ErrKeyNotFound indicates that a requested State key does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrTypeMismatch indicates that a stored value's type doesn't match the key's type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrEmptyValue indicates that a required value is empty or blank.
	ErrEmptyValue = errors.New("empty value")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnknownStyle indicates a summary style outside the known set.
	ErrUnknownStyle = errors.New("unknown summary style")

	// ErrUnknownEngine indicates a summarization engine that is not configured.
	ErrUnknownEngine = errors.New("unknown summarization engine")
)

// StateError represents an error that occurred during State operations.
type StateError struct {
	// Key is the name of the State key involved in the failed operation.
	Key string

	// Operation describes what was being performed when the error occurred.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for StateError.
func (e *StateError) Error() string {
	return fmt.Sprintf("state error: operation=%s, key=%s, err=%v", e.Operation, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *StateError) Unwrap() error { return e.Err }

// NewStateError creates a new StateError with the given details.
func NewStateError(key, operation string, err error) *StateError {
	return &StateError{Key: key, Operation: operation, Err: err}
}

// ValidationError collects one or more validation failures for an entity.
// It unwraps to ErrInvalidInput so callers can classify it with errors.Is.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the individual validation messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap classifies every ValidationError as ErrInvalidInput.
func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// AddError appends a validation message.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// AddErrorf appends a formatted validation message.
func (e *ValidationError) AddErrorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// HasErrors returns true if any validation messages were recorded.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// Err returns e when it carries messages and nil otherwise, so validators
// can end with `return verr.Err()`.
func (e *ValidationError) Err() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{Entity: entity, Errors: make([]string, 0)}
}
