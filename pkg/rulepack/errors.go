package rulepack

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a rule pack does not exist in a store.
	ErrNotFound = errors.New("rule pack not found")

	// ErrNoActivePack is returned by Active when no stored pack is active.
	ErrNoActivePack = errors.New("no active rule pack")
)

// FieldError is a validation failure on one field of a rule pack.
type FieldError struct {
	// Field is the dotted path to the field (e.g., "rules[2].category").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError lists every problem found in a rule pack.
type ValidationError struct {
	PackID string
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("rule pack %q is invalid: %s", e.PackID, e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "rule pack %q is invalid with %d errors:\n", e.PackID, len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// HasField reports whether any error is attached to field.
func (e *ValidationError) HasField(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// LoadError represents an error reading or decoding a rule pack file.
type LoadError struct {
	FilePath string
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load rule pack %s: %s: %v", e.FilePath, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load rule pack %s: %s", e.FilePath, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// StoreError represents an error from a rule pack store backend.
type StoreError struct {
	Backend   string // "memory", "sqlite"
	Operation string
	PackID    string
	Cause     error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.PackID != "" {
		return fmt.Sprintf("rule pack store error [backend=%s, operation=%s, pack=%s]: %v",
			e.Backend, e.Operation, e.PackID, e.Cause)
	}
	return fmt.Sprintf("rule pack store error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// NewStoreError creates a new StoreError.
func NewStoreError(backend, operation, packID string, cause error) *StoreError {
	return &StoreError{
		Backend:   backend,
		Operation: operation,
		PackID:    packID,
		Cause:     cause,
	}
}
