package execution

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an execution does not exist.
	ErrNotFound = errors.New("execution not found")

	// ErrInvalidTransition is returned for a status change other than
	// running to a terminal status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// TransitionError describes a rejected status change.
type TransitionError struct {
	From Status
	To   Status
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// Unwrap returns ErrInvalidTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// StorageError represents an error from an execution storage backend.
type StorageError struct {
	Backend   string // "memory", "sqlite"
	Operation string // "save", "get", "query", "delete", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// ExportError represents an error while exporting executions.
type ExportError struct {
	Format string
	Count  int
	Cause  error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [format=%s, executions=%d]: %v", e.Format, e.Count, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates a new ExportError.
func NewExportError(format string, count int, cause error) *ExportError {
	return &ExportError{Format: format, Count: count, Cause: cause}
}

// RetentionError represents an error while pruning old executions.
type RetentionError struct {
	RetentionDays int
	Cause         error
}

// Error implements the error interface.
func (e *RetentionError) Error() string {
	return fmt.Sprintf("retention error [retention_days=%d]: %v", e.RetentionDays, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// NewRetentionError creates a new RetentionError.
func NewRetentionError(retentionDays int, cause error) *RetentionError {
	return &RetentionError{RetentionDays: retentionDays, Cause: cause}
}
