package audit

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is wrapped by every ConfigError.
	ErrInvalidConfig = errors.New("invalid audit configuration")

	// ErrExecutionNotRunning is returned by Cancel for unknown or finished
	// executions.
	ErrExecutionNotRunning = errors.New("execution is not running")
)

// ConfigError rejects an audit configuration before any declaration is
// processed.
type ConfigError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid audit configuration [field=%s]: %s", e.Field, e.Reason)
}

// Unwrap returns ErrInvalidConfig.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

func newConfigError(field, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ExecutionError reports a failure that could not be attributed to a single
// declaration. The execution it belongs to is returned alongside it with
// status failed.
type ExecutionError struct {
	ExecutionID string
	Stage       string // "filtering", "aggregation"
	Message     string
	Cause       error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("execution %s failed during %s: %s: %v", e.ExecutionID, e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("execution %s failed during %s: %s", e.ExecutionID, e.Stage, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}
