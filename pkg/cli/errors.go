package cli

import (
	"errors"
	"fmt"
)

// Exit codes returned by the sentinel binary.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// CommandError wraps a failure of a named command.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}

// UsageError reports an invalid flag or argument combination.
type UsageError struct {
	Flag    string
	Message string
}

func (e *UsageError) Error() string {
	if e.Flag == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid --%s: %s", e.Flag, e.Message)
}

// NewUsageError creates a new UsageError.
func NewUsageError(flag, message string) *UsageError {
	return &UsageError{Flag: flag, Message: message}
}

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsage
	}
	return ExitFailure
}
