package cli

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // failing findings under --strict, failed scenarios, refused mappings
	ExitCommandError = 2 // bad arguments, unreadable config or snapshot, database errors
)

// Codes reported in the error field of JSON responses.
const (
	ErrCodeGeneric   = "E001"
	ErrCodeNotFound  = "E005" // no such file or audit run
	ErrCodeInvalid   = "E010" // document failed to parse or validate
	ErrCodeReference = "E020" // unknown ticker, pairId, family or index
	ErrCodeRefused   = "E030" // guard-rail step refused
)

// ExitError is returned by a command to choose the process exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError with no cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError that wraps err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps a command error to its exit code. Errors that are not
// an ExitError exit with ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
