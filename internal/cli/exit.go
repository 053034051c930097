package cli

import (
	"fmt"

	"github.com/pkg/errors"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1 // anything not covered below
	ExitConfigError = 2 // the configuration could not be loaded or is invalid
	ExitJobsFailed  = 3 // the run finished but one or more jobs failed
)

// ExitError is an error with the process exit code it should cause.
type ExitError struct {
	Code    int
	Message string
	Err     error // optional
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from err: ExitOK for nil, ExitFailure
// for anything that is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
