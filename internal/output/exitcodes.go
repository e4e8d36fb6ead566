// Package output provides structured output and error handling for the code-edit CLI.
package output

import "errors"

// Exit codes:
// 0 = Success (including preview and a declined confirmation)
// 1 = User error (bad or conflicting flags, missing or unreadable input file)
// 2 = System error (write failures, I/O error)
// 3 = Configuration error (missing API key, malformed config file)
// 4 = Provider error (network failure, API error, empty response)
const (
	ExitSuccess       = 0
	ExitUserError     = 1
	ExitSystemError   = 2
	ExitConfigError   = 3
	ExitProviderError = 4
)

// ExitError is an error that carries an exit code for the CLI.
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/errors.As support.
func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewUserError creates an error for user-caused issues (exit code 1).
// Use for: bad arguments, conflicting flags, empty instruction.
func NewUserError(message string) *ExitError {
	return &ExitError{
		Code:    ExitUserError,
		Message: message,
	}
}

// NewFileError creates an error for an input path that is missing or
// unreadable (exit code 1). The path is always part of the message.
func NewFileError(path string, cause error) *ExitError {
	msg := "cannot read " + path
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return &ExitError{
		Code:    ExitUserError,
		Message: msg,
		Cause:   cause,
	}
}

// NewSystemErrorWithCause creates an error for system failures (exit code 2)
// wrapping the underlying cause. Use for: write failures, I/O errors.
func NewSystemErrorWithCause(message string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitSystemError,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates an error for configuration problems (exit code 3).
// Use for: missing API key, unreadable or malformed config file.
func NewConfigError(message string) *ExitError {
	return &ExitError{
		Code:    ExitConfigError,
		Message: message,
	}
}

// NewProviderError creates an error for LLM provider failures (exit code 4).
func NewProviderError(message string) *ExitError {
	return &ExitError{
		Code:    ExitProviderError,
		Message: message,
	}
}

// NewProviderErrorWithCause creates a provider error wrapping an underlying cause.
// The cause's text is appended so it reaches the user verbatim.
func NewProviderErrorWithCause(message string, cause error) *ExitError {
	if cause != nil {
		message += ": " + cause.Error()
	}
	return &ExitError{
		Code:    ExitProviderError,
		Message: message,
		Cause:   cause,
	}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil, ExitUserError for non-ExitError errors.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	// Cobra flag parsing errors and the like are usage errors
	return ExitUserError
}
