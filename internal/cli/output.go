package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Plan failure (invalid document, rewrite error, scenarios failed, corrupt history)
	ExitCommandError = 2 // Command error (invalid paths, unreadable document, database not found, etc.)
)

// Error codes for CLI output.
const (
	ErrCodeGeneric         = "E001" // Generic/unknown error
	ErrCodeLoadFailed      = "E004" // Document could not be read or parsed
	ErrCodeNotFound        = "E005" // Path not found
	ErrCodeInvalidDocument = "E010" // Document failed validation
	ErrCodeInvalidRule     = "E011" // Unknown rule name
	ErrCodeRewrite         = "E012" // A rewrite rule rejected the plan
	ErrCodeStore           = "E013" // Plan history unavailable
	ErrCodeSQL             = "E014" // Plan has no SQL rendering
	ErrCodeInvalidPlan     = "E015" // Built plan breaks an IR invariant
	ErrCodeHistoryCorrupt  = "E016" // Stored encoding does not match its digest
)

// exitCodeFor maps an error code to the process exit code.
func exitCodeFor(code string) int {
	switch code {
	case ErrCodeInvalidDocument, ErrCodeRewrite, ErrCodeInvalidPlan, ErrCodeHistoryCorrupt:
		return ExitFailure
	default:
		return ExitCommandError
	}
}

// CodedError pairs an error with its CLI error code.
type CodedError struct {
	Code string
	Err  error
}

func (e *CodedError) Error() string { return e.Err.Error() }

func (e *CodedError) Unwrap() error { return e.Err }

// fail writes err through the formatter and returns the ExitError the
// command should return.
func fail(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(exitCodeFor(code), fmt.Sprintf("%s: %s", code, message))
}

// failWith is fail for an error that may carry its own code.
func failWith(formatter *OutputFormatter, err error) error {
	var coded *CodedError
	if errors.As(err, &coded) {
		return fail(formatter, coded.Code, coded.Err.Error(), nil)
	}
	return fail(formatter, ErrCodeGeneric, err.Error(), nil)
}

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E010", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
