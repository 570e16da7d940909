package engine

import (
	"errors"
	"fmt"
)

// RewriteError represents a failure inside a plan constructor.
//
// Rewrite errors include:
//   - Arity violation: a scalar subquery's plan does not expose exactly one column
//   - Not implemented: hoisting met an expression shape with no rewrite
//   - Invariant violation: the caller asked for a malformed node
//
// A failed constructor yields no plan; there is no partial result.
type RewriteError struct {
	// Code identifies the error category.
	Code RewriteErrorCode

	// Op names the constructor that failed ("hoist", "map", "project").
	Op string

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// RewriteErrorCode categorizes rewrite errors.
type RewriteErrorCode string

const (
	// ErrCodeArityViolation indicates a subquery plan with |att| != 1.
	ErrCodeArityViolation RewriteErrorCode = "ARITY_VIOLATION"

	// ErrCodeNotImplemented indicates an expression shape hoist cannot rewrite.
	ErrCodeNotImplemented RewriteErrorCode = "NOT_IMPLEMENTED"

	// ErrCodeInvariantViolation indicates duplicate map ids or a projection
	// outside the source's attributes.
	ErrCodeInvariantViolation RewriteErrorCode = "INVARIANT_VIOLATION"
)

// Error implements the error interface.
func (e *RewriteError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s (op=%s)", e.Code, e.Message, e.Op)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, code RewriteErrorCode) bool {
	var re *RewriteError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsArityError returns true if the error is a subquery arity violation.
// Uses errors.As to handle wrapped errors.
func IsArityError(err error) bool {
	return hasCode(err, ErrCodeArityViolation)
}

// IsNotImplemented returns true if hoisting hit an unsupported expression.
func IsNotImplemented(err error) bool {
	return hasCode(err, ErrCodeNotImplemented)
}

// IsInvariantError returns true if a constructor rejected malformed input.
func IsInvariantError(err error) bool {
	return hasCode(err, ErrCodeInvariantViolation)
}

// NewArityError creates a RewriteError for a subquery with the wrong width.
func NewArityError(width int) *RewriteError {
	return &RewriteError{
		Code:    ErrCodeArityViolation,
		Op:      "hoist",
		Message: fmt.Sprintf("scalar subquery must expose exactly one column, got %d", width),
		Details: map[string]string{
			"columns": fmt.Sprintf("%d", width),
		},
	}
}

// NewNotImplementedError creates a RewriteError for an unsupported shape.
func NewNotImplementedError(shape string) *RewriteError {
	return &RewriteError{
		Code:    ErrCodeNotImplemented,
		Op:      "hoist",
		Message: fmt.Sprintf("rewrite not implemented for %s containing a subquery", shape),
		Details: map[string]string{
			"shape": shape,
		},
	}
}

// NewInvariantError creates a RewriteError for a caller bug.
func NewInvariantError(op, format string, args ...any) *RewriteError {
	return &RewriteError{
		Code:    ErrCodeInvariantViolation,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}
