package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteError_Error(t *testing.T) {
	err := NewArityError(2)
	assert.Equal(t, "ARITY_VIOLATION: scalar subquery must expose exactly one column, got 2 (op=hoist)", err.Error())
	assert.Equal(t, "2", err.Details["columns"])

	bare := &RewriteError{Code: ErrCodeNotImplemented, Message: "x"}
	assert.Equal(t, "NOT_IMPLEMENTED: x", bare.Error())
}

func TestRewriteError_Predicates(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		arity     bool
		notImpl   bool
		invariant bool
	}{
		{"arity", NewArityError(0), true, false, false},
		{"not implemented", NewNotImplementedError(`binary "="`), false, true, false},
		{"invariant", NewInvariantError("map", "column %s already defined", "@1"), false, false, true},
		{"wrapped arity", fmt.Errorf("build: %w", NewArityError(3)), true, false, false},
		{"plain error", errors.New("boom"), false, false, false},
		{"nil", nil, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.arity, IsArityError(tt.err))
			assert.Equal(t, tt.notImpl, IsNotImplemented(tt.err))
			assert.Equal(t, tt.invariant, IsInvariantError(tt.err))
		})
	}
}
