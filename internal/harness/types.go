package harness

import (
	"github.com/roach88/unnest/internal/ir"
	"github.com/roach88/unnest/internal/queryir"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass indicates every assertion held.
	Pass bool `json:"pass"`

	// Rendered is the text render of the built plan. Empty when the build
	// failed.
	Rendered string `json:"rendered,omitempty"`

	// Digest is the content digest of the built plan.
	Digest string `json:"digest,omitempty"`

	// Trace lists the rewrites that fired, in order.
	Trace []string `json:"trace"`

	// BuildError holds the rewrite error message when the build failed.
	BuildError string `json:"build_error,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	plan      queryir.RelExpr
	names     map[ir.ColumnID]string
	errorCode string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []string{},
		Errors: []string{},
		names:  map[ir.ColumnID]string{},
	}
}

// Plan returns the built plan, or nil when the build failed.
func (r *Result) Plan() queryir.RelExpr { return r.plan }

// ColumnName returns the document name of id, or its "@N" form for ids
// allocated by rewrites.
func (r *Result) ColumnName(id ir.ColumnID) string {
	if name, ok := r.names[id]; ok {
		return name
	}
	return id.String()
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
