package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/unnest/internal/ir"
	"github.com/roach88/unnest/internal/queryir"
	"github.com/roach88/unnest/internal/testutil"
)

// newSession returns a session with a fixed id and the given rules enabled.
func newSession(rules ...ir.Rule) *Session {
	return New(
		WithIDGenerator(testutil.NewFixedSessionGenerator("test-session")),
		WithRules(rules...),
	)
}

// newSessionAt is newSession with fresh ids starting at start, clear of
// the small ids tests use for hand-built scans.
func newSessionAt(start ir.ColumnID, rules ...ir.Rule) *Session {
	return New(
		WithIDGenerator(testutil.NewFixedSessionGenerator("test-session")),
		WithRules(rules...),
		WithAllocator(NewAllocatorAt(start)),
	)
}

// allRules is the configuration used by most rewrite tests.
var allRules = []ir.Rule{ir.RuleHoist, ir.RuleDecorrelate}

// assertSamePlan compares two plans by their canonical encodings.
func assertSamePlan(t *testing.T, want, got queryir.RelExpr) {
	t.Helper()
	assert.Equal(t, queryir.Encode(want), queryir.Encode(got))
}

// eventNames extracts the rewrite names from a trace.
func eventNames(trace []RuleEvent) []string {
	out := make([]string, len(trace))
	for i, ev := range trace {
		out[i] = ev.Name
	}
	return out
}

func cols(ids ...ir.ColumnID) []ir.ColumnID { return ids }
