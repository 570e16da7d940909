package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/unnest/internal/ir"
	"github.com/roach88/unnest/internal/queryir"
)

func TestHoist_ScalarIsTrivialMap(t *testing.T) {
	tests := []struct {
		name string
		expr queryir.Expr
	}{
		{"literal", queryir.Int(3)},
		{"column", queryir.Col(0)},
		{"subquery-free plus", queryir.Plus(queryir.Col(0), queryir.Int(1))},
		{"subquery-free eq", queryir.Eq(queryir.Col(0), queryir.Int(1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(allRules...)
			scan := s.Scan("a", cols(0))
			before := s.Allocator().Peek()

			rel, err := s.Hoist(scan, 5, tt.expr)
			require.NoError(t, err)

			assertSamePlan(t, &queryir.Map{Input: scan, Assignments: []queryir.Assignment{queryir.Assign(5, tt.expr)}}, rel)
			assert.Equal(t, before, s.Allocator().Peek(), "no fresh ids")
			assert.Equal(t, []string{EventHoistScalar}, eventNames(s.Trace()))
		})
	}
}

func TestHoist_ArityViolation(t *testing.T) {
	tests := []struct {
		name  string
		plan  queryir.RelExpr
		width int
	}{
		{"two columns", &queryir.Scan{Table: "x", Cols: []ir.ColumnID{2, 3}}, 2},
		{"zero columns", &queryir.Project{Input: &queryir.Scan{Table: "x", Cols: []ir.ColumnID{2}}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(allRules...)
			_, err := s.Hoist(s.Scan("a", cols(0)), 5, queryir.SubqueryOf(tt.plan))
			require.Error(t, err)
			assert.True(t, IsArityError(err), "got %v", err)
			assert.False(t, IsNotImplemented(err))

			var re *RewriteError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, "hoist", re.Op)
		})
	}
}

func TestHoist_ArityViolationInsidePlus(t *testing.T) {
	s := newSessionAt(100, allRules...)
	wide := &queryir.Scan{Table: "x", Cols: []ir.ColumnID{2, 3}}

	_, err := s.Map(s.Scan("a", cols(0)), []queryir.Assignment{queryir.Assign(5, queryir.Plus(queryir.Int(1), queryir.SubqueryOf(wide)))})
	assert.True(t, IsArityError(err))
}

func TestHoist_NotImplemented(t *testing.T) {
	s := newSessionAt(100, allRules...)
	sub := queryir.SubqueryOf(&queryir.Scan{Table: "x", Cols: []ir.ColumnID{2}})

	_, err := s.Hoist(s.Scan("a", cols(0)), 5, queryir.Eq(queryir.Col(0), sub))
	require.Error(t, err)
	assert.True(t, IsNotImplemented(err), "got %v", err)
	assert.False(t, IsArityError(err))
	assert.Contains(t, err.Error(), "NOT_IMPLEMENTED")

	// The same shape nested under a Plus fails the same way.
	_, err = s.Hoist(s.Scan("b", cols(1)), 6, queryir.Plus(queryir.Int(1), queryir.Eq(queryir.Col(1), sub)))
	assert.True(t, IsNotImplemented(err))
}

func TestHoist_IDCollision(t *testing.T) {
	s := newSession(allRules...)
	_, err := s.Hoist(s.Scan("a", cols(0)), 0, queryir.SubqueryOf(&queryir.Scan{Table: "x", Cols: []ir.ColumnID{2}}))
	assert.True(t, IsInvariantError(err))
}

func TestHoist_SubqueryWithoutDecorrelation(t *testing.T) {
	s := newSession(ir.RuleHoist)
	scan := s.Scan("a", cols(0))
	sub := &queryir.Select{Input: &queryir.Scan{Table: "x", Cols: []ir.ColumnID{1}}, Predicates: []queryir.Expr{queryir.Eq(queryir.Col(1), queryir.Col(0))}}

	rel, err := s.Hoist(scan, 2, queryir.SubqueryOf(&queryir.Project{Input: sub, Cols: ir.MakeColSet(1)}))
	require.NoError(t, err)

	fm, ok := rel.(*queryir.FlatMap)
	require.True(t, ok)
	assert.Same(t, scan, fm.Outer)
	assert.Equal(t, []ir.ColumnID{0, 1, 2}, queryir.Attributes(rel).Ordered())
	assert.True(t, queryir.FreeCols(rel).Empty())
}

// Hoisting Plus(lit, Subquery) uses exactly two fresh ids and
// hoists the right operand on top of the left operand's output.
func TestHoist_PlusOfSubquery(t *testing.T) {
	s := newSession(allRules...)
	a, b, x := s.Next(), s.Next(), s.Next()
	id := s.Next()
	scanA := s.Scan("a", cols(a, b))
	scanX := s.Scan("x", cols(x))

	before := s.Allocator().Peek()
	rel, err := s.Hoist(scanA, id, queryir.Plus(queryir.Int(3), queryir.SubqueryOf(scanX)))
	require.NoError(t, err)
	after := s.Allocator().Peek()

	require.Equal(t, before+2, after, "exactly two fresh ids")
	left, right := before, before+1

	want := &queryir.Project{
		Input: &queryir.Map{
			Input: &queryir.Join{
				Left:  &queryir.Map{Input: scanA, Assignments: []queryir.Assignment{queryir.Assign(left, queryir.Int(3))}},
				Right: &queryir.Map{Input: scanX, Assignments: []queryir.Assignment{queryir.Assign(right, queryir.Col(x))}},
			},
			Assignments: []queryir.Assignment{queryir.Assign(id, queryir.Plus(queryir.Col(left), queryir.Col(right)))},
		},
		Cols: ir.MakeColSet(a, b, id),
	}
	assertSamePlan(t, want, rel)

	// The final map reads both fresh ids, not the original source.
	m := rel.(*queryir.Project).Input.(*queryir.Map)
	assert.Equal(t, []ir.ColumnID{left, right}, queryir.ExprFreeCols(m.Assignments[0].Expr).Ordered())
	assert.True(t, queryir.Attributes(m.Input.(*queryir.Join).Left).Contains(left))

	assert.Equal(t, []ir.ColumnID{a, b, id}, queryir.Attributes(rel).Ordered())
	assert.Equal(t,
		[]string{EventHoistPlus, EventHoistScalar, EventHoistSubquery, EventDecorrelateUncorrelated},
		eventNames(s.Trace()))
}
