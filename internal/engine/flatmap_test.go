package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/unnest/internal/ir"
	"github.com/roach88/unnest/internal/queryir"
)

// correlatedSelect returns select(@x = @outer)(scan x(@x)).
func correlatedSelect(x, outer ir.ColumnID) queryir.RelExpr {
	return &queryir.Select{
		Input:      &queryir.Scan{Table: "x", Cols: []ir.ColumnID{x}},
		Predicates: []queryir.Expr{queryir.Eq(queryir.Col(x), queryir.Col(outer))},
	}
}

func TestFlatMap_DecorrelateDisabled(t *testing.T) {
	s := newSession(ir.RuleHoist)
	outer := s.Scan("a", cols(0))
	inner := s.Scan("x", cols(1))

	rel, err := s.FlatMap(outer, inner)
	require.NoError(t, err)

	fm, ok := rel.(*queryir.FlatMap)
	require.True(t, ok, "uncorrelated inner still materializes without the rule")
	assert.Same(t, outer, fm.Outer)
	assert.Same(t, inner, fm.Inner)
	assert.Empty(t, s.Trace())
}

func TestFlatMap_UncorrelatedBecomesJoin(t *testing.T) {
	inners := map[string]queryir.RelExpr{
		"scan":    &queryir.Scan{Table: "x", Cols: []ir.ColumnID{1, 2}},
		"project": &queryir.Project{Input: &queryir.Scan{Table: "x", Cols: []ir.ColumnID{1, 2}}, Cols: ir.MakeColSet(1)},
		"select":  &queryir.Select{Input: &queryir.Scan{Table: "x", Cols: []ir.ColumnID{1}}, Predicates: []queryir.Expr{queryir.Eq(queryir.Col(1), queryir.Int(3))}},
	}

	for name, inner := range inners {
		t.Run(name, func(t *testing.T) {
			s := newSession(allRules...)
			outer := s.Scan("a", cols(0))

			rel, err := s.FlatMap(outer, inner)
			require.NoError(t, err)

			j, ok := rel.(*queryir.Join)
			require.True(t, ok, "got %T", rel)
			assert.Empty(t, j.Predicates)
			assert.Same(t, outer, j.Left)
			assert.Same(t, inner, j.Right)
			assert.Zero(t, queryir.CountOps(rel)[queryir.OpNameFlatMap])
			assert.Equal(t, []string{EventDecorrelateUncorrelated}, eventNames(s.Trace()))
		})
	}
}

func TestFlatMap_IrreducibleCorrelation(t *testing.T) {
	s := newSession(allRules...)
	outer := s.Scan("a", cols(0))
	inner := correlatedSelect(1, 0)

	rel, err := s.FlatMap(outer, inner)
	require.NoError(t, err)

	fm, ok := rel.(*queryir.FlatMap)
	require.True(t, ok)
	assert.Same(t, inner, fm.Inner)
	assert.True(t, queryir.FreeCols(rel).Empty())
	assert.Empty(t, s.Trace())
}

func TestFlatMap_PullUpProject(t *testing.T) {
	s := newSession(allRules...)
	outer := s.Scan("a", cols(0, 1))
	sel := &queryir.Select{
		Input:      &queryir.Scan{Table: "x", Cols: []ir.ColumnID{2, 3}},
		Predicates: []queryir.Expr{queryir.Eq(queryir.Col(2), queryir.Col(0))},
	}
	inner := &queryir.Project{Input: sel, Cols: ir.MakeColSet(2)}

	rel, err := s.FlatMap(outer, inner)
	require.NoError(t, err)

	want := &queryir.Project{
		Input: &queryir.FlatMap{Outer: outer, Inner: sel},
		Cols:  ir.MakeColSet(0, 1, 2),
	}
	assertSamePlan(t, want, rel)
	assert.Equal(t, []string{EventPullUpProject}, eventNames(s.Trace()))
}

func TestFlatMap_PullUpMap(t *testing.T) {
	s := newSession(allRules...)
	outer := s.Scan("a", cols(0))
	sel := correlatedSelect(1, 0)
	inner := &queryir.Map{Input: sel, Assignments: []queryir.Assignment{queryir.Assign(5, queryir.Plus(queryir.Col(1), queryir.Col(0)))}}

	rel, err := s.FlatMap(outer, inner)
	require.NoError(t, err)

	want := &queryir.Map{
		Input:       &queryir.FlatMap{Outer: outer, Inner: sel},
		Assignments: []queryir.Assignment{queryir.Assign(5, queryir.Plus(queryir.Col(1), queryir.Col(0)))},
	}
	assertSamePlan(t, want, rel)
	assert.Equal(t, []string{EventPullUpMap}, eventNames(s.Trace()))
}

func TestFlatMap_PullUpChainEndsInJoin(t *testing.T) {
	s := newSession(allRules...)
	outer := s.Scan("a", cols(0))
	base := &queryir.Scan{Table: "x", Cols: []ir.ColumnID{1, 2}}
	inner := &queryir.Project{
		Input: &queryir.Map{
			Input:       &queryir.Project{Input: base, Cols: ir.MakeColSet(1)},
			Assignments: []queryir.Assignment{queryir.Assign(3, queryir.Plus(queryir.Col(1), queryir.Col(0)))},
		},
		Cols: ir.MakeColSet(3),
	}

	rel, err := s.FlatMap(outer, inner)
	require.NoError(t, err)

	counts := queryir.CountOps(rel)
	assert.Equal(t, 1, counts[queryir.OpNameJoin])
	assert.Zero(t, counts[queryir.OpNameFlatMap])
	assert.Equal(t, []ir.ColumnID{0, 3}, queryir.Attributes(rel).Ordered())
	assert.True(t, queryir.Validate(rel).Valid)
	assert.Equal(t,
		[]string{EventPullUpProject, EventPullUpMap, EventDecorrelateUncorrelated},
		eventNames(s.Trace()))
}
