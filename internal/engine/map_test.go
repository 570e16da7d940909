package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/unnest/internal/ir"
	"github.com/roach88/unnest/internal/queryir"
)

func TestMap_EmptyIsNoop(t *testing.T) {
	s := newSession(allRules...)
	scan := s.Scan("a", cols(0))

	rel, err := s.Map(scan, nil)
	require.NoError(t, err)
	assert.Same(t, scan, rel)
	assert.True(t, s.Fired(EventEliminateMap))
}

func TestMap_PlainAssignments(t *testing.T) {
	s := newSession(allRules...)
	scan := s.Scan("a", cols(0, 1))

	rel, err := s.Map(scan, []queryir.Assignment{
		queryir.Assign(2, queryir.Plus(queryir.Col(0), queryir.Col(1))),
		queryir.Assign(3, queryir.Int(7)),
	})
	require.NoError(t, err)

	m, ok := rel.(*queryir.Map)
	require.True(t, ok)
	assert.Same(t, scan, m.Input)
	assert.Equal(t, []ir.ColumnID{0, 1, 2, 3}, queryir.Attributes(rel).Ordered())
	assert.Empty(t, s.Trace())
}

func TestMap_InvariantViolations(t *testing.T) {
	tests := []struct {
		name        string
		assignments []queryir.Assignment
	}{
		{"collides with source", []queryir.Assignment{queryir.Assign(1, queryir.Int(1))}},
		{"repeated id", []queryir.Assignment{queryir.Assign(5, queryir.Int(1)), queryir.Assign(5, queryir.Int(2))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(allRules...)
			_, err := s.Map(s.Scan("a", cols(0, 1)), tt.assignments)
			require.Error(t, err)
			assert.True(t, IsInvariantError(err), "got %v", err)
		})
	}
}

func TestMap_HoistDisabledKeepsSubquery(t *testing.T) {
	s := newSession(ir.RuleDecorrelate)
	scan := s.Scan("a", cols(0))
	sub := queryir.SubqueryOf(s.Scan("b", cols(1)))

	rel, err := s.Map(scan, []queryir.Assignment{queryir.Assign(2, sub)})
	require.NoError(t, err)

	m, ok := rel.(*queryir.Map)
	require.True(t, ok)
	assert.Same(t, sub, m.Assignments[0].Expr)
	assert.True(t, queryir.ContainsSubquery(rel))
	assert.False(t, queryir.Validate(rel).Decorrelated)
}

func TestMap_HoistOrder(t *testing.T) {
	s := newSession(ir.RuleHoist)
	scan := s.Scan("a", cols(0))
	subB := s.Scan("b", cols(10))
	subC := s.Scan("c", cols(11))

	rel, err := s.Map(scan, []queryir.Assignment{
		queryir.Assign(1, queryir.SubqueryOf(subB)),
		queryir.Assign(3, queryir.Int(5)),
		queryir.Assign(2, queryir.SubqueryOf(subC)),
	})
	require.NoError(t, err)

	// The first subquery-bearing assignment is hoisted last, on top of the
	// plan built from the rest. Removing it moves 2:=c into its slot, so
	// 2:=c is hoisted before the plain 3:=5 map is built.
	want := &queryir.FlatMap{
		Outer: &queryir.FlatMap{
			Outer: &queryir.Map{Input: scan, Assignments: []queryir.Assignment{queryir.Assign(3, queryir.Int(5))}},
			Inner: &queryir.Map{Input: subC, Assignments: []queryir.Assignment{queryir.Assign(2, queryir.Col(11))}},
		},
		Inner: &queryir.Map{Input: subB, Assignments: []queryir.Assignment{queryir.Assign(1, queryir.Col(10))}},
	}
	assertSamePlan(t, want, rel)
	assert.Equal(t, []ir.ColumnID{0, 1, 2, 3, 10, 11}, queryir.Attributes(rel).Ordered())
}

func TestMap_HoistOrderThreeSubqueries(t *testing.T) {
	s := newSession(ir.RuleHoist)
	scan := s.Scan("a", cols(0))
	s1 := s.Scan("s1", cols(10))
	s2 := s.Scan("s2", cols(11))
	s3 := s.Scan("s3", cols(12))

	rel, err := s.Map(scan, []queryir.Assignment{
		queryir.Assign(1, queryir.SubqueryOf(s1)),
		queryir.Assign(2, queryir.SubqueryOf(s2)),
		queryir.Assign(3, queryir.SubqueryOf(s3)),
	})
	require.NoError(t, err)

	// s1 is taken out first and s3 takes its slot, leaving [s3, s2]. The
	// recursion then takes s3 and leaves [s2], so s2 ends up innermost.
	m1 := &queryir.Map{Input: s1, Assignments: []queryir.Assignment{queryir.Assign(1, queryir.Col(10))}}
	m2 := &queryir.Map{Input: s2, Assignments: []queryir.Assignment{queryir.Assign(2, queryir.Col(11))}}
	m3 := &queryir.Map{Input: s3, Assignments: []queryir.Assignment{queryir.Assign(3, queryir.Col(12))}}
	want := &queryir.FlatMap{
		Outer: &queryir.FlatMap{
			Outer: &queryir.FlatMap{Outer: scan, Inner: m2},
			Inner: m3,
		},
		Inner: m1,
	}
	assertSamePlan(t, want, rel)
}

func TestMap_HoistResidualAssignmentOrder(t *testing.T) {
	s := newSession(ir.RuleHoist)
	scan := s.Scan("a", cols(0))
	sub := s.Scan("b", cols(10))

	rel, err := s.Map(scan, []queryir.Assignment{
		queryir.Assign(1, queryir.SubqueryOf(sub)),
		queryir.Assign(2, queryir.Int(5)),
		queryir.Assign(3, queryir.Int(6)),
		queryir.Assign(4, queryir.Int(7)),
	})
	require.NoError(t, err)

	fm, ok := rel.(*queryir.FlatMap)
	require.True(t, ok)
	residual, ok := fm.Outer.(*queryir.Map)
	require.True(t, ok)
	assert.Equal(t, []queryir.Assignment{
		queryir.Assign(4, queryir.Int(7)),
		queryir.Assign(2, queryir.Int(5)),
		queryir.Assign(3, queryir.Int(6)),
	}, residual.Assignments, "the last assignment fills the hoisted one's slot")
}

func TestMap_HoistedMapIsDecorrelated(t *testing.T) {
	s := newSession(allRules...)
	scan := s.Scan("a", cols(0))
	sub := s.Scan("b", cols(1))

	rel, err := s.Map(scan, []queryir.Assignment{queryir.Assign(2, queryir.SubqueryOf(sub))})
	require.NoError(t, err)

	want := &queryir.Join{
		Left:  scan,
		Right: &queryir.Map{Input: sub, Assignments: []queryir.Assignment{queryir.Assign(2, queryir.Col(1))}},
	}
	assertSamePlan(t, want, rel)
	assert.True(t, queryir.Validate(rel).Decorrelated)
}
