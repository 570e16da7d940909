package engine

import (
	"slices"

	"github.com/roach88/unnest/internal/ir"
	"github.com/roach88/unnest/internal/queryir"
)

// Scan builds a base table access introducing cols.
func (s *Session) Scan(table string, cols []ir.ColumnID) queryir.RelExpr {
	return &queryir.Scan{Table: table, Cols: slices.Clone(cols)}
}

// Select filters source by the conjunction of predicates.
//
// The result is in select-merged normal form: when source is itself a
// Select, the predicate lists are concatenated (existing first) and
// re-applied to source's input, so no Select ever sits directly on another.
// An empty predicate list returns source unchanged.
func (s *Session) Select(source queryir.RelExpr, predicates []queryir.Expr) queryir.RelExpr {
	if len(predicates) == 0 {
		s.record(EventEliminateSelect, queryir.OpNameSelect)
		return source
	}

	if inner, ok := source.(*queryir.Select); ok {
		s.record(EventMergeSelects, queryir.OpNameSelect)
		merged := make([]queryir.Expr, 0, len(inner.Predicates)+len(predicates))
		merged = append(merged, inner.Predicates...)
		merged = append(merged, predicates...)
		return s.Select(inner.Input, merged)
	}

	return &queryir.Select{Input: source, Predicates: slices.Clone(predicates)}
}

// Join builds an inner join of left and right.
//
// Predicates bound entirely by one side are pushed below the join as a
// Select on that side. Predicates are examined in list order and a
// predicate bound by both sides goes left. The pushed predicate's slot is
// refilled by the last one, and the join is rebuilt from scratch, so only
// predicates referencing both sides remain on the returned Join node.
func (s *Session) Join(left, right queryir.RelExpr, predicates []queryir.Expr) queryir.RelExpr {
	for i, p := range predicates {
		switch {
		case queryir.IsBoundBy(p, left):
			s.record(EventPushFilterLeft, queryir.OpNameJoin)
			return s.Join(s.Select(left, []queryir.Expr{p}), right, removeAt(predicates, i))
		case queryir.IsBoundBy(p, right):
			s.record(EventPushFilterRight, queryir.OpNameJoin)
			return s.Join(left, s.Select(right, []queryir.Expr{p}), removeAt(predicates, i))
		}
	}

	return &queryir.Join{Left: left, Right: right, Predicates: slices.Clone(predicates)}
}

// removeAt returns a copy of list without element i. The last element
// takes slot i, so the order of the remaining elements is not preserved.
func removeAt[T any](list []T, i int) []T {
	out := slices.Clone(list)
	last := len(out) - 1
	out[i] = out[last]
	return out[:last]
}
