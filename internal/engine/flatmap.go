package engine

import (
	"github.com/roach88/unnest/internal/ir"
	"github.com/roach88/unnest/internal/queryir"
)

// FlatMap builds the dependent join of outer and inner.
//
// With RuleDecorrelate enabled:
//   - an uncorrelated inner becomes Join(outer, inner) with no predicates
//   - a Project inner is pulled above: the projection keeps its columns
//     plus att(outer)
//   - a Map inner is pulled above and re-applied to the dependent join of
//     outer with the map's input
//   - any other correlated inner stays an explicit FlatMap
//
// With the rule disabled the result is always an explicit FlatMap.
func (s *Session) FlatMap(outer, inner queryir.RelExpr) (queryir.RelExpr, error) {
	if !s.Enabled(ir.RuleDecorrelate) {
		return &queryir.FlatMap{Outer: outer, Inner: inner}, nil
	}

	if queryir.FreeCols(inner).Empty() {
		s.record(EventDecorrelateUncorrelated, queryir.OpNameFlatMap)
		return s.Join(outer, inner, nil), nil
	}

	switch in := inner.(type) {
	case *queryir.Project:
		s.record(EventPullUpProject, queryir.OpNameFlatMap)
		joined, err := s.FlatMap(outer, in.Input)
		if err != nil {
			return nil, err
		}
		return s.Project(joined, in.Cols.Union(queryir.Attributes(outer)))

	case *queryir.Map:
		s.record(EventPullUpMap, queryir.OpNameFlatMap)
		joined, err := s.FlatMap(outer, in.Input)
		if err != nil {
			return nil, err
		}
		return s.Map(joined, in.Assignments)
	}

	return &queryir.FlatMap{Outer: outer, Inner: inner}, nil
}
