package engine

import (
	"github.com/roach88/unnest/internal/ir"
	"github.com/roach88/unnest/internal/queryir"
)

// Project restricts source to cols.
//
// cols must be a subset of att(source). Projecting onto all of att(source)
// returns source. When source is a Map, the projection moves below it if
// every input column the surviving assignments read is itself requested:
//
//	project(map(src, A), cols) => map(project(src, cols \ ids(A)), K)
//
// where K holds the assignments of A whose ids are in cols. Otherwise the
// result is an explicit Project node.
func (s *Session) Project(source queryir.RelExpr, cols ir.ColSet) (queryir.RelExpr, error) {
	att := queryir.Attributes(source)
	if missing := cols.Difference(att); !missing.Empty() {
		return nil, NewInvariantError(queryir.OpNameProject, "columns %s not produced by source", missing)
	}

	if cols.Equals(att) {
		s.record(EventEliminateProject, queryir.OpNameProject)
		return source, nil
	}

	if m, ok := source.(*queryir.Map); ok {
		inputAtt := queryir.Attributes(m.Input)

		var kept []queryir.Assignment
		var need ir.ColSet
		for _, a := range m.Assignments {
			if cols.Contains(a.ID) {
				kept = append(kept, a)
				need = need.Union(queryir.ExprFreeCols(a.Expr).Intersection(inputAtt))
			}
		}

		if need.SubsetOf(cols) {
			s.record(EventPushProjectThroughMap, queryir.OpNameProject)
			below, err := s.Project(m.Input, cols.Difference(m.Introduced()))
			if err != nil {
				return nil, err
			}
			return s.Map(below, kept)
		}
	}

	return &queryir.Project{Input: source, Cols: cols.Copy()}, nil
}
