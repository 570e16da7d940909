package engine

import (
	"fmt"
	"slices"

	"github.com/roach88/unnest/internal/ir"
	"github.com/roach88/unnest/internal/queryir"
)

const opHoist = "hoist"

// Map extends source with computed columns.
//
// An empty assignment list returns source unchanged. With RuleHoist
// enabled, the first assignment (in list order) whose expression holds a
// subquery is taken out (the last assignment moves into its slot), the
// remaining assignments are mapped first, and the removed one is then
// hoisted onto that result. The first subquery is therefore outermost;
// with a = [s1, s2, s3] the nesting is s1(s3(s2(source))).
//
// Assignment ids must not collide with att(source) or with each other.
func (s *Session) Map(source queryir.RelExpr, assignments []queryir.Assignment) (queryir.RelExpr, error) {
	if len(assignments) == 0 {
		s.record(EventEliminateMap, queryir.OpNameMap)
		return source, nil
	}

	if s.Enabled(ir.RuleHoist) {
		for i, a := range assignments {
			if !queryir.HasSubquery(a.Expr) {
				continue
			}
			rest, err := s.Map(source, removeAt(assignments, i))
			if err != nil {
				return nil, err
			}
			return s.Hoist(rest, a.ID, a.Expr)
		}
	}

	seen := queryir.Attributes(source)
	for _, a := range assignments {
		if seen.Contains(a.ID) {
			return nil, NewInvariantError(queryir.OpNameMap, "column %s already defined", a.ID)
		}
		seen.Add(a.ID)
	}

	return &queryir.Map{Input: source, Assignments: slices.Clone(assignments)}, nil
}

// Hoist computes expr over source into column id, rewriting any scalar
// subquery in expr into a dependent join.
//
// Cases:
//   - no subquery: a plain Map of (id, expr)
//   - Subquery(plan): plan must expose exactly one column; it is renamed to
//     id and joined to source with FlatMap
//   - Plus(l, r): l and r are hoisted in turn into two fresh ids (r on top
//     of l's result), summed into id, and the result is projected back to
//     att(source) ∪ {id} so neither fresh id is visible
//   - anything else: a NOT_IMPLEMENTED error
func (s *Session) Hoist(source queryir.RelExpr, id ir.ColumnID, expr queryir.Expr) (queryir.RelExpr, error) {
	if queryir.Attributes(source).Contains(id) {
		return nil, NewInvariantError(opHoist, "column %s already defined", id)
	}

	if !queryir.HasSubquery(expr) {
		s.record(EventHoistScalar, opHoist)
		return s.Map(source, []queryir.Assignment{queryir.Assign(id, expr)})
	}

	switch e := expr.(type) {
	case *queryir.Subquery:
		att := queryir.Attributes(e.Plan)
		sole, ok := att.SingleColumn()
		if !ok {
			return nil, NewArityError(att.Len())
		}
		s.record(EventHoistSubquery, opHoist)

		renamed, err := s.Map(e.Plan, []queryir.Assignment{queryir.Assign(id, queryir.Col(sole))})
		if err != nil {
			return nil, err
		}
		return s.FlatMap(source, renamed)

	case *queryir.BinaryOp:
		if e.Op != queryir.OpPlus {
			return nil, NewNotImplementedError(fmt.Sprintf("binary %q", e.Op))
		}
		s.record(EventHoistPlus, opHoist)

		leftID, rightID := s.Next(), s.Next()
		withLeft, err := s.Hoist(source, leftID, e.Left)
		if err != nil {
			return nil, err
		}
		withBoth, err := s.Hoist(withLeft, rightID, e.Right)
		if err != nil {
			return nil, err
		}
		summed, err := s.Map(withBoth, []queryir.Assignment{
			queryir.Assign(id, queryir.Plus(queryir.Col(leftID), queryir.Col(rightID))),
		})
		if err != nil {
			return nil, err
		}

		keep := queryir.Attributes(source)
		keep.Add(id)
		return s.Project(summed, keep)

	default:
		return nil, NewNotImplementedError(fmt.Sprintf("%T", expr))
	}
}
