package queryir

import "github.com/roach88/unnest/internal/ir"

// Attributes returns att(rel): the set of columns rel outputs.
func Attributes(rel RelExpr) ir.ColSet {
	switch r := rel.(type) {
	case *Scan:
		return ir.MakeColSet(r.Cols...)
	case *Select:
		return Attributes(r.Input)
	case *Join:
		return Attributes(r.Left).Union(Attributes(r.Right))
	case *Project:
		return r.Cols.Copy()
	case *Map:
		out := Attributes(r.Input)
		for _, a := range r.Assignments {
			out.Add(a.ID)
		}
		return out
	case *FlatMap:
		return Attributes(r.Outer).Union(Attributes(r.Inner))
	default:
		return ir.ColSet{}
	}
}

// FreeCols returns free(rel): columns referenced inside rel that its own
// children do not supply.
func FreeCols(rel RelExpr) ir.ColSet {
	switch r := rel.(type) {
	case *Scan:
		return ir.ColSet{}
	case *Select:
		refs := FreeCols(r.Input)
		for _, p := range r.Predicates {
			refs = refs.Union(ExprFreeCols(p))
		}
		return refs.Difference(Attributes(r.Input))
	case *Join:
		refs := FreeCols(r.Left).Union(FreeCols(r.Right))
		for _, p := range r.Predicates {
			refs = refs.Union(ExprFreeCols(p))
		}
		return refs.Difference(Attributes(r.Left).Union(Attributes(r.Right)))
	case *Project:
		return FreeCols(r.Input)
	case *Map:
		refs := FreeCols(r.Input).Union(r.RequiredCols())
		return refs.Difference(Attributes(r.Input))
	case *FlatMap:
		// Inner may reference Outer's columns; those are bound here.
		refs := FreeCols(r.Outer).Union(FreeCols(r.Inner))
		return refs.Difference(Attributes(r.Outer))
	default:
		return ir.ColSet{}
	}
}

// IsCorrelated reports whether rel references columns from an enclosing
// scope.
func IsCorrelated(rel RelExpr) bool {
	return !FreeCols(rel).Empty()
}

// Operator names used by renders, encodings and assertions.
const (
	OpNameScan    = "scan"
	OpNameSelect  = "select"
	OpNameJoin    = "join"
	OpNameProject = "project"
	OpNameMap     = "map"
	OpNameFlatMap = "flatmap"
)

// OpName returns the operator name of rel.
func OpName(rel RelExpr) string {
	switch rel.(type) {
	case *Scan:
		return OpNameScan
	case *Select:
		return OpNameSelect
	case *Join:
		return OpNameJoin
	case *Project:
		return OpNameProject
	case *Map:
		return OpNameMap
	case *FlatMap:
		return OpNameFlatMap
	default:
		return "unknown"
	}
}

// Children returns the relational inputs of rel in render order.
// Plans nested inside subquery expressions are not included.
func Children(rel RelExpr) []RelExpr {
	switch r := rel.(type) {
	case *Select:
		return []RelExpr{r.Input}
	case *Join:
		return []RelExpr{r.Left, r.Right}
	case *Project:
		return []RelExpr{r.Input}
	case *Map:
		return []RelExpr{r.Input}
	case *FlatMap:
		return []RelExpr{r.Outer, r.Inner}
	default:
		return nil
	}
}

// Exprs returns the scalar expressions carried directly by rel.
func Exprs(rel RelExpr) []Expr {
	switch r := rel.(type) {
	case *Select:
		return r.Predicates
	case *Join:
		return r.Predicates
	case *Map:
		out := make([]Expr, len(r.Assignments))
		for i, a := range r.Assignments {
			out[i] = a.Expr
		}
		return out
	default:
		return nil
	}
}

// Walk visits rel and every plan below it in pre-order, descending into
// subquery plans after the node's own children. Returning false from fn
// stops descent below that node.
func Walk(rel RelExpr, fn func(RelExpr) bool) {
	if rel == nil || !fn(rel) {
		return
	}
	for _, child := range Children(rel) {
		Walk(child, fn)
	}
	for _, e := range Exprs(rel) {
		walkExprPlans(e, fn)
	}
}

func walkExprPlans(e Expr, fn func(RelExpr) bool) {
	switch expr := e.(type) {
	case *BinaryOp:
		walkExprPlans(expr.Left, fn)
		walkExprPlans(expr.Right, fn)
	case *Subquery:
		Walk(expr.Plan, fn)
	}
}

// CountOps returns how many nodes of each operator appear in rel, including
// plans nested in subqueries.
func CountOps(rel RelExpr) map[string]int {
	counts := make(map[string]int)
	Walk(rel, func(n RelExpr) bool {
		counts[OpName(n)]++
		return true
	})
	return counts
}

// ContainsSubquery reports whether any expression in rel, at any depth,
// is a Subquery.
func ContainsSubquery(rel RelExpr) bool {
	found := false
	Walk(rel, func(n RelExpr) bool {
		for _, e := range Exprs(n) {
			if HasSubquery(e) {
				found = true
			}
		}
		return !found
	})
	return found
}
