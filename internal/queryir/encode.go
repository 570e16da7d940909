package queryir

import (
	"fmt"

	"github.com/roach88/unnest/internal/ir"
)

// Encode converts a plan into a tree of maps and slices accepted by
// ir.MarshalCanonical. The encoding is stable: two plans encode identically
// iff they have the same shape, columns, tables and expressions.
//
// Example:
//
//	Encode(&Scan{Table: "a", Cols: []ir.ColumnID{0, 1}})
//	// {"op": "scan", "table": "a", "cols": [0, 1]}
func Encode(rel RelExpr) map[string]any {
	switch r := rel.(type) {
	case *Scan:
		return map[string]any{
			"op":    OpNameScan,
			"table": r.Table,
			"cols":  encodeIDs(r.Cols),
		}
	case *Select:
		return map[string]any{
			"op":         OpNameSelect,
			"input":      Encode(r.Input),
			"predicates": encodeExprs(r.Predicates),
		}
	case *Join:
		return map[string]any{
			"op":         OpNameJoin,
			"left":       Encode(r.Left),
			"right":      Encode(r.Right),
			"predicates": encodeExprs(r.Predicates),
		}
	case *Project:
		return map[string]any{
			"op":    OpNameProject,
			"input": Encode(r.Input),
			"cols":  encodeIDs(r.Cols.Ordered()),
		}
	case *Map:
		assignments := make([]any, len(r.Assignments))
		for i, a := range r.Assignments {
			assignments[i] = map[string]any{
				"id":   a.ID,
				"expr": EncodeExpr(a.Expr),
			}
		}
		return map[string]any{
			"op":          OpNameMap,
			"input":       Encode(r.Input),
			"assignments": assignments,
		}
	case *FlatMap:
		return map[string]any{
			"op":    OpNameFlatMap,
			"outer": Encode(r.Outer),
			"inner": Encode(r.Inner),
		}
	default:
		return map[string]any{"op": fmt.Sprintf("unknown(%T)", rel)}
	}
}

// EncodeExpr converts a scalar expression the same way Encode does plans.
func EncodeExpr(e Expr) map[string]any {
	switch expr := e.(type) {
	case *ColumnRef:
		return map[string]any{"col": expr.ID}
	case *Literal:
		return map[string]any{"int": expr.Value}
	case *BinaryOp:
		return map[string]any{
			"op":    string(expr.Op),
			"left":  EncodeExpr(expr.Left),
			"right": EncodeExpr(expr.Right),
		}
	case *Subquery:
		return map[string]any{"subquery": Encode(expr.Plan)}
	default:
		return map[string]any{"op": fmt.Sprintf("unknown(%T)", e)}
	}
}

// Digest returns the content-addressed identity of rel.
func Digest(rel RelExpr) (string, error) {
	return ir.PlanDigest(Encode(rel))
}

func encodeIDs(ids []ir.ColumnID) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func encodeExprs(exprs []Expr) []any {
	out := make([]any, len(exprs))
	for i, e := range exprs {
		out[i] = EncodeExpr(e)
	}
	return out
}
