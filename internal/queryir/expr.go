package queryir

import "github.com/roach88/unnest/internal/ir"

// Expr represents a scalar expression.
//
// This is a sealed interface - only types in this package implement it.
//
// Expr types:
//   - ColumnRef: reference to a column produced by the enclosing plan
//   - Literal: integer constant
//   - BinaryOp: equality or addition over two operands
//   - Subquery: a nested plan used as a scalar value
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// ColumnRef references a column by id.
type ColumnRef struct {
	ID ir.ColumnID
}

func (*ColumnRef) exprNode() {}

// Literal is an integer constant.
type Literal struct {
	Value int64
}

func (*Literal) exprNode() {}

// BinaryOperator identifies the operation of a BinaryOp.
type BinaryOperator string

const (
	OpEq   BinaryOperator = "="
	OpPlus BinaryOperator = "+"
)

// BinaryOp applies Op to Left and Right. It owns both operands.
type BinaryOp struct {
	Op    BinaryOperator
	Left  Expr
	Right Expr
}

func (*BinaryOp) exprNode() {}

// Subquery embeds a relational plan whose result is used as a scalar value.
//
// When the subquery is hoisted, Plan must expose exactly one output column.
// A plan with any other attribute count is an arity violation.
type Subquery struct {
	Plan RelExpr
}

func (*Subquery) exprNode() {}

// Col returns a column reference.
func Col(id ir.ColumnID) *ColumnRef { return &ColumnRef{ID: id} }

// Int returns an integer literal.
func Int(v int64) *Literal { return &Literal{Value: v} }

// Eq returns left = right.
func Eq(left, right Expr) *BinaryOp {
	return &BinaryOp{Op: OpEq, Left: left, Right: right}
}

// Plus returns left + right.
func Plus(left, right Expr) *BinaryOp {
	return &BinaryOp{Op: OpPlus, Left: left, Right: right}
}

// SubqueryOf wraps a plan as a scalar subquery.
func SubqueryOf(plan RelExpr) *Subquery { return &Subquery{Plan: plan} }

// ExprFreeCols returns the columns referenced by e.
// A Subquery contributes the free columns of its plan, not its attributes.
func ExprFreeCols(e Expr) ir.ColSet {
	var out ir.ColSet
	collectExprFree(e, &out)
	return out
}

func collectExprFree(e Expr, out *ir.ColSet) {
	switch expr := e.(type) {
	case *ColumnRef:
		out.Add(expr.ID)
	case *Literal:
	case *BinaryOp:
		collectExprFree(expr.Left, out)
		collectExprFree(expr.Right, out)
	case *Subquery:
		FreeCols(expr.Plan).ForEach(out.Add)
	}
}

// HasSubquery reports whether any node reachable from e is a Subquery.
func HasSubquery(e Expr) bool {
	switch expr := e.(type) {
	case *BinaryOp:
		return HasSubquery(expr.Left) || HasSubquery(expr.Right)
	case *Subquery:
		return true
	default:
		return false
	}
}

// IsBoundBy reports whether every column e references is an attribute of
// rel, i.e. free(e) ⊆ att(rel).
func IsBoundBy(e Expr, rel RelExpr) bool {
	return ExprFreeCols(e).SubsetOf(Attributes(rel))
}
