package queryir

import "github.com/roach88/unnest/internal/ir"

// RelExpr represents a relational plan node.
//
// This is a sealed interface - only types in this package implement it.
// Nodes should be built through the engine constructors, which apply local
// rewrites; the struct literals here are the raw, unrewritten shapes.
//
// RelExpr types:
//   - Scan: base table access, introduces columns
//   - Select: filter by conjoined predicates
//   - Join: inner join with conjoined predicates
//   - Project: restrict output to a column set
//   - Map: add computed columns
//   - FlatMap: dependent join (apply), inner evaluated per outer row
type RelExpr interface {
	relNode() // Marker method - seals interface to this package
}

// Scan reads a base table and introduces Cols.
//
// Semantics:
//
//	SELECT <cols> FROM <table>
type Scan struct {
	Table string
	Cols  []ir.ColumnID
}

func (*Scan) relNode() {}

// Select filters Input by the conjunction of Predicates.
// Does not change the attribute set.
type Select struct {
	Input      RelExpr
	Predicates []Expr
}

func (*Select) relNode() {}

// Join combines Left and Right under the conjunction of Predicates.
// Attribute set is att(Left) ∪ att(Right); the two are assumed disjoint.
type Join struct {
	Left       RelExpr
	Right      RelExpr
	Predicates []Expr
}

func (*Join) relNode() {}

// Project restricts the output of Input to Cols.
// Cols must be a subset of att(Input).
type Project struct {
	Input RelExpr
	Cols  ir.ColSet
}

func (*Project) relNode() {}

// Assignment binds a freshly allocated column id to an expression.
type Assignment struct {
	ID   ir.ColumnID
	Expr Expr
}

// Assign returns an Assignment.
func Assign(id ir.ColumnID, e Expr) Assignment {
	return Assignment{ID: id, Expr: e}
}

// Map extends each row of Input with computed columns.
// Attribute set is att(Input) ∪ {a.ID for a in Assignments}.
type Map struct {
	Input       RelExpr
	Assignments []Assignment
}

func (*Map) relNode() {}

// FlatMap is the dependent join: Inner is conceptually evaluated once per
// row of Outer and may reference Outer's columns as free variables.
// Attribute set is att(Outer) ∪ att(Inner).
type FlatMap struct {
	Outer RelExpr
	Inner RelExpr
}

func (*FlatMap) relNode() {}

// Introduced returns the ids a Map adds to its input's attributes.
func (m *Map) Introduced() ir.ColSet {
	var out ir.ColSet
	for _, a := range m.Assignments {
		out.Add(a.ID)
	}
	return out
}

// RequiredCols returns the union of the free columns of every assignment.
func (m *Map) RequiredCols() ir.ColSet {
	var out ir.ColSet
	for _, a := range m.Assignments {
		ExprFreeCols(a.Expr).ForEach(out.Add)
	}
	return out
}
