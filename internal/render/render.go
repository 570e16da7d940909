// Package render prints query plans as indented trees.
//
// The output is deterministic: column sets print in ascending id order and
// predicate and assignment lists print in plan order. It is meant for
// people and golden files and is never parsed back.
//
// Example:
//
//	project {@0, @1, @5}
//	  map @5 := @6 + @7
//	    flatmap λ.{@0}
//	      scan a [@0, @1]
//	      select @2 = @0
//	        scan x [@2]
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/unnest/internal/ir"
	"github.com/roach88/unnest/internal/queryir"
)

const indentUnit = "  "

// Render returns the tree for rel with a trailing newline.
func Render(rel queryir.RelExpr) string {
	var b strings.Builder
	Write(&b, rel, 0)
	return b.String()
}

// Write appends the tree for rel to b, starting at the given depth.
func Write(b *strings.Builder, rel queryir.RelExpr, depth int) {
	p := &printer{b: b}
	p.rel(rel, depth)
}

// Expr formats a scalar expression on one line. Subqueries print as
// "subquery#N" numbered from 1 in the order they appear.
func Expr(e queryir.Expr) string {
	p := &printer{}
	return p.expr(e, false)
}

type printer struct {
	b *strings.Builder

	// subqueries collects plans met while formatting one node's expressions.
	subqueries []queryir.RelExpr
}

func (p *printer) line(depth int, format string, args ...any) {
	p.b.WriteString(strings.Repeat(indentUnit, depth))
	fmt.Fprintf(p.b, format, args...)
	p.b.WriteByte('\n')
}

func (p *printer) rel(rel queryir.RelExpr, depth int) {
	p.subqueries = nil

	switch r := rel.(type) {
	case *queryir.Scan:
		p.line(depth, "scan %s %s", r.Table, idList(r.Cols))
	case *queryir.Select:
		p.line(depth, "select %s", p.exprList(r.Predicates, " AND "))
	case *queryir.Join:
		if len(r.Predicates) == 0 {
			p.line(depth, "join")
		} else {
			p.line(depth, "join %s", p.exprList(r.Predicates, " AND "))
		}
	case *queryir.Project:
		p.line(depth, "project %s", r.Cols)
	case *queryir.Map:
		parts := make([]string, len(r.Assignments))
		for i, a := range r.Assignments {
			parts[i] = a.ID.String() + " := " + p.expr(a.Expr, false)
		}
		p.line(depth, "map %s", strings.Join(parts, ", "))
	case *queryir.FlatMap:
		p.line(depth, "flatmap λ.%s", queryir.FreeCols(r.Inner))
	case nil:
		p.line(depth, "<nil>")
		return
	default:
		p.line(depth, "<unknown %T>", rel)
		return
	}

	subs := p.subqueries
	for _, child := range queryir.Children(rel) {
		p.rel(child, depth+1)
	}
	for i, sub := range subs {
		p.line(depth+1, "subquery#%d:", i+1)
		p.rel(sub, depth+2)
	}
}

func (p *printer) exprList(exprs []queryir.Expr, sep string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = p.expr(e, false)
	}
	return strings.Join(parts, sep)
}

// expr formats e. nested wraps binary operations in parentheses.
func (p *printer) expr(e queryir.Expr, nested bool) string {
	switch x := e.(type) {
	case *queryir.ColumnRef:
		return x.ID.String()
	case *queryir.Literal:
		return strconv.FormatInt(x.Value, 10)
	case *queryir.BinaryOp:
		s := p.expr(x.Left, true) + " " + string(x.Op) + " " + p.expr(x.Right, true)
		if nested {
			return "(" + s + ")"
		}
		return s
	case *queryir.Subquery:
		p.subqueries = append(p.subqueries, x.Plan)
		return "subquery#" + strconv.Itoa(len(p.subqueries))
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("<unknown %T>", e)
	}
}

func idList(ids []ir.ColumnID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
