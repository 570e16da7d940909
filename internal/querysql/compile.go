package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/unnest/internal/ir"
	"github.com/roach88/unnest/internal/queryir"
)

// SQLCompiler compiles plans to parameterized SQL.
//
// Every column id renders as c<id>. Because ids are unique within a plan,
// column references stay unqualified and correlated references resolve
// through ordinary SQL scoping: a FlatMap becomes CROSS JOIN LATERAL and a
// residual scalar subquery is emitted inline.
//
// CRITICAL: All literals are parameterized (never interpolated).
type SQLCompiler struct {
	params  []any
	aliases int
}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a plan to SQL.
// Returns (sql, params, error) tuple. Params appear in placeholder order.
//
// The compiler is reset on each call and may be reused.
func (c *SQLCompiler) Compile(rel queryir.RelExpr) (string, []any, error) {
	c.params = nil
	c.aliases = 0

	if rel == nil {
		return "", nil, fmt.Errorf("cannot compile nil plan")
	}

	sql, err := c.compileRel(rel)
	if err != nil {
		return "", nil, err
	}
	return sql, c.params, nil
}

// Compile is a convenience wrapper around NewSQLCompiler().Compile.
func Compile(rel queryir.RelExpr) (string, []any, error) {
	return NewSQLCompiler().Compile(rel)
}

// ColumnName returns the SQL name of a column id.
func ColumnName(id ir.ColumnID) string {
	return "c" + strconv.FormatInt(int64(id), 10)
}

func (c *SQLCompiler) compileRel(rel queryir.RelExpr) (string, error) {
	switch r := rel.(type) {
	case *queryir.Scan:
		if len(r.Cols) == 0 {
			return "", fmt.Errorf("scan %q: no columns", r.Table)
		}
		return fmt.Sprintf("SELECT %s FROM %s", columnList(r.Cols), quoteIdent(r.Table)), nil

	case *queryir.Select:
		return c.compileSelect(r)

	case *queryir.Join:
		return c.compileJoin(r)

	case *queryir.Project:
		return c.compileProject(r)

	case *queryir.Map:
		return c.compileMap(r)

	case *queryir.FlatMap:
		return c.compileFlatMap(r)

	default:
		return "", fmt.Errorf("unsupported plan node: %T", rel)
	}
}

// compileSelect emits SELECT <att> FROM (<input>) AS tN WHERE <predicates>.
func (c *SQLCompiler) compileSelect(s *queryir.Select) (string, error) {
	cols, err := selectList(queryir.Attributes(s))
	if err != nil {
		return "", fmt.Errorf("select: %w", err)
	}

	from, err := c.derived(s.Input)
	if err != nil {
		return "", err
	}

	where, err := c.compileConjunction(s.Predicates)
	if err != nil {
		return "", fmt.Errorf("compile filter: %w", err)
	}

	return fmt.Sprintf("SELECT %s FROM %s WHERE %s", cols, from, where), nil
}

// compileJoin emits an INNER JOIN, or a CROSS JOIN when no predicates remain.
func (c *SQLCompiler) compileJoin(j *queryir.Join) (string, error) {
	cols, err := selectList(queryir.Attributes(j))
	if err != nil {
		return "", fmt.Errorf("join: %w", err)
	}

	left, err := c.derived(j.Left)
	if err != nil {
		return "", fmt.Errorf("compile join left: %w", err)
	}
	right, err := c.derived(j.Right)
	if err != nil {
		return "", fmt.Errorf("compile join right: %w", err)
	}

	if len(j.Predicates) == 0 {
		return fmt.Sprintf("SELECT %s FROM %s CROSS JOIN %s", cols, left, right), nil
	}

	on, err := c.compileConjunction(j.Predicates)
	if err != nil {
		return "", fmt.Errorf("compile join ON: %w", err)
	}
	return fmt.Sprintf("SELECT %s FROM %s INNER JOIN %s ON %s", cols, left, right, on), nil
}

func (c *SQLCompiler) compileProject(p *queryir.Project) (string, error) {
	cols, err := selectList(p.Cols)
	if err != nil {
		return "", fmt.Errorf("project: %w", err)
	}

	from, err := c.derived(p.Input)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT %s FROM %s", cols, from), nil
}

// compileMap emits the input's columns followed by one aliased expression
// per assignment. Expressions precede FROM in the text, so their params are
// collected first.
func (c *SQLCompiler) compileMap(m *queryir.Map) (string, error) {
	parts := make([]string, 0, len(m.Assignments)+1)
	if att := queryir.Attributes(m.Input); !att.Empty() {
		parts = append(parts, columnList(att.Ordered()))
	}

	for _, a := range m.Assignments {
		sql, err := c.compileExpr(a.Expr)
		if err != nil {
			return "", fmt.Errorf("compile assignment %s: %w", a.ID, err)
		}
		parts = append(parts, sql+" AS "+ColumnName(a.ID))
	}

	from, err := c.derived(m.Input)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(parts, ", "), from), nil
}

// compileFlatMap emits the dependent join as CROSS JOIN LATERAL.
func (c *SQLCompiler) compileFlatMap(f *queryir.FlatMap) (string, error) {
	cols, err := selectList(queryir.Attributes(f))
	if err != nil {
		return "", fmt.Errorf("flatmap: %w", err)
	}

	outer, err := c.derived(f.Outer)
	if err != nil {
		return "", fmt.Errorf("compile flatmap outer: %w", err)
	}
	inner, err := c.derived(f.Inner)
	if err != nil {
		return "", fmt.Errorf("compile flatmap inner: %w", err)
	}
	return fmt.Sprintf("SELECT %s FROM %s CROSS JOIN LATERAL %s", cols, outer, inner), nil
}

// derived compiles rel as a parenthesized derived table with a fresh alias.
func (c *SQLCompiler) derived(rel queryir.RelExpr) (string, error) {
	c.aliases++
	alias := "t" + strconv.Itoa(c.aliases)

	sql, err := c.compileRel(rel)
	if err != nil {
		return "", err
	}
	return "(" + sql + ") AS " + alias, nil
}

// compileConjunction joins predicates with AND.
func (c *SQLCompiler) compileConjunction(preds []queryir.Expr) (string, error) {
	if len(preds) == 0 {
		return "1 = 1", nil // Always true (vacuous truth)
	}

	parts := make([]string, len(preds))
	for i, p := range preds {
		sql, err := c.compileExpr(p)
		if err != nil {
			return "", err
		}
		parts[i] = sql
	}
	return strings.Join(parts, " AND "), nil
}

// compileExpr compiles a scalar expression.
// CRITICAL: Literals are NEVER interpolated - always parameterized.
func (c *SQLCompiler) compileExpr(e queryir.Expr) (string, error) {
	switch expr := e.(type) {
	case *queryir.ColumnRef:
		return ColumnName(expr.ID), nil

	case *queryir.Literal:
		c.params = append(c.params, expr.Value)
		return "?", nil

	case *queryir.BinaryOp:
		left, err := c.compileExpr(expr.Left)
		if err != nil {
			return "", err
		}
		right, err := c.compileExpr(expr.Right)
		if err != nil {
			return "", err
		}
		switch expr.Op {
		case queryir.OpEq, queryir.OpPlus:
			return fmt.Sprintf("(%s %s %s)", left, expr.Op, right), nil
		default:
			return "", fmt.Errorf("unsupported operator: %q", expr.Op)
		}

	case *queryir.Subquery:
		sql, err := c.compileRel(expr.Plan)
		if err != nil {
			return "", fmt.Errorf("compile subquery: %w", err)
		}
		return "(" + sql + ")", nil

	default:
		return "", fmt.Errorf("unsupported expression type: %T", e)
	}
}

// selectList renders a non-empty column set for a SELECT clause.
func selectList(cols ir.ColSet) (string, error) {
	if cols.Empty() {
		return "", fmt.Errorf("plan exposes no columns")
	}
	return columnList(cols.Ordered()), nil
}

func columnList(ids []ir.ColumnID) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = ColumnName(id)
	}
	return strings.Join(names, ", ")
}

// quoteIdent double-quotes a table name, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
