package compiler

import (
	"fmt"

	"github.com/roach88/unnest/internal/engine"
	"github.com/roach88/unnest/internal/ir"
	"github.com/roach88/unnest/internal/queryir"
)

// Result is a compiled document.
type Result struct {
	// Plan is the rewritten plan built through the session's constructors.
	Plan queryir.RelExpr

	// Columns maps each declared name to its allocated id.
	Columns map[string]ir.ColumnID

	// Names is the inverse of Columns.
	Names map[ir.ColumnID]string
}

// Compile builds doc's plan through s. The session's rules decide which
// rewrites fire; doc.Rules is not consulted (see ParsedRules).
//
// The document is validated first; the first validation error is
// returned as-is. Rewrite failures are wrapped with the path of the node
// that failed and can be classified with engine.IsArityError and friends.
func Compile(doc *Document, s *engine.Session) (*Result, error) {
	if errs := Validate(doc); len(errs) > 0 {
		return nil, errs[0]
	}

	c := &planCompiler{
		session: s,
		result: &Result{
			Columns: make(map[string]ir.ColumnID),
			Names:   make(map[ir.ColumnID]string),
		},
	}

	plan, err := c.plan(&doc.Plan, "plan")
	if err != nil {
		return nil, err
	}
	c.result.Plan = plan
	return c.result, nil
}

type planCompiler struct {
	session *engine.Session
	result  *Result
}

func (c *planCompiler) declare(name string) ir.ColumnID {
	id := c.session.Next()
	c.result.Columns[name] = id
	c.result.Names[id] = name
	return id
}

func (c *planCompiler) lookup(name, field string) (ir.ColumnID, error) {
	id, ok := c.result.Columns[name]
	if !ok {
		return 0, &CompileError{Field: field, Message: fmt.Sprintf("undefined column %q", name)}
	}
	return id, nil
}

func (c *planCompiler) plan(p *PlanDef, field string) (queryir.RelExpr, error) {
	switch {
	case p.Scan != nil:
		ids := make([]ir.ColumnID, len(p.Scan.Cols))
		for i, name := range p.Scan.Cols {
			ids[i] = c.declare(name)
		}
		return c.session.Scan(p.Scan.Table, ids), nil

	case p.Select != nil:
		f := field + ".select"
		input, err := c.plan(&p.Select.Input, f+".input")
		if err != nil {
			return nil, err
		}
		preds, err := c.exprs(p.Select.Where, f+".where")
		if err != nil {
			return nil, err
		}
		return c.session.Select(input, preds), nil

	case p.Join != nil:
		f := field + ".join"
		left, err := c.plan(&p.Join.Left, f+".left")
		if err != nil {
			return nil, err
		}
		right, err := c.plan(&p.Join.Right, f+".right")
		if err != nil {
			return nil, err
		}
		preds, err := c.exprs(p.Join.On, f+".on")
		if err != nil {
			return nil, err
		}
		return c.session.Join(left, right, preds), nil

	case p.Project != nil:
		f := field + ".project"
		input, err := c.plan(&p.Project.Input, f+".input")
		if err != nil {
			return nil, err
		}
		var cols ir.ColSet
		for i, name := range p.Project.Cols {
			id, err := c.lookup(name, fmt.Sprintf("%s.cols[%d]", f, i))
			if err != nil {
				return nil, err
			}
			cols.Add(id)
		}
		rel, err := c.session.Project(input, cols)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		return rel, nil

	case p.Map != nil:
		f := field + ".map"
		input, err := c.plan(&p.Map.Input, f+".input")
		if err != nil {
			return nil, err
		}
		assignments := make([]queryir.Assignment, len(p.Map.Assign))
		for i := range p.Map.Assign {
			a := &p.Map.Assign[i]
			e, err := c.expr(&a.Expr, fmt.Sprintf("%s.assign[%d].expr", f, i))
			if err != nil {
				return nil, err
			}
			assignments[i] = queryir.Assign(c.declare(a.Col), e)
		}
		rel, err := c.session.Map(input, assignments)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		return rel, nil

	case p.FlatMap != nil:
		f := field + ".flatmap"
		outer, err := c.plan(&p.FlatMap.Outer, f+".outer")
		if err != nil {
			return nil, err
		}
		inner, err := c.plan(&p.FlatMap.Inner, f+".inner")
		if err != nil {
			return nil, err
		}
		rel, err := c.session.FlatMap(outer, inner)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		return rel, nil

	default:
		return nil, &CompileError{Field: field, Message: "empty plan node"}
	}
}

func (c *planCompiler) exprs(defs []ExprDef, field string) ([]queryir.Expr, error) {
	out := make([]queryir.Expr, len(defs))
	for i := range defs {
		e, err := c.expr(&defs[i], fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (c *planCompiler) expr(e *ExprDef, field string) (queryir.Expr, error) {
	switch {
	case e.Col != nil:
		id, err := c.lookup(*e.Col, field+".col")
		if err != nil {
			return nil, err
		}
		return queryir.Col(id), nil

	case e.Int != nil:
		return queryir.Int(*e.Int), nil

	case e.Eq != nil:
		ops, err := c.exprs(e.Eq, field+".eq")
		if err != nil {
			return nil, err
		}
		return queryir.Eq(ops[0], ops[1]), nil

	case e.Plus != nil:
		ops, err := c.exprs(e.Plus, field+".plus")
		if err != nil {
			return nil, err
		}
		return queryir.Plus(ops[0], ops[1]), nil

	case e.Subquery != nil:
		plan, err := c.plan(e.Subquery, field+".subquery")
		if err != nil {
			return nil, err
		}
		return queryir.SubqueryOf(plan), nil

	default:
		return nil, &CompileError{Field: field, Message: "empty expression"}
	}
}
