package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/unnest/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrDocumentNameEmpty = "E101" // name is required
	ErrUnknownRule       = "E102" // rule name not recognized
	ErrPlanShape         = "E103" // plan node must set exactly one operator
	ErrExprShape         = "E104" // expression must set exactly one kind
	ErrDuplicateColumn   = "E105" // column name declared twice
	ErrOperandCount      = "E106" // eq/plus need exactly two operands
	ErrEmptyScan         = "E107" // scan needs a table and columns
	ErrEmptyColumnName   = "E108" // column names must be non-empty
	ErrUndefinedColumn   = "E109" // column referenced before declaration
)

// ValidationError represents a document validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a document's structure and column names.
// Returns all errors found (does not fail-fast).
//
// Names are checked in the order the compiler declares them: scan
// columns when the scan is reached, map targets after their expression.
// A reference must follow its declaration, and names are global to the
// document.
func Validate(doc *Document) []ValidationError {
	v := &docValidator{declared: make(map[string]bool)}

	// E101: name is required
	if strings.TrimSpace(doc.Name) == "" {
		v.add("name", ErrDocumentNameEmpty, "name is required and must be non-empty")
	}

	// E102: rules must be known
	for i, name := range doc.Rules {
		if _, err := ir.ParseRule(name); err != nil {
			v.add(fmt.Sprintf("rules[%d]", i), ErrUnknownRule, err.Error())
		}
	}

	v.plan(&doc.Plan, "plan")
	return v.errs
}

type docValidator struct {
	errs     []ValidationError
	declared map[string]bool
}

func (v *docValidator) add(field, code, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	})
}

func (v *docValidator) declare(name, field string) {
	switch {
	case strings.TrimSpace(name) == "":
		v.add(field, ErrEmptyColumnName, "column name must be non-empty")
	case v.declared[name]:
		v.add(field, ErrDuplicateColumn, "column %q declared twice", name)
	default:
		v.declared[name] = true
	}
}

func (v *docValidator) reference(name, field string) {
	if !v.declared[name] {
		v.add(field, ErrUndefinedColumn, "column %q is not declared before use", name)
	}
}

func (v *docValidator) plan(p *PlanDef, field string) {
	if n := p.setCount(); n != 1 {
		v.add(field, ErrPlanShape, "plan node must set exactly one of scan, select, join, project, map, flatmap (got %d)", n)
		return
	}

	switch {
	case p.Scan != nil:
		f := field + ".scan"
		if strings.TrimSpace(p.Scan.Table) == "" {
			v.add(f+".table", ErrEmptyScan, "table is required")
		}
		if len(p.Scan.Cols) == 0 {
			v.add(f+".cols", ErrEmptyScan, "scan must declare at least one column")
		}
		for i, c := range p.Scan.Cols {
			v.declare(c, fmt.Sprintf("%s.cols[%d]", f, i))
		}

	case p.Select != nil:
		f := field + ".select"
		v.plan(&p.Select.Input, f+".input")
		for i := range p.Select.Where {
			v.expr(&p.Select.Where[i], fmt.Sprintf("%s.where[%d]", f, i))
		}

	case p.Join != nil:
		f := field + ".join"
		v.plan(&p.Join.Left, f+".left")
		v.plan(&p.Join.Right, f+".right")
		for i := range p.Join.On {
			v.expr(&p.Join.On[i], fmt.Sprintf("%s.on[%d]", f, i))
		}

	case p.Project != nil:
		f := field + ".project"
		v.plan(&p.Project.Input, f+".input")
		for i, c := range p.Project.Cols {
			v.reference(c, fmt.Sprintf("%s.cols[%d]", f, i))
		}

	case p.Map != nil:
		f := field + ".map"
		v.plan(&p.Map.Input, f+".input")
		for i := range p.Map.Assign {
			a := &p.Map.Assign[i]
			af := fmt.Sprintf("%s.assign[%d]", f, i)
			v.expr(&a.Expr, af+".expr")
			v.declare(a.Col, af+".col")
		}

	case p.FlatMap != nil:
		f := field + ".flatmap"
		v.plan(&p.FlatMap.Outer, f+".outer")
		v.plan(&p.FlatMap.Inner, f+".inner")
	}
}

func (v *docValidator) expr(e *ExprDef, field string) {
	if n := e.setCount(); n != 1 {
		v.add(field, ErrExprShape, "expression must set exactly one of col, int, eq, plus, subquery (got %d)", n)
		return
	}

	switch {
	case e.Col != nil:
		v.reference(*e.Col, field+".col")
	case e.Int != nil:
	case e.Eq != nil:
		v.operands(e.Eq, field+".eq")
	case e.Plus != nil:
		v.operands(e.Plus, field+".plus")
	case e.Subquery != nil:
		v.plan(e.Subquery, field+".subquery")
	}
}

func (v *docValidator) operands(ops []ExprDef, field string) {
	if len(ops) != 2 {
		v.add(field, ErrOperandCount, "expected exactly two operands, got %d", len(ops))
		return
	}
	for i := range ops {
		v.expr(&ops[i], fmt.Sprintf("%s[%d]", field, i))
	}
}

func (p *PlanDef) setCount() int {
	n := 0
	for _, set := range []bool{
		p.Scan != nil, p.Select != nil, p.Join != nil,
		p.Project != nil, p.Map != nil, p.FlatMap != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

func (e *ExprDef) setCount() int {
	n := 0
	for _, set := range []bool{
		e.Col != nil, e.Int != nil, e.Eq != nil, e.Plus != nil, e.Subquery != nil,
	} {
		if set {
			n++
		}
	}
	return n
}
