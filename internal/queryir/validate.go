package queryir

import (
	"fmt"

	"github.com/roach88/unnest/internal/ir"
)

// ValidationResult contains the invariant analysis of a plan.
type ValidationResult struct {
	// Valid indicates that no structural invariant is violated.
	Valid bool

	// Decorrelated indicates the plan holds no FlatMap node and no residual
	// Subquery expression, i.e. it uses only ordinary operators.
	Decorrelated bool

	// Violations lists broken invariants. Empty when Valid is true.
	Violations []string
}

// Validate checks a finished plan against the IR invariants:
//  1. free(n) ∩ att(n) = ∅ for every node
//  2. Join children expose disjoint attribute sets
//  3. No Select sits directly on another Select
//  4. Map ids are fresh: not in att(input) and not repeated
//  5. Project columns are a subset of att(input)
//  6. Scan columns are not repeated
//
// Plans built through the engine constructors always pass 3-5; 1, 2 and 6
// depend on callers using one allocator per session.
//
// Validate is a pure function with no side effects.
func Validate(rel RelExpr) ValidationResult {
	v := &validator{violations: []string{}}
	v.validateRel(rel)

	return ValidationResult{
		Valid:        len(v.violations) == 0,
		Decorrelated: v.flatMaps == 0 && !ContainsSubquery(rel),
		Violations:   v.violations,
	}
}

// validator accumulates violations during traversal.
type validator struct {
	violations []string
	flatMaps   int
}

// addViolation appends a violation message.
func (v *validator) addViolation(format string, args ...any) {
	v.violations = append(v.violations, fmt.Sprintf(format, args...))
}

// validateRel recursively validates a plan node and everything below it.
func (v *validator) validateRel(rel RelExpr) {
	if rel == nil {
		v.addViolation("nil plan node")
		return
	}

	if overlap := FreeCols(rel).Intersection(Attributes(rel)); !overlap.Empty() {
		v.addViolation("%s: free columns %s are also attributes", OpName(rel), overlap)
	}

	switch r := rel.(type) {
	case *Scan:
		v.validateScan(r)
	case *Select:
		if _, nested := r.Input.(*Select); nested {
			v.addViolation("select: directly nested select")
		}
	case *Join:
		if overlap := Attributes(r.Left).Intersection(Attributes(r.Right)); !overlap.Empty() {
			v.addViolation("join: children share columns %s", overlap)
		}
	case *Project:
		if missing := r.Cols.Difference(Attributes(r.Input)); !missing.Empty() {
			v.addViolation("project: columns %s not produced by input", missing)
		}
	case *Map:
		v.validateMap(r)
	case *FlatMap:
		v.flatMaps++
	default:
		v.addViolation("unknown plan node type: %T", rel)
		return
	}

	for _, child := range Children(rel) {
		v.validateRel(child)
	}
	for _, e := range Exprs(rel) {
		v.validateExpr(e)
	}
}

// validateScan checks that a scan introduces each column once.
func (v *validator) validateScan(s *Scan) {
	seen := ir.ColSet{}
	for _, id := range s.Cols {
		if seen.Contains(id) {
			v.addViolation("scan %q: column %s listed twice", s.Table, id)
		}
		seen.Add(id)
	}
}

// validateMap checks that every assignment introduces a fresh id.
func (v *validator) validateMap(m *Map) {
	seen := Attributes(m.Input)
	for _, a := range m.Assignments {
		if seen.Contains(a.ID) {
			v.addViolation("map: column %s already defined", a.ID)
		}
		seen.Add(a.ID)
	}
}

// validateExpr descends into subquery plans.
func (v *validator) validateExpr(e Expr) {
	switch expr := e.(type) {
	case *BinaryOp:
		v.validateExpr(expr.Left)
		v.validateExpr(expr.Right)
	case *Subquery:
		v.validateRel(expr.Plan)
	case *ColumnRef, *Literal:
	case nil:
		v.addViolation("nil expression")
	default:
		v.addViolation("unknown expression type: %T", e)
	}
}
