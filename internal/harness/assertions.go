package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/unnest/internal/ir"
	"github.com/roach88/unnest/internal/queryir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Trace    []string // Rewrites fired, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nRule trace:\n")
	for i, name := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, name)
	}

	return buf.String()
}

func (r *Result) fail(assertion Assertion, expected, actual string) error {
	return &AssertionError{
		Type:     assertion.Type,
		Expected: expected,
		Actual:   actual,
		Trace:    r.Trace,
	}
}

// assertRootOp checks the operator at the root of the plan.
func assertRootOp(r *Result, assertion Assertion) error {
	if got := queryir.OpName(r.plan); got != assertion.Op {
		return r.fail(assertion, "root operator "+assertion.Op, "root operator "+got)
	}
	return nil
}

// assertOpCount checks how many nodes of an operator the plan holds,
// counting plans nested in subqueries.
func assertOpCount(r *Result, assertion Assertion) error {
	got := queryir.CountOps(r.plan)[assertion.Op]
	if got != *assertion.Count {
		return r.fail(assertion,
			fmt.Sprintf("%d %s node(s)", *assertion.Count, assertion.Op),
			fmt.Sprintf("%d %s node(s)", got, assertion.Op))
	}
	return nil
}

// assertAttributes compares att(root) with the expected names as sets.
func assertAttributes(r *Result, assertion Assertion) error {
	var got []string
	queryir.Attributes(r.plan).ForEach(func(id ir.ColumnID) {
		got = append(got, r.ColumnName(id))
	})
	want := append([]string(nil), assertion.Cols...)
	sort.Strings(got)
	sort.Strings(want)

	if strings.Join(got, ",") != strings.Join(want, ",") {
		return r.fail(assertion,
			fmt.Sprintf("attributes %v", want),
			fmt.Sprintf("attributes %v", got))
	}
	return nil
}

// assertDecorrelated checks for leftover dependent joins or subqueries.
func assertDecorrelated(r *Result, assertion Assertion) error {
	want := assertion.Value == nil || *assertion.Value
	if got := queryir.Validate(r.plan).Decorrelated; got != want {
		counts := queryir.CountOps(r.plan)
		return r.fail(assertion,
			fmt.Sprintf("decorrelated=%t", want),
			fmt.Sprintf("decorrelated=%t (flatmap nodes: %d, subquery present: %t)",
				got, counts[queryir.OpNameFlatMap], queryir.ContainsSubquery(r.plan)))
	}
	return nil
}

// assertValid runs the invariant validator.
func assertValid(r *Result, assertion Assertion) error {
	want := assertion.Value == nil || *assertion.Value
	check := queryir.Validate(r.plan)
	if check.Valid != want {
		return r.fail(assertion,
			fmt.Sprintf("valid=%t", want),
			fmt.Sprintf("valid=%t %v", check.Valid, check.Violations))
	}
	return nil
}

// assertRuleFired checks the session trace. Without a count the rule must
// fire at least once.
func assertRuleFired(r *Result, assertion Assertion) error {
	got := 0
	for _, name := range r.Trace {
		if name == assertion.Rule {
			got++
		}
	}

	if assertion.Count == nil {
		if got == 0 {
			return r.fail(assertion, assertion.Rule+" fired", "not found in trace")
		}
		return nil
	}

	if got != *assertion.Count {
		return r.fail(assertion,
			fmt.Sprintf("%s fired %d time(s)", assertion.Rule, *assertion.Count),
			fmt.Sprintf("fired %d time(s)", got))
	}
	return nil
}

// assertError checks that the build failed with the given rewrite code.
func assertError(r *Result, assertion Assertion) error {
	if r.BuildError == "" {
		return r.fail(assertion, "build error "+assertion.Code, "build succeeded")
	}
	if r.errorCode != assertion.Code {
		return r.fail(assertion, "build error "+assertion.Code, r.BuildError)
	}
	return nil
}

// planAssertion reports whether an assertion type inspects the built plan.
func planAssertion(typ string) bool {
	return typ != AssertError && typ != AssertRuleFired
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
//
// Plan assertions against a failed build are reported as failures rather
// than evaluated.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		if result.plan == nil && planAssertion(assertion.Type) {
			errors = append(errors, fmt.Sprintf("assertion[%d]: %s needs a plan but the build failed", i, assertion.Type))
			continue
		}

		var err error
		switch assertion.Type {
		case AssertRootOp:
			err = assertRootOp(result, assertion)
		case AssertOpCount:
			err = assertOpCount(result, assertion)
		case AssertAttributes:
			err = assertAttributes(result, assertion)
		case AssertDecorrelated:
			err = assertDecorrelated(result, assertion)
		case AssertValid:
			err = assertValid(result, assertion)
		case AssertRuleFired:
			err = assertRuleFired(result, assertion)
		case AssertError:
			err = assertError(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
