package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/unnest/internal/engine"
	"github.com/roach88/unnest/internal/ir"
	"github.com/roach88/unnest/internal/queryir"
	"github.com/roach88/unnest/internal/render"
	"github.com/roach88/unnest/internal/testutil"
)

func newSession(rules ...ir.Rule) *engine.Session {
	return engine.New(
		engine.WithIDGenerator(testutil.NewFixedSessionGenerator("compiler-test")),
		engine.WithRules(rules...),
	)
}

func compileFile(t *testing.T, path string, rules ...ir.Rule) *Result {
	t.Helper()
	doc, err := LoadDocument(path)
	require.NoError(t, err)
	res, err := Compile(doc, newSession(rules...))
	require.NoError(t, err)
	return res
}

func TestCompile_CorrelatedSum_Decorrelated(t *testing.T) {
	res := compileFile(t, "testdata/correlated_sum.cue", ir.RuleHoist, ir.RuleDecorrelate)

	want := `project {@0, @1, @5}
  map @5 := @6 + @7
    map @7 := @4
      project {@0, @1, @4, @6}
        map @4 := @2 + @0
          join
            map @6 := 4
              scan a [@0, @1]
            project {@2}
              scan x [@2, @3]
`
	assert.Equal(t, want, render.Render(res.Plan))

	check := queryir.Validate(res.Plan)
	assert.True(t, check.Valid, check.Violations)
	assert.True(t, check.Decorrelated)
}

func TestCompile_ColumnsFollowDeclarationOrder(t *testing.T) {
	res := compileFile(t, "testdata/correlated_sum.yaml")

	assert.Equal(t, map[string]ir.ColumnID{
		"a": 0, "b": 1, "x": 2, "y": 3, "t": 4, "s": 5,
	}, res.Columns)
	for name, id := range res.Columns {
		assert.Equal(t, name, res.Names[id])
	}
}

func TestCompile_CUEAndYAMLAgree(t *testing.T) {
	rules := []ir.Rule{ir.RuleHoist, ir.RuleDecorrelate}
	fromCUE := compileFile(t, "testdata/correlated_sum.cue", rules...)
	fromYAML := compileFile(t, "testdata/correlated_sum.yaml", rules...)

	d1, err := queryir.Digest(fromCUE.Plan)
	require.NoError(t, err)
	d2, err := queryir.Digest(fromYAML.Plan)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestCompile_NoRulesKeepsSubquery(t *testing.T) {
	res := compileFile(t, "testdata/correlated_sum.cue")

	m, ok := res.Plan.(*queryir.Map)
	require.True(t, ok, "root should be a map, got %T", res.Plan)
	require.Len(t, m.Assignments, 1)
	assert.True(t, queryir.HasSubquery(m.Assignments[0].Expr))
	assert.False(t, queryir.Validate(res.Plan).Decorrelated)
}

func TestCompile_FilterJoin(t *testing.T) {
	res := compileFile(t, "testdata/filter_join.yaml")

	want := `join @0 = @2
  select @0 = 100
    scan a [@0, @1]
  select @3 = 200
    scan x [@2, @3]
`
	assert.Equal(t, want, render.Render(res.Plan))
}

func TestCompile_ValidationErrorReturned(t *testing.T) {
	doc := mustYAML(t, "name: x\nplan: {scan: {table: a, cols: [a, a]}}")

	_, err := Compile(doc, newSession())
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ErrDuplicateColumn, ve.Code)
}

func TestCompile_ArityErrorIsWrapped(t *testing.T) {
	doc := mustYAML(t, `
name: wide_subquery
plan:
  map:
    input: {scan: {table: a, cols: [a]}}
    assign:
      - col: s
        expr:
          subquery:
            scan: {table: x, cols: [x, y]}
`)

	_, err := Compile(doc, newSession(ir.RuleHoist))
	require.Error(t, err)
	assert.True(t, engine.IsArityError(err))
	assert.Contains(t, err.Error(), "plan.map")
}

func TestCompile_NotImplementedForEquality(t *testing.T) {
	doc := mustYAML(t, `
name: eq_subquery
plan:
  map:
    input: {scan: {table: a, cols: [a]}}
    assign:
      - col: s
        expr:
          eq:
            - {col: a}
            - subquery:
                scan: {table: x, cols: [x]}
`)

	_, err := Compile(doc, newSession(ir.RuleHoist))
	require.Error(t, err)
	assert.True(t, engine.IsNotImplemented(err))
}

func TestCompile_ExplicitFlatMap(t *testing.T) {
	doc := mustYAML(t, `
name: apply
plan:
  flatmap:
    outer: {scan: {table: a, cols: [a]}}
    inner:
      select:
        input: {scan: {table: x, cols: [x]}}
        where: [{eq: [{col: x}, {col: a}]}]
`)

	res, err := Compile(doc, newSession(ir.RuleDecorrelate))
	require.NoError(t, err)

	// The inner select is correlated and is neither a project nor a map.
	_, ok := res.Plan.(*queryir.FlatMap)
	assert.True(t, ok, "got %T", res.Plan)

	res, err = Compile(doc, newSession())
	require.NoError(t, err)
	_, ok = res.Plan.(*queryir.FlatMap)
	assert.True(t, ok)
}
