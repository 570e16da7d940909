package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/unnest/internal/ir"
)

func TestLoadDocument_CUE(t *testing.T) {
	doc, err := LoadDocument(filepath.Join("testdata", "correlated_sum.cue"))
	require.NoError(t, err)

	assert.Equal(t, "correlated_sum", doc.Name)
	assert.Equal(t, []string{"hoist", "decorrelate"}, doc.Rules)
	require.NotNil(t, doc.Plan.Map)
	require.NotNil(t, doc.Plan.Map.Input.Scan)
	assert.Equal(t, "a", doc.Plan.Map.Input.Scan.Table)
	assert.Equal(t, []string{"a", "b"}, doc.Plan.Map.Input.Scan.Cols)

	require.Len(t, doc.Plan.Map.Assign, 1)
	assign := doc.Plan.Map.Assign[0]
	assert.Equal(t, "s", assign.Col)
	require.Len(t, assign.Expr.Plus, 2)
	require.NotNil(t, assign.Expr.Plus[0].Int)
	assert.Equal(t, int64(4), *assign.Expr.Plus[0].Int)
	require.NotNil(t, assign.Expr.Plus[1].Subquery)
	assert.NotNil(t, assign.Expr.Plus[1].Subquery.Project)
}

func TestLoadDocument_YAMLMatchesCUE(t *testing.T) {
	fromCUE, err := LoadDocument(filepath.Join("testdata", "correlated_sum.cue"))
	require.NoError(t, err)
	fromYAML, err := LoadDocument(filepath.Join("testdata", "correlated_sum.yaml"))
	require.NoError(t, err)

	assert.Equal(t, fromCUE, fromYAML)
}

func TestLoadDocument_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	_, err := LoadDocument(path)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "file", ce.Field)
	assert.Contains(t, ce.Message, ".json")
}

func TestLoadDocument_Missing(t *testing.T) {
	_, err := LoadDocument(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read document")
}

func TestParseYAML_RejectsUnknownFields(t *testing.T) {
	_, err := ParseYAML([]byte(`
name: bad
plan:
  scan: {table: a, cols: [a], alias: b}
`))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "yaml", ce.Field)
	assert.Contains(t, ce.Message, "alias")
}

func TestParseCUE_SyntaxErrorHasPosition(t *testing.T) {
	_, err := ParseCUE([]byte("name: \"x\"\nplan: scan: {table: \n"), "broken.cue")
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "cue", ce.Field)
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestParseCUE_RejectsIncompleteValues(t *testing.T) {
	_, err := ParseCUE([]byte(`
name: string
plan: scan: {table: "a", cols: ["a"]}
`), "incomplete.cue")
	require.Error(t, err)
}

func TestParsedRules(t *testing.T) {
	doc := &Document{Rules: []string{"decorrelate", "hoist"}}
	rules, err := doc.ParsedRules()
	require.NoError(t, err)
	assert.Equal(t, []ir.Rule{ir.RuleDecorrelate, ir.RuleHoist}, rules)

	doc.Rules = []string{"inline"}
	_, err = doc.ParsedRules()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rules")
}

func TestCompileError_Format(t *testing.T) {
	err := &CompileError{Field: "plan", Message: "bad"}
	assert.Equal(t, "plan: bad", err.Error())
}
