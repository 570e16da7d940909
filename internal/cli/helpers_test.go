package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	correlatedSumDoc  = "../compiler/testdata/correlated_sum.cue"
	filterJoinDoc = "../compiler/testdata/filter_join.yaml"
	scenariosDir  = "../harness/testdata/scenarios"
)

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeDoc writes a plan document into a temp dir and returns its path.
func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// decodeResponse decodes a JSON CLI response, decoding Data into data.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()

	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}

const wideSubqueryDoc = `name: wide
plan:
  map:
    input:
      scan: {table: a, cols: [a]}
    assign:
      - col: s
        expr:
          subquery:
            scan: {table: x, cols: [x, y]}
rules: [hoist]
`

const duplicateColumnDoc = `name: dup
plan:
  scan: {table: a, cols: [a, a]}
`
