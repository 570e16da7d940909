package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoldenPath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "filter_join.golden"),
		GoldenPath(filepath.Join("scenarios", "filter_join.yaml")))
}

func TestSnapshot(t *testing.T) {
	r := NewResult()
	r.Rendered = "scan a [@0]\n"
	assert.Equal(t, "scan a [@0]\n", string(Snapshot(r)))

	r.BuildError = "plan.map: boom"
	assert.Equal(t, "error: plan.map: boom\n", string(Snapshot(r)))
}

func TestUpdateAndCompareGolden(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golden", "x.golden")
	r := NewResult()
	r.Rendered = "scan a [@0]\n"

	_, err := CompareGolden(r, path)
	require.Error(t, err, "missing golden file")

	require.NoError(t, UpdateGolden(r, path))

	match, err := CompareGolden(r, path)
	require.NoError(t, err)
	assert.True(t, match)

	r.Rendered = "scan b [@0]\n"
	match, err = CompareGolden(r, path)
	require.NoError(t, err)
	assert.False(t, match)
}
