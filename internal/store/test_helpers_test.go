package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/unnest/internal/ir"
	"github.com/roach88/unnest/internal/queryir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord builds a record for scan table [cols...].
func createTestRecord(t *testing.T, name, table string, cols ...ir.ColumnID) PlanRecord {
	t.Helper()
	rec, err := NewPlanRecord(name, "test-session", []ir.Rule{ir.RuleHoist}, &queryir.Scan{Table: table, Cols: cols})
	if err != nil {
		t.Fatalf("NewPlanRecord() failed: %v", err)
	}
	return rec
}
