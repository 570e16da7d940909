package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/unnest/internal/ir"
)

func TestEncode_Canonical(t *testing.T) {
	rel := &Map{
		Input: &Select{
			Input:      &Scan{Table: "a", Cols: []ir.ColumnID{0, 1}},
			Predicates: []Expr{Eq(Col(0), Int(7))},
		},
		Assignments: []Assignment{Assign(2, Plus(Col(0), Col(1)))},
	}

	b, err := ir.MarshalCanonical(Encode(rel))
	require.NoError(t, err)

	want := `{"assignments":[{"expr":{"left":{"col":0},"op":"+","right":{"col":1}},"id":2}],` +
		`"input":{"input":{"cols":[0,1],"op":"scan","table":"a"},"op":"select",` +
		`"predicates":[{"left":{"col":0},"op":"=","right":{"int":7}}]},"op":"map"}`
	assert.Equal(t, want, string(b))
}

func TestEncode_ProjectColumnsSorted(t *testing.T) {
	rel := &Project{
		Input: &Scan{Table: "a", Cols: []ir.ColumnID{0, 1, 2}},
		Cols:  ir.MakeColSet(2, 0),
	}
	enc := Encode(rel)
	assert.Equal(t, []any{ir.ColumnID(0), ir.ColumnID(2)}, enc["cols"])
}

func TestDigest(t *testing.T) {
	build := func(table string) RelExpr {
		return &FlatMap{
			Outer: &Scan{Table: table, Cols: []ir.ColumnID{0}},
			Inner: &Project{
				Input: &Map{
					Input:       &Scan{Table: "x", Cols: []ir.ColumnID{1}},
					Assignments: []Assignment{Assign(2, Plus(Col(1), Col(0)))},
				},
				Cols: ir.MakeColSet(2),
			},
		}
	}

	d1, err := Digest(build("a"))
	require.NoError(t, err)
	d2, err := Digest(build("a"))
	require.NoError(t, err)
	d3, err := Digest(build("b"))
	require.NoError(t, err)

	assert.Len(t, d1, 64)
	assert.Equal(t, d1, d2, "structurally equal plans share a digest")
	assert.NotEqual(t, d1, d3)
}

func TestEncodeExpr_Subquery(t *testing.T) {
	enc := EncodeExpr(SubqueryOf(&Scan{Table: "b", Cols: []ir.ColumnID{4}}))
	inner, ok := enc["subquery"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "scan", inner["op"])
}
