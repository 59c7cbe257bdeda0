package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marker(id string, lat, lng float64) Marker {
	return Marker{ID: id, Kind: MarkerFire, Lat: lat, Lng: lng, SizePx: 35, Color: "#D32F2F"}
}

func TestReconcilerInitialApplyAddsEverything(t *testing.T) {
	r := NewReconciler()
	ops := r.Apply([]Marker{marker("b", 1, 1), marker("a", 2, 2)})

	require.Len(t, ops, 2)
	assert.Equal(t, OpAdd, ops[0].Kind)
	assert.Equal(t, "a", ops[0].ID, "ops are ordered by marker id")
	assert.Equal(t, "b", ops[1].ID)
}

func TestReconcilerReapplySameStateIsEmpty(t *testing.T) {
	r := NewReconciler()
	desired := []Marker{marker("a", 2, 2), marker("b", 1, 1)}
	r.Apply(desired)
	assert.Empty(t, r.Apply(desired))
}

func TestReconcilerDiffs(t *testing.T) {
	r := NewReconciler()
	r.Apply([]Marker{marker("a", 2, 2), marker("b", 1, 1), marker("c", 3, 3)})

	moved := marker("a", 2.5, 2.5)
	ops := r.Apply([]Marker{moved, marker("b", 1, 1), marker("d", 4, 4)})

	require.Len(t, ops, 3)
	assert.Equal(t, Op{Kind: OpMove, ID: "a", Marker: moved}, ops[0])
	assert.Equal(t, Op{Kind: OpRemove, ID: "c"}, ops[1])
	assert.Equal(t, OpAdd, ops[2].Kind)
	assert.Equal(t, "d", ops[2].ID)
}

func TestReconcilerStyleChangeEmitsMove(t *testing.T) {
	r := NewReconciler()
	m := marker("a", 2, 2)
	r.Apply([]Marker{m})

	m.Color = "#689F38"
	m.Badge = "45%"
	ops := r.Apply([]Marker{m})

	require.Len(t, ops, 1)
	assert.Equal(t, OpMove, ops[0].Kind)
	assert.Equal(t, "45%", ops[0].Marker.Badge)
}

func TestReconcilerVisibilityToggle(t *testing.T) {
	r := NewReconciler()
	r.Apply([]Marker{marker("a", 2, 2), marker("b", 1, 1)})

	ops := r.SetVisible(false)
	require.Len(t, ops, 2)
	for _, op := range ops {
		assert.Equal(t, OpSetVisibility, op.Kind)
		assert.False(t, op.Visible)
	}

	assert.Empty(t, r.SetVisible(false), "repeating the current state is a no-op")

	ops = r.SetVisible(true)
	require.Len(t, ops, 2)
	assert.True(t, ops[0].Visible)
	assert.Equal(t, 2, r.Rendered(), "visibility toggles never drop markers")
}
