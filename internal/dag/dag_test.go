package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNode(t *testing.T) {
	g := New()
	g.AddNode("a")
	g.AddNode("b")
	g.AddNode("a") // duplicate is a no-op
	assert.Equal(t, 2, g.Len())
}

func TestAddEdge(t *testing.T) {
	g := New()
	g.AddNode("a")
	g.AddNode("b")

	require.NoError(t, g.AddEdge("a", "b"))

	assert.Error(t, g.AddEdge("a", "a"), "self edges are rejected")
	assert.Error(t, g.AddEdge("missing", "b"))
	assert.Error(t, g.AddEdge("a", "missing"))
}

func TestDetectCycles(t *testing.T) {
	t.Run("acyclic", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		g.AddNode("c")
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "c"))
		require.NoError(t, g.AddEdge("a", "c"))

		assert.NoError(t, g.DetectCycles())
	})

	t.Run("cyclic", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		g.AddNode("c")
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "c"))
		require.NoError(t, g.AddEdge("c", "a"))

		err := g.DetectCycles()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cycle detected")
	})
}

func TestSort(t *testing.T) {
	g := New()
	for _, id := range []string{"d", "c", "b", "a"} {
		g.AddNode(id)
	}
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))
	require.NoError(t, g.AddEdge("a", "d"))

	sorted, err := g.Sort()
	require.NoError(t, err)
	require.Len(t, sorted, 4)

	pos := make(map[string]int, len(sorted))
	for i, id := range sorted {
		pos[id] = i
	}
	assert.Less(t, pos["a"], pos["b"])
	assert.Less(t, pos["b"], pos["c"])
	assert.Less(t, pos["a"], pos["d"])
}

func TestSortIsDeterministic(t *testing.T) {
	build := func() *Graph {
		g := New()
		for _, id := range []string{"w", "x", "y", "z"} {
			g.AddNode(id)
		}
		// w, x and y are all unconstrained; insertion order must win.
		require.NoError(t, g.AddEdge("x", "z"))
		return g
	}

	first, err := build().Sort()
	require.NoError(t, err)
	assert.Equal(t, []string{"w", "x", "y", "z"}, first)

	for i := 0; i < 20; i++ {
		next, err := build().Sort()
		require.NoError(t, err)
		assert.Equal(t, first, next)
	}
}

func TestSortCycleError(t *testing.T) {
	g := New()
	g.AddNode("a")
	g.AddNode("b")
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "a"))

	_, err := g.Sort()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle detected")
}
