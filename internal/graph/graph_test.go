package graph

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestSort_Chain(t *testing.T) {
	g := Build([]Node{
		{ID: "A", Deps: []string{"B"}},
		{ID: "B", Deps: []string{"C"}},
		{ID: "C"},
	})

	order, err := g.Sort()
	assert.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A"}, order)
}

func TestSort_TieBreakFollowsInputOrder(t *testing.T) {
	g := Build([]Node{
		{ID: "app", Deps: []string{"core", "math"}},
		{ID: "zlib"},
		{ID: "core"},
		{ID: "math", Deps: []string{"zlib"}},
	})

	order, err := g.Sort()
	assert.NoError(t, err)
	assert.Equal(t, []string{"zlib", "core", "math", "app"}, order)
}

func TestSort_ExternalDepsDoNotBlock(t *testing.T) {
	g := Build([]Node{
		{ID: "A", Deps: []string{"/prior/stage/pkg", "B"}},
		{ID: "B", Deps: []string{"/prior/stage/pkg"}},
	})

	assert.Equal(t, 1, g.InDegree("A"))
	assert.Equal(t, 0, g.InDegree("B"))
	assert.Equal(t, []string{"/prior/stage/pkg"}, g.External("B"))

	order, err := g.Sort()
	assert.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, order)
}

func TestSort_DuplicateEdgesCountOnce(t *testing.T) {
	g := Build([]Node{
		{ID: "A", Deps: []string{"B", "B"}},
		{ID: "B"},
	})
	assert.Equal(t, 1, g.InDegree("A"))

	order, err := g.Sort()
	assert.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, order)
}

func TestSort_Cycle(t *testing.T) {
	g := Build([]Node{
		{ID: "free"},
		{ID: "A", Deps: []string{"B", "/elsewhere"}},
		{ID: "B", Deps: []string{"A"}},
	})

	order, err := g.Sort()
	assert.Error(t, err)
	assert.Zero(t, order)
	assert.True(t, errors.Is(err, ErrCycle))

	var cycle *CycleError
	assert.True(t, errors.As(err, &cycle))
	assert.Equal(t, 2, len(cycle.Nodes))
	assert.True(t, cycle.Contains("A"))
	assert.True(t, cycle.Contains("B"))
	assert.False(t, cycle.Contains("free"))

	assert.Equal(t, []string{"B"}, cycle.Nodes[0].Blocking)
	assert.Equal(t, []string{"/elsewhere"}, cycle.Nodes[0].External)
	assert.Contains(t, err.Error(), "-> B (unresolved, in stage)")
	assert.Contains(t, err.Error(), "-> /elsewhere (outside stage)")
}

func TestSort_SelfDependency(t *testing.T) {
	g := Build([]Node{{ID: "A", Deps: []string{"A"}}})

	_, err := g.Sort()
	assert.True(t, errors.Is(err, ErrCycle))
}

func TestSort_Empty(t *testing.T) {
	order, err := Build(nil).Sort()
	assert.NoError(t, err)
	assert.Equal(t, 0, len(order))
}
