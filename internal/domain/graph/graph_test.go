package graph

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func amt(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestAddEdgeLatestOverwrites(t *testing.T) {
	g := New(EdgePolicyLatest)
	g.AddEdge("A", "B", amt(10), t0)
	g.AddEdge("A", "B", amt(20), t0.Add(time.Minute))

	require.Equal(t, 1, g.EdgeCount())
	e, ok := g.Edge("A", "B")
	require.True(t, ok)
	assert.True(t, e.Weight.Equal(amt(20)))
	assert.Equal(t, t0.Add(time.Minute), e.Timestamp)
}

func TestAddEdgeAccumulateSums(t *testing.T) {
	g := New(EdgePolicyAccumulate)
	g.AddEdge("A", "B", amt(10), t0)
	g.AddEdge("A", "B", amt(20), t0.Add(time.Minute))

	require.Equal(t, 1, g.EdgeCount())
	e, _ := g.Edge("A", "B")
	assert.True(t, e.Weight.Equal(amt(30)))
	assert.Equal(t, t0.Add(time.Minute), e.Timestamp)
}

func TestNodesKeepInsertionOrder(t *testing.T) {
	g := New("")
	assert.Equal(t, EdgePolicyLatest, g.Policy())

	g.AddEdge("C", "A", amt(1), t0)
	g.AddEdge("B", "C", amt(1), t0)
	g.AddEdge("C", "B", amt(1), t0)

	assert.Equal(t, []string{"C", "A", "B"}, g.Nodes())
	assert.Equal(t, []string{"A", "B"}, g.Successors("C"))
	assert.Nil(t, g.Successors("missing"))
	assert.True(t, g.HasNode("B"))
	assert.False(t, g.HasNode("D"))
}

func TestSelfLoopIsRetained(t *testing.T) {
	g := New(EdgePolicyLatest)
	g.AddEdge("A", "A", amt(5), t0)

	assert.Equal(t, 1, g.NodeCount())
	assert.True(t, g.HasEdge("A", "A"))
}

func TestWeightOfMissingEdgeIsZero(t *testing.T) {
	g := New(EdgePolicyLatest)
	g.AddEdge("A", "B", amt(5), t0)

	assert.True(t, g.Weight("B", "A").IsZero())
	assert.True(t, g.Weight("X", "Y").IsZero())
	assert.True(t, g.Weight("A", "B").Equal(amt(5)))
}

func TestCloneIsIndependent(t *testing.T) {
	g := New(EdgePolicyLatest)
	g.AddEdge("A", "B", amt(5), t0)

	c := g.Clone()
	g.AddEdge("A", "B", amt(7), t0)
	g.AddEdge("B", "C", amt(1), t0)

	assert.Equal(t, 1, c.EdgeCount())
	assert.Equal(t, 2, c.NodeCount())
	assert.True(t, c.Weight("A", "B").Equal(amt(5)))
	assert.False(t, c.HasEdge("B", "C"))
}

func TestEdgesOrder(t *testing.T) {
	g := New(EdgePolicyLatest)
	g.AddEdge("A", "B", amt(1), t0)
	g.AddEdge("B", "A", amt(2), t0)
	g.AddEdge("A", "C", amt(3), t0)

	edges := g.Edges()
	require.Len(t, edges, 3)
	assert.Equal(t, "A", edges[0].From)
	assert.Equal(t, "B", edges[0].To)
	assert.Equal(t, "C", edges[1].To)
	assert.Equal(t, "B", edges[2].From)
}

func TestParseEdgePolicy(t *testing.T) {
	p, err := ParseEdgePolicy("")
	require.NoError(t, err)
	assert.Equal(t, EdgePolicyLatest, p)

	p, err = ParseEdgePolicy(" Accumulate ")
	require.NoError(t, err)
	assert.Equal(t, EdgePolicyAccumulate, p)

	_, err = ParseEdgePolicy("sum")
	assert.Error(t, err)
}

func TestStronglyConnectedComponents(t *testing.T) {
	g := New(EdgePolicyLatest)
	g.AddEdge("A", "B", amt(1), t0)
	g.AddEdge("B", "C", amt(1), t0)
	g.AddEdge("C", "A", amt(1), t0)
	g.AddEdge("C", "D", amt(1), t0)
	g.AddEdge("D", "E", amt(1), t0)
	g.AddEdge("E", "D", amt(1), t0)

	comps := g.StronglyConnectedComponents()
	assert.Equal(t, [][]string{{"A", "B", "C"}, {"D", "E"}}, comps)
}
