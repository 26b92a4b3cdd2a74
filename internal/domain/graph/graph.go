// Package graph holds the collapsed transfer graph the detectors read from.
//
// Nodes are addresses, created on first reference and never removed. Each
// ordered address pair keeps at most one edge; how repeated transfers between
// the same pair collapse into that edge is chosen by an EdgePolicy. The
// ledger of individual transfers lives with the detector, so the two can
// diverge: cycle volumes computed here see only the collapsed edge.
package graph

import (
	"fmt"
	"strings"
	"time"

	"chain-forensics/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// EdgePolicy decides how a repeated transfer between the same ordered pair
// updates the existing edge
type EdgePolicy string

const (
	// EdgePolicyLatest overwrites weight and timestamp with the latest transfer.
	EdgePolicyLatest EdgePolicy = "latest"
	// EdgePolicyAccumulate sums weights and keeps the latest timestamp.
	EdgePolicyAccumulate EdgePolicy = "accumulate"
)

// ParseEdgePolicy maps a config value to an EdgePolicy. Empty means latest.
func ParseEdgePolicy(s string) (EdgePolicy, error) {
	switch EdgePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", EdgePolicyLatest:
		return EdgePolicyLatest, nil
	case EdgePolicyAccumulate:
		return EdgePolicyAccumulate, nil
	default:
		return "", fmt.Errorf("unknown edge policy %q", s)
	}
}

type edge struct {
	weight    decimal.Decimal
	timestamp time.Time
}

// TransactionGraph is a directed graph with one edge per ordered address pair.
// It is not safe for concurrent mutation.
type TransactionGraph struct {
	policy    EdgePolicy
	index     map[string]int
	nodes     []string
	succ      [][]int // successors in first-edge order
	edges     []map[int]edge
	edgeCount int
}

// New creates an empty graph with the given collapse policy.
func New(policy EdgePolicy) *TransactionGraph {
	if policy == "" {
		policy = EdgePolicyLatest
	}
	return &TransactionGraph{
		policy: policy,
		index:  make(map[string]int),
	}
}

// Policy returns the edge collapse policy.
func (g *TransactionGraph) Policy() EdgePolicy {
	return g.policy
}

func (g *TransactionGraph) node(addr string) int {
	if id, ok := g.index[addr]; ok {
		return id
	}
	id := len(g.nodes)
	g.index[addr] = id
	g.nodes = append(g.nodes, addr)
	g.succ = append(g.succ, nil)
	g.edges = append(g.edges, make(map[int]edge))
	return id
}

// AddEdge inserts the edge from -> to or updates it according to the policy.
func (g *TransactionGraph) AddEdge(from, to string, weight decimal.Decimal, timestamp time.Time) {
	u := g.node(from)
	v := g.node(to)

	existing, ok := g.edges[u][v]
	if !ok {
		g.succ[u] = append(g.succ[u], v)
		g.edges[u][v] = edge{weight: weight, timestamp: timestamp}
		g.edgeCount++
		return
	}

	switch g.policy {
	case EdgePolicyAccumulate:
		existing.weight = existing.weight.Add(weight)
		existing.timestamp = timestamp
	default:
		existing = edge{weight: weight, timestamp: timestamp}
	}
	g.edges[u][v] = existing
}

// Edge returns the collapsed edge between from and to.
func (g *TransactionGraph) Edge(from, to string) (entity.GraphEdge, bool) {
	u, ok := g.index[from]
	if !ok {
		return entity.GraphEdge{}, false
	}
	v, ok := g.index[to]
	if !ok {
		return entity.GraphEdge{}, false
	}
	e, ok := g.edges[u][v]
	if !ok {
		return entity.GraphEdge{}, false
	}
	return entity.GraphEdge{From: from, To: to, Weight: e.weight, Timestamp: e.timestamp}, true
}

// HasEdge reports whether the edge from -> to exists.
func (g *TransactionGraph) HasEdge(from, to string) bool {
	_, ok := g.Edge(from, to)
	return ok
}

// Weight returns the edge weight, or zero when the edge does not exist.
func (g *TransactionGraph) Weight(from, to string) decimal.Decimal {
	if e, ok := g.Edge(from, to); ok {
		return e.Weight
	}
	return decimal.Zero
}

// HasNode reports whether the address has been referenced by any edge.
func (g *TransactionGraph) HasNode(addr string) bool {
	_, ok := g.index[addr]
	return ok
}

func (g *TransactionGraph) NodeCount() int { return len(g.nodes) }
func (g *TransactionGraph) EdgeCount() int { return g.edgeCount }

// Nodes returns the addresses in insertion order.
func (g *TransactionGraph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

// Successors returns the receivers of addr in first-edge order.
func (g *TransactionGraph) Successors(addr string) []string {
	u, ok := g.index[addr]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.succ[u]))
	for _, v := range g.succ[u] {
		out = append(out, g.nodes[v])
	}
	return out
}

// Edges lists every edge, ordered by source insertion then first-edge order.
func (g *TransactionGraph) Edges() []entity.GraphEdge {
	out := make([]entity.GraphEdge, 0, g.edgeCount)
	for u, succ := range g.succ {
		for _, v := range succ {
			e := g.edges[u][v]
			out = append(out, entity.GraphEdge{
				From:      g.nodes[u],
				To:        g.nodes[v],
				Weight:    e.weight,
				Timestamp: e.timestamp,
			})
		}
	}
	return out
}

// Clone returns a deep copy that shares nothing with g.
func (g *TransactionGraph) Clone() *TransactionGraph {
	c := &TransactionGraph{
		policy:    g.policy,
		index:     make(map[string]int, len(g.index)),
		nodes:     append([]string(nil), g.nodes...),
		succ:      make([][]int, len(g.succ)),
		edges:     make([]map[int]edge, len(g.edges)),
		edgeCount: g.edgeCount,
	}
	for addr, id := range g.index {
		c.index[addr] = id
	}
	for u := range g.succ {
		c.succ[u] = append([]int(nil), g.succ[u]...)
		m := make(map[int]edge, len(g.edges[u]))
		for v, e := range g.edges[u] {
			m[v] = e
		}
		c.edges[u] = m
	}
	return c
}

func (g *TransactionGraph) names(ids []int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = g.nodes[id]
	}
	return out
}
