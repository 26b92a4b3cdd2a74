package graph

import "sort"

// tarjan finds strongly connected components with an explicit call stack.
// Scratch slices are sized to the whole graph and reset only for visited
// members, so repeated calls on shrinking subsets stay linear in the subset.
type tarjan struct {
	succ    [][]int
	index   []int
	low     []int
	onStack []bool
	stack   []int
	next    int
}

type tarjanFrame struct {
	v int
	i int
}

func newTarjan(succ [][]int) *tarjan {
	n := len(succ)
	t := &tarjan{
		succ:    succ,
		index:   make([]int, n),
		low:     make([]int, n),
		onStack: make([]bool, n),
	}
	for i := range t.index {
		t.index[i] = -1
	}
	return t
}

// components returns the SCCs of the subgraph induced by members (mask marks
// membership). Each component is sorted ascending by node id.
func (t *tarjan) components(members []int, mask []bool) [][]int {
	var comps [][]int
	t.next = 0

	for _, root := range members {
		if t.index[root] >= 0 {
			continue
		}
		t.visit(root)
		call := []tarjanFrame{{v: root}}

		for len(call) > 0 {
			top := &call[len(call)-1]
			v := top.v
			if top.i < len(t.succ[v]) {
				w := t.succ[v][top.i]
				top.i++
				if !mask[w] {
					continue
				}
				if t.index[w] < 0 {
					t.visit(w)
					call = append(call, tarjanFrame{v: w})
				} else if t.onStack[w] && t.index[w] < t.low[v] {
					t.low[v] = t.index[w]
				}
				continue
			}

			call = call[:len(call)-1]
			if len(call) > 0 {
				parent := call[len(call)-1].v
				if t.low[v] < t.low[parent] {
					t.low[parent] = t.low[v]
				}
			}
			if t.low[v] == t.index[v] {
				var comp []int
				for {
					w := t.stack[len(t.stack)-1]
					t.stack = t.stack[:len(t.stack)-1]
					t.onStack[w] = false
					comp = append(comp, w)
					if w == v {
						break
					}
				}
				sort.Ints(comp)
				comps = append(comps, comp)
			}
		}
	}

	for _, v := range members {
		t.index[v] = -1
	}
	return comps
}

func (t *tarjan) visit(v int) {
	t.index[v] = t.next
	t.low[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true
}

// StronglyConnectedComponents returns the SCCs of the graph, each listed in
// node insertion order.
func (g *TransactionGraph) StronglyConnectedComponents() [][]string {
	n := len(g.nodes)
	members := make([]int, n)
	mask := make([]bool, n)
	for i := range members {
		members[i] = i
		mask[i] = true
	}
	comps := newTarjan(g.succ).components(members, mask)
	sort.Slice(comps, func(i, j int) bool { return comps[i][0] < comps[j][0] })

	out := make([][]string, len(comps))
	for i, comp := range comps {
		out[i] = g.names(comp)
	}
	return out
}
