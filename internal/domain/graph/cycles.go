package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrSearchBudgetExceeded is returned when cycle enumeration needs more
	// steps than the caller allowed.
	ErrSearchBudgetExceeded = errors.New("cycle search budget exceeded")
	// ErrInvalidCycleBounds rejects a length window that can never match.
	ErrInvalidCycleBounds = errors.New("invalid cycle length bounds")
)

// SimpleCycles enumerates every simple directed cycle of at most maxLen
// nodes (maxLen <= 0 means unbounded). Each cycle starts at its
// earliest-inserted node. Self loops are returned as single-node cycles.
//
// The search follows Johnson's algorithm: repeatedly take a strongly connected
// component, enumerate circuits through its earliest node, drop that node and
// split the remainder into components again. A bounded search never extends a
// path past maxLen nodes. budget caps the number of search steps across the
// whole call; budget <= 0 disables the cap.
func (g *TransactionGraph) SimpleCycles(maxLen, budget int) ([][]string, error) {
	n := len(g.nodes)
	var found [][]int

	succ := make([][]int, n)
	for u := range g.succ {
		for _, v := range g.succ[u] {
			if u == v {
				found = append(found, []int{u})
				continue
			}
			succ[u] = append(succ[u], v)
		}
	}

	if maxLen <= 0 || maxLen >= 2 {
		s := newCycleSearch(succ, maxLen, budget)
		members := make([]int, n)
		for i := range members {
			members[i] = i
			s.mask[i] = true
		}

		queue := s.scc.components(members, s.mask)
		for i := range s.mask {
			s.mask[i] = false
		}

		for len(queue) > 0 {
			comp := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			if len(comp) < 2 {
				continue
			}
			for _, v := range comp {
				s.mask[v] = true
			}

			if err := s.circuits(comp, &found); err != nil {
				return nil, err
			}

			s.mask[comp[0]] = false
			rest := comp[1:]
			sub := s.scc.components(rest, s.mask)
			for _, v := range rest {
				s.mask[v] = false
			}
			queue = append(queue, sub...)
		}
	}

	out := make([][]string, len(found))
	for i, cycle := range found {
		out[i] = g.names(cycle)
	}
	return out, nil
}

type cycleSearch struct {
	succ    [][]int
	maxLen  int
	budget  int
	steps   int
	mask    []bool
	blocked []bool
	blockOf [][]int // Johnson's B sets
	scc     *tarjan
}

type searchFrame struct {
	v int
	i int
}

func newCycleSearch(succ [][]int, maxLen, budget int) *cycleSearch {
	n := len(succ)
	return &cycleSearch{
		succ:    succ,
		maxLen:  maxLen,
		budget:  budget,
		mask:    make([]bool, n),
		blocked: make([]bool, n),
		blockOf: make([][]int, n),
		scc:     newTarjan(succ),
	}
}

func (s *cycleSearch) step() error {
	s.steps++
	if s.budget > 0 && s.steps > s.budget {
		return fmt.Errorf("%w: %d steps", ErrSearchBudgetExceeded, s.budget)
	}
	return nil
}

// circuits appends every cycle through the earliest node of comp. The mask
// must cover exactly the members of comp.
func (s *cycleSearch) circuits(comp []int, found *[][]int) error {
	if s.maxLen > 0 {
		return s.boundedCircuits(comp[0], found)
	}
	return s.johnsonCircuits(comp, found)
}

// boundedCircuits explores simple paths up to maxLen nodes. Nodes on the
// current path are the only blocked ones, so every path is tried once.
func (s *cycleSearch) boundedCircuits(start int, found *[][]int) error {
	path := []int{start}
	s.blocked[start] = true
	stack := []searchFrame{{v: start}}
	defer func() {
		for _, v := range path {
			s.blocked[v] = false
		}
	}()

	for len(stack) > 0 {
		if err := s.step(); err != nil {
			return err
		}
		top := &stack[len(stack)-1]
		if top.i >= len(s.succ[top.v]) {
			s.blocked[top.v] = false
			stack = stack[:len(stack)-1]
			path = path[:len(path)-1]
			continue
		}

		w := s.succ[top.v][top.i]
		top.i++
		if !s.mask[w] {
			continue
		}
		if w == start {
			*found = append(*found, append([]int(nil), path...))
			continue
		}
		if s.blocked[w] || len(path) >= s.maxLen {
			continue
		}
		path = append(path, w)
		s.blocked[w] = true
		stack = append(stack, searchFrame{v: w})
	}
	return nil
}

// johnsonCircuits is the unbounded circuit search with Johnson's blocking
// sets, which keep the work polynomial per emitted cycle.
func (s *cycleSearch) johnsonCircuits(comp []int, found *[][]int) error {
	start := comp[0]
	path := []int{start}
	closed := []bool{false}
	s.blocked[start] = true
	stack := []searchFrame{{v: start}}
	defer s.resetBlocks(comp)

	for len(stack) > 0 {
		if err := s.step(); err != nil {
			return err
		}
		top := &stack[len(stack)-1]
		if top.i < len(s.succ[top.v]) {
			w := s.succ[top.v][top.i]
			top.i++
			if !s.mask[w] {
				continue
			}
			if w == start {
				*found = append(*found, append([]int(nil), path...))
				closed[len(closed)-1] = true
			} else if !s.blocked[w] {
				path = append(path, w)
				closed = append(closed, false)
				s.blocked[w] = true
				stack = append(stack, searchFrame{v: w})
			}
			continue
		}

		stack = stack[:len(stack)-1]
		v := path[len(path)-1]
		path = path[:len(path)-1]
		wasClosed := closed[len(closed)-1]
		closed = closed[:len(closed)-1]

		if wasClosed {
			if len(closed) > 0 {
				closed[len(closed)-1] = true
			}
			s.unblock(v)
			continue
		}
		for _, w := range s.succ[v] {
			if s.mask[w] && !contains(s.blockOf[w], v) {
				s.blockOf[w] = append(s.blockOf[w], v)
			}
		}
	}
	return nil
}

func (s *cycleSearch) unblock(v int) {
	pending := []int{v}
	for len(pending) > 0 {
		u := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if !s.blocked[u] {
			continue
		}
		s.blocked[u] = false
		pending = append(pending, s.blockOf[u]...)
		s.blockOf[u] = s.blockOf[u][:0]
	}
}

func (s *cycleSearch) resetBlocks(comp []int) {
	for _, v := range comp {
		s.blocked[v] = false
		s.blockOf[v] = s.blockOf[v][:0]
	}
}

func contains(ids []int, id int) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
