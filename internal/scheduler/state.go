package scheduler

import (
	"fmt"
	"monorun/internal/graph"
)

// State is the incremental topological bookkeeping for one traversal: a FIFO
// ready queue and, per node, the number of dependencies not yet completed.
//
// State is not safe for concurrent use. The Scheduler's coordinator is its
// only writer.
type State struct {
	remaining  int
	ready      []string
	pending    map[string]int
	completed  map[string]bool
	dependents func(string) []string
}

// NewState prepares a State for g: every node starts with its dependency
// count as pending and nodes without dependencies are queued in project order.
func NewState(g *graph.Graph) *State {
	names := g.Names()
	s := &State{
		remaining:  len(names),
		pending:    make(map[string]int, len(names)),
		completed:  make(map[string]bool, len(names)),
		dependents: g.DependentsOf,
	}
	for _, name := range names {
		n := len(g.DependenciesOf(name))
		s.pending[name] = n
		if n == 0 {
			s.ready = append(s.ready, name)
		}
	}
	return s
}

// Poll optionally marks one node completed, unlocking dependents whose
// pending count drops to zero, then dequeues up to maximum ready nodes.
//
// Completing a node twice, or one that is not part of the graph, panics.
func (s *State) Poll(maximum int, completed ...string) []string {
	if len(completed) > 1 {
		panic("scheduler: Poll accepts at most one completed node")
	}
	if len(completed) == 1 {
		s.complete(completed[0])
	}

	if maximum <= 0 || len(s.ready) == 0 {
		return nil
	}
	n := min(maximum, len(s.ready))
	out := make([]string, n)
	copy(out, s.ready[:n])
	s.ready = s.ready[n:]
	return out
}

func (s *State) complete(name string) {
	if _, ok := s.pending[name]; !ok {
		panic(fmt.Sprintf("scheduler: completed unknown node %q", name))
	}
	if s.completed[name] {
		panic(fmt.Sprintf("scheduler: node %q completed twice", name))
	}
	s.completed[name] = true
	s.remaining--

	for _, d := range s.dependents(name) {
		s.pending[d]--
		if s.pending[d] == 0 {
			s.ready = append(s.ready, d)
		}
	}
}

// Remaining is the number of nodes not yet completed. It reaches zero exactly
// when every node has been completed once.
func (s *State) Remaining() int {
	return s.remaining
}

// Ready is the number of nodes waiting to be polled.
func (s *State) Ready() int {
	return len(s.ready)
}

// Pending returns how many of name's dependencies have not completed.
func (s *State) Pending(name string) int {
	return s.pending[name]
}

// Order returns the serial traversal order of g: the order a scheduler with
// concurrency 1 visits nodes when every visit continues. Nodes caught in a
// cycle are never reached and are left out.
func Order(g *graph.Graph) []string {
	s := NewState(g)
	order := make([]string, 0, g.Len())
	next := s.Poll(1)
	for len(next) > 0 {
		order = append(order, next[0])
		next = s.Poll(1, next[0])
	}
	return order
}
