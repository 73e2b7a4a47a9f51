package graph

import "strings"

// HasCycle reports whether the graph contains a cycle of any length.
func (g *Graph) HasCycle() bool {
	return g.FindCycle() != nil
}

// FindCycle returns one cycle as a path that starts and ends on the same
// project, or nil when the graph is acyclic.
//
// The walk is seeded from every project, not just the roots, so a cycle that
// no root can reach (or a component that is entirely cyclic and therefore has
// no root) is still found.
func (g *Graph) FindCycle() []string {
	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[string]int, len(g.projects))
	var stack []string

	var visit func(name string) []string
	visit = func(name string) []string {
		state[name] = onStack
		stack = append(stack, name)
		for _, dep := range g.deps[name] {
			switch state[dep] {
			case onStack:
				start := 0
				for i, n := range stack {
					if n == dep {
						start = i
						break
					}
				}
				cycle := append([]string{}, stack[start:]...)
				return append(cycle, dep)
			case unvisited:
				if c := visit(dep); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		return nil
	}

	for _, p := range g.projects {
		if state[p.Name()] != unvisited {
			continue
		}
		if c := visit(p.Name()); c != nil {
			return c
		}
	}
	return nil
}

// Validate returns a *CycleError describing the first cycle found, if any.
func (g *Graph) Validate() error {
	path := g.FindCycle()
	if path == nil {
		return nil
	}
	return &CycleError{From: path[0], To: path[1], Path: path}
}

func formatPath(path []string) string {
	return strings.Join(path, " -> ")
}
