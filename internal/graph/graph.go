package graph

import (
	"fmt"
	"monorun/internal/project"
	"slices"
)

// CycleError reports a dependency cycle. Build returns it for direct
// two-node cycles (From depends on To while To already depends on From) and
// for self-dependencies. Path is set when the cycle was found by FindCycle.
type CycleError struct {
	From string
	To   string
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) > 0 {
		return fmt.Sprintf("dependency cycle detected: %s", formatPath(e.Path))
	}
	if e.From == e.To {
		return fmt.Sprintf("dependency cycle detected: %s depends on itself", e.From)
	}
	return fmt.Sprintf("dependency cycle detected: %s and %s depend on each other", e.From, e.To)
}

// DuplicateProjectError reports two projects sharing a name.
type DuplicateProjectError struct {
	Name string
}

func (e *DuplicateProjectError) Error() string {
	return fmt.Sprintf("duplicate project name %q", e.Name)
}

// Graph is the dependency graph over one set of projects. Edges only connect
// projects of the same set; it is immutable after Build.
type Graph struct {
	projects   []*project.Project
	byName     map[string]*project.Project
	deps       map[string][]string
	dependents map[string][]string
}

// Build links every project to the dependencies it declares inside the set.
// Names that match no project are ignored.
func Build(projects []*project.Project) (*Graph, error) {
	g := &Graph{
		projects:   make([]*project.Project, 0, len(projects)),
		byName:     make(map[string]*project.Project, len(projects)),
		deps:       make(map[string][]string, len(projects)),
		dependents: make(map[string][]string, len(projects)),
	}

	for _, p := range projects {
		if p == nil {
			return nil, fmt.Errorf("project list contains nil entry")
		}
		if _, exists := g.byName[p.Name()]; exists {
			return nil, &DuplicateProjectError{Name: p.Name()}
		}
		g.byName[p.Name()] = p
		g.projects = append(g.projects, p)
	}

	for _, p := range g.projects {
		from := p.Name()
		for _, to := range p.Dependencies() {
			if _, ok := g.byName[to]; !ok {
				continue
			}
			if err := g.link(from, to); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

func (g *Graph) link(from, to string) error {
	if from == to {
		return &CycleError{From: from, To: to}
	}
	if slices.Contains(g.deps[to], from) {
		return &CycleError{From: from, To: to}
	}
	if slices.Contains(g.deps[from], to) {
		return nil
	}
	g.deps[from] = append(g.deps[from], to)
	g.dependents[to] = append(g.dependents[to], from)
	return nil
}

// Projects returns every project in input order.
func (g *Graph) Projects() []*project.Project {
	return slices.Clone(g.projects)
}

// Names returns every project name in input order.
func (g *Graph) Names() []string {
	out := make([]string, len(g.projects))
	for i, p := range g.projects {
		out[i] = p.Name()
	}
	return out
}

// Project looks a project up by name.
func (g *Graph) Project(name string) (*project.Project, bool) {
	p, ok := g.byName[name]
	return p, ok
}

func (g *Graph) Len() int {
	return len(g.projects)
}

// DependenciesOf returns the in-set dependencies of name in declaration order.
func (g *Graph) DependenciesOf(name string) []string {
	return slices.Clone(g.deps[name])
}

// DependentsOf returns the projects that directly depend on name, in the
// order their edges were linked.
func (g *Graph) DependentsOf(name string) []string {
	return slices.Clone(g.dependents[name])
}

// Roots returns the projects nothing else in the set depends on.
func (g *Graph) Roots() []string {
	var out []string
	for _, p := range g.projects {
		if len(g.dependents[p.Name()]) == 0 {
			out = append(out, p.Name())
		}
	}
	return out
}

// Leaves returns the projects that depend on nothing in the set.
func (g *Graph) Leaves() []string {
	var out []string
	for _, p := range g.projects {
		if len(g.deps[p.Name()]) == 0 {
			out = append(out, p.Name())
		}
	}
	return out
}
