package project

import (
	"errors"
	"strings"
)

// Kind is a dependency category as declared in a package manifest.
type Kind string

const (
	KindRuntime  Kind = "dependencies"
	KindDev      Kind = "devDependencies"
	KindOptional Kind = "optionalDependencies"
	KindPeer     Kind = "peerDependencies"
)

// Kinds lists every dependency category in the order New merges them.
var Kinds = []Kind{KindRuntime, KindDev, KindOptional, KindPeer}

// ParseKind accepts a manifest field name ("devDependencies") or its short
// form ("dev").
func ParseKind(raw string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "dependencies", "runtime", "prod":
		return KindRuntime, true
	case "devdependencies", "dev":
		return KindDev, true
	case "optionaldependencies", "optional":
		return KindOptional, true
	case "peerdependencies", "peer":
		return KindPeer, true
	}
	return "", false
}

// Project is a named package and the names it depends on. It is immutable
// once built.
type Project struct {
	name         string
	dependencies []string
}

// New builds a Project from per-kind dependency lists. Kinds are merged in
// Kinds order; a name listed under several kinds (or twice under one) keeps
// its first position.
func New(name string, deps map[Kind][]string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("project name must not be empty")
	}

	seen := make(map[string]struct{})
	var merged []string
	for _, k := range Kinds {
		for _, d := range deps[k] {
			d = strings.TrimSpace(d)
			if d == "" {
				continue
			}
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			merged = append(merged, d)
		}
	}

	return &Project{name: name, dependencies: merged}, nil
}

// MustNew is New for fixtures and tests; it panics on an empty name.
func MustNew(name string, deps ...string) *Project {
	p, err := New(name, map[Kind][]string{KindRuntime: deps})
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Project) Name() string {
	return p.name
}

// Dependencies returns the merged dependency names in declaration order.
func (p *Project) Dependencies() []string {
	out := make([]string, len(p.dependencies))
	copy(out, p.dependencies)
	return out
}

func (p *Project) String() string {
	return p.name
}
