package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"monorun/internal/project"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrNoPackageGlobs is returned when neither the caller nor the root
// package.json names any package globs.
var ErrNoPackageGlobs = errors.New("no package globs: pass --packages, set packages in monorun.yaml, or add \"workspaces\" to the root package.json")

const discoveryParallelism = 8

// Package is one workspace member.
type Package struct {
	Name     string
	Dir      string
	Manifest *Manifest
}

// Project builds the graph node for the package using only the selected
// dependency kinds.
func (p Package) Project(kinds []project.Kind) (*project.Project, error) {
	deps := make(map[project.Kind][]string, len(kinds))
	for _, k := range kinds {
		deps[k] = p.Manifest.dependencies(k).Names
	}
	return project.New(p.Name, deps)
}

func (p Package) HasScript(name string) bool {
	return p.Manifest.HasScript(name)
}

func (m *Manifest) dependencies(k project.Kind) Dependencies {
	switch k {
	case project.KindRuntime:
		return m.Dependencies
	case project.KindDev:
		return m.DevDependencies
	case project.KindOptional:
		return m.OptionalDependencies
	case project.KindPeer:
		return m.PeerDependencies
	}
	return Dependencies{}
}

// Globs returns the package globs declared by the root package.json
// "workspaces" field. A missing root manifest yields no globs.
func Globs(root string) ([]string, error) {
	m, err := ReadManifest(filepath.Join(root, ManifestFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return []string(m.Workspaces), nil
}

// Discover resolves globs relative to root and returns every matched
// directory containing a package.json, sorted by directory.
func Discover(ctx context.Context, root string, globs []string) ([]Package, error) {
	if len(globs) == 0 {
		return nil, ErrNoPackageGlobs
	}

	loader := &manifestLoader{}
	var (
		mu    sync.Mutex
		byDir = make(map[string]Package)
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(discoveryParallelism)

	for _, pattern := range globs {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if filepath.IsAbs(pattern) {
			return nil, fmt.Errorf("package glob %q must be relative to the workspace root", pattern)
		}
		matches, err := filepath.Glob(filepath.Join(root, filepath.FromSlash(pattern)))
		if err != nil {
			return nil, fmt.Errorf("invalid package glob %q: %w", pattern, err)
		}

		for _, dir := range matches {
			dir := dir
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				info, err := os.Stat(dir)
				if err != nil || !info.IsDir() {
					return nil
				}
				manifestPath := filepath.Join(dir, ManifestFile)
				if _, err := os.Stat(manifestPath); err != nil {
					return nil
				}
				m, err := loader.Load(manifestPath)
				if err != nil {
					return err
				}
				name := strings.TrimSpace(m.Name)
				if name == "" {
					return fmt.Errorf("%s: missing \"name\"", manifestPath)
				}

				mu.Lock()
				byDir[filepath.Clean(dir)] = Package{Name: name, Dir: filepath.Clean(dir), Manifest: m}
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	pkgs := make([]Package, 0, len(byDir))
	for _, p := range byDir {
		pkgs = append(pkgs, p)
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Dir < pkgs[j].Dir })
	return pkgs, nil
}

// Projects converts packages into graph nodes, preserving order.
func Projects(pkgs []Package, kinds []project.Kind) ([]*project.Project, error) {
	out := make([]*project.Project, 0, len(pkgs))
	for _, p := range pkgs {
		proj, err := p.Project(kinds)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Dir, err)
		}
		out = append(out, proj)
	}
	return out, nil
}
