package engine

import (
	"context"
	"fmt"
	"monorun/internal/config"
	"monorun/internal/graph"
	"monorun/internal/workspace"
)

// Plan is the selected packages and the graph over them.
type Plan struct {
	Packages []workspace.Package
	Graph    *graph.Graph
}

// LoadPlan discovers the workspace, applies the selection and builds a
// validated dependency graph.
func LoadPlan(ctx context.Context, cfg *config.Config) (*Plan, error) {
	globs := cfg.Workspace.Packages
	if len(globs) == 0 {
		fromRoot, err := workspace.Globs(cfg.Workspace.Root)
		if err != nil {
			return nil, fmt.Errorf("read root manifest: %w", err)
		}
		globs = fromRoot
	}

	pkgs, err := workspace.Discover(ctx, cfg.Workspace.Root, globs)
	if err != nil {
		return nil, fmt.Errorf("discover packages: %w", err)
	}

	pkgs = workspace.Filter(pkgs, workspace.Selection{
		Include: cfg.Selection.Include,
		Exclude: cfg.Selection.Exclude,
		IfFile:  cfg.Selection.IfFile,
		IfDir:   cfg.Selection.IfDir,
	})

	projects, err := workspace.Projects(pkgs, cfg.DependencyKinds())
	if err != nil {
		return nil, err
	}
	g, err := graph.Build(projects)
	if err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	return &Plan{Packages: pkgs, Graph: g}, nil
}
