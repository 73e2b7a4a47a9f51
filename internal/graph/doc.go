// Package graph builds the inter-package dependency graph of a workspace.
//
// A Graph keeps forward edges (project to its dependencies) and reverse
// edges (project to its dependents) over one set of projects. References to
// names outside the set are dropped, so external registry packages never show
// up as nodes.
//
// # Cycles
//
// Build rejects direct two-node cycles and self-dependencies as it links
// edges. Longer cycles are not visible to that check; FindCycle and Validate
// walk the whole graph (seeded from every node) and report any of them. The
// scheduler calls Validate before it runs, so a cyclic graph never reaches
// traversal.
package graph
