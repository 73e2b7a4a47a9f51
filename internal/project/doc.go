// Package project defines the workspace package as the graph sees it: a
// unique name and the ordered, de-duplicated set of names it depends on.
//
// Manifests declare dependencies in several categories (runtime, dev,
// optional, peer). New merges them in a fixed priority order so that the
// resulting dependency list, and therefore traversal order, does not depend
// on map iteration.
package project
