// Package workspace finds the packages of a JavaScript monorepo and turns
// their package.json manifests into graph projects.
package workspace
