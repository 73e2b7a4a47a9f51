package workspace

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Selection narrows the discovered packages.
type Selection struct {
	Include []string
	Exclude []string
	IfFile  []string
	IfDir   []string
}

// Filter keeps the packages that pass every selection criterion, preserving
// input order.
func Filter(pkgs []Package, sel Selection) []Package {
	var filtered []Package

	for _, p := range pkgs {
		// If Include is set, must match at least one
		if len(sel.Include) > 0 && !matchesAnyPattern(sel.Include, p.Name) {
			continue
		}

		// If Exclude is set, must not match any
		if len(sel.Exclude) > 0 && matchesAnyPattern(sel.Exclude, p.Name) {
			continue
		}

		if !allExist(p.Dir, sel.IfFile, false) || !allExist(p.Dir, sel.IfDir, true) {
			continue
		}

		filtered = append(filtered, p)
	}

	return filtered
}

func allExist(dir string, rels []string, wantDir bool) bool {
	for _, rel := range rels {
		rel = strings.TrimSpace(rel)
		if rel == "" {
			continue
		}
		info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil || info.IsDir() != wantDir {
			return false
		}
	}
	return true
}

func matchesAnyPattern(patterns []string, name string) bool {
	for _, p := range patterns {
		if matchPattern(p, name) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, name string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}
	// A pattern with a scope component ("@acme/*") matches the full name.
	// Otherwise match the unscoped part so "*-service" works across scopes.
	if strings.Contains(pattern, "/") {
		matched, _ := path.Match(pattern, name)
		return matched
	}
	short := name
	if i := strings.LastIndex(name, "/"); i >= 0 {
		short = name[i+1:]
	}
	matched, _ := path.Match(pattern, short)
	return matched
}
