package config

import (
	"errors"
	"fmt"
	"io/fs"
	"monorun/internal/flags"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk workspace file (monorun.yaml). Every field is optional;
// unset fields leave the corresponding Config value alone.
type File struct {
	Packages        []string `yaml:"packages"`
	PackageManager  string   `yaml:"packageManager"`
	DependencyTypes []string `yaml:"dependencyTypes"`
	Concurrency     *int     `yaml:"concurrency"`
	KeepGoing       *bool    `yaml:"keepGoing"`
	Exclude         []string `yaml:"exclude"`
	Scripts         struct {
		Codegen string `yaml:"codegen"`
		Test    string `yaml:"test"`
	} `yaml:"scripts"`
}

// LoadFile reads a workspace file. A missing file is not an error: it returns
// (nil, nil) so callers can treat the file as optional.
func LoadFile(path string) (*File, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read workspace file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse workspace file %s: %w", path, err)
	}
	return &f, nil
}

// Apply copies workspace file values into c for every setting whose flag was
// not explicitly passed on the command line. changed reports whether a flag
// was set; a nil changed treats every flag as unset.
func (f *File) Apply(c *Config, changed func(name string) bool) {
	if f == nil || c == nil {
		return
	}
	if changed == nil {
		changed = func(string) bool { return false }
	}

	if len(f.Packages) > 0 && !changed(flags.FlagPackages) {
		c.Workspace.Packages = append([]string{}, f.Packages...)
	}
	if f.PackageManager != "" && !changed(flags.FlagPackageManager) {
		c.Workspace.PackageManager = f.PackageManager
	}
	if len(f.DependencyTypes) > 0 && !changed(flags.FlagDependencyTypes) {
		c.Workspace.DependencyTypes = append([]string{}, f.DependencyTypes...)
	}
	if f.Concurrency != nil && !changed(flags.FlagConcurrency) {
		c.Runtime.Concurrency = *f.Concurrency
	}
	if f.KeepGoing != nil && !changed(flags.FlagKeepGoing) {
		c.Runtime.KeepGoing = *f.KeepGoing
	}
	if len(f.Exclude) > 0 {
		// File excludes are additive; --exclude extends them.
		c.Selection.Exclude = append(append([]string{}, f.Exclude...), c.Selection.Exclude...)
	}
	if f.Scripts.Codegen != "" && !changed(flags.FlagCodegenScript) {
		c.Scripts.Codegen = f.Scripts.Codegen
	}
	if f.Scripts.Test != "" && !changed(flags.FlagTestScript) {
		c.Scripts.Test = f.Scripts.Test
	}
}
