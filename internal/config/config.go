package config

import (
	"errors"
	"fmt"
	"monorun/internal/project"
	"path/filepath"
	"strings"
	"time"
)

const DefaultFile = "monorun.yaml"

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields, keep these in sync:
	// - CLI flags in internal/cli/run.go
	// - workspace file fields in internal/config/file.go
	Workspace Workspace
	Selection Selection
	Scripts   Scripts
	Output    Output
	Runtime   Runtime
}

type Workspace struct {
	// Root is the workspace root directory (see --root).
	Root string

	// File is the workspace file, relative to Root unless absolute (see --config).
	File string

	// Packages are glob patterns, relative to Root, of package directories
	// (see --packages). When empty, the workspace file and then the root
	// package.json "workspaces" field are consulted.
	Packages []string

	// DependencyTypes selects which manifest dependency categories become
	// graph edges (see --dependency-types).
	DependencyTypes []string

	// PackageManager is the binary used for install/codegen/test (see --package-manager).
	// Allowed values: npm, yarn, pnpm.
	PackageManager string
}

type Selection struct {
	// Include keeps only packages whose name matches one of the patterns
	// (path.Match style; see --include).
	Include []string

	// Exclude drops packages whose name matches one of the patterns (see --exclude).
	Exclude []string

	// IfFile keeps only packages containing every listed file (see --if-file).
	IfFile []string

	// IfDir keeps only packages containing every listed directory (see --if-dir).
	IfDir []string
}

type Scripts struct {
	// Codegen is the package.json script run by "monorun codegen" (see --codegen-script).
	Codegen string

	// Test is the package.json script run by "monorun test" (see --test-script).
	Test string
}

type Output struct {
	// ConsoleFormat controls the console sink (see --console-format).
	// Allowed values: text, ndjson.
	ConsoleFormat string

	// Out writes structured output to this path (see --out).
	Out string

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson. If empty, it is inferred from the --out file extension.
	OutFormat string

	// Emit writes an additional structured stream to stdout (see --emit).
	// Allowed values: json, ndjson.
	Emit []string

	// Report writes a Markdown run report to this path (see --report).
	Report string

	// NoConsole suppresses the console sink (see --no-console).
	NoConsole bool

	// NoColor disables ANSI colors in console and package output (see --no-color).
	NoColor bool
}

type Runtime struct {
	// Concurrency bounds how many packages run at once (see --concurrency). Must be >= 1.
	Concurrency int

	// Timeout is the global timeout for the run (see --timeout). Must be > 0.
	Timeout time.Duration

	// KeepGoing visits every package even after one fails (see --keep-going).
	// When false the run stops admitting packages at the first failure.
	KeepGoing bool

	// DryRun prints the traversal order without running anything (see --dry-run).
	DryRun bool

	// Verbose is shorthand for --log-level debug.
	Verbose bool

	// LogLevel is the minimum level for diagnostic logs on stderr (see --log-level).
	// Allowed values: debug, info, warn, error.
	LogLevel string

	// MetricsFile writes run metrics in Prometheus text format (see --metrics-file).
	MetricsFile string
}

func New() *Config {
	return &Config{
		Workspace: Workspace{
			Root:           ".",
			File:           DefaultFile,
			PackageManager: "npm",
		},
		Scripts: Scripts{
			Codegen: "codegen",
			Test:    "test",
		},
		Output: Output{
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Concurrency: 5,
			Timeout:     30 * time.Minute,
			LogLevel:    "info",
		},
	}
}

func (c *Config) Validate() error {
	// Normalize comma-delimited list inputs.
	c.Workspace.Packages = splitCommaList(c.Workspace.Packages)
	c.Workspace.DependencyTypes = splitCommaList(c.Workspace.DependencyTypes)
	c.Selection.Include = splitCommaList(c.Selection.Include)
	c.Selection.Exclude = splitCommaList(c.Selection.Exclude)
	c.Selection.IfFile = splitCommaList(c.Selection.IfFile)
	c.Selection.IfDir = splitCommaList(c.Selection.IfDir)
	c.Output.Emit = splitCommaList(c.Output.Emit)

	// Workspace validation
	c.Workspace.Root = strings.TrimSpace(c.Workspace.Root)
	if c.Workspace.Root == "" {
		c.Workspace.Root = "."
	}
	for _, raw := range c.Workspace.DependencyTypes {
		if _, ok := project.ParseKind(raw); !ok {
			return fmt.Errorf("unsupported --dependency-types value: %s (must be one of: dependencies, devDependencies, optionalDependencies, peerDependencies)", raw)
		}
	}
	c.Workspace.PackageManager = normalizeEnumValue(c.Workspace.PackageManager)
	if c.Workspace.PackageManager == "" {
		c.Workspace.PackageManager = "npm"
	}
	if c.Workspace.PackageManager != "npm" && c.Workspace.PackageManager != "yarn" && c.Workspace.PackageManager != "pnpm" {
		return fmt.Errorf("unsupported --package-manager: %s (must be one of: npm, yarn, pnpm)", c.Workspace.PackageManager)
	}
	for _, p := range append(append([]string{}, c.Selection.IfFile...), c.Selection.IfDir...) {
		if filepath.IsAbs(p) {
			return fmt.Errorf("--if-file/--if-dir paths must be relative to the package, got %q", p)
		}
	}

	// Scripts validation
	c.Scripts.Codegen = strings.TrimSpace(c.Scripts.Codegen)
	c.Scripts.Test = strings.TrimSpace(c.Scripts.Test)
	if c.Scripts.Codegen == "" {
		return errors.New("--codegen-script must not be empty")
	}
	if c.Scripts.Test == "" {
		return errors.New("--test-script must not be empty")
	}

	// Output validation
	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		return errors.New("--console-format must be one of: text, ndjson")
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "ndjson" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, ndjson)", c.Output.ConsoleFormat)
	}

	for i, emit := range c.Output.Emit {
		v := normalizeEnumValue(emit)
		if v != "json" && v != "ndjson" {
			return fmt.Errorf("unsupported --emit value: %s (must be one of: json, ndjson)", v)
		}
		c.Output.Emit[i] = v
	}

	c.Output.Report = strings.TrimSpace(c.Output.Report)
	if c.Output.Out != "" && c.Output.Out == c.Output.Report {
		return errors.New("--out and --report must not point to the same file")
	}
	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".ndjson", ".jsonl":
				c.Output.OutFormat = "ndjson"
			default:
				if ext == "" {
					return errors.New("cannot infer output format from file extension (missing extension); use --out-format")
				}
				return fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
			}
		} else if c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
			return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
		}
	}

	// Runtime validation
	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}
	if c.Runtime.Verbose {
		c.Runtime.LogLevel = "debug"
	}
	c.Runtime.LogLevel = normalizeEnumValue(c.Runtime.LogLevel)
	if c.Runtime.LogLevel == "" {
		c.Runtime.LogLevel = "info"
	}
	switch c.Runtime.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported --log-level: %s (must be one of: debug, info, warn, error)", c.Runtime.LogLevel)
	}

	return nil
}

// DependencyKinds returns the selected dependency categories, or every
// category when none were selected. Call after Validate.
func (c *Config) DependencyKinds() []project.Kind {
	if len(c.Workspace.DependencyTypes) == 0 {
		return append([]project.Kind{}, project.Kinds...)
	}
	var out []project.Kind
	for _, raw := range c.Workspace.DependencyTypes {
		if k, ok := project.ParseKind(raw); ok {
			out = append(out, k)
		}
	}
	return out
}

// FilePath resolves the workspace file against the root.
func (c *Config) FilePath() string {
	if c.Workspace.File == "" || filepath.IsAbs(c.Workspace.File) {
		return c.Workspace.File
	}
	return filepath.Join(c.Workspace.Root, c.Workspace.File)
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
