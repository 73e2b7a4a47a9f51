package flags

// Package flags defines canonical CLI flag names shared across the CLI and config.
// Keeping these as constants helps avoid drift between Cobra flag wiring and the
// workspace file, which only fills in settings whose flag was not passed.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, 5, "...")
//	if !cmd.Flags().Changed(flags.FlagConcurrency) { ... }
const (
	// Workspace
	FlagRoot            = "root"
	FlagConfig          = "config"
	FlagPackages        = "packages"
	FlagDependencyTypes = "dependency-types"
	FlagPackageManager  = "package-manager"

	// Selection
	FlagInclude = "include"
	FlagExclude = "exclude"
	FlagIfFile  = "if-file"
	FlagIfDir   = "if-dir"

	// Scripts
	FlagCodegenScript = "codegen-script"
	FlagTestScript    = "test-script"

	// Output
	FlagConsoleFormat = "console-format"
	FlagOut           = "out"
	FlagOutFormat     = "out-format"
	FlagEmit          = "emit"
	FlagReport        = "report"
	FlagNoConsole     = "no-console"
	FlagNoColor       = "no-color"

	// Runtime
	FlagConcurrency = "concurrency"
	FlagTimeout     = "timeout"
	FlagKeepGoing   = "keep-going"
	FlagDryRun      = "dry-run"
	FlagVerbose     = "verbose"
	FlagLogLevel    = "log-level"
	FlagMetricsFile = "metrics-file"
)
