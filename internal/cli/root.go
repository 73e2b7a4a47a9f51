package cli

import (
	"fmt"
	"os"

	"monorun/internal/config"
	"monorun/internal/flags"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var cfg = config.New()

var rootCmd = &cobra.Command{
	Use:   "monorun",
	Short: "Run tasks across a JavaScript monorepo in dependency order",
	Long: `monorun runs install, codegen, test or any command in every package of a
JavaScript monorepo. A package runs only after every workspace package it
depends on has finished, with a bounded number of packages running at once.

Examples:
	# Show available commands and global flags
	monorun --help

	# Install every package, four at a time
	monorun install --concurrency 4

	# Run the "test" script, continuing past failures
	monorun test --keep-going

	# Run an arbitrary command in every package
	monorun run -- npx tsc --noEmit

	# Print the traversal order
	monorun graph

Output:
	Package output is streamed with a [package] prefix. Per-package results and
	a summary go to stdout; diagnostics go to stderr.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfg.Workspace.Root, flags.FlagRoot, "C", ".", "Workspace root directory")
	rootCmd.PersistentFlags().StringVar(&cfg.Workspace.File, flags.FlagConfig, config.DefaultFile, "Workspace file, relative to --root unless absolute (optional)")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Runtime.Verbose, flags.FlagVerbose, "v", false, "Enable debug logging (same as --log-level debug)")
	rootCmd.PersistentFlags().StringVar(&cfg.Runtime.LogLevel, flags.FlagLogLevel, "info", "Diagnostic log level: debug|info|warn|error")
	rootCmd.PersistentFlags().BoolVar(&cfg.Output.NoColor, flags.FlagNoColor, false, "Disable colored output (also honored: NO_COLOR)")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
