package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"monorun/internal/config"
	"monorun/internal/engine"
	"monorun/internal/flags"
	"monorun/internal/runner"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const runLongFooter = `
Ordering:
	A package starts only after every workspace package it depends on
	(dependencies, devDependencies, optionalDependencies, peerDependencies;
	see --dependency-types) has finished. At most --concurrency packages run
	at once. Dependency cycles are rejected before anything runs.

Failures:
	By default the first failing package stops the run: nothing new starts and
	packages already running finish. With --keep-going every package runs and
	a failed package does not block its dependents.

Output:
	Console output is controlled by --console-format (default: text).
	Structured outputs can be written via:
	- --out / --out-format: write an aggregate JSON report or NDJSON stream to a file
	- --emit: write an additional structured stream to stdout (json or ndjson)
	- --report: write a Markdown run report
	- --no-console: suppress the console sink (use with --emit/--out/--report)

	NDJSON mode emits one JSON object per line: lifecycle Events with a "type"
	field (run.started, package.started, package.finished, run.finished).

Exit codes:
	0   = every package succeeded
	N   = exit code of the first failing package (1-255)
	3   = fatal error (the run did not start)
	130 = interrupted or timed out
`

var installCmd = newOperationCommand(&cobra.Command{
	Use:   "install",
	Short: "Run the package manager install in every package",
	Long:  "Run \"<package-manager> install\" in every package, dependencies first.\n" + runLongFooter,
	Args:  cobra.NoArgs,
}, func(c *config.Config, args []string) runner.Operation {
	return runner.Install()
})

var codegenCmd = newOperationCommand(&cobra.Command{
	Use:   "codegen",
	Short: "Run the codegen script in every package that declares it",
	Long:  "Run \"<package-manager> run <codegen-script>\" in every package that declares the script.\nPackages without it are reported as skipped.\n" + runLongFooter,
	Args:  cobra.NoArgs,
}, func(c *config.Config, args []string) runner.Operation {
	return runner.Codegen(c.Scripts.Codegen)
})

var testCmd = newOperationCommand(&cobra.Command{
	Use:   "test",
	Short: "Run the test script in every package that declares it",
	Long:  "Run \"<package-manager> run <test-script>\" in every package that declares the script.\nPackages without it are reported as skipped.\n" + runLongFooter,
	Args:  cobra.NoArgs,
}, func(c *config.Config, args []string) runner.Operation {
	return runner.Test(c.Scripts.Test)
})

var execCmd = newOperationCommand(&cobra.Command{
	Use:   "run -- <command> [args...]",
	Short: "Run an arbitrary command in every package",
	Long:  "Run a command in every package directory. The environment variable\nMONORUN_PACKAGE holds the package name.\n" + runLongFooter,
	Example: `  monorun run -- npx tsc --noEmit
  monorun run --include '@acme/*' -- sh -c 'echo $MONORUN_PACKAGE'`,
	Args: cobra.MinimumNArgs(1),
}, func(c *config.Config, args []string) runner.Operation {
	return runner.Exec(args...)
})

func newOperationCommand(cmd *cobra.Command, build func(c *config.Config, args []string) runner.Operation) *cobra.Command {
	cmd.Run = func(cmd *cobra.Command, args []string) {
		os.Exit(runOperation(cmd, args, build))
	}
	return cmd
}

func runOperation(cmd *cobra.Command, args []string, build func(c *config.Config, args []string) runner.Operation) int {
	if err := prepareConfig(cmd, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return engine.ExitFatal
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.NewEngine(engine.NewLogger(cfg.Runtime.LogLevel, os.Stderr))
	return eng.Run(ctx, cfg, build(cfg, args))
}

// prepareConfig merges the workspace file into c (flags passed on the command
// line win) and validates the result.
func prepareConfig(cmd *cobra.Command, c *config.Config) error {
	changed := func(name string) bool {
		return cmd != nil && cmd.Flags().Changed(name)
	}

	f, err := config.LoadFile(c.FilePath())
	if err != nil {
		return err
	}
	if f == nil && changed(flags.FlagConfig) {
		return fmt.Errorf("workspace file not found: %s", c.FilePath())
	}
	f.Apply(c, changed)

	if color.NoColor {
		c.Output.NoColor = true
	}
	return c.Validate()
}

func addWorkspaceFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&cfg.Workspace.Packages, flags.FlagPackages, nil, "Package directory globs relative to --root (repeatable; comma-separated accepted). Default: monorun.yaml packages, then package.json workspaces")
	cmd.Flags().StringSliceVar(&cfg.Workspace.DependencyTypes, flags.FlagDependencyTypes, nil, "Dependency fields that order packages: dependencies|devDependencies|optionalDependencies|peerDependencies (default: all)")

	// Selection
	cmd.Flags().StringSliceVar(&cfg.Selection.Include, flags.FlagInclude, nil, "Include pattern(s) (repeatable; comma-separated accepted). Go path.Match style; if pattern contains '/', matches the full @scope/name, else the unscoped name")
	cmd.Flags().StringSliceVar(&cfg.Selection.Exclude, flags.FlagExclude, nil, "Exclude pattern(s) (repeatable; comma-separated accepted). Same matching rules as --include")
	cmd.Flags().StringSliceVar(&cfg.Selection.IfFile, flags.FlagIfFile, nil, "Only packages containing this file, relative to the package (repeatable)")
	cmd.Flags().StringSliceVar(&cfg.Selection.IfDir, flags.FlagIfDir, nil, "Only packages containing this directory, relative to the package (repeatable)")
}

func addRunFlags(cmd *cobra.Command) {
	addWorkspaceFlags(cmd)
	cmd.Flags().StringVar(&cfg.Workspace.PackageManager, flags.FlagPackageManager, "npm", "Package manager binary: npm|yarn|pnpm")

	// Output
	cmd.Flags().StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|ndjson")
	cmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write structured output to this path")
	cmd.Flags().StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	cmd.Flags().StringSliceVar(&cfg.Output.Emit, flags.FlagEmit, nil, "Emit additional structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	cmd.Flags().StringVar(&cfg.Output.Report, flags.FlagReport, "", "Write a Markdown report to this path")
	cmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --emit/--out/--report)")

	// Runtime
	cmd.Flags().IntVarP(&cfg.Runtime.Concurrency, flags.FlagConcurrency, "j", 5, "Packages running at once")
	cmd.Flags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Global timeout")
	cmd.Flags().BoolVarP(&cfg.Runtime.KeepGoing, flags.FlagKeepGoing, "k", false, "Run every package even after a failure")
	cmd.Flags().BoolVar(&cfg.Runtime.DryRun, flags.FlagDryRun, false, "Print the traversal order without running anything")
	cmd.Flags().StringVar(&cfg.Runtime.MetricsFile, flags.FlagMetricsFile, "", "Write run metrics in Prometheus text format to this path")
}

func init() {
	for _, cmd := range []*cobra.Command{installCmd, codegenCmd, testCmd, execCmd} {
		addRunFlags(cmd)
		rootCmd.AddCommand(cmd)
	}
	codegenCmd.Flags().StringVar(&cfg.Scripts.Codegen, flags.FlagCodegenScript, "codegen", "package.json script run by codegen")
	testCmd.Flags().StringVar(&cfg.Scripts.Test, flags.FlagTestScript, "test", "package.json script run by test")

	// Everything after the command name belongs to the command.
	execCmd.Flags().SetInterspersed(false)
}
