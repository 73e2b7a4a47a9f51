package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"monorun/internal/engine"
	"monorun/internal/graph"
	"monorun/internal/scheduler"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var graphCheck bool

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print packages in traversal order",
	Long: `Print the selected packages in the order a serial run visits them, each
with the workspace packages it depends on.

Examples:
  monorun graph
  monorun graph --include '@acme/*' --dependency-types dependencies

  # Fail (exit 3) if the workspace has a dependency cycle
  monorun graph --check

Output:
  1. @acme/utils
  2. @acme/ui <- @acme/utils
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := prepareConfig(cmd, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(engine.ExitFatal)
		}

		plan, err := engine.LoadPlan(context.Background(), cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(engine.ExitFatal)
		}

		if graphCheck {
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d packages, no dependency cycles\n", plan.Graph.Len())
			return
		}
		printGraph(cmd.OutOrStdout(), plan.Graph, !cfg.Output.NoColor)
	},
}

func printGraph(w io.Writer, g *graph.Graph, colorize bool) {
	bold := color.New(color.Bold)
	if colorize {
		bold.EnableColor()
	} else {
		bold.DisableColor()
	}

	for i, name := range scheduler.Order(g) {
		fmt.Fprintf(w, "%d. %s", i+1, bold.Sprint(name))
		if deps := g.DependenciesOf(name); len(deps) > 0 {
			fmt.Fprintf(w, " <- %s", strings.Join(deps, ", "))
		}
		fmt.Fprintln(w)
	}
}

func init() {
	rootCmd.AddCommand(graphCmd)
	addWorkspaceFlags(graphCmd)
	graphCmd.Flags().BoolVar(&graphCheck, "check", false, "Only validate the graph; exit 3 on a dependency cycle")
}
