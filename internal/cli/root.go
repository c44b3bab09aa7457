// Package cli provides the stratum command-line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/stratum-data/stratum/internal/cli/commands"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stratum",
		Short: "Stratum - SQL transformation compiler",
		Long: `Stratum compiles and runs SQL transformation projects: it resolves
ref/source/metric references against the project graph, dispatches
adapter-specific macros and renders each node with a phase-appropriate
execution context.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("project-dir", ".", "project directory (searched upward for stratum.yaml)")
	pf.String("log-level", "warn", "log level: debug, info, warn, error")
	pf.String("vars", "", "YAML mapping of variable overrides")
	pf.String("state-path", ".stratum/state.db", "path to the invocation state database")

	rootCmd.AddCommand(
		commands.NewParseCommand(),
		commands.NewCompileCommand(),
		commands.NewRunCommand(),
		commands.NewRunOperationCommand(),
		commands.NewListCommand(),
		commands.NewVersionCommand(Version, GitCommit),
	)
	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
