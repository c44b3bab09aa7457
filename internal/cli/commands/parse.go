package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stratum-data/stratum/internal/execctx"
	"github.com/stratum-data/stratum/internal/resolve"
)

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Validate the project and refresh parse-time bookkeeping",
		Long: `Parse builds a parse-phase execution context for every node in the
manifest, validating adapter capabilities and macro wiring without any
database I/O, and refreshes the environment-variable fingerprints used to
detect when a full reparse is needed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runParse(cmd)
		},
	}
	addSelectionFlags(cmd)
	return cmd
}

func runParse(cmd *cobra.Command) error {
	rt, cleanup, err := NewRuntime(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	count := 0
	for _, node := range rt.selectedNodes() {
		collector := resolve.NewConfigCollector()
		if _, err := execctx.NewModelContext(resolve.ParseProvider, execctx.Params{
			Node:      node,
			Config:    rt.Config,
			Manifest:  rt.Manifest,
			Adapter:   rt.Adapter,
			Macros:    rt.Macros,
			Collector: collector,
			Logger:    rt.Logger,
		}); err != nil {
			return fmt.Errorf("parsing %s: %w", node.UniqueID, err)
		}
		count++
	}

	if err := rt.Store.SaveEnvFingerprints(rt.Manifest.EnvVars()); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Parsed %d nodes\n", count)
	return nil
}
