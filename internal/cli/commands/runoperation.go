package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stratum-data/stratum/internal/execctx"
	"github.com/stratum-data/stratum/internal/graph"
)

// NewRunOperationCommand creates the run-operation command.
func NewRunOperationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run-operation <macro>",
		Short: "Invoke a macro with an operation execution context",
		Long: `Run-operation invokes one project macro by name against a live
runtime context. Refs resolve without the declared-dependency check, since
operations are not part of the dependency graph, and ephemeral targets are
refused because there is no statement to inline them into.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, args[0])
		},
	}
	cmd.Flags().String("args", "", "YAML mapping of arguments passed to the macro")
	addSelectionFlags(cmd)
	return cmd
}

func runOperation(cmd *cobra.Command, macroName string) error {
	rt, cleanup, err := NewRuntime(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	var macroArgs []any
	if raw, _ := cmd.Flags().GetString("args"); raw != "" {
		if err := yaml.Unmarshal([]byte(raw), &macroArgs); err != nil {
			return fmt.Errorf("invalid --args: pass a YAML list of positional arguments: %w", err)
		}
	}

	node := &graph.Node{
		UniqueID:     "operation." + rt.Config.ProjectName + "." + macroName,
		Name:         macroName,
		PackageName:  rt.Config.ProjectName,
		ResourceType: graph.NodeTypeOperation,
	}

	ctx, err := execctx.NewOperationContext(execctx.Params{
		Node:     node,
		Config:   rt.Config,
		Manifest: rt.Manifest,
		Adapter:  rt.Adapter,
		Macros:   rt.Macros,
		Logger:   rt.Logger,
	})
	if err != nil {
		return err
	}

	result, err := ctx.CallMacro("", macroName, macroArgs)
	if err != nil {
		return err
	}
	if result != nil {
		fmt.Fprintln(cmd.OutOrStdout(), result)
	}
	return nil
}
