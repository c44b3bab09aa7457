package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stratum-data/stratum/internal/execctx"
	"github.com/stratum-data/stratum/internal/graph"
	"github.com/stratum-data/stratum/internal/resolve"
	"github.com/stratum-data/stratum/internal/state"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compile and execute the selected nodes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd)
		},
	}
	addSelectionFlags(cmd)
	return cmd
}

func runRun(cmd *cobra.Command) error {
	rt, cleanup, err := NewRuntime(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	run, err := rt.Store.CreateRun(rt.Config.ProjectName, cmd.Name())
	if err != nil {
		return err
	}

	nodes := rt.selectedNodes()
	succeeded := 0
	var runErr error
	for _, node := range nodes {
		started := time.Now()
		execErr := executeNode(cmd, rt, node)

		result := &state.RenderResult{
			RunID:        run.ID,
			NodeUniqueID: node.UniqueID,
			Status:       state.RenderStatusSuccess,
			CompiledCode: node.CompiledCode,
			Duration:     time.Since(started),
		}
		if execErr != nil {
			result.Status = state.RenderStatusFailed
			result.Error = execErr.Error()
		} else {
			succeeded++
		}
		if saveErr := rt.Store.SaveRenderResult(result); saveErr != nil {
			return saveErr
		}
		if execErr != nil {
			runErr = fmt.Errorf("running %s: %w", node.UniqueID, execErr)
			break
		}
	}

	status := state.RunStatusCompleted
	errMsg := ""
	if runErr != nil {
		status = state.RunStatusFailed
		errMsg = runErr.Error()
	}
	if err := rt.Store.CompleteRun(run.ID, status, errMsg); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Ran %d of %d nodes (run %s)\n", succeeded, len(nodes), run.ID)
	return nil
}

// executeNode compiles one node and executes its compiled statement, storing
// the adapter response in the context's main result slot for hooks.
func executeNode(cmd *cobra.Command, rt *Runtime, node *graph.Node) error {
	if err := compileNode(rt, node); err != nil {
		return err
	}
	if node.CompiledCode == "" {
		return nil
	}

	ctx, err := execctx.NewModelContext(resolve.RuntimeProvider, execctx.Params{
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

	resp, err := rt.Adapter.Exec(cmd.Context(), node.CompiledCode)
	if err != nil {
		return err
	}
	ctx.Results().Store(execctx.MainResultKey, resp, nil)
	rt.Logger.Info("executed node", "node", node.UniqueID, "rows", resp.RowsAffected)
	return nil
}
