package commands

import (
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the manifest's nodes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}
	cmd.Flags().StringSlice("select", nil, "node names or unique IDs to list")
	return cmd
}

func runList(cmd *cobra.Command) error {
	rt, cleanup, err := NewRuntime(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ids := make([]string, 0)
	nodes := rt.Manifest.Nodes()
	for id := range nodes {
		if len(rt.Config.SelectedResources) > 0 && !rt.Config.IsSelected(id) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Unique ID", "Type", "Package", "Materialized", "Access"})
	for _, id := range ids {
		n := nodes[id]
		t.AppendRow(table.Row{n.UniqueID, string(n.ResourceType), n.PackageName, n.Config.Materialized, string(n.Access)})
	}
	t.Render()
	return nil
}
