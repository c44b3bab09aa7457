package resolve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratum-data/stratum/internal/config"
	"github.com/stratum-data/stratum/internal/graph"
	"github.com/stratum-data/stratum/internal/macro"
	"github.com/stratum-data/stratum/internal/testutil"
)

// modelNode builds an enabled model node in the analytics schema.
func modelNode(id, name, pkg string) *graph.Node {
	return &graph.Node{
		UniqueID:     id,
		Name:         name,
		PackageName:  pkg,
		ResourceType: graph.NodeTypeModel,
		FQN:          []string{pkg, name},
		Database:     "dev",
		Schema:       "analytics",
		Identifier:   name,
		Access:       graph.AccessPublic,
		Config:       graph.NodeConfig{Enabled: true, Materialized: "table"},
	}
}

func testConfig() *config.RuntimeConfig {
	return &config.RuntimeConfig{
		ProjectName: "my_project",
		Target:      config.TargetConfig{Name: "dev", Type: "duckdb", Database: "dev", Schema: "analytics"},
	}
}

// fixture bundles the pieces most resolver tests need.
type fixture struct {
	adapter  *testutil.FakeAdapter
	cfg      *config.RuntimeConfig
	manifest *graph.Manifest
	node     *graph.Node
}

func newFixture() *fixture {
	return &fixture{
		adapter:  &testutil.FakeAdapter{},
		cfg:      testConfig(),
		manifest: graph.NewManifest(),
		node:     modelNode("model.my_project.orders", "orders", "my_project"),
	}
}

func (f *fixture) resolver(t *testing.T, parseTime bool) *Resolver {
	t.Helper()
	ns := macro.NewFullNamespace(macro.NewRegistry(), f.cfg.ProjectName)
	db, err := NewDatabaseWrapper(f.adapter, ns, f.cfg, parseTime)
	require.NoError(t, err)
	return NewResolver(db, f.node, f.cfg, f.manifest)
}
