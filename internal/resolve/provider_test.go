package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-data/stratum/internal/graph"
	"github.com/stratum-data/stratum/internal/macro"
)

// The name-generation bundle mixes phases: record-only references against
// resolved config and vars.
func TestGenerateNameProviderRecordsRefsWithRuntimeLookups(t *testing.T) {
	f := newFixture()
	// The target is absent from the manifest; parse-side resolution must
	// record it without a lookup.
	r := NewRefResolver(GenerateNameProvider, f.resolver(t, true))

	rel, err := CallRef(r, f.node, []string{"customers"}, "")
	require.NoError(t, err)
	assert.Equal(t, "orders", rel.Identifier, "placeholder stands in for the requesting node")
	assert.Equal(t, []graph.RefArgs{{Name: "customers"}}, f.node.Refs)

	// Vars resolve the runtime way: a missing var is an error, not nil.
	vars := NewVarResolver(GenerateNameProvider, f.cfg, f.node)
	_, err = vars.Get("undeclared", nil)
	var missing *MissingVarError
	require.ErrorAs(t, err, &missing)

	// Config reads resolved node values rather than collecting calls.
	f.node.Config.Extra = map[string]any{"alias": "orders_v2"}
	acc := NewConfigAccessor(GenerateNameProvider, f.node, nil)
	v, err := acc.Get("alias", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "orders_v2", v)
}

func TestGenerateNameProviderStubsAdapterIO(t *testing.T) {
	f := newFixture()
	f.adapter.Relations = map[string]bool{"dev.analytics.orders": true}
	ns := macro.NewFullNamespace(macro.NewRegistry(), f.cfg.ProjectName)
	db, err := NewDatabaseWrapper(f.adapter, ns, f.cfg, GenerateNameProvider.ParseAdapter)
	require.NoError(t, err)

	// Existence probes answer negatively without touching the adapter.
	exists, err := db.GetRelation(context.Background(), "dev", "analytics", "orders")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, f.adapter.Executed)
}
