package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"github.com/stratum-data/stratum/internal/config"
	"github.com/stratum-data/stratum/internal/macro"
	"github.com/stratum-data/stratum/internal/relation"
	"github.com/stratum-data/stratum/internal/testutil"
)

func dispatchFixture(t *testing.T, fake *testutil.FakeAdapter, cfg *config.RuntimeConfig, macros ...*macro.Macro) *DatabaseWrapper {
	t.Helper()
	registry := macro.NewRegistry()
	for _, m := range macros {
		registry.Register(m)
	}
	ns := macro.NewFullNamespace(registry, cfg.ProjectName)
	db, err := NewDatabaseWrapper(fake, ns, cfg, false)
	require.NoError(t, err)
	return db
}

func prefixedMacro(pkg, name string) *macro.Macro {
	return &macro.Macro{Name: name, PackageName: pkg, Fn: starlark.String(pkg + "." + name)}
}

func TestDispatchPrefersAdapterPrefix(t *testing.T) {
	cfg := testConfig()
	db := dispatchFixture(t, &testutil.FakeAdapter{}, cfg,
		prefixedMacro("my_project", "default__create_table"),
		prefixedMacro("my_project", "duckdb__create_table"),
	)

	m, err := db.Dispatch("create_table", "")
	require.NoError(t, err)
	assert.Equal(t, "duckdb__create_table", m.Name)
}

func TestDispatchFallsBackToDefault(t *testing.T) {
	cfg := testConfig()
	db := dispatchFixture(t, &testutil.FakeAdapter{}, cfg,
		prefixedMacro("my_project", "default__create_table"),
	)

	m, err := db.Dispatch("create_table", "")
	require.NoError(t, err)
	assert.Equal(t, "default__create_table", m.Name)
}

func TestDispatchParentAdapterPrefix(t *testing.T) {
	// A child adapter falls through to its parent's implementation before
	// reaching default.
	cfg := testConfig()
	fake := &testutil.FakeAdapter{AdapterType: "motherduck", Parents: []string{"duckdb"}}
	db := dispatchFixture(t, fake, cfg,
		prefixedMacro("my_project", "default__create_table"),
		prefixedMacro("my_project", "duckdb__create_table"),
	)

	m, err := db.Dispatch("create_table", "")
	require.NoError(t, err)
	assert.Equal(t, "duckdb__create_table", m.Name)
}

func TestDispatchNamespacePackageMajor(t *testing.T) {
	// Within a namespace the root project is searched before the package,
	// and within each package the adapter prefix is tried before default.
	cfg := testConfig()
	cfg.Dependencies = map[string]*config.PackageConfig{
		"analytics_utils": {Name: "analytics_utils"},
	}
	db := dispatchFixture(t, &testutil.FakeAdapter{}, cfg,
		prefixedMacro("analytics_utils", "duckdb__star"),
		prefixedMacro("my_project", "default__star"),
	)

	m, err := db.Dispatch("star", "analytics_utils")
	require.NoError(t, err)
	assert.Equal(t, "my_project", m.PackageName, "root project overrides win even with a weaker prefix")
}

func TestDispatchMacroSearchOrder(t *testing.T) {
	cfg := testConfig()
	cfg.Dependencies = map[string]*config.PackageConfig{
		"analytics_utils": {
			Name:             "analytics_utils",
			MacroSearchOrder: []string{"analytics_utils", "my_project"},
		},
	}
	db := dispatchFixture(t, &testutil.FakeAdapter{}, cfg,
		prefixedMacro("analytics_utils", "duckdb__star"),
		prefixedMacro("my_project", "default__star"),
	)

	m, err := db.Dispatch("star", "analytics_utils")
	require.NoError(t, err)
	assert.Equal(t, "analytics_utils", m.PackageName)
}

func TestDispatchExhaustionListsAttempts(t *testing.T) {
	cfg := testConfig()
	db := dispatchFixture(t, &testutil.FakeAdapter{}, cfg)

	_, err := db.Dispatch("create_table", "my_project")
	var dispatchErr *DispatchError
	require.ErrorAs(t, err, &dispatchErr)
	assert.Equal(t, []string{
		`"my_project.duckdb__create_table"`,
		`"my_project.default__create_table"`,
	}, dispatchErr.Attempts)
	assert.Contains(t, err.Error(), "searched for:")
}

func TestDispatchRejectsDottedName(t *testing.T) {
	cfg := testConfig()
	db := dispatchFixture(t, &testutil.FakeAdapter{}, cfg)

	_, err := db.Dispatch("my_utils.create_table", "")
	var nameErr *DispatchNameError
	require.ErrorAs(t, err, &nameErr)
	assert.Contains(t, err.Error(), `dispatch("create_table", macro_namespace="my_utils")`)
}

func TestDispatchUnknownNamespace(t *testing.T) {
	cfg := testConfig()
	db := dispatchFixture(t, &testutil.FakeAdapter{}, cfg)

	_, err := db.Dispatch("create_table", "no_such_package")
	var nsErr *DispatchNamespaceError
	require.ErrorAs(t, err, &nsErr)
}

func TestParseTimeWrapperStubsIO(t *testing.T) {
	cfg := testConfig()
	fake := &testutil.FakeAdapter{Relations: map[string]bool{"dev.analytics.orders": true}}
	ns := macro.NewFullNamespace(macro.NewRegistry(), cfg.ProjectName)
	db, err := NewDatabaseWrapper(fake, ns, cfg, true)
	require.NoError(t, err)

	ctx := context.Background()
	resp, err := db.Exec(ctx, "drop table analytics.orders")
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", resp.Code)
	assert.Empty(t, fake.Executed, "parse-time exec must not reach the adapter")

	exists, err := db.GetRelation(ctx, "dev", "analytics", "orders")
	require.NoError(t, err)
	assert.False(t, exists, "parse-time probes report absent")

	cols, err := db.GetColumnsInRelation(ctx, relation.Create("dev", "analytics", "orders", relation.QuotePolicy{}))
	require.NoError(t, err)
	assert.Nil(t, cols)
}

func TestRuntimeWrapperPassesThrough(t *testing.T) {
	cfg := testConfig()
	fake := &testutil.FakeAdapter{Relations: map[string]bool{"dev.analytics.orders": true}}
	ns := macro.NewFullNamespace(macro.NewRegistry(), cfg.ProjectName)
	db, err := NewDatabaseWrapper(fake, ns, cfg, false)
	require.NoError(t, err)

	_, err = db.Exec(context.Background(), "drop table analytics.orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"drop table analytics.orders"}, fake.Executed)

	exists, err := db.GetRelation(context.Background(), "dev", "analytics", "orders")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateRelationMergesQuoting(t *testing.T) {
	cfg := testConfig()
	cfg.Quoting = relation.QuotePolicy{Schema: true}
	ns := macro.NewFullNamespace(macro.NewRegistry(), cfg.ProjectName)
	db, err := NewDatabaseWrapper(&testutil.FakeAdapter{}, ns, cfg, false)
	require.NoError(t, err)

	rel := db.CreateRelation("dev", "analytics", "orders", relation.QuotePolicy{Identifier: true})
	assert.Equal(t, `dev."analytics"."orders"`, rel.RenderedName())
}
