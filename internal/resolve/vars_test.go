package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-data/stratum/internal/config"
	"github.com/stratum-data/stratum/internal/graph"
)

func TestVarResolverPrecedence(t *testing.T) {
	cfg := testConfig()
	cfg.Vars = config.VarBlock{
		"start_date": "2024-01-01",
		"page_size":  100,
	}
	cfg.Dependencies = map[string]*config.PackageConfig{
		"analytics_utils": {
			Name: "analytics_utils",
			Vars: config.VarBlock{"start_date": "2020-01-01", "pkg_only": true},
		},
	}
	cfg.CLIVars = map[string]any{"page_size": 25}

	// A node in the dependency package sees its own package vars, with the
	// root project and CLI layers winning on collision.
	node := modelNode("model.analytics_utils.stg", "stg", "analytics_utils")
	v := NewVarResolver(RuntimeProvider, cfg, node)

	got, err := v.Get("start_date", nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", got, "root project wins over the dependency package")

	got, err = v.Get("pkg_only", nil)
	require.NoError(t, err)
	assert.Equal(t, true, got)

	got, err = v.Get("page_size", nil)
	require.NoError(t, err)
	assert.Equal(t, 25, got, "CLI override wins over project definitions")

	// A root-project node never sees another package's private vars.
	rootNode := modelNode("model.my_project.orders", "orders", "my_project")
	rootVars := NewVarResolver(RuntimeProvider, cfg, rootNode)
	assert.False(t, rootVars.Has("pkg_only"))
}

func TestVarResolverUnitTestOverrides(t *testing.T) {
	cfg := testConfig()
	cfg.Vars = config.VarBlock{"start_date": "2024-01-01"}
	cfg.CLIVars = map[string]any{"start_date": "2025-01-01"}

	node := modelNode("unit_test.my_project.orders_test", "orders_test", "my_project")
	node.ResourceType = graph.NodeTypeUnit
	node.Overrides = &graph.UnitTestOverrides{Vars: map[string]any{"start_date": "1999-01-01"}}

	v := NewVarResolver(RuntimeUnitTestProvider, cfg, node)
	got, err := v.Get("start_date", nil)
	require.NoError(t, err)
	assert.Equal(t, "1999-01-01", got, "test overrides win over CLI vars")

	// Without the unit-test provider the overrides are ignored.
	plain := NewVarResolver(RuntimeProvider, cfg, node)
	got, err = plain.Get("start_date", nil)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", got)
}

func TestVarResolverOverridesAreDeepCopied(t *testing.T) {
	cfg := testConfig()
	node := modelNode("unit_test.my_project.orders_test", "orders_test", "my_project")
	node.ResourceType = graph.NodeTypeUnit
	node.Overrides = &graph.UnitTestOverrides{Vars: map[string]any{
		"thresholds": map[string]any{"warn": 10, "error": 50},
		"regions":    []any{"us", "eu"},
	}}

	v := NewVarResolver(RuntimeUnitTestProvider, cfg, node)

	// Mutating the node's nested values after construction must not be
	// visible through lookups.
	node.Overrides.Vars["thresholds"].(map[string]any)["warn"] = 999
	node.Overrides.Vars["regions"].([]any)[0] = "apac"

	got, err := v.Get("thresholds", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"warn": 10, "error": 50}, got)

	got, err = v.Get("regions", nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"us", "eu"}, got)
}

func TestVarResolverMissing(t *testing.T) {
	cfg := testConfig()
	node := modelNode("model.my_project.orders", "orders", "my_project")

	// Runtime: undefined without a default is an error.
	v := NewVarResolver(RuntimeProvider, cfg, node)
	_, err := v.Get("nope", nil)
	var missing *MissingVarError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "nope", missing.Name)

	got, err := v.Get("nope", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)

	// Parse: undefined resolves to nil.
	parse := NewVarResolver(ParseProvider, cfg, node)
	got, err = parse.Get("nope", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestVarResolverMacroScope(t *testing.T) {
	// Macros carry no FQN; package-scoped vars still apply.
	cfg := testConfig()
	cfg.Vars = config.VarBlock{
		"my_project": map[string]any{"schema_suffix": "_mart"},
	}
	node := &graph.Node{
		UniqueID:     "macro.my_project.generate_schema",
		Name:         "generate_schema",
		PackageName:  "my_project",
		ResourceType: graph.NodeTypeMacro,
	}

	v := NewVarResolver(RuntimeProvider, cfg, node)
	got, err := v.Get("schema_suffix", nil)
	require.NoError(t, err)
	assert.Equal(t, "_mart", got)
}

func TestVarResolverAdapterScope(t *testing.T) {
	cfg := testConfig()
	cfg.Vars = config.VarBlock{
		"fast_mode": false,
		"duckdb":    map[string]any{"fast_mode": true},
	}
	node := modelNode("model.my_project.orders", "orders", "my_project")

	v := NewVarResolver(RuntimeProvider, cfg, node)
	got, err := v.Get("fast_mode", nil)
	require.NoError(t, err)
	assert.Equal(t, true, got)
}
