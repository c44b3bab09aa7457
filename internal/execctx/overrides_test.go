package execctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-data/stratum/internal/graph"
	"github.com/stratum-data/stratum/internal/macro"
	"github.com/stratum-data/stratum/internal/relation"
)

func unitTestNode(t *testing.T) *graph.Node {
	t.Helper()
	return &graph.Node{
		UniqueID:     "unit_test.my_project.orders_totals",
		Name:         "orders_totals",
		PackageName:  "my_project",
		ResourceType: graph.NodeTypeUnit,
		Config:       graph.NodeConfig{Enabled: true},
	}
}

func TestUnitTestContextMacroOverrides(t *testing.T) {
	node := unitTestNode(t)
	node.Overrides = &graph.UnitTestOverrides{
		Macros: map[string]any{
			"current_timestamp":            "'2026-01-01'",
			"analytics_utils.star":         "a, b",
			"my_project.generate_schema":   "fixed_schema",
			macro.CorePackage + ".is_incremental": false,
		},
	}
	params := testParams(node)
	loadMacros(t, params.Macros, "analytics_utils", `
def star():
    return "*"
`)

	ctx, err := NewUnitTestContext(params)
	require.NoError(t, err)

	// A non-callable override becomes a constant-returning stand-in.
	got, err := ctx.EvalExprString("current_timestamp()", "test")
	require.NoError(t, err)
	assert.Equal(t, "'2026-01-01'", got)

	got, err = ctx.EvalExprString("analytics_utils.star()", "test")
	require.NoError(t, err)
	assert.Equal(t, "a, b", got)

	got, err = ctx.EvalExprString("my_project.generate_schema()", "test")
	require.NoError(t, err)
	assert.Equal(t, "fixed_schema", got)

	// A core-package override reaches the bare alias too.
	v, err := ctx.EvalExpr("is_incremental()", "test")
	require.NoError(t, err)
	assert.Equal(t, "False", v.String())
}

func TestOverrideNamespaceGlobalWins(t *testing.T) {
	registry := macro.NewRegistry()
	registry.Register(&macro.Macro{Name: "cast_ts", PackageName: "my_project"})
	inner := macro.NewFullNamespace(registry, "my_project")

	ns, err := newOverrideNamespace(inner, map[string]any{
		"cast_ts":            "global wins",
		"my_project.cast_ts": "qualified loses",
	})
	require.NoError(t, err)

	// The global table, not the qualified one, supplies the function.
	m, ok := ns.GetFromPackage("my_project", "cast_ts")
	require.True(t, ok)
	assert.Same(t, ns.global["cast_ts"], m.Fn)
}

func TestUnitTestContextThisFixture(t *testing.T) {
	node := unitTestNode(t)
	node.ThisInputNodeUniqueID = "model.my_project.orders"
	params := testParams(node)

	tested := &graph.Node{
		UniqueID:     "model.my_project.orders",
		Name:         "orders",
		PackageName:  "my_project",
		ResourceType: graph.NodeTypeModel,
		Identifier:   "orders",
		Config:       graph.NodeConfig{Enabled: true},
	}
	params.Manifest.AddNode(tested)

	ctx, err := NewUnitTestContext(params)
	require.NoError(t, err)

	require.NotNil(t, ctx.This())
	assert.True(t, ctx.This().Ephemeral)
	assert.Equal(t, relation.EphemeralPrefix+"orders", ctx.This().RenderedName())
	assert.Equal(t, []string{tested.UniqueID}, node.ExtraCTEs)
}

func TestUnitTestContextEnvAndVarOverrides(t *testing.T) {
	node := unitTestNode(t)
	node.Overrides = &graph.UnitTestOverrides{
		Vars:    map[string]any{"start_date": "1999-01-01"},
		EnvVars: map[string]string{"REGION": "test-region"},
	}
	params := testParams(node)
	params.Config.Env = map[string]string{"REGION": "eu-west-1"}

	ctx, err := NewUnitTestContext(params)
	require.NoError(t, err)

	got, err := ctx.EvalExprString("env_var('REGION')", "test")
	require.NoError(t, err)
	assert.Equal(t, "test-region", got)

	got, err = ctx.EvalExprString("var('start_date')", "test")
	require.NoError(t, err)
	assert.Equal(t, "1999-01-01", got)
}

func TestMacroContextPythonJobRefused(t *testing.T) {
	node := unitTestNode(t)
	node.ResourceType = graph.NodeTypeOperation
	ctx, err := NewOperationContext(testParams(node))
	require.NoError(t, err)

	_, err = ctx.EvalExpr("submit_python_job({}, 'print(1)')", "test")
	var jobErr *PythonJobError
	require.ErrorAs(t, err, &jobErr)
}
