package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func reg(t *testing.T, r *Registry, pkg, name string, deps ...string) *Macro {
	t.Helper()
	m := &Macro{
		Name:            name,
		PackageName:     pkg,
		Fn:              starlark.String(pkg + "." + name),
		DependsOnMacros: deps,
	}
	r.Register(m)
	return m
}

func TestRegistryGetByNamePrecedence(t *testing.T) {
	r := NewRegistry()
	reg(t, r, "analytics_utils", "generate_alias")
	reg(t, r, CorePackage, "generate_alias")
	reg(t, r, "my_project", "generate_alias")

	// Root project wins over core, core over other packages.
	m, ok := r.GetByName("my_project", "generate_alias")
	require.True(t, ok)
	assert.Equal(t, "my_project", m.PackageName)

	m, ok = r.GetByName("other_project", "generate_alias")
	require.True(t, ok)
	assert.Equal(t, CorePackage, m.PackageName)

	r2 := NewRegistry()
	reg(t, r2, "zeta_utils", "helper")
	reg(t, r2, "alpha_utils", "helper")
	m, ok = r2.GetByName("my_project", "helper")
	require.True(t, ok)
	assert.Equal(t, "alpha_utils", m.PackageName, "sorted fallback must be deterministic")

	_, ok = r.GetByName("my_project", "no_such_macro")
	assert.False(t, ok)
}

func TestRegistryRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	reg(t, r, "my_project", "cast_timestamp")
	replacement := reg(t, r, "my_project", "cast_timestamp")

	m, ok := r.Get("macro.my_project.cast_timestamp")
	require.True(t, ok)
	assert.Same(t, replacement, m)
	assert.Len(t, r.PackageMacros("my_project"), 1)
}

func TestRegistryPackages(t *testing.T) {
	r := NewRegistry()
	reg(t, r, "my_project", "a")
	reg(t, r, CorePackage, "b")
	reg(t, r, "analytics_utils", "c")

	assert.Equal(t, []string{"analytics_utils", "my_project", CorePackage}, r.Packages())
}

func TestFullNamespace(t *testing.T) {
	r := NewRegistry()
	reg(t, r, "my_project", "generate_schema")
	reg(t, r, "analytics_utils", "star")

	ns := NewFullNamespace(r, "my_project")

	m, ok := ns.GetFromPackage("analytics_utils", "star")
	require.True(t, ok)
	assert.Equal(t, "macro.analytics_utils.star", m.UniqueID)

	m, ok = ns.GetFromPackage("", "generate_schema")
	require.True(t, ok)
	assert.Equal(t, "my_project", m.PackageName)

	_, ok = ns.GetFromPackage("my_project", "star")
	assert.False(t, ok, "qualified lookup must not search other packages")
}

func TestTestNamespaceClosure(t *testing.T) {
	r := NewRegistry()
	// unique_check depends on a helper, which in turn depends on another.
	reg(t, r, "my_project", "unique_check", "macro.my_project.relation_filter")
	reg(t, r, "my_project", "relation_filter", "macro.analytics_utils.star")
	reg(t, r, "analytics_utils", "star")
	reg(t, r, "my_project", "unrelated")
	reg(t, r, "my_project", WhereSubqueryMacro)

	ns := NewTestNamespace(r, "my_project", []string{"macro.my_project.unique_check"})

	// The declared dep, its transitive deps, and the where-subquery helper.
	assert.Equal(t, 4, ns.Allowed())

	for _, name := range []string{"unique_check", "relation_filter", "star", WhereSubqueryMacro} {
		_, ok := ns.GetFromPackage("", name)
		assert.True(t, ok, "macro %s should be visible", name)
	}
	_, ok := ns.GetFromPackage("", "unrelated")
	assert.False(t, ok)
	_, ok = ns.GetFromPackage("my_project", "unrelated")
	assert.False(t, ok)

	assert.Equal(t, []string{"analytics_utils", "my_project"}, ns.Packages())
	assert.Len(t, ns.PackageMacros("my_project"), 3)
}

func TestTestNamespaceBareLookupIsStable(t *testing.T) {
	r := NewRegistry()
	reg(t, r, "zeta_utils", "cast_ts")
	reg(t, r, "alpha_utils", "cast_ts")

	ns := NewTestNamespace(r, "my_project", []string{
		"macro.zeta_utils.cast_ts",
		"macro.alpha_utils.cast_ts",
	})

	// Both packages carry an allowed macro under the same bare name; the
	// alphabetically first package must win on every run.
	for range 10 {
		m, ok := ns.GetFromPackage("", "cast_ts")
		require.True(t, ok)
		assert.Equal(t, "alpha_utils", m.PackageName)
	}
}

func TestTestNamespaceCyclicDeps(t *testing.T) {
	r := NewRegistry()
	reg(t, r, "my_project", "a", "macro.my_project.b")
	reg(t, r, "my_project", "b", "macro.my_project.a")

	ns := NewTestNamespace(r, "my_project", []string{"macro.my_project.a"})
	assert.Equal(t, 2, ns.Allowed())
}
