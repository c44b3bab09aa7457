package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVarsForProjectWide(t *testing.T) {
	block := VarBlock{"start_date": "2024-01-01", "retries": 3}
	got := block.VarsFor(FQNScope{PackageName: "analytics"}, "duckdb")
	assert.Equal(t, "2024-01-01", got["start_date"])
	assert.Equal(t, 3, got["retries"])
}

func TestVarsForPackageScopeWins(t *testing.T) {
	block := VarBlock{
		"start_date": "2024-01-01",
		"analytics": map[string]any{
			"start_date": "2023-06-01",
		},
	}
	got := block.VarsFor(FQNScope{PackageName: "analytics"}, "duckdb")
	assert.Equal(t, "2023-06-01", got["start_date"])

	other := block.VarsFor(FQNScope{PackageName: "marketing"}, "duckdb")
	assert.Equal(t, "2024-01-01", other["start_date"])
	_, leaked := other["analytics"]
	assert.False(t, leaked, "foreign package block must not leak as a plain value")
}

func TestVarsForAdapterScopeWinsOverPackage(t *testing.T) {
	block := VarBlock{
		"mode": "standard",
		"analytics": map[string]any{
			"mode": "package",
		},
		"duckdb": map[string]any{
			"mode": "adapter",
		},
	}
	got := block.VarsFor(FQNScope{PackageName: "analytics"}, "duckdb")
	assert.Equal(t, "adapter", got["mode"])
}

func TestRuntimeConfigIsSelected(t *testing.T) {
	cfg := &RuntimeConfig{SelectedResources: []string{"model.p.a"}}
	assert.True(t, cfg.IsSelected("model.p.a"))
	assert.False(t, cfg.IsSelected("model.p.b"))
}

func TestMacroSearchOrderFor(t *testing.T) {
	cfg := &RuntimeConfig{
		ProjectName: "root",
		Dependencies: map[string]*PackageConfig{
			"utils": {Name: "utils", MacroSearchOrder: []string{"root", "utils", "extras"}},
			"plain": {Name: "plain"},
		},
	}
	assert.Equal(t, []string{"root", "utils", "extras"}, cfg.MacroSearchOrderFor("utils"))
	assert.Nil(t, cfg.MacroSearchOrderFor("plain"))
	assert.Nil(t, cfg.MacroSearchOrderFor("root"))
}
