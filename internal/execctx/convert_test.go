package execctx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"github.com/stratum-data/stratum/internal/relation"
)

func TestGoToStarlarkNested(t *testing.T) {
	v, err := GoToStarlark(map[string]any{
		"name":    "orders",
		"enabled": true,
		"tags":    []string{"nightly", "core"},
		"meta":    map[string]any{"owner": "data-eng", "priority": 1},
	})
	require.NoError(t, err)

	dict, ok := v.(*starlark.Dict)
	require.True(t, ok)
	name, found, err := dict.Get(starlark.String("name"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, starlark.String("orders"), name)

	back, err := ToGo(v)
	require.NoError(t, err)
	m := back.(map[string]any)
	assert.Equal(t, []any{"nightly", "core"}, m["tags"])
	assert.Equal(t, int64(1), m["meta"].(map[string]any)["priority"])
}

func TestGoToStarlarkTime(t *testing.T) {
	ts := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	v, err := GoToStarlark(ts)
	require.NoError(t, err)
	assert.Equal(t, starlark.String("2026-03-10T12:00:00Z"), v)
}

func TestGoToStarlarkStringer(t *testing.T) {
	rel := relation.Create("dev", "analytics", "orders", relation.QuotePolicy{})
	v, err := GoToStarlark(rel)
	require.NoError(t, err)
	assert.Equal(t, starlark.String("dev.analytics.orders"), v)
}

func TestGoToStarlarkUnsupported(t *testing.T) {
	_, err := GoToStarlark(struct{ X int }{1})
	require.Error(t, err)
}

func TestToGoScalars(t *testing.T) {
	for _, tc := range []struct {
		in   starlark.Value
		want any
	}{
		{starlark.None, nil},
		{starlark.String("x"), "x"},
		{starlark.MakeInt(7), int64(7)},
		{starlark.Float(1.5), 1.5},
		{starlark.True, true},
		{starlark.Tuple{starlark.String("a"), starlark.MakeInt(1)}, []any{"a", int64(1)}},
	} {
		got, err := ToGo(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}
