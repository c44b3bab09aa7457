package resolve

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigCollectsCalls(t *testing.T) {
	node := modelNode("model.my_project.orders", "orders", "my_project")
	collector := NewConfigCollector()
	acc := NewConfigAccessor(ParseProvider, node, collector)

	require.NoError(t, acc.Call(nil, map[string]any{"materialized": "view"}))
	require.NoError(t, acc.Call([]any{map[string]any{"tags": []string{"nightly"}}}, nil))

	calls := collector.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, map[string]any{"materialized": "view"}, calls[0])
	assert.Equal(t, map[string]any{"tags": []string{"nightly"}}, calls[1])

	// Lookups are empty at parse time; layered config is not merged yet.
	v, err := acc.Require("materialized", nil)
	require.NoError(t, err)
	assert.Equal(t, "", v)
	v, err = acc.Get("materialized", "table", nil)
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestParseConfigHookSpellings(t *testing.T) {
	node := modelNode("model.my_project.orders", "orders", "my_project")
	collector := NewConfigCollector()
	acc := NewConfigAccessor(ParseProvider, node, collector)

	require.NoError(t, acc.Call(nil, map[string]any{"pre_hook": "analyze"}))
	assert.Equal(t, map[string]any{"pre-hook": "analyze"}, collector.Calls()[0])

	err := acc.Call(nil, map[string]any{"post_hook": "a", "post-hook": "b"})
	var conflict *ConflictingConfigKeysError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "post_hook", conflict.OldKey)
}

func TestParseConfigInvalidShapes(t *testing.T) {
	node := modelNode("model.my_project.orders", "orders", "my_project")
	acc := NewConfigAccessor(ParseProvider, node, NewConfigCollector())

	var inline *InlineConfigError
	// Mixing positional and keyword arguments.
	err := acc.Call([]any{map[string]any{"a": 1}}, map[string]any{"b": 2})
	require.ErrorAs(t, err, &inline)
	// Neither.
	err = acc.Call(nil, nil)
	require.ErrorAs(t, err, &inline)
	// Positional argument that is not a mapping.
	err = acc.Call([]any{"view"}, nil)
	require.ErrorAs(t, err, &inline)
}

func TestParseConfigWithoutCollector(t *testing.T) {
	node := modelNode("model.my_project.orders", "orders", "my_project")
	acc := NewConfigAccessor(ParseProvider, node, nil)

	err := acc.Call(nil, map[string]any{"materialized": "view"})
	var internal *InternalError
	require.ErrorAs(t, err, &internal)
}

func TestRuntimeConfigReadsResolvedValues(t *testing.T) {
	node := modelNode("model.my_project.orders", "orders", "my_project")
	node.Config.Materialized = "incremental"
	node.Config.Extra = map[string]any{"unique_key": "id"}
	acc := NewConfigAccessor(RuntimeProvider, node, nil)

	v, err := acc.Require("materialized", nil)
	require.NoError(t, err)
	assert.Equal(t, "incremental", v)

	v, err = acc.Get("unique_key", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "id", v)

	v, err = acc.Get("cluster_by", "none", nil)
	require.NoError(t, err)
	assert.Equal(t, "none", v)

	_, err = acc.Require("cluster_by", nil)
	var missing *MissingConfigError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "cluster_by", missing.Name)
}

func TestRuntimeConfigValidator(t *testing.T) {
	node := modelNode("model.my_project.orders", "orders", "my_project")
	node.Config.Materialized = "incremental"
	acc := NewConfigAccessor(RuntimeProvider, node, nil)

	onlyView := func(v any) error {
		if v != "view" {
			return fmt.Errorf("expected view, got %v", v)
		}
		return nil
	}
	_, err := acc.Require("materialized", onlyView)
	require.Error(t, err)
	_, err = acc.Get("materialized", nil, onlyView)
	require.Error(t, err)

	// The validator never sees the default of an absent key.
	v, err := acc.Get("cluster_by", "fallback", onlyView)
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)
}

func TestRuntimeConfigCallIsNoop(t *testing.T) {
	node := modelNode("model.my_project.orders", "orders", "my_project")
	acc := NewConfigAccessor(RuntimeProvider, node, nil)

	require.NoError(t, acc.Call(nil, map[string]any{"materialized": "view"}))
	assert.Empty(t, node.Config.Materialized, "re-running config() must not mutate the node")

	// Shape validation still applies.
	err := acc.Call([]any{1}, map[string]any{"a": 2})
	var inline *InlineConfigError
	require.ErrorAs(t, err, &inline)
}

func TestPersistDocsFlags(t *testing.T) {
	node := modelNode("model.my_project.orders", "orders", "my_project")

	rel, err := PersistRelationDocs(node)
	require.NoError(t, err)
	assert.False(t, rel, "absent persist_docs disables persistence")

	node.Config.Extra = map[string]any{
		"persist_docs": map[string]any{"relation": true, "columns": false},
	}
	rel, err = PersistRelationDocs(node)
	require.NoError(t, err)
	assert.True(t, rel)
	cols, err := PersistColumnDocs(node)
	require.NoError(t, err)
	assert.False(t, cols)

	node.Config.Extra["persist_docs"] = "yes"
	_, err = PersistRelationDocs(node)
	var docsErr *PersistDocsError
	require.ErrorAs(t, err, &docsErr)
}
