package resolve

import (
	"github.com/stratum-data/stratum/internal/graph"
)

// hookKeySpellings maps the legacy underscore hook keys to their canonical
// hyphenated form.
var hookKeySpellings = map[string]string{
	"pre_hook":  "pre-hook",
	"post_hook": "post-hook",
}

// ConfigCollector accumulates the config() calls a node makes while its
// template is parsed. The graph builder merges the calls into the node's
// resolved config afterwards; resolution itself never reads them back.
type ConfigCollector struct {
	calls []map[string]any
}

func NewConfigCollector() *ConfigCollector {
	return &ConfigCollector{}
}

func (c *ConfigCollector) add(call map[string]any) {
	c.calls = append(c.calls, call)
}

// Calls returns the accumulated config() calls in call order.
func (c *ConfigCollector) Calls() []map[string]any {
	return c.calls
}

// Validator checks a resolved config value, returning a descriptive error
// when the value is unacceptable.
type Validator func(value any) error

// ConfigAccessor is the config object exposed to templates. The parse
// variant records declarations; the runtime variant reads resolved values.
type ConfigAccessor interface {
	// Call handles an inline config(...) invocation. Exactly one of
	// positional (a single mapping) or kwargs may be non-empty.
	Call(positional []any, kwargs map[string]any) error

	// Require returns the value of a mandatory config key.
	Require(name string, validator Validator) (any, error)

	// Get returns the value of an optional config key, or def when absent.
	Get(name string, def any, validator Validator) (any, error)
}

// NewConfigAccessor selects the config behavior for a provider. The
// collector is required for the parse variant and ignored otherwise.
func NewConfigAccessor(p Provider, node *graph.Node, collector *ConfigCollector) ConfigAccessor {
	if p.ParseConfig {
		return &parseConfig{node: node, collector: collector}
	}
	return &runtimeConfig{node: node}
}

// parseConfig records config() declarations onto the collector. Lookups
// return empty because layered config is not merged until the graph builder
// runs.
type parseConfig struct {
	node      *graph.Node
	collector *ConfigCollector
}

func (c *parseConfig) Call(positional []any, kwargs map[string]any) error {
	if c.collector == nil {
		return &InternalError{Message: "config() called without an active config collector for " + c.node.UniqueID}
	}
	call, err := normalizeConfigCall(c.node, positional, kwargs)
	if err != nil {
		return err
	}
	c.collector.add(call)
	return nil
}

func (c *parseConfig) Require(string, Validator) (any, error) { return "", nil }

func (c *parseConfig) Get(string, any, Validator) (any, error) { return "", nil }

// normalizeConfigCall validates the call shape and canonicalizes hook key
// spellings.
func normalizeConfigCall(node *graph.Node, positional []any, kwargs map[string]any) (map[string]any, error) {
	var call map[string]any
	switch {
	case len(positional) == 1 && len(kwargs) == 0:
		m, ok := positional[0].(map[string]any)
		if !ok {
			return nil, &InlineConfigError{Node: node}
		}
		call = make(map[string]any, len(m))
		for k, v := range m {
			call[k] = v
		}
	case len(positional) == 0 && len(kwargs) > 0:
		call = make(map[string]any, len(kwargs))
		for k, v := range kwargs {
			call[k] = v
		}
	default:
		return nil, &InlineConfigError{Node: node}
	}

	for oldKey, newKey := range hookKeySpellings {
		v, ok := call[oldKey]
		if !ok {
			continue
		}
		if _, both := call[newKey]; both {
			return nil, &ConflictingConfigKeysError{Node: node, OldKey: oldKey, NewKey: newKey}
		}
		delete(call, oldKey)
		call[newKey] = v
	}
	return call, nil
}

// runtimeConfig reads the node's already-resolved config.
type runtimeConfig struct {
	node *graph.Node
}

// Call is a no-op at runtime: the declarations were already merged during
// parsing, so re-running them must not mutate anything.
func (c *runtimeConfig) Call(positional []any, kwargs map[string]any) error {
	if _, err := normalizeConfigCall(c.node, positional, kwargs); err != nil {
		return err
	}
	return nil
}

func (c *runtimeConfig) Require(name string, validator Validator) (any, error) {
	v, ok := c.node.Config.Get(name)
	if !ok {
		return nil, &MissingConfigError{UniqueID: c.node.UniqueID, Name: name}
	}
	if validator != nil {
		if err := validator(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (c *runtimeConfig) Get(name string, def any, validator Validator) (any, error) {
	v, ok := c.node.Config.Get(name)
	if !ok {
		return def, nil
	}
	if validator != nil {
		if err := validator(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// PersistRelationDocs reports whether relation-level doc persistence is
// enabled by the persist_docs config mapping.
func PersistRelationDocs(node *graph.Node) (bool, error) {
	return persistDocsFlag(node, "relation")
}

// PersistColumnDocs reports whether column-level doc persistence is enabled
// by the persist_docs config mapping.
func PersistColumnDocs(node *graph.Node) (bool, error) {
	return persistDocsFlag(node, "columns")
}

func persistDocsFlag(node *graph.Node, key string) (bool, error) {
	raw, ok := node.Config.Get("persist_docs")
	if !ok || raw == nil {
		return false, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return false, &PersistDocsError{Value: raw}
	}
	enabled, _ := m[key].(bool)
	return enabled, nil
}
