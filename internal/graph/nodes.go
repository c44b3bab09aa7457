// Package graph provides the node data model and the read-only manifest
// lookup surface consumed by the resolution core. The manifest is built
// elsewhere; this package only answers "resolve symbolic name to node"
// queries and records the few well-defined parse-phase mutations onto the
// requesting node.
package graph

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stratum-data/stratum/internal/relation"
)

// NodeType classifies a declared resource.
type NodeType string

const (
	NodeTypeModel         NodeType = "model"
	NodeTypeSource        NodeType = "source"
	NodeTypeSeed          NodeType = "seed"
	NodeTypeSnapshot      NodeType = "snapshot"
	NodeTypeTest          NodeType = "test"
	NodeTypeUnit          NodeType = "unit_test"
	NodeTypeOperation     NodeType = "operation"
	NodeTypeMacro         NodeType = "macro"
	NodeTypeMetric        NodeType = "metric"
	NodeTypeExposure      NodeType = "exposure"
	NodeTypeSemanticModel NodeType = "semantic_model"
)

// AccessType is a model's declared visibility.
type AccessType string

const (
	AccessPrivate   AccessType = "private"
	AccessProtected AccessType = "protected"
	AccessPublic    AccessType = "public"
)

// RefArgs records one ref() call made by a node.
type RefArgs struct {
	Name    string `yaml:"name"`
	Package string `yaml:"package,omitempty"`
	Version string `yaml:"version,omitempty"`
}

// SourceArgs records one source() call made by a node.
type SourceArgs struct {
	Source string `yaml:"source"`
	Table  string `yaml:"table"`
}

// MetricArgs records one metric() call made by a node.
type MetricArgs struct {
	Name    string `yaml:"name"`
	Package string `yaml:"package,omitempty"`
}

// ColumnInfo is the declared metadata for one column of a node.
type ColumnInfo struct {
	Name     string `yaml:"name"`
	DataType string `yaml:"data_type,omitempty"`

	// Quote, when set, overrides the node-level column quoting policy.
	Quote *bool `yaml:"quote,omitempty"`
}

// Batch is the assigned processing window of a microbatch-incremental
// model. The window computation lives outside this core; only the
// resulting [Start, End) timestamps are consumed here.
type Batch struct {
	EventTimeStart time.Time `yaml:"event_time_start"`
	EventTimeEnd   time.Time `yaml:"event_time_end"`
}

// DeferRelation points at a node's previously-built production counterpart.
type DeferRelation struct {
	Database     string `yaml:"database"`
	Schema       string `yaml:"schema"`
	Identifier   string `yaml:"identifier"`
	RelationName string `yaml:"relation_name,omitempty"`
}

// NodeConfig holds the resolved configuration of a node.
type NodeConfig struct {
	Enabled             bool           `yaml:"enabled"`
	Materialized        string         `yaml:"materialized,omitempty"`
	IncrementalStrategy string         `yaml:"incremental_strategy,omitempty"`
	EventTime           string         `yaml:"event_time,omitempty"`
	BatchSize           string         `yaml:"batch_size,omitempty"`
	PreHooks            []string       `yaml:"pre_hooks,omitempty"`
	PostHooks           []string       `yaml:"post_hooks,omitempty"`
	Extra               map[string]any `yaml:"extra,omitempty"`
}

// Get looks up a config value by name, checking the typed fields first and
// falling back to the free-form extras.
func (c *NodeConfig) Get(name string) (any, bool) {
	switch name {
	case "enabled":
		return c.Enabled, true
	case "materialized":
		if c.Materialized == "" {
			return nil, false
		}
		return c.Materialized, true
	case "incremental_strategy":
		if c.IncrementalStrategy == "" {
			return nil, false
		}
		return c.IncrementalStrategy, true
	case "event_time":
		if c.EventTime == "" {
			return nil, false
		}
		return c.EventTime, true
	case "batch_size":
		if c.BatchSize == "" {
			return nil, false
		}
		return c.BatchSize, true
	}
	v, ok := c.Extra[name]
	return v, ok
}

// UnitTestOverrides carries the per-test overrides of a unit test node.
type UnitTestOverrides struct {
	Vars    map[string]any    `yaml:"vars,omitempty"`
	EnvVars map[string]string `yaml:"env_vars,omitempty"`

	// Macros maps a macro name (optionally package-qualified as "pkg.name")
	// to its override value.
	Macros map[string]any `yaml:"macros,omitempty"`
}

// Node is a declared unit in the dependency graph.
type Node struct {
	UniqueID     string   `yaml:"unique_id"`
	Name         string   `yaml:"name"`
	PackageName  string   `yaml:"package_name"`
	ResourceType NodeType `yaml:"resource_type"`
	Path         string   `yaml:"path,omitempty"`
	FileID       string   `yaml:"file_id,omitempty"`
	FQN          []string `yaml:"fqn,omitempty"`

	Database   string `yaml:"database,omitempty"`
	Schema     string `yaml:"schema,omitempty"`
	Identifier string `yaml:"identifier,omitempty"`

	// SourceName is set for source table nodes only.
	SourceName string `yaml:"source_name,omitempty"`

	Version       string `yaml:"version,omitempty"`
	LatestVersion string `yaml:"latest_version,omitempty"`

	Access AccessType `yaml:"access,omitempty"`
	Group  string     `yaml:"group,omitempty"`

	Config  NodeConfig            `yaml:"config"`
	Columns map[string]ColumnInfo `yaml:"columns,omitempty"`
	Quoting relation.QuotePolicy  `yaml:"quoting"`

	DependsOnNodes  []string `yaml:"depends_on_nodes,omitempty"`
	DependsOnMacros []string `yaml:"depends_on_macros,omitempty"`

	// Parse-phase reference records, mutated by the resolvers.
	Refs      []RefArgs    `yaml:"refs,omitempty"`
	Sources   []SourceArgs `yaml:"sources,omitempty"`
	Metrics   []MetricArgs `yaml:"metrics,omitempty"`
	ExtraCTEs []string     `yaml:"-"`

	RawCode           string `yaml:"raw_code,omitempty"`
	CompiledCode      string `yaml:"compiled_code,omitempty"`
	ExtraCTEsInjected bool   `yaml:"-"`
	Language          string `yaml:"language,omitempty"`

	Batch         *Batch         `yaml:"batch,omitempty"`
	DeferRelation *DeferRelation `yaml:"defer_relation,omitempty"`

	// Unit-test-only fields.
	ThisInputNodeUniqueID string             `yaml:"this_input_node_unique_id,omitempty"`
	Overrides             *UnitTestOverrides `yaml:"overrides,omitempty"`
}

// UnmarshalYAML decodes a node with enabled-by-default semantics: a node
// is disabled only when its config says so explicitly, including when the
// config block is absent altogether.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	type plain Node
	raw := plain{Config: NodeConfig{Enabled: true}}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*n = Node(raw)
	return nil
}

// IsEphemeralModel reports whether the node is a virtual, non-materialized
// model inlined at its point of reference.
func (n *Node) IsEphemeralModel() bool {
	return n.ResourceType == NodeTypeModel && n.Config.Materialized == "ephemeral"
}

// IsMicrobatch reports whether the node is a microbatch-incremental model.
func (n *Node) IsMicrobatch() bool {
	return n.ResourceType == NodeTypeModel &&
		n.Config.Materialized == "incremental" &&
		n.Config.IncrementalStrategy == "microbatch"
}

// SetCTE registers the target unique ID as a common-table-expression source
// of the node's current statement. Repeat registration is idempotent.
func (n *Node) SetCTE(uniqueID string) {
	for _, id := range n.ExtraCTEs {
		if id == uniqueID {
			return
		}
	}
	n.ExtraCTEs = append(n.ExtraCTEs, uniqueID)
}

// DependsOn reports whether the node declared the unique ID as a dependency.
func (n *Node) DependsOn(uniqueID string) bool {
	for _, id := range n.DependsOnNodes {
		if id == uniqueID {
			return true
		}
	}
	return false
}

// FQNScopeKey returns the node's package for variable scoping.
func (n *Node) FQNScopeKey() string { return n.PackageName }

// String implements fmt.Stringer for diagnostics.
func (n *Node) String() string {
	return fmt.Sprintf("%s %s", n.ResourceType, n.UniqueID)
}
