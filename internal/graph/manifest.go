package graph

import (
	"fmt"
	"sort"
	"sync"
)

// Disabled wraps a node that exists but is explicitly disabled. Resolution
// distinguishes "disabled" from "absent" so errors can say which.
type Disabled struct {
	Target *Node
}

// Manifest is the read-only lookup surface over the dependency graph.
// It is shared across concurrently rendered units; all lookup methods take
// a read lock. The only mutations this core performs are per-node reference
// records (guarded by the node's renderer, not by the manifest) and the
// env-var bookkeeping below.
type Manifest struct {
	mu sync.RWMutex

	nodes   map[string]*Node // unique ID -> node
	metrics map[string]*Node
	sources map[string]*Node // "source_name.table_name" scoped per package

	disabled map[string][]*Node // name -> disabled candidates

	// EnvVars records each env var referenced during rendering, mapped to
	// its value or the default placeholder.
	envVars map[string]string
	// fileEnvVars records which env vars each source file referenced.
	fileEnvVars map[string][]string

	files map[string]struct{} // known source file IDs
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		nodes:       make(map[string]*Node),
		metrics:     make(map[string]*Node),
		sources:     make(map[string]*Node),
		disabled:    make(map[string][]*Node),
		envVars:     make(map[string]string),
		fileEnvVars: make(map[string][]string),
		files:       make(map[string]struct{}),
	}
}

// AddNode registers a node under its unique ID. Disabled nodes are kept in
// a side table so resolution can report them as disabled rather than absent.
func (m *Manifest) AddNode(n *Node) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n.FileID != "" {
		m.files[n.FileID] = struct{}{}
	}

	if !n.Config.Enabled {
		m.disabled[n.Name] = append(m.disabled[n.Name], n)
		return
	}

	switch n.ResourceType {
	case NodeTypeMetric:
		m.metrics[n.UniqueID] = n
	case NodeTypeSource:
		m.sources[n.SourceName+"."+n.Name] = n
		m.nodes[n.UniqueID] = n
	default:
		m.nodes[n.UniqueID] = n
	}
}

// ResolveRef resolves a ref() target by (name, package, version), preferring
// the requester's own package, then the current project, then any unique
// match. The second return reports whether a matching node exists but is
// disabled.
func (m *Manifest) ResolveRef(name, pkg, version, currentProject, nodePackage string) (*Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var candidates []*Node
	for _, n := range m.nodes {
		if n.ResourceType == NodeTypeSource || n.ResourceType == NodeTypeMetric {
			continue
		}
		if n.Name != name {
			continue
		}
		if pkg != "" && n.PackageName != pkg {
			continue
		}
		if version != "" && n.Version != version {
			continue
		}
		if version == "" && n.Version != "" && n.LatestVersion != "" && n.Version != n.LatestVersion {
			// Unpinned refs resolve to the latest version only.
			continue
		}
		candidates = append(candidates, n)
	}

	if target := pickCandidate(candidates, currentProject, nodePackage); target != nil {
		return target, false
	}

	for _, n := range m.disabled[name] {
		if pkg == "" || n.PackageName == pkg {
			return nil, true
		}
	}
	return nil, false
}

// ResolveSource resolves a source() target by (source name, table name).
func (m *Manifest) ResolveSource(sourceName, tableName, currentProject, nodePackage string) (*Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n, ok := m.sources[sourceName+"."+tableName]; ok {
		return n, false
	}
	for _, n := range m.disabled[tableName] {
		if n.ResourceType == NodeTypeSource && n.SourceName == sourceName {
			return nil, true
		}
	}
	return nil, false
}

// ResolveMetric resolves a metric() target by (name, package).
func (m *Manifest) ResolveMetric(name, pkg, currentProject, nodePackage string) (*Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var candidates []*Node
	for _, n := range m.metrics {
		if n.Name != name {
			continue
		}
		if pkg != "" && n.PackageName != pkg {
			continue
		}
		candidates = append(candidates, n)
	}
	if target := pickCandidate(candidates, currentProject, nodePackage); target != nil {
		return target, false
	}
	for _, n := range m.disabled[name] {
		if n.ResourceType == NodeTypeMetric {
			return nil, true
		}
	}
	return nil, false
}

// pickCandidate disambiguates same-name nodes: requester's package first,
// then the current project, then a unique match.
func pickCandidate(candidates []*Node, currentProject, nodePackage string) *Node {
	switch len(candidates) {
	case 0:
		return nil
	case 1:
		return candidates[0]
	}
	// Candidates come out of map iteration; pin the order before
	// tie-breaking so resolution is stable across runs.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].UniqueID < candidates[j].UniqueID
	})
	for _, pkg := range []string{nodePackage, currentProject} {
		for _, n := range candidates {
			if n.PackageName == pkg {
				return n
			}
		}
	}
	return candidates[0]
}

// IsInvalidPrivateRef reports whether node crosses target's private group
// boundary.
func (m *Manifest) IsInvalidPrivateRef(node, target *Node) bool {
	return target.Access == AccessPrivate &&
		(target.Group == "" || node.Group != target.Group)
}

// IsInvalidProtectedRef reports whether node crosses target's protected
// package boundary.
func (m *Manifest) IsInvalidProtectedRef(node, target *Node) bool {
	return target.Access == AccessProtected && node.PackageName != target.PackageName
}

// Expect returns the node with the given unique ID, failing when absent.
func (m *Manifest) Expect(uniqueID string) (*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n, ok := m.nodes[uniqueID]; ok {
		return n, nil
	}
	if n, ok := m.metrics[uniqueID]; ok {
		return n, nil
	}
	return nil, fmt.Errorf("expected node %q was not found in the manifest", uniqueID)
}

// Nodes returns all enabled nodes keyed by unique ID. The returned map is a
// copy; the nodes themselves are shared.
func (m *Manifest) Nodes() map[string]*Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*Node, len(m.nodes))
	for id, n := range m.nodes {
		out[id] = n
	}
	return out
}

// FlatGraph returns the template-facing graph mapping: node IDs onto plain
// map representations, split into nodes, sources and metrics.
func (m *Manifest) FlatGraph() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	nodes := make(map[string]any)
	sources := make(map[string]any)
	for id, n := range m.nodes {
		if n.ResourceType == NodeTypeSource {
			sources[id] = flattenNode(n)
		} else {
			nodes[id] = flattenNode(n)
		}
	}
	metrics := make(map[string]any, len(m.metrics))
	for id, n := range m.metrics {
		metrics[id] = flattenNode(n)
	}
	return map[string]any{
		"nodes":   nodes,
		"sources": sources,
		"metrics": metrics,
	}
}

// Flatten returns the template-facing view of the node, matching the shape
// FlatGraph uses for its entries.
func (n *Node) Flatten() map[string]any { return flattenNode(n) }

func flattenNode(n *Node) map[string]any {
	out := map[string]any{
		"unique_id":     n.UniqueID,
		"name":          n.Name,
		"package_name":  n.PackageName,
		"resource_type": string(n.ResourceType),
		"database":      n.Database,
		"schema":        n.Schema,
		"identifier":    n.Identifier,
		"config": map[string]any{
			"enabled":      n.Config.Enabled,
			"materialized": n.Config.Materialized,
		},
	}
	if n.SourceName != "" {
		out["source_name"] = n.SourceName
	}
	return out
}

// DefaultEnvPlaceholder is recorded for env vars satisfied by a default, so
// partial reparsing can tell "default used" from a real value change.
const DefaultEnvPlaceholder = "__stratum_env_default__"

// RecordEnvVar stores the env var value (or the default placeholder) and
// appends the var name to the node's source file record. Safe to repeat;
// callers serialize per-node mutation.
func (m *Manifest) RecordEnvVar(node *Node, name, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.envVars[name] = value
	if node == nil || node.FileID == "" {
		return
	}
	if _, ok := m.files[node.FileID]; !ok {
		return
	}
	for _, existing := range m.fileEnvVars[node.FileID] {
		if existing == name {
			return
		}
	}
	m.fileEnvVars[node.FileID] = append(m.fileEnvVars[node.FileID], name)
}

// EnvVarsForFile returns the env vars recorded against one source file.
func (m *Manifest) EnvVarsForFile(fileID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.fileEnvVars[fileID]))
	copy(out, m.fileEnvVars[fileID])
	return out
}

// EnvVars returns a copy of the recorded env var values.
func (m *Manifest) EnvVars() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.envVars))
	for k, v := range m.envVars {
		out[k] = v
	}
	return out
}
