package resolve

import (
	"github.com/stratum-data/stratum/internal/config"
	"github.com/stratum-data/stratum/internal/graph"
)

// VarResolver merges variable definitions for one requesting node.
// Precedence, later winning: the requester's dependency package (when the
// requester lives outside the root project), the root project, CLI
// overrides, then unit-test overrides when present.
type VarResolver struct {
	cfg  *config.RuntimeConfig
	node *graph.Node

	// missingOK makes lookups of undefined vars return nil (parse phase).
	missingOK bool

	// overrides is the test-local layer of a unit-test run.
	overrides map[string]any

	merged map[string]any
}

// NewVarResolver selects the var behavior for a provider and builds the
// merged view once.
func NewVarResolver(p Provider, cfg *config.RuntimeConfig, node *graph.Node) *VarResolver {
	v := &VarResolver{cfg: cfg, node: node, missingOK: p.ParseVars}
	if p.UnitTestVars && node.Overrides != nil && len(node.Overrides.Vars) > 0 {
		// Deep copy so mutation of the test node cannot leak into
		// lookups, including through nested maps and lists.
		v.overrides = make(map[string]any, len(node.Overrides.Vars))
		for k, val := range node.Overrides.Vars {
			v.overrides[k] = deepCopyValue(val)
		}
	}
	v.merged = v.generateMerged()
	return v
}

// scope returns the FQN scope for the requesting node. Macros lack an FQN
// identity and fall back to a package-level-only scope.
func (v *VarResolver) scope() config.FQNScope {
	if len(v.node.FQN) > 0 {
		return config.FQNScope{PackageName: v.node.PackageName, FQN: v.node.FQN}
	}
	return config.FQNScope{PackageName: v.node.PackageName}
}

func (v *VarResolver) generateMerged() map[string]any {
	scope := v.scope()
	adapterType := v.cfg.AdapterType()

	merged := make(map[string]any)
	if v.node.PackageName != v.cfg.ProjectName {
		if dep, ok := v.cfg.Dependencies[v.node.PackageName]; ok {
			for k, val := range dep.Vars.VarsFor(scope, adapterType) {
				merged[k] = val
			}
		}
	}
	for k, val := range v.cfg.Vars.VarsFor(scope, adapterType) {
		merged[k] = val
	}
	for k, val := range v.cfg.CLIVars {
		merged[k] = val
	}
	for k, val := range v.overrides {
		merged[k] = val
	}
	return merged
}

// Has reports whether the variable is defined.
func (v *VarResolver) Has(name string) bool {
	_, ok := v.merged[name]
	return ok
}

// Get returns the variable value, or the default when undefined. With no
// default, an undefined variable is nil at parse time and an error at
// runtime.
func (v *VarResolver) Get(name string, def any) (any, error) {
	if val, ok := v.merged[name]; ok {
		return val, nil
	}
	if def != nil {
		return def, nil
	}
	if v.missingOK {
		return nil, nil
	}
	return nil, &MissingVarError{UniqueID: v.node.UniqueID, Name: name}
}

// deepCopyValue copies the YAML-shaped value kinds override vars carry.
// Scalars are returned as is.
func deepCopyValue(val any) any {
	switch typed := val.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, item := range typed {
			out[k] = deepCopyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return val
	}
}
