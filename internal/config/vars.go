package config

// VarBlock holds a project's variable definitions. Three levels of scoping
// are supported, narrowest winning on key collision:
//
//	vars:
//	  start_date: "2024-01-01"     # project-wide
//	  analytics:                   # scoped to the "analytics" package
//	    start_date: "2023-06-01"
//	  duckdb:                      # scoped to the active adapter type
//	    fast_mode: true
//
// Nested maps whose key matches neither the requesting package nor the
// adapter type are treated as plain map values.
type VarBlock map[string]any

// FQNScope identifies the requester of a variable lookup: its package and,
// when available, its fully-qualified name. Macros have no FQN identity and
// fall back to a package-level-only scope.
type FQNScope struct {
	PackageName string
	FQN         []string
}

// VarsFor flattens the block for one requesting scope and adapter type.
func (v VarBlock) VarsFor(scope FQNScope, adapterType string) map[string]any {
	merged := make(map[string]any, len(v))
	for key, val := range v {
		if key == scope.PackageName || key == adapterType {
			continue
		}
		if _, isMap := val.(map[string]any); isMap {
			// Package- or adapter-scoped block for someone else.
			continue
		}
		merged[key] = val
	}
	// Package scope overrides project scope, adapter scope overrides both.
	for _, scopeKey := range []string{scope.PackageName, adapterType} {
		if sub, ok := v[scopeKey].(map[string]any); ok {
			for key, val := range sub {
				merged[key] = val
			}
		}
	}
	return merged
}
