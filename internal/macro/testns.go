package macro

import "sort"

// WhereSubqueryMacro is needed by every generic schema test to wrap its
// model argument, so the restricted test namespace always includes it.
const WhereSubqueryMacro = "get_where_subquery"

// TestNamespace restricts lookups to a schema test's declared macro
// dependencies, the universally-needed where-subquery helper, and the
// transitive macro dependencies of both.
type TestNamespace struct {
	registry *Registry
	allowed  map[string]struct{}
}

// NewTestNamespace builds the restricted namespace for one test node.
// dependsOnMacros lists the unique IDs of the test's declared macro deps.
func NewTestNamespace(registry *Registry, rootProject string, dependsOnMacros []string) *TestNamespace {
	ids := make([]string, 0, len(dependsOnMacros)+1)
	if helper, ok := registry.GetByName(rootProject, WhereSubqueryMacro); ok {
		ids = append(ids, helper.UniqueID)
	}
	ids = append(ids, dependsOnMacros...)

	allowed := make(map[string]struct{})
	// Breadth-first over macro deps; the frontier only grows with unseen IDs.
	for len(ids) > 0 {
		id := ids[0]
		ids = ids[1:]
		if _, seen := allowed[id]; seen {
			continue
		}
		allowed[id] = struct{}{}
		if m, ok := registry.Get(id); ok {
			ids = append(ids, m.DependsOnMacros...)
		}
	}
	return &TestNamespace{registry: registry, allowed: allowed}
}

// GetFromPackage implements Namespace, answering only for allowed macros.
func (ns *TestNamespace) GetFromPackage(pkg, name string) (*Macro, bool) {
	ns.registry.mu.RLock()
	defer ns.registry.mu.RUnlock()
	if pkg == "" {
		// Scan packages in sorted order so a name present in several
		// packages resolves the same way every run.
		pkgs := make([]string, 0, len(ns.registry.byPackage))
		for candidatePkg := range ns.registry.byPackage {
			pkgs = append(pkgs, candidatePkg)
		}
		sort.Strings(pkgs)
		for _, candidatePkg := range pkgs {
			if m, ok := ns.registry.byPackage[candidatePkg][name]; ok {
				if _, allowed := ns.allowed[m.UniqueID]; allowed {
					return m, true
				}
			}
		}
		return nil, false
	}
	m, ok := ns.registry.byPackage[pkg][name]
	if !ok {
		return nil, false
	}
	if _, allowed := ns.allowed[m.UniqueID]; !allowed {
		return nil, false
	}
	return m, true
}

// Packages implements Namespace, listing only packages with at least one
// allowed macro.
func (ns *TestNamespace) Packages() []string {
	var out []string
	for _, pkg := range ns.registry.Packages() {
		if len(ns.PackageMacros(pkg)) > 0 {
			out = append(out, pkg)
		}
	}
	return out
}

// PackageMacros implements Namespace, filtered to allowed macros.
func (ns *TestNamespace) PackageMacros(pkg string) map[string]*Macro {
	out := make(map[string]*Macro)
	for name, m := range ns.registry.PackageMacros(pkg) {
		if _, allowed := ns.allowed[m.UniqueID]; allowed {
			out[name] = m
		}
	}
	return out
}

// Allowed returns the number of macros visible through this namespace.
func (ns *TestNamespace) Allowed() int { return len(ns.allowed) }
