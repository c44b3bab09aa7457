// Package macro provides per-package macro namespaces and loading of
// Starlark macro files. Macros are looked up by (package, name) during
// adapter dispatch and exposed to templates through the execution context.
package macro

import (
	"fmt"
	"sort"
	"sync"

	"go.starlark.net/starlark"
)

// CorePackage is the built-in package whose macros are exposed both under
// their own names and under the core namespace alias.
const CorePackage = "stratum"

// Macro is one loaded macro definition.
type Macro struct {
	// UniqueID is "macro.<package>.<name>".
	UniqueID string

	Name        string
	PackageName string

	// Fn is the callable Starlark value.
	Fn starlark.Value

	// DependsOnMacros lists the unique IDs of macros this macro calls.
	DependsOnMacros []string
}

// MacroID builds the unique ID for a (package, name) pair.
func MacroID(pkg, name string) string {
	return fmt.Sprintf("macro.%s.%s", pkg, name)
}

// Registry holds all loaded macros, indexed by package and by unique ID.
type Registry struct {
	mu sync.RWMutex

	byPackage map[string]map[string]*Macro
	byID      map[string]*Macro
}

// NewRegistry creates an empty macro registry.
func NewRegistry() *Registry {
	return &Registry{
		byPackage: make(map[string]map[string]*Macro),
		byID:      make(map[string]*Macro),
	}
}

// Register adds a macro. Registering the same (package, name) twice
// replaces the earlier definition.
func (r *Registry) Register(m *Macro) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.UniqueID == "" {
		m.UniqueID = MacroID(m.PackageName, m.Name)
	}
	pkg, ok := r.byPackage[m.PackageName]
	if !ok {
		pkg = make(map[string]*Macro)
		r.byPackage[m.PackageName] = pkg
	}
	pkg[m.Name] = m
	r.byID[m.UniqueID] = m
}

// Get looks up a macro by unique ID.
func (r *Registry) Get(uniqueID string) (*Macro, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[uniqueID]
	return m, ok
}

// GetByName finds a macro by bare name, searching the root project first,
// then the core package, then any package (sorted for determinism).
func (r *Registry) GetByName(rootProject, name string) (*Macro, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, pkg := range []string{rootProject, CorePackage} {
		if m, ok := r.byPackage[pkg][name]; ok {
			return m, true
		}
	}
	names := make([]string, 0, len(r.byPackage))
	for pkg := range r.byPackage {
		names = append(names, pkg)
	}
	sort.Strings(names)
	for _, pkg := range names {
		if m, ok := r.byPackage[pkg][name]; ok {
			return m, true
		}
	}
	return nil, false
}

// Packages returns the sorted package names with at least one macro.
func (r *Registry) Packages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byPackage))
	for pkg := range r.byPackage {
		names = append(names, pkg)
	}
	sort.Strings(names)
	return names
}

// PackageMacros returns the macros of one package keyed by name.
func (r *Registry) PackageMacros(pkg string) map[string]*Macro {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*Macro, len(r.byPackage[pkg]))
	for name, m := range r.byPackage[pkg] {
		out[name] = m
	}
	return out
}

// Namespace answers (package, name) macro lookups. The full-project
// namespace searches everything; the test namespace is restricted to a
// test's declared macro dependencies.
type Namespace interface {
	// GetFromPackage returns the macro for a qualified name. An empty
	// package searches unqualified (root project, core, then any package).
	GetFromPackage(pkg, name string) (*Macro, bool)

	// Packages returns the sorted package names visible in this namespace.
	Packages() []string

	// PackageMacros returns the visible macros of one package keyed by name.
	PackageMacros(pkg string) map[string]*Macro
}

// FullNamespace is the project-wide namespace over the registry.
type FullNamespace struct {
	registry    *Registry
	rootProject string
}

// NewFullNamespace creates the project-wide namespace.
func NewFullNamespace(registry *Registry, rootProject string) *FullNamespace {
	return &FullNamespace{registry: registry, rootProject: rootProject}
}

// GetFromPackage implements Namespace.
func (ns *FullNamespace) GetFromPackage(pkg, name string) (*Macro, bool) {
	if pkg == "" {
		return ns.registry.GetByName(ns.rootProject, name)
	}
	ns.registry.mu.RLock()
	defer ns.registry.mu.RUnlock()
	m, ok := ns.registry.byPackage[pkg][name]
	return m, ok
}

// Packages implements Namespace.
func (ns *FullNamespace) Packages() []string {
	return ns.registry.Packages()
}

// PackageMacros implements Namespace.
func (ns *FullNamespace) PackageMacros(pkg string) map[string]*Macro {
	return ns.registry.PackageMacros(pkg)
}
