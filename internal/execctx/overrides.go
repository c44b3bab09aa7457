package execctx

import (
	"sort"
	"strings"

	"go.starlark.net/starlark"

	"github.com/stratum-data/stratum/internal/macro"
)

// overrideNamespace splices a unit test's per-test macro overrides over an
// inner namespace. Global overrides win over package-qualified overrides of
// the same logical macro, and an override of a core built-in applies under
// every alias the macro is exposed as.
type overrideNamespace struct {
	inner macro.Namespace

	global    map[string]starlark.Value
	qualified map[string]map[string]starlark.Value
}

// newOverrideNamespace builds the spliced namespace from the raw override
// mapping, keyed by "name" or "package.name".
func newOverrideNamespace(inner macro.Namespace, overrides map[string]any) (*overrideNamespace, error) {
	ns := &overrideNamespace{
		inner:     inner,
		global:    make(map[string]starlark.Value),
		qualified: make(map[string]map[string]starlark.Value),
	}

	// Qualified keys first: a core-package override seeds the global table
	// so it reaches every alias, but a genuine global override of the same
	// name overwrites it below.
	for key, raw := range overrides {
		pkg, name, isQualified := strings.Cut(key, ".")
		if !isQualified {
			continue
		}
		value, err := overrideValue(name, raw)
		if err != nil {
			return nil, err
		}
		byName, ok := ns.qualified[pkg]
		if !ok {
			byName = make(map[string]starlark.Value)
			ns.qualified[pkg] = byName
		}
		byName[name] = value
		if pkg == macro.CorePackage {
			ns.global[name] = value
		}
	}
	for key, raw := range overrides {
		if strings.Contains(key, ".") {
			continue
		}
		value, err := overrideValue(key, raw)
		if err != nil {
			return nil, err
		}
		ns.global[key] = value
	}
	return ns, nil
}

// overrideValue turns a raw override into a callable: callables pass
// through, anything else becomes a constant-returning stand-in.
func overrideValue(name string, raw any) (starlark.Value, error) {
	if v, ok := raw.(starlark.Value); ok {
		return v, nil
	}
	sv, err := GoToStarlark(raw)
	if err != nil {
		return nil, err
	}
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, _ *starlark.Builtin, _ starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
		return sv, nil
	}), nil
}

// overridden returns the override applying to a concrete macro, if any.
func (ns *overrideNamespace) overridden(m *macro.Macro) (starlark.Value, bool) {
	if v, ok := ns.global[m.Name]; ok {
		return v, true
	}
	if v, ok := ns.qualified[m.PackageName][m.Name]; ok {
		return v, true
	}
	return nil, false
}

func withFn(m *macro.Macro, fn starlark.Value) *macro.Macro {
	out := *m
	out.Fn = fn
	return &out
}

// GetFromPackage implements macro.Namespace.
func (ns *overrideNamespace) GetFromPackage(pkg, name string) (*macro.Macro, bool) {
	if m, ok := ns.inner.GetFromPackage(pkg, name); ok {
		if fn, overridden := ns.overridden(m); overridden {
			return withFn(m, fn), true
		}
		return m, true
	}
	// The override may target a macro the inner namespace does not carry.
	if v, ok := ns.global[name]; ok {
		return &macro.Macro{UniqueID: macro.MacroID(pkg, name), Name: name, PackageName: pkg, Fn: v}, true
	}
	if pkg != "" {
		if v, ok := ns.qualified[pkg][name]; ok {
			return &macro.Macro{UniqueID: macro.MacroID(pkg, name), Name: name, PackageName: pkg, Fn: v}, true
		}
	}
	return nil, false
}

// Packages implements macro.Namespace. Packages introduced only by
// overrides are listed too; global-only overrides surface under the core
// package so they reach the bare-name aliases.
func (ns *overrideNamespace) Packages() []string {
	seen := make(map[string]struct{})
	for _, pkg := range ns.inner.Packages() {
		seen[pkg] = struct{}{}
	}
	for pkg := range ns.qualified {
		seen[pkg] = struct{}{}
	}
	if len(ns.global) > 0 {
		seen[macro.CorePackage] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for pkg := range seen {
		out = append(out, pkg)
	}
	sort.Strings(out)
	return out
}

func synthesized(pkg, name string, fn starlark.Value) *macro.Macro {
	return &macro.Macro{UniqueID: macro.MacroID(pkg, name), Name: name, PackageName: pkg, Fn: fn}
}

// PackageMacros implements macro.Namespace, with overrides applied and
// override-only macros synthesized into the package.
func (ns *overrideNamespace) PackageMacros(pkg string) map[string]*macro.Macro {
	out := ns.inner.PackageMacros(pkg)
	for name, m := range out {
		if fn, ok := ns.overridden(m); ok {
			out[name] = withFn(m, fn)
		}
	}
	for name, fn := range ns.qualified[pkg] {
		if _, ok := out[name]; !ok {
			out[name] = synthesized(pkg, name, fn)
		}
	}
	if pkg == macro.CorePackage {
		for name, fn := range ns.global {
			if _, ok := out[name]; !ok {
				out[name] = synthesized(pkg, name, fn)
			}
		}
	}
	return out
}
