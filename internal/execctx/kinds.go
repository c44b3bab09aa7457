package execctx

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/stratum-data/stratum/internal/macro"
	"github.com/stratum-data/stratum/internal/relation"
	"github.com/stratum-data/stratum/internal/resolve"
)

// NewModelContext assembles the context for a graph node's template (model,
// seed, snapshot, analysis). The provider selects the phase: ParseProvider
// while parsing project files, RuntimeProvider while compiling and running.
func NewModelContext(p resolve.Provider, params Params) (*Context, error) {
	ns := macro.NewFullNamespace(params.Macros, params.Config.ProjectName)
	ctx, err := newContext(p, params, ns)
	if err != nil {
		return nil, err
	}
	ctx.allowPythonJob = p.Execute

	ctx.extras["sql"] = starlark.String(params.Node.RawCode)
	ctx.extras["compiled_code"] = starlark.String(params.Node.CompiledCode)
	ctx.extras["pre_hooks"] = stringList(params.Node.Config.PreHooks)
	ctx.extras["post_hooks"] = stringList(params.Node.Config.PostHooks)
	if dr := params.Node.DeferRelation; dr != nil {
		rel := ctx.db.CreateRelation(dr.Database, dr.Schema, dr.Identifier, params.Node.Quoting)
		ctx.extras["defer_relation"] = newRelationValue(rel)
	} else {
		ctx.extras["defer_relation"] = starlark.None
	}

	if err := ctx.buildGlobals(); err != nil {
		return nil, err
	}
	return ctx, nil
}

// NewMacroContext assembles the context a standalone macro renders with,
// for example generate_schema_name during parsing or a run-operation macro
// at runtime. Macros have no physical relation of their own.
func NewMacroContext(p resolve.Provider, params Params) (*Context, error) {
	ns := macro.NewFullNamespace(params.Macros, params.Config.ProjectName)
	ctx, err := newContext(p, params, ns)
	if err != nil {
		return nil, err
	}
	ctx.this = nil

	if err := ctx.buildGlobals(); err != nil {
		return nil, err
	}
	return ctx, nil
}

// NewOperationContext assembles the context for a run-operation invocation:
// runtime behavior with the declared-dependency ref check relaxed.
func NewOperationContext(params Params) (*Context, error) {
	return NewMacroContext(resolve.OperationProvider, params)
}

// NewSourceContext assembles the context a source freshness check renders
// with. "this" is the source table itself, quoted by the source's own
// policy rather than the project-wide one.
func NewSourceContext(params Params) (*Context, error) {
	ns := macro.NewFullNamespace(params.Macros, params.Config.ProjectName)
	ctx, err := newContext(resolve.RuntimeProvider, params, ns)
	if err != nil {
		return nil, err
	}
	n := params.Node
	ctx.this = relation.Create(n.Database, n.Schema, n.Identifier, n.Quoting)

	if err := ctx.buildGlobals(); err != nil {
		return nil, err
	}
	return ctx, nil
}

// NewTestContext assembles the context for a generic schema test. Its macro
// namespace is restricted to the test's declared macro dependencies, the
// where-subquery helper and their transitive dependencies.
func NewTestContext(p resolve.Provider, params Params) (*Context, error) {
	ns := macro.NewTestNamespace(params.Macros, params.Config.ProjectName, params.Node.DependsOnMacros)
	ctx, err := newContext(p, params, ns)
	if err != nil {
		return nil, err
	}
	ctx.this = nil

	if err := ctx.buildGlobals(); err != nil {
		return nil, err
	}
	return ctx, nil
}

// NewUnitTestContext assembles the context a unit test's model renders
// with: fixture-backed resolvers, test-local variable and environment
// overrides, per-test macro overrides spliced into the namespace, and
// "this" standing in for the tested model's fixture input.
func NewUnitTestContext(params Params) (*Context, error) {
	var ns macro.Namespace = macro.NewFullNamespace(params.Macros, params.Config.ProjectName)
	if o := params.Node.Overrides; o != nil && len(o.Macros) > 0 {
		spliced, err := newOverrideNamespace(ns, o.Macros)
		if err != nil {
			return nil, fmt.Errorf("splicing macro overrides for %s: %w", params.Node.UniqueID, err)
		}
		ns = spliced
	}

	ctx, err := newContext(resolve.RuntimeUnitTestProvider, params, ns)
	if err != nil {
		return nil, err
	}

	if inputID := params.Node.ThisInputNodeUniqueID; inputID != "" {
		input, err := params.Manifest.Expect(inputID)
		if err != nil {
			return nil, err
		}
		params.Node.SetCTE(input.UniqueID)
		ctx.this = relation.CreateEphemeral(input.Identifier)
	}

	if err := ctx.buildGlobals(); err != nil {
		return nil, err
	}
	return ctx, nil
}

// NewExposureContext assembles the parse-only context an exposure's ref and
// source declarations are recorded through. Exposures never render at
// runtime, so the parse provider always applies and the reference calls
// are record-only.
func NewExposureContext(params Params) (*Context, error) {
	return newRecordOnlyContext(params)
}

// NewSemanticModelContext assembles the parse-only context a semantic
// model's ref declarations are recorded through.
func NewSemanticModelContext(params Params) (*Context, error) {
	return newRecordOnlyContext(params)
}

// newRecordOnlyContext builds a parse context whose ref, source and metric
// calls record the reference on the node and render as the empty string.
// Nothing addresses the result in these resource kinds.
func newRecordOnlyContext(params Params) (*Context, error) {
	ns := macro.NewFullNamespace(params.Macros, params.Config.ProjectName)
	ctx, err := newContext(resolve.ParseProvider, params, ns)
	if err != nil {
		return nil, err
	}
	ctx.this = nil

	ctx.extras["ref"] = starlark.NewBuiltin("ref", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		positional, err := stringArgs("ref", args)
		if err != nil {
			return nil, err
		}
		version := ""
		for _, kv := range kwargs {
			key, _ := kv[0].(starlark.String)
			switch string(key) {
			case "version", "v":
				version = argString(kv[1])
			default:
				return nil, fmt.Errorf("ref: unexpected keyword argument %q", key)
			}
		}
		if _, err := resolve.CallRef(ctx.refs, ctx.node, positional, version); err != nil {
			return nil, err
		}
		return starlark.String(""), nil
	})
	ctx.extras["source"] = starlark.NewBuiltin("source", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("source: unexpected keyword arguments")
		}
		positional, err := stringArgs("source", args)
		if err != nil {
			return nil, err
		}
		if _, err := resolve.CallSource(ctx.sources, ctx.node, positional); err != nil {
			return nil, err
		}
		return starlark.String(""), nil
	})
	ctx.extras["metric"] = starlark.NewBuiltin("metric", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("metric: unexpected keyword arguments")
		}
		positional, err := stringArgs("metric", args)
		if err != nil {
			return nil, err
		}
		if _, err := resolve.CallMetric(ctx.metrics, ctx.node, positional); err != nil {
			return nil, err
		}
		return starlark.String(""), nil
	})

	if err := ctx.buildGlobals(); err != nil {
		return nil, err
	}
	return ctx, nil
}
