// Package execctx assembles the execution context handed to the templating
// engine: one context per compiled unit, wiring together a Provider bundle,
// the resolvers it selects, the database wrapper, variable resolution and
// the kind-specific extra surface. The context exposes a flattened global
// mapping the engine reads during rendering.
package execctx

import (
	"fmt"
	"log/slog"
	"sync"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/stratum-data/stratum/internal/adapter"
	"github.com/stratum-data/stratum/internal/config"
	"github.com/stratum-data/stratum/internal/graph"
	"github.com/stratum-data/stratum/internal/macro"
	"github.com/stratum-data/stratum/internal/relation"
	"github.com/stratum-data/stratum/internal/resolve"
)

// Params bundles the collaborators every context assembly needs.
type Params struct {
	Node     *graph.Node
	Config   *config.RuntimeConfig
	Manifest *graph.Manifest
	Adapter  adapter.Adapter
	Macros   *macro.Registry

	// Collector receives config() declarations during parsing. Required
	// for parse-phase contexts, ignored otherwise.
	Collector *resolve.ConfigCollector

	// Results is shared across the hooks and statements of one unit. A
	// fresh store is created when nil.
	Results *ResultStore

	Logger *slog.Logger
}

// Context is the composite execution context for one compiled unit. Built
// once, used to render exactly one resource's template, then discarded.
type Context struct {
	provider resolve.Provider
	node     *graph.Node
	cfg      *config.RuntimeConfig
	manifest *graph.Manifest
	db       *resolve.DatabaseWrapper

	refs      resolve.RefResolver
	sources   resolve.SourceResolver
	metrics   resolve.MetricResolver
	vars      *resolve.VarResolver
	configAcc resolve.ConfigAccessor

	namespace macro.Namespace
	results   *ResultStore
	logger    *slog.Logger
	env       map[string]string

	// this is the relation the unit materializes into; nil for kinds
	// without a physical identity (macros, operations).
	this *relation.Relation

	// allowPythonJob is set only for materialization contexts.
	allowPythonJob bool

	// extras is kind-specific surface layered over the base globals.
	extras starlark.StringDict

	mu      sync.RWMutex
	globals starlark.StringDict
}

// newContext wires the shared core of every context kind. Kind constructors
// adjust fields and then call buildGlobals.
func newContext(p resolve.Provider, params Params, ns macro.Namespace) (*Context, error) {
	logger := params.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := resolve.NewDatabaseWrapper(params.Adapter, ns, params.Config, p.ParseAdapter)
	if err != nil {
		return nil, fmt.Errorf("building database wrapper for %s: %w", params.Node.UniqueID, err)
	}

	r := resolve.NewResolver(db, params.Node, params.Config, params.Manifest)

	results := params.Results
	if results == nil {
		results = NewResultStore()
	}

	env := params.Config.Env
	if overrides := params.Node.Overrides; overrides != nil && len(overrides.EnvVars) > 0 {
		merged := make(map[string]string, len(env)+len(overrides.EnvVars))
		for k, v := range env {
			merged[k] = v
		}
		for k, v := range overrides.EnvVars {
			merged[k] = v
		}
		env = merged
	}

	ctx := &Context{
		provider:  p,
		node:      params.Node,
		cfg:       params.Config,
		manifest:  params.Manifest,
		db:        db,
		refs:      resolve.NewRefResolver(p, r),
		sources:   resolve.NewSourceResolver(p, r),
		metrics:   resolve.NewMetricResolver(p, r),
		vars:      resolve.NewVarResolver(p, params.Config, params.Node),
		configAcc: resolve.NewConfigAccessor(p, params.Node, params.Collector),
		namespace: ns,
		results:   results,
		logger:    logger,
		env:       env,
		this:      db.CreateFromNode(params.Node),
		extras:    make(starlark.StringDict),
	}
	return ctx, nil
}

// Node returns the unit this context renders.
func (c *Context) Node() *graph.Node { return c.node }

// Results returns the unit's stored-result slot set.
func (c *Context) Results() *ResultStore { return c.results }

// This returns the unit's own relation, or nil for kinds without one.
func (c *Context) This() *relation.Relation { return c.this }

// Globals returns the flattened mapping the templating engine reads.
func (c *Context) Globals() starlark.StringDict {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.globals
}

// buildGlobals assembles base surface, macro namespaces, then kind extras.
// Later layers shadow earlier ones.
func (c *Context) buildGlobals() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	globals := starlark.StringDict{
		"ref":                c.refBuiltin(),
		"source":             c.sourceBuiltin(),
		"metric":             c.metricBuiltin(),
		"config":             &configValue{ctx: c},
		"var":                c.varBuiltin(),
		"adapter":            &adapterValue{ctx: c},
		"execute":            starlark.Bool(c.provider.Execute),
		"env_var":            c.envVarBuiltin(),
		"exceptions":         c.exceptionsModule(),
		"validation":         validationModule(),
		"load_result":        c.loadResultBuiltin(),
		"store_result":       c.storeResultBuiltin(),
		"store_raw_result":   c.storeRawResultBuiltin(),
		"submit_python_job":  c.submitPythonJobBuiltin(),
		"sql_now":            c.sqlNowBuiltin(),
		"api":                c.apiModule(),
		"project_name":       starlark.String(c.cfg.ProjectName),
		"database":           starlark.String(c.cfg.Target.Database),
		"schema":             starlark.String(c.cfg.Target.Schema),
		"selected_resources": stringList(c.cfg.SelectedResources),
		"target": starlarkstruct.FromStringDict(starlark.String("target"), starlark.StringDict{
			"type":     starlark.String(c.cfg.Target.Type),
			"schema":   starlark.String(c.cfg.Target.Schema),
			"database": starlark.String(c.cfg.Target.Database),
			"name":     starlark.String(c.cfg.Target.Name),
		}),
	}

	if c.this != nil {
		globals["this"] = newRelationValue(c.this)
	} else {
		globals["this"] = starlark.None
	}

	graphDict, err := GoToStarlark(c.manifest.FlatGraph())
	if err != nil {
		return fmt.Errorf("flattening graph for %s: %w", c.node.UniqueID, err)
	}
	globals["graph"] = graphDict

	model, err := GoToStarlark(c.node.Flatten())
	if err != nil {
		return fmt.Errorf("flattening node %s: %w", c.node.UniqueID, err)
	}
	globals["model"] = model

	if err := c.addMacroGlobals(globals); err != nil {
		return err
	}

	for name, v := range c.extras {
		globals[name] = v
	}

	c.globals = globals
	return nil
}

// addMacroGlobals exposes the namespace's macros: each package as a module
// global, plus bare names with the root project shadowing the core package
// shadowing everything else.
func (c *Context) addMacroGlobals(globals starlark.StringDict) error {
	var others []string
	for _, pkg := range c.namespace.Packages() {
		macros := c.namespace.PackageMacros(pkg)
		if len(macros) == 0 {
			continue
		}
		members := make(starlark.StringDict, len(macros))
		for name, m := range macros {
			members[name] = m.Fn
		}
		if _, taken := globals[pkg]; !taken {
			globals[pkg] = &starlarkstruct.Module{Name: pkg, Members: members}
		}
		if pkg != c.cfg.ProjectName && pkg != macro.CorePackage {
			others = append(others, pkg)
		}
	}

	for _, pkg := range append(others, macro.CorePackage, c.cfg.ProjectName) {
		for name, m := range c.namespace.PackageMacros(pkg) {
			if _, taken := globals[name]; taken && !isMacroValue(globals[name]) {
				// Macros never shadow the built-in surface.
				continue
			}
			globals[name] = m.Fn
		}
	}
	return nil
}

// isMacroValue reports whether a global slot already holds a macro callable
// rather than built-in surface.
func isMacroValue(v starlark.Value) bool {
	_, isFn := v.(*starlark.Function)
	return isFn
}

func stringList(items []string) *starlark.List {
	values := make([]starlark.Value, len(items))
	for i, s := range items {
		values[i] = starlark.String(s)
	}
	return starlark.NewList(values)
}

// ResolveRef resolves one ref call programmatically, outside rendering.
func (c *Context) ResolveRef(args []string, version string) (*relation.Relation, error) {
	return resolve.CallRef(c.refs, c.node, args, version)
}

// ResolveSource resolves one source call programmatically.
func (c *Context) ResolveSource(sourceName, tableName string) (*relation.Relation, error) {
	return resolve.CallSource(c.sources, c.node, []string{sourceName, tableName})
}

// ResolveMetric resolves one metric call programmatically.
func (c *Context) ResolveMetric(args []string) (any, error) {
	return resolve.CallMetric(c.metrics, c.node, args)
}

// CallMacro invokes a namespace macro by name with Go-valued arguments.
func (c *Context) CallMacro(pkg, name string, args []any) (any, error) {
	m, ok := c.namespace.GetFromPackage(pkg, name)
	if !ok {
		if pkg == "" {
			return nil, fmt.Errorf("macro %q not found", name)
		}
		return nil, fmt.Errorf("macro %q not found in package %q", name, pkg)
	}
	callable, ok := m.Fn.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("macro %q is not callable", name)
	}
	tuple := make(starlark.Tuple, len(args))
	for i, a := range args {
		sv, err := GoToStarlark(a)
		if err != nil {
			return nil, err
		}
		tuple[i] = sv
	}
	thread := &starlark.Thread{Name: m.UniqueID}
	result, err := starlark.Call(thread, callable, tuple, nil)
	if err != nil {
		return nil, err
	}
	return ToGo(result)
}

// EvalExpr evaluates one template expression against the context globals.
func (c *Context) EvalExpr(expr, filename string) (starlark.Value, error) {
	thread := &starlark.Thread{
		Name: filename,
		Print: func(_ *starlark.Thread, msg string) {
			c.logger.Debug("template print", "file", filename, "msg", msg)
		},
	}
	result, err := starlark.Eval(thread, filename, expr, c.Globals()) //nolint:staticcheck // SA1019: will migrate to EvalOptions later
	if err != nil {
		return nil, fmt.Errorf("evaluating %q in %s: %w", expr, filename, err)
	}
	return result, nil
}

// EvalExprString evaluates an expression and renders the result the way
// template interpolation expects: strings verbatim, None empty.
func (c *Context) EvalExprString(expr, filename string) (string, error) {
	result, err := c.EvalExpr(expr, filename)
	if err != nil {
		return "", err
	}
	switch v := result.(type) {
	case starlark.String:
		return string(v), nil
	case starlark.NoneType:
		return "", nil
	default:
		return result.String(), nil
	}
}
