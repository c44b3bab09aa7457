// Package resolve implements the name-resolution core: phase-keyed ref,
// source and metric resolvers, the adapter-facing database wrapper with
// macro dispatch, variable resolution and the config accessor. Which
// variant of each applies is selected by a Provider bundle, one per
// compiled unit.
package resolve

// ResolverKind tags one variant of a resolver family.
type ResolverKind int

const (
	// KindParse records references on the requesting node and never
	// performs a graph lookup.
	KindParse ResolverKind = iota
	// KindRuntime performs the full graph lookup and validation.
	KindRuntime
	// KindOperation is runtime resolution with the declared-dependency
	// check skipped; operations are not part of the graph.
	KindOperation
	// KindUnitTest is runtime resolution against synthetic fixtures: no
	// row limit, no event-time filter, sources become ephemeral stand-ins.
	KindUnitTest
)

// Provider is the immutable bundle selecting one variant of every
// phase-dependent behavior for a compiled unit.
type Provider struct {
	// Execute reports whether templates run in execute mode.
	Execute bool

	// ParseAdapter selects the parse-time database wrapper, which stubs
	// out the adapter's I/O methods.
	ParseAdapter bool

	// ParseConfig selects the config-declaration accessor instead of the
	// resolved-value accessor.
	ParseConfig bool

	// ParseVars makes missing variables resolve to nil instead of failing.
	ParseVars bool

	// UnitTestVars layers test-local variable overrides ahead of CLI vars.
	UnitTestVars bool

	Ref    ResolverKind
	Source ResolverKind
	Metric ResolverKind
}

// ParseProvider is used while parsing project files: record-only resolvers,
// stubbed adapter, config declarations collected for the graph builder.
var ParseProvider = Provider{
	Execute:      false,
	ParseAdapter: true,
	ParseConfig:  true,
	ParseVars:    true,
	Ref:          KindParse,
	Source:       KindParse,
	Metric:       KindParse,
}

// GenerateNameProvider renders name-generation macros: parse-side resolvers
// with runtime config and vars.
var GenerateNameProvider = Provider{
	Execute:      false,
	ParseAdapter: true,
	Ref:          KindParse,
	Source:       KindParse,
	Metric:       KindParse,
}

// RuntimeProvider is used while compiling and executing graph nodes.
var RuntimeProvider = Provider{
	Execute: true,
	Ref:     KindRuntime,
	Source:  KindRuntime,
	Metric:  KindRuntime,
}

// RuntimeUnitTestProvider runs unit tests against fixture data.
var RuntimeUnitTestProvider = Provider{
	Execute:      true,
	UnitTestVars: true,
	Ref:          KindUnitTest,
	Source:       KindUnitTest,
	Metric:       KindRuntime,
}

// OperationProvider runs operations (run-operation macros): runtime
// behavior with the declared-dependency ref check relaxed.
var OperationProvider = Provider{
	Execute: true,
	Ref:     KindOperation,
	Source:  KindRuntime,
	Metric:  KindRuntime,
}
