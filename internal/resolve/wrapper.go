package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/stratum-data/stratum/internal/adapter"
	"github.com/stratum-data/stratum/internal/config"
	"github.com/stratum-data/stratum/internal/graph"
	"github.com/stratum-data/stratum/internal/macro"
	"github.com/stratum-data/stratum/internal/relation"
)

// DatabaseWrapper is the adapter-facing facade exposed to templates as
// "adapter". It applies the run's quoting policy to every relation created
// through it and performs macro dispatch. The parse-time variant substitutes
// stubs for the adapter's I/O methods; the runtime variant exposes every
// method the adapter marks available, unmodified.
type DatabaseWrapper struct {
	adapter   adapter.Adapter
	caps      *adapter.CapabilityTable
	namespace macro.Namespace
	cfg       *config.RuntimeConfig
	parseTime bool
}

// NewDatabaseWrapper builds the wrapper for one compiled unit. The
// capability table is validated here, at construction time.
func NewDatabaseWrapper(a adapter.Adapter, ns macro.Namespace, cfg *config.RuntimeConfig, parseTime bool) (*DatabaseWrapper, error) {
	caps, err := adapter.NewCapabilityTable(a)
	if err != nil {
		return nil, err
	}
	return &DatabaseWrapper{
		adapter:   a,
		caps:      caps,
		namespace: ns,
		cfg:       cfg,
		parseTime: parseTime,
	}, nil
}

// Adapter returns the wrapped adapter capability.
func (w *DatabaseWrapper) Adapter() adapter.Adapter { return w.adapter }

// Type returns the adapter type name.
func (w *DatabaseWrapper) Type() string { return w.adapter.Type() }

// Has reports whether the named method is available to templates.
func (w *DatabaseWrapper) Has(name string) bool { return w.caps.Has(name) }

// CreateRelation builds a relation carrying the run's quoting policy merged
// with the node's own policy.
func (w *DatabaseWrapper) CreateRelation(database, schema, identifier string, nodeQuoting relation.QuotePolicy) *relation.Relation {
	return relation.Create(database, schema, identifier, w.cfg.Quoting.Merge(nodeQuoting))
}

// CreateFromNode builds the relation addressing a node's physical object.
func (w *DatabaseWrapper) CreateFromNode(n *graph.Node) *relation.Relation {
	return w.CreateRelation(n.Database, n.Schema, n.Identifier, n.Quoting)
}

// Exec runs a statement, or returns the parse-time stub result.
func (w *DatabaseWrapper) Exec(ctx context.Context, sqlStr string) (*adapter.Response, error) {
	if !w.caps.Has("exec") {
		return nil, fmt.Errorf("adapter %s does not make exec available", w.Type())
	}
	if w.parseTime && w.caps.StubbedAtParse("exec") {
		return &adapter.Response{Message: "OK", Code: "SUCCESS"}, nil
	}
	return w.adapter.Exec(ctx, sqlStr)
}

// Query runs a query, or returns the parse-time stub result.
func (w *DatabaseWrapper) Query(ctx context.Context, sqlStr string) (*adapter.Rows, error) {
	if !w.caps.Has("query") {
		return nil, fmt.Errorf("adapter %s does not make query available", w.Type())
	}
	if w.parseTime && w.caps.StubbedAtParse("query") {
		return nil, nil
	}
	return w.adapter.Query(ctx, sqlStr)
}

// GetRelation probes relation existence, or reports absent at parse time.
func (w *DatabaseWrapper) GetRelation(ctx context.Context, database, schema, identifier string) (bool, error) {
	if !w.caps.Has("get_relation") {
		return false, fmt.Errorf("adapter %s does not make get_relation available", w.Type())
	}
	if w.parseTime && w.caps.StubbedAtParse("get_relation") {
		return false, nil
	}
	return w.adapter.GetRelation(ctx, database, schema, identifier)
}

// GetColumnsInRelation lists columns, or nothing at parse time.
func (w *DatabaseWrapper) GetColumnsInRelation(ctx context.Context, rel *relation.Relation) ([]relation.Column, error) {
	if !w.caps.Has("get_columns_in_relation") {
		return nil, fmt.Errorf("adapter %s does not make get_columns_in_relation available", w.Type())
	}
	if w.parseTime && w.caps.StubbedAtParse("get_columns_in_relation") {
		return nil, nil
	}
	return w.adapter.GetColumnsInRelation(ctx, rel)
}

// macroPrefixes returns the dispatch prefixes in priority order: the
// concrete adapter type, its parents in declared order, then "default".
func (w *DatabaseWrapper) macroPrefixes() []string {
	return append(append([]string{}, w.adapter.TypeNames()...), "default")
}

// searchPackages builds the ordered package list for one dispatch call.
func (w *DatabaseWrapper) searchPackages(namespace string) ([]string, error) {
	if namespace == "" {
		// Unqualified search only.
		return []string{""}, nil
	}
	if order := w.cfg.MacroSearchOrderFor(namespace); len(order) > 0 {
		return order, nil
	}
	if w.cfg.IsDependency(namespace) {
		return []string{w.cfg.ProjectName, namespace}, nil
	}
	if namespace == w.cfg.ProjectName {
		return []string{namespace}, nil
	}
	return nil, &DispatchNamespaceError{Namespace: namespace}
}

// Dispatch resolves a generic macro name to its adapter-specific
// implementation, scanning package-major, prefix-minor. On exhaustion the
// error lists every attempted (package, prefixed-name) pair.
func (w *DatabaseWrapper) Dispatch(macroName, macroNamespace string) (*macro.Macro, error) {
	if strings.Contains(macroName, ".") {
		return nil, &DispatchNameError{MacroName: macroName}
	}

	packages, err := w.searchPackages(macroNamespace)
	if err != nil {
		return nil, err
	}

	var attempts []string
	for _, pkg := range packages {
		for _, prefix := range w.macroPrefixes() {
			searchName := prefix + "__" + macroName
			if pkg == "" {
				attempts = append(attempts, fmt.Sprintf("%q", searchName))
			} else {
				attempts = append(attempts, fmt.Sprintf("%q", pkg+"."+searchName))
			}
			if m, ok := w.namespace.GetFromPackage(pkg, searchName); ok {
				return m, nil
			}
		}
	}

	return nil, &DispatchError{MacroName: macroName, Namespace: macroNamespace, Attempts: attempts}
}
