package resolve

import (
	"github.com/stratum-data/stratum/internal/graph"
	"github.com/stratum-data/stratum/internal/relation"
)

// RefResolver resolves one ref() reference to a relation.
type RefResolver interface {
	// Resolve maps (name, package, version) to a relation. Package and
	// version may be empty.
	Resolve(name, pkg, version string) (*relation.Relation, error)
}

// NewRefResolver selects the ref variant for a provider.
func NewRefResolver(p Provider, r *Resolver) RefResolver {
	switch p.Ref {
	case KindParse:
		return &parseRefResolver{r}
	case KindOperation:
		return &runtimeRefResolver{Resolver: r, skipDependencyCheck: true, refuseEphemeral: true}
	case KindUnitTest:
		return &runtimeRefResolver{Resolver: r, noLimit: true, noEventFilter: true}
	default:
		return &runtimeRefResolver{Resolver: r}
	}
}

// CallRef applies the ref() call contract: one positional name or a
// package-qualified pair, plus an optional version keyword.
func CallRef(rr RefResolver, node *graph.Node, args []string, version string) (*relation.Relation, error) {
	switch len(args) {
	case 1:
		return rr.Resolve(args[0], "", version)
	case 2:
		return rr.Resolve(args[1], args[0], version)
	default:
		return nil, &RefArgsError{Node: node, Args: args}
	}
}

// parseRefResolver records the reference on the requesting node and returns
// a placeholder relation for the current node. The graph is incomplete at
// parse time, so no lookup is ever performed.
type parseRefResolver struct {
	*Resolver
}

func (r *parseRefResolver) Resolve(name, pkg, version string) (*relation.Relation, error) {
	r.node.Refs = append(r.node.Refs, graph.RefArgs{Name: name, Package: pkg, Version: version})
	return r.db.CreateFromNode(r.node), nil
}

// runtimeRefResolver performs the full graph lookup and validation. The
// operation and unit-test variants are the same resolver with relaxations
// toggled.
type runtimeRefResolver struct {
	*Resolver

	// skipDependencyCheck relaxes the declared-dependency validation for
	// operations, which are not part of the dependency graph.
	skipDependencyCheck bool

	// refuseEphemeral rejects ephemeral targets; operations have no
	// statement to inline them into.
	refuseEphemeral bool

	// noLimit and noEventFilter apply to unit tests, whose fixtures are
	// synthetic and fixed-size.
	noLimit       bool
	noEventFilter bool
}

func (r *runtimeRefResolver) Resolve(name, pkg, version string) (*relation.Relation, error) {
	target, disabled := r.manifest.ResolveRef(name, pkg, version, r.currentProject(), r.node.PackageName)
	if target == nil {
		return nil, &TargetNotFoundError{
			Node:          r.node,
			TargetName:    name,
			TargetKind:    "node",
			TargetPackage: pkg,
			TargetVersion: version,
			Disabled:      disabled,
		}
	}

	if r.manifest.IsInvalidPrivateRef(r.node, target) {
		return nil, &AccessError{
			UniqueID:    r.node.UniqueID,
			RefUniqueID: target.UniqueID,
			Access:      graph.AccessPrivate,
			Scope:       target.Group,
		}
	}
	if r.manifest.IsInvalidProtectedRef(r.node, target) {
		return nil, &AccessError{
			UniqueID:    r.node.UniqueID,
			RefUniqueID: target.UniqueID,
			Access:      graph.AccessProtected,
			Scope:       target.PackageName,
		}
	}

	if !r.skipDependencyCheck && !r.node.DependsOn(target.UniqueID) {
		return nil, &RefNotDeclaredError{
			Node: r.node,
			Args: graph.RefArgs{Name: name, Package: pkg, Version: version},
		}
	}

	return r.createRelation(target)
}

func (r *runtimeRefResolver) limit() *int {
	if r.noLimit {
		return nil
	}
	return r.resolveLimit()
}

func (r *runtimeRefResolver) eventFilter(target *graph.Node) *relation.EventTimeFilter {
	if r.noEventFilter {
		return nil
	}
	return r.resolveEventTimeFilter(target)
}

// createRelation builds the final relation for a resolved target:
// ephemeral targets become CTE stand-ins, deferrable targets may substitute
// their production counterpart, everything else addresses the target's own
// physical object.
func (r *runtimeRefResolver) createRelation(target *graph.Node) (*relation.Relation, error) {
	if target.IsEphemeralModel() {
		if r.refuseEphemeral {
			return nil, &EphemeralRefError{Node: r.node, TargetName: target.Name}
		}
		r.node.SetCTE(target.UniqueID)
		rel := relation.CreateEphemeral(target.Identifier)
		return rel.WithLimit(r.limit()).WithEventTimeFilter(r.eventFilter(target)), nil
	}

	if target.DeferRelation != nil && r.config.Flags.Defer && r.shouldDefer(target) {
		rel := r.db.CreateRelation(
			target.DeferRelation.Database,
			target.DeferRelation.Schema,
			target.DeferRelation.Identifier,
			target.Quoting,
		)
		return rel.WithLimit(r.limit()).WithEventTimeFilter(r.eventFilter(target)), nil
	}

	rel := r.db.CreateFromNode(target)
	return rel.WithLimit(r.limit()).WithEventTimeFilter(r.eventFilter(target)), nil
}

// shouldDefer decides whether the deferred counterpart substitutes for the
// local relation: either the user prefers deferral for unselected targets,
// or the local relation does not exist.
func (r *runtimeRefResolver) shouldDefer(target *graph.Node) bool {
	if r.config.Flags.FavorState && !r.config.IsSelected(target.UniqueID) {
		return true
	}
	return !r.probeRelation(target)
}
