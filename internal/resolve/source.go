package resolve

import (
	"github.com/stratum-data/stratum/internal/graph"
	"github.com/stratum-data/stratum/internal/relation"
)

// SourceResolver resolves one source() reference to a relation.
type SourceResolver interface {
	Resolve(sourceName, tableName string) (*relation.Relation, error)
}

// NewSourceResolver selects the source variant for a provider.
func NewSourceResolver(p Provider, r *Resolver) SourceResolver {
	switch p.Source {
	case KindParse:
		return &parseSourceResolver{r}
	case KindUnitTest:
		return &unitTestSourceResolver{r}
	default:
		return &runtimeSourceResolver{r}
	}
}

// CallSource applies the source() call contract: exactly two positional
// arguments.
func CallSource(sr SourceResolver, node *graph.Node, args []string) (*relation.Relation, error) {
	if len(args) != 2 {
		return nil, &SourceArgsError{Node: node, Args: args}
	}
	return sr.Resolve(args[0], args[1])
}

// parseSourceResolver records the [source, table] pair on the requesting
// node and returns a placeholder relation for the current node.
type parseSourceResolver struct {
	*Resolver
}

func (r *parseSourceResolver) Resolve(sourceName, tableName string) (*relation.Relation, error) {
	r.node.Sources = append(r.node.Sources, graph.SourceArgs{Source: sourceName, Table: tableName})
	return r.db.CreateFromNode(r.node), nil
}

// runtimeSourceResolver looks the source up in the manifest and builds its
// relation. Source quoting does not respect the project-wide quoting
// config; only the source's own policy applies.
type runtimeSourceResolver struct {
	*Resolver
}

func (r *runtimeSourceResolver) Resolve(sourceName, tableName string) (*relation.Relation, error) {
	target, disabled := r.manifest.ResolveSource(sourceName, tableName, r.currentProject(), r.node.PackageName)
	if target == nil {
		return nil, &TargetNotFoundError{
			Node:       r.node,
			TargetName: sourceName + "." + tableName,
			TargetKind: "source",
			Disabled:   disabled,
		}
	}

	rel := relation.Create(target.Database, target.Schema, target.Identifier, target.Quoting)
	return rel.WithLimit(r.resolveLimit()).WithEventTimeFilter(r.resolveEventTimeFilter(target)), nil
}

// unitTestSourceResolver treats the source as an inlined stand-in node: the
// fixture replaces the real table, registered as an injection point rather
// than a physical reference. No limit or filter applies to fixtures.
type unitTestSourceResolver struct {
	*Resolver
}

func (r *unitTestSourceResolver) Resolve(sourceName, tableName string) (*relation.Relation, error) {
	target, disabled := r.manifest.ResolveSource(sourceName, tableName, r.currentProject(), r.node.PackageName)
	if target == nil {
		return nil, &TargetNotFoundError{
			Node:       r.node,
			TargetName: sourceName + "." + tableName,
			TargetKind: "source",
			Disabled:   disabled,
		}
	}
	r.node.SetCTE(target.UniqueID)
	return relation.CreateEphemeral(target.Identifier), nil
}
