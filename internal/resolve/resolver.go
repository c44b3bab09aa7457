package resolve

import (
	"context"

	"github.com/stratum-data/stratum/internal/config"
	"github.com/stratum-data/stratum/internal/graph"
)

// Resolver carries the four references every resolution needs: the database
// wrapper, the requesting node, the immutable run configuration and the
// manifest. All are borrowed for the lifetime of one resolution call; a
// resolver is built fresh per render and discarded afterwards.
type Resolver struct {
	db       *DatabaseWrapper
	node     *graph.Node
	config   *config.RuntimeConfig
	manifest *graph.Manifest
}

// NewResolver bundles the shared resolution state.
func NewResolver(db *DatabaseWrapper, node *graph.Node, cfg *config.RuntimeConfig, manifest *graph.Manifest) *Resolver {
	return &Resolver{db: db, node: node, config: cfg, manifest: manifest}
}

// Node returns the requesting node.
func (r *Resolver) Node() *graph.Node { return r.node }

// currentProject returns the root project name.
func (r *Resolver) currentProject() string { return r.config.ProjectName }

// resolveLimit returns the row limit applied to resolved relations: zero
// rows when the run was invoked with the empty flag, unset otherwise.
func (r *Resolver) resolveLimit() *int {
	if r.config.Flags.Empty {
		zero := 0
		return &zero
	}
	return nil
}

// probeRelation checks whether the target's physical relation exists.
func (r *Resolver) probeRelation(target *graph.Node) bool {
	exists, err := r.db.Adapter().GetRelation(context.Background(), target.Database, target.Schema, target.Identifier)
	if err != nil {
		// A failed probe is treated as "not there"; the deferred relation
		// substitutes and the caller may retry the run.
		return false
	}
	return exists
}
