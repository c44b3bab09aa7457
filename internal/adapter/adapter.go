// Package adapter provides the database capability consumed by the
// resolution core: running SQL, probing relation existence, reading column
// metadata and constructing relations. Adapters declare the method set they
// make available to templates; the declared set is validated once at
// construction time rather than on every access.
package adapter

import (
	"context"
	"database/sql"

	"github.com/stratum-data/stratum/internal/config"
	"github.com/stratum-data/stratum/internal/relation"
)

// Rows wraps sql.Rows to provide a consistent interface across adapters.
type Rows struct {
	*sql.Rows
}

// Response summarizes the outcome of a statement.
type Response struct {
	Message      string
	Code         string
	RowsAffected int64
}

// Adapter is the database capability required from collaborators.
type Adapter interface {
	// Type returns the concrete adapter type (e.g. "duckdb", "postgres").
	Type() string

	// TypeNames returns the dispatch prefix ancestry in priority order:
	// the concrete type first, then any parent adapter types. The literal
	// "default" fallback is appended by the dispatcher, not here.
	TypeNames() []string

	// Available returns the method names this adapter exposes to templates.
	Available() []string

	// ParseReplacements returns the subset of Available methods that are
	// stubbed out at parse time to avoid real I/O.
	ParseReplacements() []string

	// Connect establishes a connection using the target configuration.
	Connect(ctx context.Context, target config.TargetConfig) error

	// Close closes the connection and releases resources.
	Close() error

	// Exec executes a statement that does not return rows.
	Exec(ctx context.Context, sqlStr string) (*Response, error)

	// Query executes a statement that returns rows.
	Query(ctx context.Context, sqlStr string) (*Rows, error)

	// GetRelation probes whether the physical relation exists. This is the
	// only blocking I/O issued during resolution; callers may retry it.
	GetRelation(ctx context.Context, database, schema, identifier string) (bool, error)

	// GetColumnsInRelation reads column metadata for a relation.
	GetColumnsInRelation(ctx context.Context, rel *relation.Relation) ([]relation.Column, error)

	// DateFunction returns the adapter's current-timestamp SQL expression.
	DateFunction() string

	// SubmitPythonJob submits a python model for execution. Adapters that
	// do not support python models return an error.
	SubmitPythonJob(ctx context.Context, parsedModel map[string]any, compiledCode string) (*Response, error)
}
