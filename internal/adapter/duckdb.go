package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/stratum-data/stratum/internal/config"
	"github.com/stratum-data/stratum/internal/relation"
)

func init() {
	Register("duckdb", func(logger *slog.Logger) Adapter { return NewDuckDBAdapter(logger) })
}

// DuckDBAdapter implements the Adapter interface for DuckDB.
type DuckDBAdapter struct {
	baseAdapter
}

// NewDuckDBAdapter creates a new DuckDB adapter instance.
func NewDuckDBAdapter(logger *slog.Logger) *DuckDBAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DuckDBAdapter{baseAdapter{logger: logger}}
}

func (a *DuckDBAdapter) Type() string { return "duckdb" }

// TypeNames returns the dispatch ancestry. DuckDB descends directly from
// the default implementations.
func (a *DuckDBAdapter) TypeNames() []string { return []string{"duckdb"} }

func (a *DuckDBAdapter) Available() []string         { return defaultAvailable }
func (a *DuckDBAdapter) ParseReplacements() []string { return defaultParseReplacements }

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (a *DuckDBAdapter) Connect(ctx context.Context, target config.TargetConfig) error {
	path := target.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.db = db
	a.logger.Debug("duckdb connected", "path", path)
	return nil
}

func (a *DuckDBAdapter) GetRelation(ctx context.Context, database, schema, identifier string) (bool, error) {
	return a.getRelation(ctx, database, schema, identifier)
}

func (a *DuckDBAdapter) GetColumnsInRelation(ctx context.Context, rel *relation.Relation) ([]relation.Column, error) {
	return a.getColumnsInRelation(ctx, rel)
}

func (a *DuckDBAdapter) DateFunction() string { return "now()" }

func (a *DuckDBAdapter) SubmitPythonJob(_ context.Context, parsedModel map[string]any, _ string) (*Response, error) {
	return nil, fmt.Errorf("duckdb adapter does not support python models (model %v)", parsedModel["alias"])
}
