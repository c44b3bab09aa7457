package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/stratum-data/stratum/internal/config"
	"github.com/stratum-data/stratum/internal/relation"
)

func init() {
	Register("postgres", func(logger *slog.Logger) Adapter { return NewPostgresAdapter(logger) })
}

// PostgresAdapter implements the Adapter interface for PostgreSQL via pgx.
type PostgresAdapter struct {
	baseAdapter
}

// NewPostgresAdapter creates a new PostgreSQL adapter instance.
func NewPostgresAdapter(logger *slog.Logger) *PostgresAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PostgresAdapter{baseAdapter{logger: logger}}
}

func (a *PostgresAdapter) Type() string { return "postgres" }

// TypeNames returns the dispatch ancestry. Postgres descends directly from
// the default implementations.
func (a *PostgresAdapter) TypeNames() []string { return []string{"postgres"} }

func (a *PostgresAdapter) Available() []string         { return defaultAvailable }
func (a *PostgresAdapter) ParseReplacements() []string { return defaultParseReplacements }

// Connect establishes a connection to PostgreSQL.
func (a *PostgresAdapter) Connect(ctx context.Context, target config.TargetConfig) error {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		target.Host, target.Port, target.User, target.Password, target.Database)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.db = db
	a.logger.Debug("postgres connected", "host", target.Host, "database", target.Database)
	return nil
}

func (a *PostgresAdapter) GetRelation(ctx context.Context, database, schema, identifier string) (bool, error) {
	return a.getRelation(ctx, database, schema, identifier)
}

func (a *PostgresAdapter) GetColumnsInRelation(ctx context.Context, rel *relation.Relation) ([]relation.Column, error) {
	return a.getColumnsInRelation(ctx, rel)
}

func (a *PostgresAdapter) DateFunction() string { return "now()" }

func (a *PostgresAdapter) SubmitPythonJob(_ context.Context, parsedModel map[string]any, _ string) (*Response, error) {
	return nil, fmt.Errorf("postgres adapter does not support python models (model %v)", parsedModel["alias"])
}
