package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/stratum-data/stratum/internal/relation"
)

// defaultAvailable is the method set most SQL adapters expose.
var defaultAvailable = []string{
	"exec", "query", "get_relation", "get_columns_in_relation",
	"date_function", "type", "dispatch",
}

// defaultParseReplacements are the I/O methods stubbed at parse time.
var defaultParseReplacements = []string{
	"exec", "query", "get_relation", "get_columns_in_relation",
}

// baseAdapter holds the database/sql plumbing shared by SQL adapters.
type baseAdapter struct {
	db     *sql.DB
	logger *slog.Logger
}

func (a *baseAdapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *baseAdapter) Exec(ctx context.Context, sqlStr string) (*Response, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	res, err := a.db.ExecContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute SQL: %w", err)
	}
	affected, _ := res.RowsAffected()
	return &Response{Message: "OK", Code: "SUCCESS", RowsAffected: affected}, nil
}

func (a *baseAdapter) Query(ctx context.Context, sqlStr string) (*Rows, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := a.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &Rows{Rows: rows}, nil
}

// getRelation probes information_schema for the relation. Works for both
// duckdb and postgres.
func (a *baseAdapter) getRelation(ctx context.Context, database, schema, identifier string) (bool, error) {
	if a.db == nil {
		return false, fmt.Errorf("database connection not established")
	}
	query := `
		SELECT count(*)
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_name = $2
	`
	var count int
	if err := a.db.QueryRowContext(ctx, query, schema, identifier).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to probe relation %s.%s: %w", schema, identifier, err)
	}
	return count > 0, nil
}

func (a *baseAdapter) getColumnsInRelation(ctx context.Context, rel *relation.Relation) ([]relation.Column, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	query := `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`
	rows, err := a.db.QueryContext(ctx, query, rel.Schema, rel.Identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cols []relation.Column
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		cols = append(cols, relation.NewColumn(name, dataType))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading column metadata: %w", err)
	}
	return cols, nil
}
