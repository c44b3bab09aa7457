// Package state persists invocation history using SQLite: runs, per-node
// render results and environment-variable fingerprints used to detect when
// a reparse is needed.
package state

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed invocation history store.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewStore creates an unopened store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{logger: logger}
}

// Open opens the SQLite database. Use ":memory:" for an in-memory store.
func (s *Store) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping state database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB exposes the underlying connection, mainly for tests.
func (s *Store) DB() *sql.DB { return s.db }

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}
