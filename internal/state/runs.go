package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RunStatus is the lifecycle state of one invocation.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded invocation.
type Run struct {
	ID          string
	Project     string
	Command     string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// CreateRun records the start of an invocation.
func (s *Store) CreateRun(project, command string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{
		ID:        generateID(),
		Project:   project,
		Command:   command,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("command", command))

	_, err := s.db.Exec(
		`INSERT INTO runs (id, project, command, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Project, run.Command, run.Status, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run finished with the given status.
func (s *Store) CompleteRun(id string, status RunStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		status, now, errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{}
	var completedAt sql.NullTime
	var errMsg sql.NullString

	err := s.db.QueryRow(
		`SELECT id, project, command, status, started_at, completed_at, error FROM runs WHERE id = ?`,
		id,
	).Scan(&run.ID, &run.Project, &run.Command, &run.Status, &run.StartedAt, &completedAt, &errMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	run.Error = errMsg.String
	return run, nil
}

// LatestRun retrieves the most recent run for a project, or nil when the
// project has never run.
func (s *Store) LatestRun(project string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{}
	var completedAt sql.NullTime
	var errMsg sql.NullString

	err := s.db.QueryRow(
		`SELECT id, project, command, status, started_at, completed_at, error
		 FROM runs WHERE project = ? ORDER BY started_at DESC LIMIT 1`,
		project,
	).Scan(&run.ID, &run.Project, &run.Command, &run.Status, &run.StartedAt, &completedAt, &errMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	run.Error = errMsg.String
	return run, nil
}
