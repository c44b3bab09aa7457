package state

import (
	"database/sql"
	"fmt"
	"time"
)

// RenderStatus is the outcome of rendering one node.
type RenderStatus string

const (
	RenderStatusSuccess RenderStatus = "success"
	RenderStatusFailed  RenderStatus = "failed"
	RenderStatusSkipped RenderStatus = "skipped"
)

// RenderResult records the outcome of rendering one node within a run.
type RenderResult struct {
	RunID        string
	NodeUniqueID string
	Status       RenderStatus
	CompiledCode string
	Error        string
	Duration     time.Duration
	CreatedAt    time.Time
}

// SaveRenderResult upserts one node's render outcome.
func (s *Store) SaveRenderResult(r *RenderResult) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO render_results (run_id, node_unique_id, status, compiled_code, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, node_unique_id) DO UPDATE SET
		   status = excluded.status,
		   compiled_code = excluded.compiled_code,
		   error = excluded.error,
		   duration_ms = excluded.duration_ms`,
		r.RunID, r.NodeUniqueID, r.Status, r.CompiledCode, r.Error, r.Duration.Milliseconds(), r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save render result: %w", err)
	}
	return nil
}

// RenderResults lists the render outcomes of one run, oldest first.
func (s *Store) RenderResults(runID string) ([]*RenderResult, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT run_id, node_unique_id, status, compiled_code, error, duration_ms, created_at
		 FROM render_results WHERE run_id = ? ORDER BY created_at`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list render results: %w", err)
	}
	defer rows.Close()

	var out []*RenderResult
	for rows.Next() {
		r := &RenderResult{}
		var compiled, errMsg sql.NullString
		var durationMs int64
		if err := rows.Scan(&r.RunID, &r.NodeUniqueID, &r.Status, &compiled, &errMsg, &durationMs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan render result: %w", err)
		}
		r.CompiledCode = compiled.String
		r.Error = errMsg.String
		r.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}
