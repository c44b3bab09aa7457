package state

import (
	"fmt"
	"time"
)

// SaveEnvFingerprints replaces the recorded env-var fingerprints with the
// values observed during this parse. Values include the default-used
// placeholder for vars satisfied by a template default.
func (s *Store) SaveEnvFingerprints(vars map[string]string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin fingerprint update: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM env_fingerprints`); err != nil {
		return fmt.Errorf("failed to clear fingerprints: %w", err)
	}
	now := time.Now().UTC()
	for name, value := range vars {
		if _, err := tx.Exec(
			`INSERT INTO env_fingerprints (name, value, recorded_at) VALUES (?, ?, ?)`,
			name, value, now,
		); err != nil {
			return fmt.Errorf("failed to record fingerprint %q: %w", name, err)
		}
	}
	return tx.Commit()
}

// EnvFingerprints returns the env-var values recorded by the last parse.
func (s *Store) EnvFingerprints() (map[string]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(`SELECT name, value FROM env_fingerprints`)
	if err != nil {
		return nil, fmt.Errorf("failed to list fingerprints: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
		}
		out[name] = value
	}
	return out, rows.Err()
}

// ChangedEnvVars compares the recorded fingerprints against the current
// environment and returns the names whose values differ, signalling that a
// full reparse is needed.
func (s *Store) ChangedEnvVars(current map[string]string) ([]string, error) {
	recorded, err := s.EnvFingerprints()
	if err != nil {
		return nil, err
	}
	var changed []string
	for name, prev := range recorded {
		if cur, ok := current[name]; !ok || cur != prev {
			changed = append(changed, name)
		}
	}
	return changed, nil
}
