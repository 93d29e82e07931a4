package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned when a run ID has no row.
var ErrRunNotFound = errors.New("run not found")

// ReadRun loads one run by ID.
func (s *Store) ReadRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, target_id, started_at, finished_at, success, observations, metrics
		FROM runs WHERE id = ?
	`, id)

	var (
		run         Run
		startedAt   string
		finishedAt  sql.NullString
		success     sql.NullBool
		obsJSON     string
		metricsJSON string
	)
	err := row.Scan(&run.ID, &run.Scenario, &run.TargetID, &startedAt, &finishedAt, &success, &obsJSON, &metricsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}

	if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return nil, fmt.Errorf("read run %s: bad started_at: %w", id, err)
	}
	if finishedAt.Valid {
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt.String); err != nil {
			return nil, fmt.Errorf("read run %s: bad finished_at: %w", id, err)
		}
	}
	run.Success = success.Valid && success.Bool

	if err := json.Unmarshal([]byte(obsJSON), &run.Observations); err != nil {
		return nil, fmt.Errorf("read run %s: bad observations: %w", id, err)
	}
	if err := json.Unmarshal([]byte(metricsJSON), &run.Metrics); err != nil {
		return nil, fmt.Errorf("read run %s: bad metrics: %w", id, err)
	}

	return &run, nil
}

// EventCount returns how many fault events a run logged.
func (s *Store) EventCount(ctx context.Context, runID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM fault_events WHERE run_id = ?
	`, runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events for run %s: %w", runID, err)
	}
	return count, nil
}

// EventCountByType returns a run's fault-event counts grouped by fault type.
func (s *Store) EventCountByType(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fault_type, COUNT(*) FROM fault_events
		WHERE run_id = ?
		GROUP BY fault_type
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("count events for run %s: %w", runID, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var faultType string
		var count int
		if err := rows.Scan(&faultType, &count); err != nil {
			return nil, fmt.Errorf("count events for run %s: %w", runID, err)
		}
		counts[faultType] = count
	}
	return counts, rows.Err()
}
