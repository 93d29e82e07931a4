package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/havoc/internal/harness"
)

// Run is one scenario execution as persisted.
type Run struct {
	ID           string
	Scenario     string
	TargetID     string
	StartedAt    time.Time
	FinishedAt   time.Time
	Success      bool
	Observations []string
	Metrics      map[string]float64
}

// BeginRun inserts a run row in its started state. Duplicate IDs are
// silently ignored for idempotency.
func (s *Store) BeginRun(ctx context.Context, id, scenario, targetID string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, target_id, started_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, scenario, targetID, startedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// FinishRun records a run's outcome: success flag, observations and metrics,
// serialized as JSON.
func (s *Store) FinishRun(ctx context.Context, id string, finishedAt time.Time, success bool, observations []string, metrics map[string]float64) error {
	if observations == nil {
		observations = []string{}
	}
	if metrics == nil {
		metrics = map[string]float64{}
	}

	obsJSON, err := json.Marshal(observations)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, success = ?, observations = ?, metrics = ?
		WHERE id = ?
	`, finishedAt.UTC().Format(time.RFC3339Nano), success, string(obsJSON), string(metricsJSON), id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// WriteEvent appends one fault event to a run's log. Event rows get their
// own time-ordered IDs.
func (s *Store) WriteEvent(ctx context.Context, runID string, event harness.FaultEvent) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	params, err := json.Marshal(event.Parameters)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fault_events (id, run_id, operation, fault_type, parameters, at, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id.String(), runID, event.OperationName, event.FaultType, string(params), event.Timestamp.UTC().Format(time.RFC3339Nano), event.Outcome)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// WriteEvents appends a batch of fault events in order.
func (s *Store) WriteEvents(ctx context.Context, runID string, events []harness.FaultEvent) error {
	for _, event := range events {
		if err := s.WriteEvent(ctx, runID, event); err != nil {
			return err
		}
	}
	return nil
}
