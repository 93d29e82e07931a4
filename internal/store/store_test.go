package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/havoc/internal/harness"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newRunID(t *testing.T) string {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	return id.String()
}

func TestStore_RunRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	id := newRunID(t)

	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(3 * time.Second)

	require.NoError(t, st.BeginRun(ctx, id, "resource_exhaustion", "probe-1", started))
	require.NoError(t, st.FinishRun(ctx, id, finished, true,
		[]string{"rate limit hit on api_calls"},
		map[string]float64{"faults_injected": 4}))

	run, err := st.ReadRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "resource_exhaustion", run.Scenario)
	assert.Equal(t, "probe-1", run.TargetID)
	assert.True(t, run.Success)
	assert.True(t, run.StartedAt.Equal(started))
	assert.True(t, run.FinishedAt.Equal(finished))
	assert.Equal(t, []string{"rate limit hit on api_calls"}, run.Observations)
	assert.Equal(t, map[string]float64{"faults_injected": 4}, run.Metrics)
}

func TestStore_UnfinishedRun(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	id := newRunID(t)

	require.NoError(t, st.BeginRun(ctx, id, "high_latency", "probe-1", time.Now()))

	run, err := st.ReadRun(ctx, id)
	require.NoError(t, err)
	assert.False(t, run.Success)
	assert.True(t, run.FinishedAt.IsZero())
	assert.Empty(t, run.Observations)
}

func TestStore_BeginRunIsIdempotent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	id := newRunID(t)

	started := time.Now()
	require.NoError(t, st.BeginRun(ctx, id, "corrupted_state", "probe-1", started))
	assert.NoError(t, st.BeginRun(ctx, id, "corrupted_state", "probe-1", started))
}

func TestStore_ReadMissingRun(t *testing.T) {
	st := openTestStore(t)

	_, err := st.ReadRun(context.Background(), "no-such-run")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestStore_EventCounts(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	id := newRunID(t)

	require.NoError(t, st.BeginRun(ctx, id, "high_latency", "probe-1", time.Now()))

	events := []harness.FaultEvent{
		{OperationName: "respond", FaultType: "latency", Timestamp: time.Now(), Outcome: "ok"},
		{OperationName: "respond", FaultType: "latency", Timestamp: time.Now(), Outcome: "fault: server overload"},
		{OperationName: "plan", FaultType: "rate_limit", Timestamp: time.Now(), Outcome: "fault: quota exhausted",
			Parameters: map[string]any{"probability": 0.5}},
	}
	require.NoError(t, st.WriteEvents(ctx, id, events))

	count, err := st.EventCount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	byType, err := st.EventCountByType(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"latency": 2, "rate_limit": 1}, byType)
}

func TestStore_EventRequiresRun(t *testing.T) {
	st := openTestStore(t)

	err := st.WriteEvent(context.Background(), "missing-run", harness.FaultEvent{
		OperationName: "respond", FaultType: "latency", Timestamp: time.Now(), Outcome: "ok",
	})
	assert.Error(t, err, "foreign key enforcement rejects events for unknown runs")
}
