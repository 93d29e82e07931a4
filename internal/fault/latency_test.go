package fault

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedSleeps swaps the injector's sleep for a recorder so tests never
// block on wall-clock time.
func recordedSleeps(l *LatencyInjector) *[]time.Duration {
	var slept []time.Duration
	l.sleep = func(d time.Duration) { slept = append(slept, d) }
	return &slept
}

func echoOp(args ...any) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	return args[0], nil
}

func TestLatencyInjector_Name(t *testing.T) {
	l := NewLatencyInjector(time.Second, 2*time.Second, nil, 1)
	assert.Equal(t, "latency", l.Name())
}

func TestLatencyInjector_DelegatesToOperation(t *testing.T) {
	l := NewLatencyInjector(time.Second, time.Second, []LatencyPattern{PatternProcessingDelay}, 1)
	recordedSleeps(l)

	result, err := l.Inject(echoOp, []any{"payload"})
	require.NoError(t, err)
	assert.Equal(t, "payload", result)
}

func TestLatencyInjector_DelayWithinBounds(t *testing.T) {
	l := NewLatencyInjector(2*time.Second, 5*time.Second, []LatencyPattern{PatternProcessingDelay}, 7)
	slept := recordedSleeps(l)

	for i := 0; i < 20; i++ {
		_, err := l.Inject(echoOp, nil)
		require.NoError(t, err)

		var total time.Duration
		for _, d := range *slept {
			total += d
		}
		assert.GreaterOrEqual(t, total, 2*time.Second-time.Millisecond)
		assert.LessOrEqual(t, total, 5*time.Second)
		*slept = (*slept)[:0]
	}
}

func TestLatencyInjector_NetworkDelayJitterBounds(t *testing.T) {
	l := NewLatencyInjector(10*time.Second, 10*time.Second, []LatencyPattern{PatternNetworkDelay}, 3)
	slept := recordedSleeps(l)

	for i := 0; i < 20; i++ {
		l.Inject(echoOp, nil)
	}

	// Jitter stays within ±20% of the drawn delay.
	for _, d := range *slept {
		assert.GreaterOrEqual(t, d, 8*time.Second)
		assert.LessOrEqual(t, d, 12*time.Second)
	}
}

func TestLatencyInjector_APIOverloadChunks(t *testing.T) {
	l := NewLatencyInjector(5*time.Second, 5*time.Second, []LatencyPattern{PatternAPIOverload}, 4)
	slept := recordedSleeps(l)

	_, err := l.Inject(echoOp, nil)
	if err != nil {
		// An early 503 shortens the staging.
		assert.ErrorIs(t, err, ErrServerOverload)
		assert.LessOrEqual(t, len(*slept), 5)
	} else {
		assert.Len(t, *slept, 5)
	}
	for _, d := range *slept {
		assert.Equal(t, time.Second, d)
	}
}

func TestLatencyInjector_DBSlowdownStages(t *testing.T) {
	l := NewLatencyInjector(time.Second, time.Second, []LatencyPattern{PatternDBSlowdown}, 5)
	slept := recordedSleeps(l)

	_, err := l.Inject(echoOp, nil)
	// Short queries never time out.
	require.NoError(t, err)
	require.Len(t, *slept, 3)
	assert.Equal(t, 300*time.Millisecond, (*slept)[0])
	assert.Equal(t, 400*time.Millisecond, (*slept)[1])
	assert.Equal(t, 300*time.Millisecond, (*slept)[2])
}

func TestLatencyInjector_ProcessingDelaySteps(t *testing.T) {
	l := NewLatencyInjector(3*time.Second, 3*time.Second, []LatencyPattern{PatternProcessingDelay}, 6)
	slept := recordedSleeps(l)

	l.Inject(echoOp, nil)
	require.Len(t, *slept, 3)
	for _, d := range *slept {
		assert.Equal(t, time.Second, d)
	}
}

func TestLatencyInjector_QueueBacklogBounded(t *testing.T) {
	l := NewLatencyInjector(10*time.Second, 10*time.Second, []LatencyPattern{PatternQueueBacklog}, 8)
	slept := recordedSleeps(l)

	l.Inject(echoOp, nil)
	// At most ten queue positions; priority handling may cut it shorter.
	assert.GreaterOrEqual(t, len(*slept), 1)
	assert.LessOrEqual(t, len(*slept), 10)
}

func TestLatencyInjector_BandwidthLimitChunks(t *testing.T) {
	l := NewLatencyInjector(8*time.Second, 8*time.Second, []LatencyPattern{PatternBandwidthLimit}, 9)
	slept := recordedSleeps(l)

	l.Inject(echoOp, nil)
	// Eight chunks, plus up to eight half-chunk congestion stalls.
	assert.GreaterOrEqual(t, len(*slept), 8)
	assert.LessOrEqual(t, len(*slept), 16)
	assert.Equal(t, time.Second, (*slept)[0])
}

func TestLatencyInjector_SecondaryFailureSkipsOperation(t *testing.T) {
	l := NewLatencyInjector(time.Second, time.Second, []LatencyPattern{PatternNetworkDelay}, 0)
	recordedSleeps(l)

	called := 0
	op := func(args ...any) (any, error) {
		called++
		return nil, nil
	}

	// Drive the injector until the connection-loss draw lands.
	var sawFailure bool
	for i := 0; i < 200 && !sawFailure; i++ {
		before := called
		_, err := l.Inject(op, nil)
		if err != nil {
			require.ErrorIs(t, err, ErrConnectionLost)
			assert.Equal(t, before, called, "failed injection must not reach the operation")
			sawFailure = true
		}
	}
	assert.True(t, sawFailure, "expected at least one connection loss in 200 draws")
}

func TestLatencyInjector_SwappedBounds(t *testing.T) {
	// max below min collapses to a fixed delay.
	l := NewLatencyInjector(4*time.Second, time.Second, []LatencyPattern{PatternProcessingDelay}, 10)
	slept := recordedSleeps(l)

	l.Inject(echoOp, nil)
	var total time.Duration
	for _, d := range *slept {
		total += d
	}
	assert.Equal(t, 4*time.Second, total)
}
