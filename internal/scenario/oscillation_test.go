package scenario

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/havoc/internal/capability"
)

func newConversationTarget(reply string) *capability.Target {
	target := capability.NewTarget("conversationalist")
	target.Register("respond", func(args ...any) (any, error) {
		return reply, nil
	})
	return target
}

func TestOscillatingConversation_TriggersOscillations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Probability = 1.0
	cfg.MaxTurns = 6

	s := NewOscillatingConversation(cfg, nil)
	require.NoError(t, s.Setup())
	defer s.Teardown()

	result, err := s.Run(newConversationTarget("a direct answer"))
	require.NoError(t, err)

	// Every turn oscillates when the probability is pinned to one.
	assert.Equal(t, 6.0, result.Metrics["oscillations_triggered"])
	assert.Contains(t, result.Metrics, "cycle_detection_rate")
	assert.Contains(t, result.Metrics, "cycle_break_rate")
}

// TestOscillatingConversation_DetectsRepetition pins the injector off and
// the target to a constant reply, so the fed-back conversation repeats
// itself and the cycle detector must fire.
func TestOscillatingConversation_DetectsRepetition(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Probability = 0.0
	cfg.MaxTurns = 6

	target := newConversationTarget("let me get back to you on that")
	target.SetHooks(capability.Hooks{
		BreakCycle: func() bool { return true },
	})

	s := NewOscillatingConversation(cfg, nil)
	require.NoError(t, s.Setup())
	defer s.Teardown()

	result, err := s.Run(target)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.Metrics["cycles_detected"], 1.0)
	assert.Equal(t, result.Metrics["cycles_detected"], result.Metrics["cycle_breaks"])
	assert.Contains(t, result.Observations, "detected conversation cycle")
	assert.Contains(t, result.Observations, "target broke out of the cycle")
}

func TestOscillatingConversation_NoBreakCapability(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Probability = 0.0
	cfg.MaxTurns = 6

	s := NewOscillatingConversation(cfg, nil)
	require.NoError(t, s.Setup())
	defer s.Teardown()

	result, err := s.Run(newConversationTarget("let me get back to you on that"))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.Metrics["cycles_detected"], 1.0)
	assert.Equal(t, 0.0, result.Metrics["cycle_breaks"])
	assert.Contains(t, result.Observations, "target exposes no cycle-break capability")
}

func TestOscillatingConversation_RestoresOperations(t *testing.T) {
	target := newConversationTarget("fine")
	original, _ := target.Operation("respond")

	cfg := DefaultConfig()
	cfg.Probability = 1.0
	cfg.MaxTurns = 4

	s := NewOscillatingConversation(cfg, nil)
	require.NoError(t, s.Setup())
	defer s.Teardown()

	_, err := s.Run(target)
	require.NoError(t, err)

	restored, _ := target.Operation("respond")
	assert.Equal(t, reflect.ValueOf(original).Pointer(), reflect.ValueOf(restored).Pointer())
}

func TestOscillatingConversation_NoOperations(t *testing.T) {
	s := NewOscillatingConversation(DefaultConfig(), nil)
	require.NoError(t, s.Setup())
	defer s.Teardown()

	result, err := s.Run(capability.NewTarget("mute"))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Observations, "no conversation operations found to create oscillations")
}
