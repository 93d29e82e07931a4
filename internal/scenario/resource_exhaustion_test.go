package scenario

import (
	"reflect"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/havoc/internal/capability"
	"github.com/roach88/havoc/internal/fault"
)

func newEchoTarget(operations ...string) *capability.Target {
	target := capability.NewTarget("probe")
	for _, name := range operations {
		target.Register(name, func(args ...any) (any, error) {
			if len(args) == 0 {
				return "ok", nil
			}
			return args[0], nil
		})
	}
	return target
}

// TestResourceExhaustion_MinuteLimitTrips covers the headline property: with
// a per-minute limit of three, the fourth call within a second is rejected
// with a retry time just under the minute window.
func TestResourceExhaustion_MinuteLimitTrips(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProbeCalls = 4
	cfg.Operations = []string{"call_api"}
	cfg.RateLimit = fault.RateLimitConfig{
		RequestsPerMinute: 3,
		RequestsPerHour:   100,
		BurstAllowance:    100,
	}

	s := NewResourceExhaustion(cfg, nil)
	require.NoError(t, s.Setup())
	defer s.Teardown()

	result, err := s.Run(newEchoTarget("call_api"))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 4.0, result.Metrics["calls_made"])
	assert.Equal(t, 3.0, result.Metrics["calls_allowed"])
	assert.Equal(t, 1.0, result.Metrics["rate_limited"])

	// The retry hint sits at the minute window minus elapsed time, plus
	// a few seconds of jitter.
	retryPattern := regexp.MustCompile(`minute window, retry after ([0-9a-z.µ]+)\)`)
	var retry time.Duration
	for _, obs := range result.Observations {
		if m := retryPattern.FindStringSubmatch(obs); m != nil {
			parsed, err := time.ParseDuration(m[1])
			require.NoError(t, err)
			retry = parsed
		}
	}
	assert.Greater(t, retry, 55*time.Second)
	assert.Less(t, retry, 66*time.Second)
}

func TestResourceExhaustion_TokenBudgetTrips(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProbeCalls = 3
	cfg.Operations = []string{"generate"}
	cfg.RateLimit = fault.RateLimitConfig{
		RequestsPerMinute: 100,
		RequestsPerHour:   1000,
		BurstAllowance:    100,
		TokenLimits:       true,
		TokensPerMinute:   15,
		TokensPerDay:      100000,
	}

	s := NewResourceExhaustion(cfg, nil)
	require.NoError(t, s.Setup())
	defer s.Teardown()

	result, err := s.Run(newEchoTarget("generate"))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.GreaterOrEqual(t, result.Metrics["tokens_exhausted"], 1.0)
}

func TestResourceExhaustion_RestoresOperations(t *testing.T) {
	target := newEchoTarget("call_api")
	original, ok := target.Operation("call_api")
	require.True(t, ok)

	cfg := DefaultConfig()
	cfg.ProbeCalls = 2
	s := NewResourceExhaustion(cfg, nil)
	require.NoError(t, s.Setup())
	defer s.Teardown()

	_, err := s.Run(target)
	require.NoError(t, err)

	restored, ok := target.Operation("call_api")
	require.True(t, ok)
	assert.Equal(t, reflect.ValueOf(original).Pointer(), reflect.ValueOf(restored).Pointer())
}

func TestResourceExhaustion_LooseLimitsDoNotTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProbeCalls = 2
	cfg.RateLimit = fault.RateLimitConfig{
		RequestsPerMinute: 100,
		RequestsPerHour:   1000,
		BurstAllowance:    100,
	}

	s := NewResourceExhaustion(cfg, nil)
	require.NoError(t, s.Setup())
	defer s.Teardown()

	result, err := s.Run(newEchoTarget("call_api"))
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.Observations,
		"quotas never tripped; limits may be too loose for the probe volume")
}

func TestResourceExhaustion_RunBeforeSetup(t *testing.T) {
	s := NewResourceExhaustion(DefaultConfig(), nil)
	_, err := s.Run(newEchoTarget("call_api"))
	assert.Error(t, err)
}

// TestResourceExhaustion_JanitorLifecycle checks the cleanup goroutine is
// scoped to the scenario: started by Setup, stopped by Teardown.
func TestResourceExhaustion_JanitorLifecycle(t *testing.T) {
	s := NewResourceExhaustion(DefaultConfig(), nil)

	require.NoError(t, s.Setup())
	require.NotNil(t, s.janitorCancel)

	require.NoError(t, s.Teardown())
	assert.Nil(t, s.janitorCancel)
	assert.Nil(t, s.limiter)

	// Teardown is safe to call again.
	require.NoError(t, s.Teardown())
}
