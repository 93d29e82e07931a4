package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/havoc/internal/fault"
)

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("probability: 1.0\n"))
	require.NoError(t, err)

	assert.Equal(t, 1.0, cfg.Probability)
	// Unset fields keep their defaults.
	assert.Equal(t, 5, cfg.ProbeCalls)
	assert.Equal(t, fault.DefaultLookback, cfg.Lookback)
	assert.Equal(t, fault.DefaultRateLimitConfig(), cfg.RateLimit)
}

func TestParseConfig_FullDocument(t *testing.T) {
	doc := `
probability: 0.25
seed: 7
operations: [respond, plan]
probe_calls: 10
rate_limit:
  requests_per_minute: 3
  requests_per_hour: 50
  burst_allowance: 2
  token_limits: false
corruption_rules: [missing_data, duplicate_entries]
partial_corruption: true
min_delay_ms: 10
max_delay_ms: 50
latency_patterns: [network_delay, queue_backlog]
escalation_steps: 5
lookback: 8
max_turns: 12
`
	cfg, err := ParseConfig([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, 0.25, cfg.Probability)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, []string{"respond", "plan"}, cfg.Operations)
	assert.Equal(t, 3, cfg.RateLimit.RequestsPerMinute)
	assert.False(t, cfg.RateLimit.TokenLimits)
	assert.Equal(t, []fault.Rule{fault.RuleMissingData, fault.RuleDuplicateEntries}, cfg.Rules())
	assert.Equal(t, []fault.LatencyPattern{fault.PatternNetworkDelay, fault.PatternQueueBacklog}, cfg.Patterns())
	assert.Equal(t, 5, cfg.EscalationSteps)
}

func TestParseConfig_RejectsUnknownFields(t *testing.T) {
	_, err := ParseConfig([]byte("probabillity: 0.5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "probabillity")
}

func TestParseConfig_RejectsOutOfRangeProbability(t *testing.T) {
	_, err := ParseConfig([]byte("probability: 1.5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "probability")
}

func TestParseConfig_RejectsNegativeDelay(t *testing.T) {
	_, err := ParseConfig([]byte("min_delay_ms: -5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_delay_ms")
}

func TestParseConfig_RejectsUnknownCorruptionRule(t *testing.T) {
	_, err := ParseConfig([]byte("corruption_rules: [no_such_rule]\n"))
	assert.Error(t, err)
}

func TestParseConfig_RejectsUnknownLatencyPattern(t *testing.T) {
	_, err := ParseConfig([]byte("latency_patterns: [tachyon_burst]\n"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("probe_calls: 2\nseed: 42\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.ProbeCalls)
	assert.Equal(t, int64(42), cfg.Seed)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
