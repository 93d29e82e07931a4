package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/havoc/internal/fault"
)

// configSchema constrains scenario configs beyond what YAML decoding can
// express: value ranges, and the closed vocabularies for rules and patterns.
// Every field is optional; defaults fill the gaps.
const configSchema = `
#Config: {
	probability?: number & >=0 & <=1
	seed?:        int
	operations?:  [...string]
	probe_calls?: int & >=0

	rate_limit?: {
		requests_per_minute?: int & >=0
		requests_per_hour?:   int & >=0
		burst_allowance?:     int & >=0
		token_limits?:        bool
		tokens_per_minute?:   int & >=0
		tokens_per_day?:      int & >=0
	}

	corruption_rules?: [...(
		"missing_data" | "invalid_structure" | "wrong_types" |
		"broken_references" | "truncated_data" | "duplicate_entries" |
		"timestamp_skew" | "encoding_errors" | "schema_violations" |
		"partial_writes")]
	partial_corruption?: bool

	min_delay_ms?: int & >=0
	max_delay_ms?: int & >=0
	latency_patterns?: [...(
		"network_delay" | "api_overload" | "database_slowdown" |
		"processing_delay" | "queue_backlog" | "bandwidth_limitation")]

	escalation_steps?: int & >=1
	lookback?:         int & >=1
	max_turns?:        int & >=1
}
`

// Config carries the knobs shared by the built-in scenarios. Scenarios read
// only the fields they care about.
type Config struct {
	// Probability is the per-call Bernoulli chance of fault injection.
	Probability float64 `yaml:"probability"`

	// Seed drives every random draw the scenario makes, for reproducible
	// runs.
	Seed int64 `yaml:"seed"`

	// Operations names the target operations to intercept. Empty means all
	// of them.
	Operations []string `yaml:"operations"`

	// ProbeCalls is how many probe invocations the scenario drives per
	// intercepted operation.
	ProbeCalls int `yaml:"probe_calls"`

	RateLimit fault.RateLimitConfig `yaml:"rate_limit"`

	CorruptionRules   []string `yaml:"corruption_rules"`
	PartialCorruption bool     `yaml:"partial_corruption"`

	MinDelayMS      int      `yaml:"min_delay_ms"`
	MaxDelayMS      int      `yaml:"max_delay_ms"`
	LatencyPatterns []string `yaml:"latency_patterns"`

	// EscalationSteps is how many impossible tasks the unfulfillable-task
	// scenario escalates through.
	EscalationSteps int `yaml:"escalation_steps"`

	// Lookback bounds the conversation history the cycle detector sees.
	Lookback int `yaml:"lookback"`

	// MaxTurns caps the simulated conversation length.
	MaxTurns int `yaml:"max_turns"`
}

// DefaultConfig returns the knobs the built-in scenarios were calibrated
// against.
func DefaultConfig() Config {
	return Config{
		Probability:     0.5,
		Seed:            1,
		ProbeCalls:      5,
		RateLimit:       fault.DefaultRateLimitConfig(),
		MinDelayMS:      100,
		MaxDelayMS:      500,
		EscalationSteps: 3,
		Lookback:        fault.DefaultLookback,
		MaxTurns:        8,
	}
}

// ParseConfig decodes a YAML config over the defaults. Unknown fields are
// rejected at decode time; value ranges and vocabulary membership are
// rejected by the schema, with the offending field in the error.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateConfig(data); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadConfig reads and parses a scenario config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// validateConfig unifies the raw decoded document with the embedded schema.
// Validating the generic document rather than the Go struct keeps the field
// names in errors matching what the user wrote.
func validateConfig(data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(configSchema).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	unified := schema.Unify(ctx.Encode(raw))
	if err := unified.Validate(); err != nil {
		return err
	}
	return nil
}

// Rules converts the configured rule names. Empty means all rules.
func (c Config) Rules() []fault.Rule {
	rules := make([]fault.Rule, 0, len(c.CorruptionRules))
	for _, name := range c.CorruptionRules {
		rules = append(rules, fault.Rule(name))
	}
	return rules
}

// Patterns converts the configured latency pattern names. Empty means all
// patterns.
func (c Config) Patterns() []fault.LatencyPattern {
	patterns := make([]fault.LatencyPattern, 0, len(c.LatencyPatterns))
	for _, name := range c.LatencyPatterns {
		patterns = append(patterns, fault.LatencyPattern(name))
	}
	return patterns
}
