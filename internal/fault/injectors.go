package fault

import (
	"math/rand"
	"sync"

	"github.com/roach88/havoc/internal/capability"
)

// RateLimitInjector enforces simulated quotas in front of an operation. Each
// intercepted call is checked against the limiter; exhausted quotas surface
// as *RateLimitError or *TokenBudgetError without reaching the operation.
type RateLimitInjector struct {
	Limiter  *RateLimiter
	Resource string
}

// Name identifies this injector in fault events and observations.
func (r *RateLimitInjector) Name() string { return "rate_limit" }

// Inject checks the quota, then delegates. On an allowed call the limiter is
// told the actual token usage when the result carries one.
func (r *RateLimitInjector) Inject(op capability.Operation, args []any) (any, error) {
	estimated := r.Limiter.EstimateTokens(args)
	if err := r.Limiter.Check(r.Resource, estimated); err != nil {
		return nil, err
	}
	CountInjected("rate_limit")

	result, err := op(args...)
	if s, ok := result.(string); ok {
		r.Limiter.ObserveActualTokens(estimated, len(s)/charsPerToken)
	}
	return result, err
}

// CorruptionInjector lets the operation run, then corrupts its result under
// a randomly drawn rule.
type CorruptionInjector struct {
	Corruptor *Corruptor
	Rules     []Rule
	Partial   bool

	mu  sync.Mutex
	rng *rand.Rand

	lastMu   sync.Mutex
	lastRule Rule
}

// NewCorruptionInjector creates an injector drawing rules uniformly from
// rules (all rules if empty).
func NewCorruptionInjector(corruptor *Corruptor, rules []Rule, partial bool, seed int64) *CorruptionInjector {
	if len(rules) == 0 {
		rules = AllRules
	}
	return &CorruptionInjector{
		Corruptor: corruptor,
		Rules:     rules,
		Partial:   partial,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Name identifies this injector in fault events and observations.
func (c *CorruptionInjector) Name() string { return "corruption" }

// Inject delegates first, then corrupts a successful result. Errors from the
// operation pass through untouched: there is nothing to corrupt.
func (c *CorruptionInjector) Inject(op capability.Operation, args []any) (any, error) {
	result, err := op(args...)
	if err != nil {
		return result, err
	}

	c.mu.Lock()
	rule := c.Rules[c.rng.Intn(len(c.Rules))]
	c.mu.Unlock()

	c.lastMu.Lock()
	c.lastRule = rule
	c.lastMu.Unlock()

	CountInjected(string(rule))
	if c.Partial {
		return c.Corruptor.ApplyPartial(result, rule), nil
	}
	return c.Corruptor.Apply(result, rule), nil
}

// LastRule returns the most recently applied rule, for observations.
func (c *CorruptionInjector) LastRule() Rule {
	c.lastMu.Lock()
	defer c.lastMu.Unlock()
	return c.lastRule
}
