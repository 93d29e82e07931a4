package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/havoc/internal/capability"
	"github.com/roach88/havoc/internal/fault"
	"github.com/roach88/havoc/internal/harness"
)

// ResourceExhaustion probes how a target behaves when its simulated quotas
// run out: request-count windows across minute/hour/burst spans, plus a
// token budget per minute and per day.
//
// Every probe call consults the limiter; the scenario's probability knob is
// not used here because a quota either is or is not exhausted — there is no
// per-call coin flip in real rate limiting.
type ResourceExhaustion struct {
	cfg    Config
	logger *slog.Logger

	limiter       *fault.RateLimiter
	janitorCancel context.CancelFunc
	events        []harness.FaultEvent
}

// NewResourceExhaustion creates the scenario. A nil logger discards logs.
func NewResourceExhaustion(cfg Config, logger *slog.Logger) *ResourceExhaustion {
	if logger == nil {
		logger = discardLogger()
	}
	return &ResourceExhaustion{cfg: cfg, logger: logger}
}

func (s *ResourceExhaustion) Name() string { return "resource_exhaustion" }

func (s *ResourceExhaustion) Description() string {
	return "Exhausts simulated request and token quotas to test backoff handling."
}

// Setup builds the rate limiter from the configured quotas and starts its
// janitor for the scenario's lifetime.
func (s *ResourceExhaustion) Setup() error {
	s.limiter = fault.NewRateLimiter(s.cfg.RateLimit, nil, s.cfg.Seed)

	ctx, cancel := context.WithCancel(context.Background())
	s.janitorCancel = cancel
	go s.limiter.Janitor(ctx, time.Minute)
	return nil
}

// Teardown stops the janitor and drops the scenario-scoped limiter state.
func (s *ResourceExhaustion) Teardown() error {
	if s.janitorCancel != nil {
		s.janitorCancel()
		s.janitorCancel = nil
	}
	s.limiter = nil
	return nil
}

// Events returns the fault-event log from the last Run, for persistence.
func (s *ResourceExhaustion) Events() []harness.FaultEvent { return s.events }

// Run intercepts the probe operations behind quota checks and drives calls
// until the windows trip.
func (s *ResourceExhaustion) Run(target *capability.Target) (*Result, error) {
	if s.limiter == nil {
		return nil, errors.New("resource_exhaustion: Setup not called")
	}

	result := NewResult()
	ops := operations(s.cfg, target)
	if len(ops) == 0 {
		result.Observe("no operations to probe")
		return result, nil
	}

	interceptors := make([]*harness.Interceptor, 0, len(ops))
	defer func() {
		for _, ic := range interceptors {
			ic.RestoreAll()
		}
	}()

	for _, name := range ops {
		injector := &fault.RateLimitInjector{Limiter: s.limiter, Resource: classifyResource(name)}
		ic := harness.NewInterceptor(target, injector, 1.0, s.cfg.Seed, s.logger)
		ic.Intercept(name)
		interceptors = append(interceptors, ic)
	}

	var allowed, rateLimited, tokensExhausted float64
	for round := 0; round < s.cfg.ProbeCalls; round++ {
		for _, name := range ops {
			_, err := target.Invoke(name, fmt.Sprintf("probe %d for %s", round, name))
			switch {
			case err == nil:
				allowed++
			case fault.IsRateLimit(err):
				rateLimited++
				var quota *fault.RateLimitError
				errors.As(err, &quota)
				result.Observe(fmt.Sprintf("rate limited on %s (%s window, retry after %s)",
					name, quota.Window, quota.RetryAfter.Round(0)))
			case fault.IsTokenBudget(err):
				tokensExhausted++
				var budget *fault.TokenBudgetError
				errors.As(err, &budget)
				result.Observe(fmt.Sprintf("token budget exhausted on %s (%s window)", name, budget.Window))
			default:
				result.Observe(fmt.Sprintf("unexpected failure on %s: %v", name, err))
			}
		}
	}

	s.events = nil
	for _, ic := range interceptors {
		s.events = append(s.events, ic.Events()...)
		for _, obs := range ic.Observations() {
			result.Observe(obs)
		}
	}

	result.Metrics["calls_made"] = float64(s.cfg.ProbeCalls * len(ops))
	result.Metrics["calls_allowed"] = allowed
	result.Metrics["rate_limited"] = rateLimited
	result.Metrics["tokens_exhausted"] = tokensExhausted

	// The probe succeeded if it actually produced quota pressure.
	result.Success = rateLimited+tokensExhausted > 0
	if !result.Success {
		result.Observe("quotas never tripped; limits may be too loose for the probe volume")
	}
	return result, nil
}
