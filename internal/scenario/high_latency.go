package scenario

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/havoc/internal/capability"
	"github.com/roach88/havoc/internal/fault"
	"github.com/roach88/havoc/internal/harness"
)

// HighLatency stalls the target's operations with staged delays and the
// occasional secondary failure (dropped connection, 503, query timeout),
// then checks whether the target noticed the slowness itself.
type HighLatency struct {
	cfg    Config
	logger *slog.Logger

	injector *fault.LatencyInjector
	events   []harness.FaultEvent
}

// NewHighLatency creates the scenario. A nil logger discards logs.
func NewHighLatency(cfg Config, logger *slog.Logger) *HighLatency {
	if logger == nil {
		logger = discardLogger()
	}
	return &HighLatency{cfg: cfg, logger: logger}
}

func (s *HighLatency) Name() string { return "high_latency" }

func (s *HighLatency) Description() string {
	return "Injects staged delays and transient failures to test timeout handling."
}

// Setup builds the latency injector from the configured delay bounds and
// pattern set.
func (s *HighLatency) Setup() error {
	s.injector = fault.NewLatencyInjector(
		time.Duration(s.cfg.MinDelayMS)*time.Millisecond,
		time.Duration(s.cfg.MaxDelayMS)*time.Millisecond,
		s.cfg.Patterns(),
		s.cfg.Seed,
	)
	return nil
}

func (s *HighLatency) Teardown() error {
	s.injector = nil
	return nil
}

// Run drives probe calls through the delay injector and measures how the
// wall-clock cost and failure mix land on the caller.
func (s *HighLatency) Run(target *capability.Target) (*Result, error) {
	if s.injector == nil {
		return nil, fmt.Errorf("high_latency: Setup not called")
	}

	result := NewResult()
	ops := operations(s.cfg, target)
	if len(ops) == 0 {
		result.Observe("no operations to probe")
		return result, nil
	}

	ic := harness.NewInterceptor(target, s.injector, s.cfg.Probability, s.cfg.Seed, s.logger)
	defer ic.RestoreAll()
	ic.InterceptAll(ops...)

	var failures float64
	var totalElapsed time.Duration
	calls := 0
	for round := 0; round < s.cfg.ProbeCalls; round++ {
		for _, name := range ops {
			start := time.Now()
			_, err := target.Invoke(name, fmt.Sprintf("latency probe %d", round))
			totalElapsed += time.Since(start)
			calls++
			if err != nil {
				failures++
				result.Observe(fmt.Sprintf("%s failed under latency: %v", name, err))
			}
		}
	}

	events := ic.Events()
	s.events = events

	var timeoutChecked, timeoutNoticed float64
	if check := target.Hooks().CheckTimeout; check != nil {
		timeoutChecked = 1
		if check() {
			timeoutNoticed = 1
			result.Observe("target noticed operations exceeding its deadline budget")
		} else if len(events) > 0 {
			result.Observe("target never noticed the injected slowness")
		}
	} else {
		result.Observe("target exposes no timeout check capability")
	}

	for _, obs := range ic.Observations() {
		result.Observe(obs)
	}

	result.Metrics["calls_made"] = float64(calls)
	result.Metrics["delays_injected"] = float64(len(events))
	result.Metrics["call_failures"] = failures
	result.Metrics["timeout_checks"] = timeoutChecked
	result.Metrics["timeouts_noticed"] = timeoutNoticed
	if calls > 0 {
		result.Metrics["mean_call_ms"] = float64(totalElapsed.Milliseconds()) / float64(calls)
	}

	result.Success = len(events) > 0
	return result, nil
}

// Events returns the fault-event log from the last Run, for persistence.
func (s *HighLatency) Events() []harness.FaultEvent { return s.events }
