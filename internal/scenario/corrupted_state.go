package scenario

import (
	"fmt"
	"log/slog"

	"github.com/roach88/havoc/internal/capability"
	"github.com/roach88/havoc/internal/fault"
	"github.com/roach88/havoc/internal/harness"
)

// CorruptedState feeds a target structurally corrupted results and watches
// whether the target notices. Each triggered injection lets the original
// operation run, then mangles its result under a randomly drawn rule.
type CorruptedState struct {
	cfg    Config
	logger *slog.Logger

	injector *fault.CorruptionInjector
	events   []harness.FaultEvent
}

// NewCorruptedState creates the scenario. A nil logger discards logs.
func NewCorruptedState(cfg Config, logger *slog.Logger) *CorruptedState {
	if logger == nil {
		logger = discardLogger()
	}
	return &CorruptedState{cfg: cfg, logger: logger}
}

func (s *CorruptedState) Name() string { return "corrupted_state" }

func (s *CorruptedState) Description() string {
	return "Corrupts operation results structurally to test state validation."
}

// Setup builds the corruptor and its rule set.
func (s *CorruptedState) Setup() error {
	corruptor := fault.NewCorruptor(s.cfg.Seed)
	s.injector = fault.NewCorruptionInjector(corruptor, s.cfg.Rules(), s.cfg.PartialCorruption, s.cfg.Seed)
	return nil
}

func (s *CorruptedState) Teardown() error {
	s.injector = nil
	return nil
}

// Events returns the fault-event log from the last Run, for persistence.
func (s *CorruptedState) Events() []harness.FaultEvent { return s.events }

// Run intercepts the probe operations, drives calls through the corruptor,
// and opportunistically asks the target to validate its own state.
func (s *CorruptedState) Run(target *capability.Target) (*Result, error) {
	if s.injector == nil {
		return nil, fmt.Errorf("corrupted_state: Setup not called")
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
	for round := 0; round < s.cfg.ProbeCalls; round++ {
		for _, name := range ops {
			if _, err := target.Invoke(name, map[string]any{
				"id":      fmt.Sprintf("probe-%d", round),
				"payload": "state consistency probe",
			}); err != nil {
				failures++
				result.Observe(fmt.Sprintf("%s failed under corruption: %v", name, err))
			}
		}
	}

	events := ic.Events()
	s.events = events
	for _, event := range events {
		result.Observe(fmt.Sprintf("corrupted %s result (%s)", event.OperationName, s.injector.LastRule()))
		break // one sample observation is enough; the count goes to metrics
	}

	var validated, flagged float64
	if validate := target.Hooks().ValidateState; validate != nil {
		validated = 1
		if err := validate(); err != nil {
			flagged = 1
			result.Observe(fmt.Sprintf("target flagged corrupted state: %v", err))
		} else if len(events) > 0 {
			result.Observe("target validated state as clean despite injected corruption")
		}
	} else {
		result.Observe("target exposes no state validation capability")
	}

	for _, obs := range ic.Observations() {
		result.Observe(obs)
	}

	result.Metrics["calls_made"] = float64(s.cfg.ProbeCalls * len(ops))
	result.Metrics["corruptions_injected"] = float64(len(events))
	result.Metrics["call_failures"] = failures
	result.Metrics["state_validations"] = validated
	result.Metrics["corruption_flagged"] = flagged

	result.Success = len(events) > 0
	return result, nil
}
