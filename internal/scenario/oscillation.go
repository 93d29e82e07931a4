package scenario

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/roach88/havoc/internal/capability"
	"github.com/roach88/havoc/internal/fault"
	"github.com/roach88/havoc/internal/harness"
)

// OscillatingConversation steers a target's conversation into repetitive,
// non-productive loops and checks whether the target detects the cycle and
// can break out of it.
type OscillatingConversation struct {
	cfg    Config
	logger *slog.Logger

	injector *oscillationInjector
	events   []harness.FaultEvent
}

// NewOscillatingConversation creates the scenario. A nil logger discards
// logs.
func NewOscillatingConversation(cfg Config, logger *slog.Logger) *OscillatingConversation {
	if logger == nil {
		logger = discardLogger()
	}
	return &OscillatingConversation{cfg: cfg, logger: logger}
}

func (s *OscillatingConversation) Name() string { return "oscillating_conversation" }

func (s *OscillatingConversation) Description() string {
	return "Induces repetitive conversation loops to test cycle detection and escape."
}

func (s *OscillatingConversation) Setup() error {
	s.injector = &oscillationInjector{
		history:     fault.NewMessageHistory(s.cfg.Lookback),
		probability: s.cfg.Probability,
		rng:         rand.New(rand.NewSource(s.cfg.Seed)),
	}
	return nil
}

func (s *OscillatingConversation) Teardown() error {
	s.injector = nil
	return nil
}

// Run simulates a conversation by feeding each reply back as the next
// message, so canned oscillating replies accumulate into detectable cycles.
func (s *OscillatingConversation) Run(target *capability.Target) (*Result, error) {
	if s.injector == nil {
		return nil, fmt.Errorf("oscillating_conversation: Setup not called")
	}

	result := NewResult()
	ops := operations(s.cfg, target)
	if len(ops) == 0 {
		result.Observe("no conversation operations found to create oscillations")
		return result, nil
	}

	s.injector.breakCycle = target.Hooks().BreakCycle

	// The injector owns the oscillation draw, so every call must pass
	// through it: message history has to grow even on calls that end up
	// delegating to the original operation.
	ic := harness.NewInterceptor(target, s.injector, 1.0, s.cfg.Seed, s.logger)
	defer ic.RestoreAll()
	ic.InterceptAll(ops...)

	for _, name := range ops {
		message := "I need help deciding how to proceed with my task"
		for turn := 0; turn < s.cfg.MaxTurns; turn++ {
			reply, err := target.Invoke(name, message)
			if err != nil {
				result.Observe(fmt.Sprintf("%s failed mid-conversation: %v", name, err))
				break
			}
			if s, ok := reply.(string); ok && s != "" {
				message = s
			}
		}
	}

	s.events = ic.Events()
	oscillations, cycles, breaks := s.injector.counters()
	for _, obs := range s.injector.drainObservations() {
		result.Observe(obs)
	}
	for _, obs := range ic.Observations() {
		result.Observe(obs)
	}

	detectionRate := float64(cycles) / float64(max(oscillations, 1))
	breakRate := float64(breaks) / float64(max(cycles, 1))

	result.Metrics["oscillations_triggered"] = float64(oscillations)
	result.Metrics["cycles_detected"] = float64(cycles)
	result.Metrics["cycle_breaks"] = float64(breaks)
	result.Metrics["cycle_detection_rate"] = detectionRate
	result.Metrics["cycle_break_rate"] = breakRate

	result.Success = oscillations > 0 && detectionRate >= 0.5 && breakRate >= 0.6
	if oscillations == 0 {
		result.Observe("no oscillations triggered; probability may be too low for the turn count")
	}
	return result, nil
}

// Events returns the fault-event log from the last Run, for persistence.
func (s *OscillatingConversation) Events() []harness.FaultEvent { return s.events }

// oscillationInjector records every conversational exchange, watches the
// history for cycles, and with some probability substitutes a canned
// loop-inducing reply for the real one.
type oscillationInjector struct {
	history     *fault.MessageHistory
	probability float64
	breakCycle  func() bool

	mu           sync.Mutex
	rng          *rand.Rand
	oscillations int
	cycles       int
	breaks       int
	observations []string
}

func (o *oscillationInjector) Name() string { return "oscillation" }

func (o *oscillationInjector) Inject(op capability.Operation, args []any) (any, error) {
	o.history.Append("respond", extractContent(args), time.Now())

	if fault.DetectCycle(o.history) {
		o.mu.Lock()
		o.cycles++
		o.observations = append(o.observations, "detected conversation cycle")
		o.mu.Unlock()

		if o.breakCycle != nil {
			if o.breakCycle() {
				o.mu.Lock()
				o.breaks++
				o.observations = append(o.observations, "target broke out of the cycle")
				o.mu.Unlock()
			} else {
				o.observe("target failed to break the cycle")
			}
		} else {
			o.observe("target exposes no cycle-break capability")
		}
	}

	o.mu.Lock()
	triggered := o.rng.Float64() < o.probability
	var loop OscillationType
	var reply string
	if triggered {
		o.oscillations++
		loop = AllOscillationTypes[o.rng.Intn(len(AllOscillationTypes))]
		bank := oscillationBanks[loop]
		reply = bank[o.rng.Intn(len(bank))]
	}
	o.mu.Unlock()

	if triggered {
		o.observe(fmt.Sprintf("triggered %s", loop))
		return reply, nil
	}
	return op(args...)
}

func (o *oscillationInjector) observe(msg string) {
	o.mu.Lock()
	o.observations = append(o.observations, msg)
	o.mu.Unlock()
}

func (o *oscillationInjector) counters() (oscillations, cycles, breaks int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.oscillations, o.cycles, o.breaks
}

func (o *oscillationInjector) drainObservations() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.observations
	o.observations = nil
	return out
}

// extractContent pulls the first non-empty string argument, truncation left
// to the history itself.
func extractContent(args []any) string {
	for _, arg := range args {
		if s, ok := arg.(string); ok && s != "" {
			return s
		}
	}
	return "unknown_content"
}
