package harness

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/roach88/havoc/internal/capability"
	"github.com/roach88/havoc/internal/fault"
)

// Injector decides what happens to a single intercepted call. It may call
// through to the original operation zero, one, or more times, or substitute
// a synthetic result entirely.
type Injector interface {
	// Name identifies the injector in fault events and observations.
	Name() string

	// Inject handles one intercepted call. Errors it returns are visible to
	// the target's caller, except *fault.InjectionError, which signals an
	// internal injector failure and makes the harness fall back to the
	// original operation.
	Inject(op capability.Operation, args []any) (any, error)
}

// InterceptionRecord tracks one wrapped operation. At most one record exists
// per (target, operation) pair at any time; the record owns the original
// implementation until restoration.
type InterceptionRecord struct {
	TargetID      string
	OperationName string

	original capability.Operation
}

// FaultEvent is one entry in the append-only injection log. Produced by the
// harness for every triggered injection, consumed by scenarios for metrics.
type FaultEvent struct {
	OperationName string
	FaultType     string
	Parameters    map[string]any
	Timestamp     time.Time
	Outcome       string
}

// Interceptor wraps operations on a single target and logs what its injector
// does to them.
//
// All interception state is scenario-scoped: discard the interceptor with
// the scenario. Not safe for concurrent Intercept/RestoreAll calls, but
// intercepted operations may be invoked concurrently.
type Interceptor struct {
	target      *capability.Target
	injector    Injector
	probability float64
	logger      *slog.Logger
	now         func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	mu           sync.Mutex
	records      map[string]*InterceptionRecord
	events       []FaultEvent
	observations []string
}

// NewInterceptor creates an interceptor binding the injector to the target.
// probability is the per-call Bernoulli chance of the injector triggering,
// clamped to [0, 1]. A nil logger discards logs.
func NewInterceptor(target *capability.Target, injector Injector, probability float64, seed int64, logger *slog.Logger) *Interceptor {
	if probability < 0 {
		probability = 0
	}
	if probability > 1 {
		probability = 1
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Interceptor{
		target:      target,
		injector:    injector,
		probability: probability,
		logger:      logger,
		now:         time.Now,
		rng:         rand.New(rand.NewSource(seed)),
		records:     make(map[string]*InterceptionRecord),
	}
}

// Intercept wraps the named operation. Idempotent: a second call on the same
// name is a no-op. If the target has no such operation, Intercept records an
// observation and returns without wrapping anything.
func (i *Interceptor) Intercept(name string) {
	i.mu.Lock()
	if _, wrapped := i.records[name]; wrapped {
		i.mu.Unlock()
		return
	}
	i.mu.Unlock()

	record := &InterceptionRecord{TargetID: i.target.ID(), OperationName: name}
	wrapper := func(args ...any) (any, error) {
		return i.dispatch(name, record.original, args)
	}

	original, ok := i.target.Swap(name, wrapper)
	if !ok {
		i.observe(fmt.Sprintf("operation not found: %s", name))
		i.logger.Warn("operation not found on target", "target", i.target.ID(), "operation", name)
		return
	}
	record.original = original

	i.mu.Lock()
	i.records[name] = record
	i.mu.Unlock()

	i.logger.Debug("operation intercepted", "target", i.target.ID(), "operation", name)
}

// InterceptAll wraps every named operation.
func (i *Interceptor) InterceptAll(names ...string) {
	for _, name := range names {
		i.Intercept(name)
	}
}

// dispatch runs one intercepted call: a Bernoulli draw decides between the
// original and the injector. Errors from the original operation propagate
// unchanged; the harness never swallows genuine target failures.
func (i *Interceptor) dispatch(name string, original capability.Operation, args []any) (any, error) {
	if !i.trigger() {
		return original(args...)
	}

	result, err := i.injector.Inject(original, args)
	if fault.IsInjection(err) {
		// The injector itself broke. Surface it as an observation and keep
		// the scenario going against the unmodified operation.
		i.observe(fmt.Sprintf("fault injection failed for %s: %v", name, err))
		i.logger.Error("injector failed, falling back to original", "operation", name, "error", err)
		i.appendEvent(name, "fallback: "+err.Error())
		return original(args...)
	}

	outcome := "ok"
	if err != nil {
		outcome = "fault: " + err.Error()
	}
	i.appendEvent(name, outcome)
	return result, err
}

// trigger draws the per-call Bernoulli.
func (i *Interceptor) trigger() bool {
	i.rngMu.Lock()
	defer i.rngMu.Unlock()
	return i.rng.Float64() < i.probability
}

func (i *Interceptor) appendEvent(name, outcome string) {
	event := FaultEvent{
		OperationName: name,
		FaultType:     i.injector.Name(),
		Parameters:    map[string]any{"probability": i.probability},
		Timestamp:     i.now(),
		Outcome:       outcome,
	}
	i.mu.Lock()
	i.events = append(i.events, event)
	i.mu.Unlock()
}

func (i *Interceptor) observe(msg string) {
	i.mu.Lock()
	i.observations = append(i.observations, msg)
	i.mu.Unlock()
}

// RestoreAll swaps every intercepted operation back to its original
// implementation. Complete and idempotent: after it returns, every wrapped
// slot holds the same callable it held before interception, and a second
// call is a no-op. Safe to defer, including past a panic.
func (i *Interceptor) RestoreAll() {
	i.mu.Lock()
	records := i.records
	i.records = make(map[string]*InterceptionRecord)
	i.mu.Unlock()

	for name, record := range records {
		i.target.Swap(name, record.original)
		i.logger.Debug("operation restored", "target", record.TargetID, "operation", name)
	}
}

// Intercepted reports whether the named operation is currently wrapped.
func (i *Interceptor) Intercepted(name string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.records[name]
	return ok
}

// Events returns a copy of the injection log, in append order.
func (i *Interceptor) Events() []FaultEvent {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]FaultEvent, len(i.events))
	copy(out, i.events)
	return out
}

// Observations returns a copy of the collected observations, in order.
func (i *Interceptor) Observations() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]string, len(i.observations))
	copy(out, i.observations)
	return out
}
