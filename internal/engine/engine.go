// Package engine holds the scenario registry and runs scenarios by name.
//
// Registration is explicit: each scenario constructor is registered at
// process start, there is no discovery by scanning. Runs are persisted to
// the event store with time-ordered IDs.
package engine

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/havoc/internal/capability"
	"github.com/roach88/havoc/internal/harness"
	"github.com/roach88/havoc/internal/scenario"
	"github.com/roach88/havoc/internal/store"
)

// Constructor builds one scenario instance from a config. A fresh instance
// is built per run so scenario state never leaks between runs.
type Constructor func(cfg scenario.Config, logger *slog.Logger) scenario.Scenario

// EventSource is implemented by scenarios that retain their fault-event log
// after Run; the engine persists those events with the run.
type EventSource interface {
	Events() []harness.FaultEvent
}

// Engine is the scenario registry and runner.
type Engine struct {
	logger *slog.Logger
	store  *store.Store

	mu           sync.Mutex
	constructors map[string]Constructor
}

// New creates an engine. A nil store disables run persistence; a nil logger
// discards logs.
func New(st *store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		logger:       logger,
		store:        st,
		constructors: make(map[string]Constructor),
	}
}

// Register adds a scenario constructor under a name. Re-registering a name
// replaces the previous constructor.
func (e *Engine) Register(name string, ctor Constructor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.constructors[name] = ctor
}

// List returns the registered scenario names in sorted order.
func (e *Engine) List() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.constructors))
	for name := range e.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptions returns each registered scenario's self-description, keyed
// by name. Scenarios are instantiated with the default config to ask them.
func (e *Engine) Descriptions() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	descriptions := make(map[string]string, len(e.constructors))
	for name, ctor := range e.constructors {
		if ctor == nil {
			descriptions[name] = ""
			continue
		}
		descriptions[name] = ctor(scenario.DefaultConfig(), e.logger).Description()
	}
	return descriptions
}

// Run builds, sets up, runs and tears down the named scenario against the
// target. Teardown always executes once Setup has succeeded, even when Run
// fails. Returns the persisted run ID alongside the result.
func (e *Engine) Run(ctx context.Context, name string, target *capability.Target, cfg scenario.Config) (string, *scenario.Result, error) {
	e.mu.Lock()
	ctor, ok := e.constructors[name]
	e.mu.Unlock()
	if !ok {
		return "", nil, &NotFoundError{Name: name, Available: e.List()}
	}

	s := ctor(cfg, e.logger)

	runID := ""
	if id, err := uuid.NewV7(); err == nil {
		runID = id.String()
	}
	e.persistStart(ctx, runID, name, target.ID())

	e.logger.Info("scenario starting", "scenario", name, "target", target.ID(), "run", runID)

	if err := s.Setup(); err != nil {
		e.persistFinish(ctx, runID, s, nil)
		return runID, nil, &RunError{Name: name, Phase: "setup", Err: err}
	}

	result, runErr := s.Run(target)
	if terr := s.Teardown(); terr != nil && runErr == nil {
		runErr = &RunError{Name: name, Phase: "teardown", Err: terr}
	}
	if runErr != nil {
		e.persistFinish(ctx, runID, s, nil)
		if _, ok := runErr.(*RunError); !ok {
			runErr = &RunError{Name: name, Phase: "run", Err: runErr}
		}
		return runID, nil, runErr
	}

	e.persistFinish(ctx, runID, s, result)
	e.logger.Info("scenario finished", "scenario", name, "run", runID, "success", result.Success)
	return runID, result, nil
}

func (e *Engine) persistStart(ctx context.Context, runID, name, targetID string) {
	if e.store == nil || runID == "" {
		return
	}
	if err := e.store.BeginRun(ctx, runID, name, targetID, time.Now()); err != nil {
		e.logger.Error("failed to persist run start", "run", runID, "error", err)
	}
}

func (e *Engine) persistFinish(ctx context.Context, runID string, s scenario.Scenario, result *scenario.Result) {
	if e.store == nil || runID == "" {
		return
	}

	success := false
	var observations []string
	var metrics map[string]float64
	if result != nil {
		success = result.Success
		observations = result.Observations
		metrics = result.Metrics
	}
	if err := e.store.FinishRun(ctx, runID, time.Now(), success, observations, metrics); err != nil {
		e.logger.Error("failed to persist run outcome", "run", runID, "error", err)
	}

	if src, ok := s.(EventSource); ok {
		if err := e.store.WriteEvents(ctx, runID, src.Events()); err != nil {
			e.logger.Error("failed to persist fault events", "run", runID, "error", err)
		}
	}
}

// RegisterBuiltins registers every built-in scenario on the engine.
func RegisterBuiltins(e *Engine) {
	e.Register("resource_exhaustion", func(cfg scenario.Config, logger *slog.Logger) scenario.Scenario {
		return scenario.NewResourceExhaustion(cfg, logger)
	})
	e.Register("corrupted_state", func(cfg scenario.Config, logger *slog.Logger) scenario.Scenario {
		return scenario.NewCorruptedState(cfg, logger)
	})
	e.Register("high_latency", func(cfg scenario.Config, logger *slog.Logger) scenario.Scenario {
		return scenario.NewHighLatency(cfg, logger)
	})
	e.Register("oscillating_conversation", func(cfg scenario.Config, logger *slog.Logger) scenario.Scenario {
		return scenario.NewOscillatingConversation(cfg, logger)
	})
	e.Register("unfulfillable_task", func(cfg scenario.Config, logger *slog.Logger) scenario.Scenario {
		return scenario.NewUnfulfillableTask(cfg, logger)
	})
}
