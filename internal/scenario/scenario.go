// Package scenario defines the chaos scenario contract and the built-in
// scenarios that exercise a target through the interception harness.
//
// A scenario owns its setup and teardown, borrows the target only for the
// duration of Run, and always leaves it restored: Run defers harness
// restoration so the target's operations survive panics and early returns by
// reference.
package scenario

import (
	"github.com/roach88/havoc/internal/capability"
)

// Scenario is one configured chaos experiment against a target.
type Scenario interface {
	// Name uniquely identifies the scenario in the engine registry.
	Name() string

	// Description explains what the scenario probes for.
	Description() string

	// Setup prepares scenario-scoped state. Called once before Run.
	Setup() error

	// Run executes the experiment. It must restore every intercepted
	// operation before returning, on every exit path.
	Run(target *capability.Target) (*Result, error)

	// Teardown releases scenario-scoped state. Called once after Run,
	// regardless of Run's outcome.
	Teardown() error
}

// Result is a scenario's wire-stable outcome. Immutable after Run returns.
type Result struct {
	Success      bool               `json:"success"`
	Observations []string           `json:"observations"`
	Metrics      map[string]float64 `json:"metrics"`
}

// NewResult creates an empty result with allocated fields, so observations
// and metrics marshal as [] and {} rather than null.
func NewResult() *Result {
	return &Result{
		Observations: []string{},
		Metrics:      map[string]float64{},
	}
}

// Observe appends one observation.
func (r *Result) Observe(msg string) {
	r.Observations = append(r.Observations, msg)
}
