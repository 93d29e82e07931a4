// Package analyze classifies target responses against per-concern keyword
// vocabularies and scores how effectively a target detects injected faults.
//
// Classification is deliberately case-insensitive substring membership
// against fixed vocabularies. The keyword lists are the documented contract:
// heuristic, with known false positives, but stable and testable. Semantic
// matching is out of scope.
package analyze

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// Concern names one keyword vocabulary. Multiple concerns may match the
// same response independently; membership in one set never excludes
// another.
type Concern struct {
	Name       string
	Vocabulary []string
}

// The built-in concern vocabularies. Matching is case-insensitive, so the
// entries are listed in lower case.
var (
	// Guardrail marks responses that recognize and reject an injected
	// fault or impossible request.
	Guardrail = Concern{
		Name: "guardrail",
		Vocabulary: []string{
			"impossible", "cannot", "unable", "not possible", "invalid",
			"contradiction", "violates", "error", "reject", "refuse",
			"not feasible", "cannot comply", "beyond capabilities",
		},
	}

	// DeepAnalysis marks responses showing the target reasoned about the
	// request rather than pattern-matching a refusal.
	DeepAnalysis = Concern{
		Name: "deep_analysis",
		Vocabulary: []string{
			"contradiction", "impossible", "paradox", "circular", "invalid",
			"cannot be", "logically inconsistent", "requires", "depends on",
			"analysis shows", "upon examination", "careful consideration",
		},
	}

	// ContradictionDetected marks responses that call out the specific
	// logical flaw in an unfulfillable request.
	ContradictionDetected = Concern{
		Name: "contradiction_detected",
		Vocabulary: []string{
			"cannot be fulfilled", "impossible to", "contradictory requirements",
			"logically impossible", "violates", "inconsistent", "paradoxical",
		},
	}

	// ValidationError marks raised errors that look like deliberate input
	// validation rather than an incidental crash.
	ValidationError = Concern{
		Name:       "validation_error",
		Vocabulary: []string{"validation", "invalid", "constraint"},
	}
)

// Analyzer matches responses against a set of concerns and keeps per-concern
// match counts alongside an injected-fault count, from which it derives an
// effectiveness ratio. Safe for concurrent use.
type Analyzer struct {
	folder cases.Caser

	mu       sync.Mutex
	concerns []foldedConcern
	counts   map[string]int
	injected int
}

type foldedConcern struct {
	name       string
	vocabulary []string
}

// NewAnalyzer creates an analyzer over the given concerns. Vocabulary
// entries are case-folded once up front; responses are folded per
// classification.
func NewAnalyzer(concerns ...Concern) *Analyzer {
	folder := cases.Fold()
	folded := make([]foldedConcern, 0, len(concerns))
	for _, concern := range concerns {
		fc := foldedConcern{name: concern.Name, vocabulary: make([]string, 0, len(concern.Vocabulary))}
		for _, keyword := range concern.Vocabulary {
			fc.vocabulary = append(fc.vocabulary, folder.String(keyword))
		}
		folded = append(folded, fc)
	}
	return &Analyzer{
		folder:   folder,
		concerns: folded,
		counts:   make(map[string]int),
	}
}

// RecordInjection bumps the injected-fault count the effectiveness ratio is
// measured against.
func (a *Analyzer) RecordInjection() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.injected++
}

// Classify matches the response against every concern, increments the
// counters of those that matched, and returns their names in registration
// order.
func (a *Analyzer) Classify(response string) []string {
	folded := a.folder.String(response)

	a.mu.Lock()
	defer a.mu.Unlock()

	var matched []string
	for _, concern := range a.concerns {
		for _, keyword := range concern.vocabulary {
			if strings.Contains(folded, keyword) {
				a.counts[concern.name]++
				matched = append(matched, concern.name)
				break
			}
		}
	}
	return matched
}

// ClassifyError classifies a raised error's text the same way Classify
// handles a response. A raised error can itself be a guardrail: a
// validation failure means the target refused the request.
func (a *Analyzer) ClassifyError(err error) []string {
	if err == nil {
		return nil
	}
	return a.Classify(err.Error())
}

// Count returns how many classified responses matched the named concern.
func (a *Analyzer) Count(concern string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts[concern]
}

// Injected returns the recorded injected-fault count.
func (a *Analyzer) Injected() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.injected
}

// Effectiveness returns the detection ratio for a concern: matches divided
// by injected faults. Zero injections yield zero, not a division error.
func (a *Analyzer) Effectiveness(concern string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.injected == 0 {
		return 0
	}
	return float64(a.counts[concern]) / float64(a.injected)
}
