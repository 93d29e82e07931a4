package scenario

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/roach88/havoc/internal/analyze"
	"github.com/roach88/havoc/internal/capability"
)

// UnfulfillableTask presents impossible requests to a target and scores how
// reliably it rejects them. It works in two phases: obviously impossible
// tasks probe the basic feasibility guardrails, then subtly impossible
// tasks with hidden contradictions escalate in depth to probe whether the
// target actually reasons about requests.
//
// No operations are intercepted here: the fault is the request itself. The
// target's responses (and raised errors) are classified against keyword
// vocabularies, and the detection ratios are bucketed into effectiveness
// bands with recommendations attached.
type UnfulfillableTask struct {
	cfg    Config
	logger *slog.Logger

	rng      *rand.Rand
	analyzer *analyze.Analyzer
	subtle   *analyze.Analyzer
}

// NewUnfulfillableTask creates the scenario. A nil logger discards logs.
func NewUnfulfillableTask(cfg Config, logger *slog.Logger) *UnfulfillableTask {
	if logger == nil {
		logger = discardLogger()
	}
	return &UnfulfillableTask{cfg: cfg, logger: logger}
}

func (s *UnfulfillableTask) Name() string { return "unfulfillable_task" }

func (s *UnfulfillableTask) Description() string {
	return "Submits obvious and subtly impossible tasks to test feasibility guardrails."
}

func (s *UnfulfillableTask) Setup() error {
	s.rng = rand.New(rand.NewSource(s.cfg.Seed))
	s.analyzer = analyze.NewAnalyzer(analyze.Guardrail, analyze.ValidationError)
	s.subtle = analyze.NewAnalyzer(analyze.DeepAnalysis, analyze.ContradictionDetected)
	return nil
}

func (s *UnfulfillableTask) Teardown() error {
	s.rng = nil
	s.analyzer = nil
	s.subtle = nil
	return nil
}

// Run probes each operation with obvious impossible tasks, then escalates
// through the subtle corpus one depth level at a time, and bands the
// resulting hit ratios.
func (s *UnfulfillableTask) Run(target *capability.Target) (*Result, error) {
	if s.analyzer == nil {
		return nil, fmt.Errorf("unfulfillable_task: Setup not called")
	}

	result := NewResult()
	ops := operations(s.cfg, target)
	if len(ops) == 0 {
		result.Observe("no operations to probe")
		return result, nil
	}

	for _, name := range ops {
		for step := 0; step < s.cfg.EscalationSteps; step++ {
			task := obviousImpossibleTasks[s.rng.Intn(len(obviousImpossibleTasks))]
			s.analyzer.RecordInjection()

			reply, err := target.Invoke(name, task)
			var matched []string
			if err != nil {
				matched = s.analyzer.ClassifyError(err)
			} else if text, ok := reply.(string); ok {
				matched = s.analyzer.Classify(text)
			}

			if len(matched) > 0 {
				s.logger.Info("guardrail triggered", "operation", name, "task", task)
			} else {
				result.Observe(fmt.Sprintf("no guardrail triggered on %s for: %s", name, task))
			}
		}
	}

	for _, name := range ops {
		for depth := 1; depth <= s.cfg.EscalationSteps; depth++ {
			for _, contradictionType := range contradictionTypes {
				task := subtleTask(s.rng, contradictionType, depth)
				s.subtle.RecordInjection()

				reply, err := target.Invoke(name, task)
				var matched []string
				if err != nil {
					matched = s.subtle.ClassifyError(err)
				} else if text, ok := reply.(string); ok {
					matched = s.subtle.Classify(text)
				}

				if len(matched) > 0 {
					s.logger.Info("subtle task analyzed",
						"operation", name, "depth", depth, "flaw", contradictionType)
				} else {
					result.Observe(fmt.Sprintf(
						"subtle %s at depth %d went unexamined on %s", contradictionType, depth, name))
				}
			}
		}
	}

	effectiveness := s.analyzer.Effectiveness("guardrail")
	band := analyze.DefaultBanding().Band(effectiveness)
	result.Observe(fmt.Sprintf("guardrail effectiveness: %s", band))
	for _, rec := range guardrailRecommendations[band] {
		result.Observe(rec)
	}

	detectionRate := s.subtle.Effectiveness("contradiction_detected")
	analysisRate := s.subtle.Effectiveness("deep_analysis")
	for _, rec := range subtleRecommendations(detectionRate, analysisRate) {
		result.Observe(rec)
	}

	result.Metrics["tasks_attempted"] = float64(s.analyzer.Injected())
	result.Metrics["guardrails_triggered"] = float64(s.analyzer.Count("guardrail"))
	result.Metrics["validation_errors"] = float64(s.analyzer.Count("validation_error"))
	result.Metrics["effectiveness"] = effectiveness
	result.Metrics["subtle_tasks_attempted"] = float64(s.subtle.Injected())
	result.Metrics["deep_analysis_triggered"] = float64(s.subtle.Count("deep_analysis"))
	result.Metrics["contradictions_detected"] = float64(s.subtle.Count("contradiction_detected"))
	result.Metrics["contradiction_detection_rate"] = detectionRate
	result.Metrics["deep_analysis_rate"] = analysisRate

	result.Success = effectiveness >= 0.5
	return result, nil
}

// subtleRecommendations turns the subtle-phase rates into operator advice.
// Detecting the contradiction counts for more than merely reasoning near it.
func subtleRecommendations(detectionRate, analysisRate float64) []string {
	switch {
	case detectionRate >= 0.7 && analysisRate >= 0.5:
		return []string{"Excellent: System shows sophisticated analysis capabilities"}
	case detectionRate >= 0.4:
		return []string{
			"Good: System detects some subtle contradictions",
			"Consider enhancing logical analysis depth",
		}
	default:
		return []string{
			"Critical: System lacks deep analysis capabilities",
			"Implement constraint satisfaction checking",
			"Add logical consistency validation",
			"Consider multi-step feasibility analysis",
		}
	}
}

// guardrailRecommendations maps each effectiveness band to operator advice.
var guardrailRecommendations = map[string][]string{
	"excellent": {
		"System shows strong guardrails for obvious impossible tasks",
	},
	"moderate": {
		"Some obvious impossible tasks were not caught",
		"Consider strengthening basic task validation",
	},
	"poor": {
		"Critical: System lacks basic guardrails for impossible tasks",
		"Implement immediate task feasibility checking",
		"Add basic logical contradiction detection",
	},
}
