package cli

import (
	"fmt"
	"strings"

	"github.com/roach88/havoc/internal/capability"
)

// refusalCues are phrases the probe agent treats as signs of an unfulfillable
// request. They cover the telltale wording of logically impossible tasks.
var refusalCues = []string{
	"impossible",
	"contradict",
	"by zero",
	"entire internet",
	"back in time",
	"simultaneously",
	"infinite energy",
	"equal 5",
	"don't exist",
	"fictional characters",
	"more ram",
	"uphill",
	"to infinity",
	"square circle",
	"reverse entropy",
	"omniscient",
	"exist and not exist",
}

// NewProbeTarget builds the built-in demonstration target: a simulated agent
// with conversational, API and data-retrieval capabilities plus the full set
// of resilience hooks. It exists so scenarios can be exercised end to end
// without wiring a real agent.
func NewProbeTarget() *capability.Target {
	target := capability.NewTarget("probe-agent")

	turn := 0
	target.Register("respond", func(args ...any) (any, error) {
		turn++
		message := ""
		if len(args) > 0 {
			if s, ok := args[0].(string); ok {
				message = s
			}
		}
		if declines(message) {
			return "I cannot fulfill this request: the task is impossible as stated.", nil
		}
		return fmt.Sprintf("Step %d: continuing with the task based on your last message.", turn), nil
	})

	target.Register("call_api", func(args ...any) (any, error) {
		return map[string]any{
			"status": "ok",
			"items":  []any{"alpha", "beta", "gamma"},
		}, nil
	})

	target.Register("fetch_data", func(args ...any) (any, error) {
		return map[string]any{
			"id":      "record-1",
			"payload": "stored agent context",
			"version": 3,
		}, nil
	})

	target.SetHooks(capability.Hooks{
		BreakCycle:   func() bool { return true },
		CheckTimeout: func() bool { return false },
		ValidateState: func() error {
			return nil
		},
	})

	return target
}

func declines(message string) bool {
	lower := strings.ToLower(message)
	for _, cue := range refusalCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}
