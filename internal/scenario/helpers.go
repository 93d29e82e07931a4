package scenario

import (
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/havoc/internal/capability"
)

// discardLogger is the default when a scenario is built without one.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// operations resolves which target operations a scenario probes: the
// configured list, or every registered operation when none is configured.
func operations(cfg Config, target *capability.Target) []string {
	if len(cfg.Operations) > 0 {
		return cfg.Operations
	}
	return target.OperationNames()
}

// classifyResource buckets an operation name into a quota resource type.
func classifyResource(operation string) string {
	lower := strings.ToLower(operation)
	switch {
	case strings.Contains(lower, "llm"), strings.Contains(lower, "generate"), strings.Contains(lower, "respond"):
		return "llm_requests"
	case strings.Contains(lower, "tool"), strings.Contains(lower, "call"):
		return "tool_calls"
	case strings.Contains(lower, "data"), strings.Contains(lower, "fetch"), strings.Contains(lower, "retriev"):
		return "data_retrieval"
	default:
		return "api_calls"
	}
}
