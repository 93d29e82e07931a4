package scenario

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// RenderReport formats a scenario result as a stable text report. Metrics
// are emitted in sorted key order so the output is byte-deterministic for
// golden comparison.
func RenderReport(name string, result *Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "scenario: %s\n", name)
	fmt.Fprintf(&b, "success: %t\n", result.Success)

	b.WriteString("observations:\n")
	if len(result.Observations) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, obs := range result.Observations {
		fmt.Fprintf(&b, "  - %s\n", obs)
	}

	b.WriteString("metrics:\n")
	keys := make([]string, 0, len(result.Metrics))
	for key := range result.Metrics {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, key := range keys {
		fmt.Fprintf(&b, "  %s: %s\n", key, strconv.FormatFloat(result.Metrics[key], 'g', -1, 64))
	}

	return b.String()
}
