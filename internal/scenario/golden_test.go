package scenario

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TestRenderReport_Golden pins the report layout. Regenerate with:
//
//	go test ./internal/scenario -run TestRenderReport_Golden -update
func TestRenderReport_Golden(t *testing.T) {
	result := &Result{
		Success: true,
		Observations: []string{
			"rate limited on call_api (minute window, retry after 59s)",
			"guardrail effectiveness: excellent",
		},
		Metrics: map[string]float64{
			"calls_made":    4,
			"rate_limited":  1,
			"effectiveness": 0.75,
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "report", []byte(RenderReport("resource_exhaustion", result)))
}

func TestRenderReport_EmptyResult(t *testing.T) {
	report := RenderReport("corrupted_state", NewResult())
	expected := "scenario: corrupted_state\n" +
		"success: false\n" +
		"observations:\n" +
		"  (none)\n" +
		"metrics:\n" +
		"  (none)\n"
	if report != expected {
		t.Fatalf("unexpected report:\n%s", report)
	}
}
