package fault

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// faultsInjected counts faults applied by injectors, by fault type.
	faultsInjected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "havoc_faults_injected_total",
			Help: "Total number of faults injected, by fault type",
		},
		[]string{"fault_type"},
	)

	// rateLimited counts request-count quota breaches.
	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "havoc_rate_limited_total",
			Help: "Total simulated rate limit hits, by resource and window",
		},
		[]string{"resource", "window"},
	)

	// tokensExhausted counts token-budget quota breaches.
	tokensExhausted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "havoc_tokens_exhausted_total",
			Help: "Total simulated token budget breaches, by resource and window",
		},
		[]string{"resource", "window"},
	)

	// cyclesDetected counts conversational cycles flagged by the detector.
	cyclesDetected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "havoc_cycles_detected_total",
			Help: "Total conversational cycles detected",
		},
	)
)

func init() {
	prometheus.MustRegister(faultsInjected)
	prometheus.MustRegister(rateLimited)
	prometheus.MustRegister(tokensExhausted)
	prometheus.MustRegister(cyclesDetected)
}

// CountInjected records an injected fault for metrics export.
// Injectors in this package call it themselves; the harness calls it for
// wrappers that substitute results without going through an injector here.
func CountInjected(faultType string) {
	faultsInjected.WithLabelValues(faultType).Inc()
}
