package fault

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/roach88/havoc/internal/capability"
)

// LatencyPattern names a shape of simulated slowness.
type LatencyPattern string

// The six latency patterns. Each blocks the calling goroutine for the drawn
// duration, some staged into sub-delays with interleaved failure draws.
const (
	PatternNetworkDelay    LatencyPattern = "network_delay"
	PatternAPIOverload     LatencyPattern = "api_overload"
	PatternDBSlowdown      LatencyPattern = "database_slowdown"
	PatternProcessingDelay LatencyPattern = "processing_delay"
	PatternQueueBacklog    LatencyPattern = "queue_backlog"
	PatternBandwidthLimit  LatencyPattern = "bandwidth_limitation"
)

// AllLatencyPatterns lists every pattern, in a stable order.
var AllLatencyPatterns = []LatencyPattern{
	PatternNetworkDelay,
	PatternAPIOverload,
	PatternDBSlowdown,
	PatternProcessingDelay,
	PatternQueueBacklog,
	PatternBandwidthLimit,
}

// Secondary failures some patterns surface instead of mere slowness. These
// are injected faults, fully visible to the target.
var (
	ErrConnectionLost = errors.New("network packet loss: connection timeout")
	ErrServerOverload = errors.New("server temporarily unavailable (503)")
	ErrQueryTimeout   = errors.New("database query timeout: operation exceeded time limit")
)

// LatencyInjector simulates slow collaborators by blocking the caller before
// delegating to the original operation.
//
// The injector is synchronous by design: the delay happens in-line on the
// calling goroutine, exactly where a slow network or API would stall the
// target.
type LatencyInjector struct {
	minDelay time.Duration
	maxDelay time.Duration
	patterns []LatencyPattern

	// sleep is swappable so tests can run without wall-clock delays.
	sleep func(time.Duration)

	mu  sync.Mutex
	rng *rand.Rand
}

// NewLatencyInjector creates an injector drawing delays uniformly from
// [minDelay, maxDelay] and patterns uniformly from patterns (all patterns if
// empty).
func NewLatencyInjector(minDelay, maxDelay time.Duration, patterns []LatencyPattern, seed int64) *LatencyInjector {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	if len(patterns) == 0 {
		patterns = AllLatencyPatterns
	}
	return &LatencyInjector{
		minDelay: minDelay,
		maxDelay: maxDelay,
		patterns: patterns,
		sleep:    time.Sleep,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Name identifies this injector in fault events and observations.
func (l *LatencyInjector) Name() string { return "latency" }

// Inject draws a pattern and a delay, blocks accordingly, then delegates to
// the original operation. Some patterns abort with a secondary failure
// instead of completing the call.
func (l *LatencyInjector) Inject(op capability.Operation, args []any) (any, error) {
	pattern, delay := l.draw()
	CountInjected(string(pattern))

	if err := l.applyPattern(pattern, delay); err != nil {
		return nil, err
	}
	return op(args...)
}

// draw picks the pattern and total delay for one injection.
func (l *LatencyInjector) draw() (LatencyPattern, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pattern := l.patterns[l.rng.Intn(len(l.patterns))]
	delay := l.minDelay
	if span := l.maxDelay - l.minDelay; span > 0 {
		delay += time.Duration(l.rng.Int63n(int64(span) + 1))
	}
	return pattern, delay
}

// chance draws a Bernoulli with probability p.
func (l *LatencyInjector) chance(p float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64() < p
}

// intn draws from [0, n).
func (l *LatencyInjector) intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Intn(n)
}

// applyPattern blocks for delay according to the pattern's shape, returning
// a secondary failure when the pattern's draw says so.
func (l *LatencyInjector) applyPattern(pattern LatencyPattern, delay time.Duration) error {
	switch pattern {
	case PatternNetworkDelay:
		return l.networkDelay(delay)
	case PatternAPIOverload:
		return l.apiOverload(delay)
	case PatternDBSlowdown:
		return l.dbSlowdown(delay)
	case PatternProcessingDelay:
		l.processingDelay(delay)
		return nil
	case PatternQueueBacklog:
		l.queueBacklog(delay)
		return nil
	case PatternBandwidthLimit:
		l.bandwidthLimit(delay)
		return nil
	default:
		l.sleep(delay)
		return nil
	}
}

// networkDelay adds ±20% jitter and occasionally drops the connection.
func (l *LatencyInjector) networkDelay(delay time.Duration) error {
	jitter := time.Duration((l.randFloat()*0.4 - 0.2) * float64(delay))
	actual := delay + jitter
	if actual < 0 {
		actual = 0
	}
	l.sleep(actual)

	if l.chance(0.10) {
		return ErrConnectionLost
	}
	return nil
}

// apiOverload stages the delay into five chunks, each risking a 503.
func (l *LatencyInjector) apiOverload(delay time.Duration) error {
	const chunks = 5
	for i := 0; i < chunks; i++ {
		l.sleep(delay / chunks)
		if l.chance(0.05) {
			return ErrServerOverload
		}
	}
	return nil
}

// dbSlowdown models a slow query in three stages; very long delays risk a
// query timeout.
func (l *LatencyInjector) dbSlowdown(delay time.Duration) error {
	l.sleep(delay * 3 / 10)
	l.sleep(delay * 4 / 10)
	l.sleep(delay * 3 / 10)

	if delay > 8*time.Second && l.chance(0.15) {
		return ErrQueryTimeout
	}
	return nil
}

// processingDelay slices the delay into one-second-ish compute steps.
func (l *LatencyInjector) processingDelay(delay time.Duration) {
	steps := int(delay / time.Second)
	if steps < 1 {
		steps = 1
	}
	for i := 0; i < steps; i++ {
		l.sleep(delay / time.Duration(steps))
	}
}

// queueBacklog waits through a random queue position, occasionally jumping
// the queue.
func (l *LatencyInjector) queueBacklog(delay time.Duration) {
	position := 1 + l.intn(10)
	perPosition := delay / time.Duration(position)
	for p := position; p > 0; p-- {
		l.sleep(perPosition)
		if l.chance(0.10) {
			// Priority handling: skip the rest of the queue.
			return
		}
	}
}

// bandwidthLimit transfers in eight chunks with fluctuating throughput.
func (l *LatencyInjector) bandwidthLimit(delay time.Duration) {
	const chunks = 8
	for i := 0; i < chunks; i++ {
		l.sleep(delay / chunks)
		if l.chance(0.20) {
			l.sleep(delay / chunks / 2)
		}
	}
}

func (l *LatencyInjector) randFloat() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64()
}
