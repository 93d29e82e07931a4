package fault

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Window spans for the three concurrently active request-count windows.
const (
	burstWindow     = 10 * time.Second
	minuteWindow    = time.Minute
	hourWindow      = time.Hour
	retentionWindow = time.Hour // timestamps older than this are pruned
	tokenRetention  = 24 * time.Hour
)

// Token estimation bounds. Roughly four characters per token, which is the
// common approximation for current models.
const (
	minEstimatedTokens = 10
	maxEstimatedTokens = 4000
	charsPerToken      = 4
)

// RateLimitConfig configures the simulated quotas.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	RequestsPerHour   int `yaml:"requests_per_hour"`
	BurstAllowance    int `yaml:"burst_allowance"`

	// Token ledger. TokenLimits gates the whole ledger; the request-count
	// windows are always active.
	TokenLimits     bool `yaml:"token_limits"`
	TokensPerMinute int  `yaml:"tokens_per_minute"`
	TokensPerDay    int  `yaml:"tokens_per_day"`
}

// DefaultRateLimitConfig returns the limits the original quotas were
// calibrated against: tight enough to trip under a probe burst, loose
// enough not to trip on a single call.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 10,
		RequestsPerHour:   100,
		BurstAllowance:    5,
		TokenLimits:       true,
		TokensPerMinute:   1000,
		TokensPerDay:      10000,
	}
}

// resourceWindow holds the timestamp deque for one resource type.
//
// Timestamps are appended in non-decreasing order and pruned lazily from the
// front. The per-window mutex is the single-writer-per-resource discipline:
// a check-and-record and a janitor prune on the same resource serialize
// here, while checks on different resource types never contend.
type resourceWindow struct {
	mu    sync.Mutex
	times []time.Time
}

// prune drops timestamps older than the retention horizon.
// Caller must hold w.mu. Never removes a timestamp still inside any active
// window: the retention horizon equals the widest window (one hour).
func (w *resourceWindow) prune(now time.Time) {
	cutoff := now.Add(-retentionWindow)
	i := 0
	for i < len(w.times) && !w.times[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.times = append(w.times[:0], w.times[i:]...)
	}
}

// countAfter returns how many timestamps fall strictly after t, and the
// oldest and newest of those. Caller must hold w.mu.
func (w *resourceWindow) countAfter(t time.Time) (count int, oldest, newest time.Time) {
	for _, ts := range w.times {
		if ts.After(t) {
			if count == 0 {
				oldest = ts
			}
			newest = ts
			count++
		}
	}
	return count, oldest, newest
}

// RateLimiter decides, per resource type, whether a simulated quota is
// exhausted. It tracks request timestamps across minute/hour/burst windows
// and an independent token ledger bucketed by minute.
//
// The zero value is not usable; construct with NewRateLimiter.
type RateLimiter struct {
	cfg RateLimitConfig
	now func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	mu        sync.Mutex // guards the resources map, not the windows
	resources map[string]*resourceWindow

	tokenMu sync.Mutex
	tokens  map[int64]int // minute bucket (unix/60) -> tokens charged
}

// NewRateLimiter creates a limiter with the given config, time source and
// random seed. A nil now func defaults to time.Now.
func NewRateLimiter(cfg RateLimitConfig, now func() time.Time, seed int64) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		cfg:       cfg,
		now:       now,
		rng:       rand.New(rand.NewSource(seed)),
		resources: make(map[string]*resourceWindow),
		tokens:    make(map[int64]int),
	}
}

// window returns (creating if needed) the deque for a resource type.
func (l *RateLimiter) window(resource string) *resourceWindow {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.resources[resource]
	if !ok {
		w = &resourceWindow{}
		l.resources[resource] = w
	}
	return w
}

func (l *RateLimiter) jitter(lo, hi float64) time.Duration {
	l.rngMu.Lock()
	defer l.rngMu.Unlock()
	return time.Duration((lo + l.rng.Float64()*(hi-lo)) * float64(time.Second))
}

// Check decides whether a call against the given resource type is allowed
// right now. estimatedTokens is the token cost the call would incur.
//
// Returns nil and records the request if allowed. Returns *RateLimitError
// if a request-count window is exhausted, *TokenBudgetError if the token
// ledger is. Window precedence: minute, hour, burst, then tokens.
func (l *RateLimiter) Check(resource string, estimatedTokens int) error {
	now := l.now()
	w := l.window(resource)

	w.mu.Lock()
	w.prune(now)

	if minuteCount, oldest, _ := w.countAfter(now.Add(-minuteWindow)); minuteCount >= l.cfg.RequestsPerMinute {
		retry := minuteWindow - now.Sub(oldest) + l.jitter(0, 5)
		w.mu.Unlock()
		rateLimited.WithLabelValues(resource, "minute").Inc()
		return &RateLimitError{Resource: resource, Window: "minute", RetryAfter: retry}
	}

	if hourCount, oldest, _ := w.countAfter(now.Add(-hourWindow)); hourCount >= l.cfg.RequestsPerHour {
		retry := hourWindow - now.Sub(oldest) + l.jitter(0, 30)
		w.mu.Unlock()
		rateLimited.WithLabelValues(resource, "hour").Inc()
		return &RateLimitError{Resource: resource, Window: "hour", RetryAfter: retry}
	}

	if burstCount, _, newest := w.countAfter(now.Add(-burstWindow)); burstCount >= l.cfg.BurstAllowance {
		retry := burstWindow - now.Sub(newest) + l.jitter(1, 3)
		w.mu.Unlock()
		rateLimited.WithLabelValues(resource, "burst").Inc()
		return &RateLimitError{Resource: resource, Window: "burst", RetryAfter: retry}
	}

	if err := l.checkTokens(now, resource, estimatedTokens); err != nil {
		w.mu.Unlock()
		return err
	}

	// Allowed: record the request while still holding the window lock so the
	// timestamp sequence stays non-decreasing under concurrent checks.
	w.times = append(w.times, now)
	w.mu.Unlock()

	l.chargeTokens(now, estimatedTokens)
	return nil
}

// checkTokens validates the call against the minute and day token quotas.
func (l *RateLimiter) checkTokens(now time.Time, resource string, estimatedTokens int) error {
	if !l.cfg.TokenLimits || estimatedTokens <= 0 {
		return nil
	}

	l.tokenMu.Lock()
	defer l.tokenMu.Unlock()

	minuteKey := now.Unix() / 60
	if l.tokens[minuteKey]+estimatedTokens > l.cfg.TokensPerMinute {
		intoMinute := time.Duration(now.Unix()%60) * time.Second
		retry := minuteWindow - intoMinute + l.jitter(1, 10)
		tokensExhausted.WithLabelValues(resource, "minute").Inc()
		return &TokenBudgetError{Resource: resource, Window: "minute", EstimatedTokens: estimatedTokens, RetryAfter: retry}
	}

	dayKey := minuteKey / 1440
	var dayUsage int
	for k, used := range l.tokens {
		if k/1440 == dayKey {
			dayUsage += used
		}
	}
	if dayUsage+estimatedTokens > l.cfg.TokensPerDay {
		intoDay := time.Duration(now.Unix()%86400) * time.Second
		retry := tokenRetention - intoDay + l.jitter(60, 3600)
		tokensExhausted.WithLabelValues(resource, "day").Inc()
		return &TokenBudgetError{Resource: resource, Window: "day", EstimatedTokens: estimatedTokens, RetryAfter: retry}
	}

	return nil
}

// chargeTokens records token usage in the current minute bucket.
func (l *RateLimiter) chargeTokens(now time.Time, tokens int) {
	if !l.cfg.TokenLimits || tokens <= 0 {
		return
	}
	l.tokenMu.Lock()
	defer l.tokenMu.Unlock()
	l.tokens[now.Unix()/60] += tokens
}

// ObserveActualTokens corrects the ledger when a response carried real usage
// figures that differ from the pre-call estimate.
func (l *RateLimiter) ObserveActualTokens(estimated, actual int) {
	if !l.cfg.TokenLimits || actual == estimated {
		return
	}
	l.tokenMu.Lock()
	defer l.tokenMu.Unlock()
	key := l.now().Unix() / 60
	l.tokens[key] += actual - estimated
	if l.tokens[key] < 0 {
		l.tokens[key] = 0
	}
}

// EstimateTokens derives a rough token cost from the call arguments: total
// character length over four, clamped to [10, 4000], with a ±randomness
// factor so estimates do not line up suspiciously.
func (l *RateLimiter) EstimateTokens(args []any) int {
	var chars int
	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			chars += len(v)
		case nil:
			// free
		default:
			chars += len(fmt.Sprint(v))
		}
	}

	estimated := chars / charsPerToken
	if estimated < minEstimatedTokens {
		estimated = minEstimatedTokens
	}

	l.rngMu.Lock()
	factor := 0.8 + l.rng.Float64()*0.6
	l.rngMu.Unlock()

	estimated = int(float64(estimated) * factor)
	if estimated > maxEstimatedTokens {
		estimated = maxEstimatedTokens
	}
	return estimated
}

// RequestCount returns how many requests are currently tracked for a
// resource type. Used for diagnostics and tests.
func (l *RateLimiter) RequestCount(resource string) int {
	w := l.window(resource)
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.times)
}

// Janitor evicts entries older than the retention horizon from all tracked
// resource types and token buckets. Blocks until ctx is cancelled; run it on
// its own goroutine.
//
// Each sweep takes the per-resource window lock, so a prune never interleaves
// with a check-and-record on the same resource type.
func (l *RateLimiter) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep performs one janitor pass.
func (l *RateLimiter) sweep() {
	now := l.now()

	l.mu.Lock()
	windows := make([]*resourceWindow, 0, len(l.resources))
	for _, w := range l.resources {
		windows = append(windows, w)
	}
	l.mu.Unlock()

	for _, w := range windows {
		w.mu.Lock()
		w.prune(now)
		w.mu.Unlock()
	}

	l.tokenMu.Lock()
	cutoff := now.Add(-tokenRetention).Unix() / 60
	for k := range l.tokens {
		if k < cutoff {
			delete(l.tokens, k)
		}
	}
	l.tokenMu.Unlock()
}
