package fault

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitError is returned when a resource type exceeds its request-count
// quota in one of the active windows.
//
// RetryAfter carries the simulated server hint: time until the oldest
// request in the breached window expires, plus jitter. Targets under test
// are expected to read it and back off.
type RateLimitError struct {
	Resource   string        // resource type that was limited
	Window     string        // "minute", "hour" or "burst"
	RetryAfter time.Duration // suggested wait before retrying
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (%s window): retry after %.1fs",
		e.Resource, e.Window, e.RetryAfter.Seconds())
}

// TokenBudgetError is returned when estimated token usage would exceed the
// per-minute or per-day token quota. It is a distinct kind from
// RateLimitError so callers can tell request-count breaches from budget
// breaches.
type TokenBudgetError struct {
	Resource        string        // resource type being charged
	Window          string        // "minute" or "day"
	EstimatedTokens int           // tokens this call would have consumed
	RetryAfter      time.Duration // suggested wait before retrying
}

// Error implements the error interface.
func (e *TokenBudgetError) Error() string {
	return fmt.Sprintf("token budget exhausted for %s (%s window): estimated %d tokens, retry after %.1fs",
		e.Resource, e.Window, e.EstimatedTokens, e.RetryAfter.Seconds())
}

// InjectionError reports that an injector's own logic failed.
//
// This is the one error kind the harness swallows: the wrapper logs it as an
// observation and falls back to calling the original operation unmodified,
// so a buggy injector never sinks the scenario.
type InjectionError struct {
	Injector string // injector name
	Op       string // operation being wrapped
	Err      error  // underlying failure
}

// Error implements the error interface.
func (e *InjectionError) Error() string {
	return fmt.Sprintf("injector %s failed on %s: %v", e.Injector, e.Op, e.Err)
}

// Unwrap returns the underlying failure.
func (e *InjectionError) Unwrap() error {
	return e.Err
}

// IsRateLimit reports whether err is (or wraps) a RateLimitError.
func IsRateLimit(err error) bool {
	var re *RateLimitError
	return errors.As(err, &re)
}

// IsTokenBudget reports whether err is (or wraps) a TokenBudgetError.
func IsTokenBudget(err error) bool {
	var te *TokenBudgetError
	return errors.As(err, &te)
}

// IsInjection reports whether err is (or wraps) an InjectionError.
func IsInjection(err error) bool {
	var ie *InjectionError
	return errors.As(err, &ie)
}
