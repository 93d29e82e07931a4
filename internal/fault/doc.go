// Package fault implements the injector algorithms the harness binds to
// intercepted operations.
//
// Four algorithms carry the weight:
//
//   - RateLimiter: simulated quota exhaustion across three concurrent
//     sliding windows (minute/hour/burst) plus an independent token ledger.
//   - Corruptor: structural corruption of tree-shaped values under ten
//     named rules.
//   - CycleDetector: repeating-pattern detection over a bounded message
//     history.
//   - LatencyInjector: blocking delays shaped by six latency patterns with
//     interleaved secondary failure draws.
//
// Injectors are deliberately visible to the target: every fault they raise
// is meant to exercise the target's own error handling. The only errors the
// harness swallows are an injector's internal failures (InjectionError),
// which fall back to the original operation.
package fault
