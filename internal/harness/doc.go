// Package harness wraps target operations with fault-injecting interceptors
// and guarantees their restoration.
//
// The harness borrows a target for a scenario's duration: it swaps selected
// operation slots for wrappers that consult an Injector on each call, and it
// restores every swapped slot afterward. Interception is idempotent per
// operation, restoration is complete and unconditional, and a missing
// operation is an observation, not an error — absence of a hook is expected.
package harness
