package capability

import (
	"fmt"
	"sort"
	"sync"
)

// Operation is a single callable exposed by a target.
//
// Arguments are passed through untouched; the harness never inspects them
// beyond size estimation for token accounting. An Operation may return a
// value, an error, or both nil (a successful void call).
type Operation func(args ...any) (any, error)

// Hooks are the optional recovery/diagnostic capabilities a target may
// expose. The harness probes them opportunistically: a nil field means the
// capability is absent, which is recorded as an observation, never raised.
type Hooks struct {
	// BreakCycle is invoked when a conversational cycle is detected.
	// It reports whether the target managed to escape the loop.
	BreakCycle func() bool

	// CheckTimeout reports whether the target noticed an operation
	// exceeding its own deadline budget.
	CheckTimeout func() bool

	// ValidateState asks the target to self-check its persisted state.
	// A non-nil error means the target found (and therefore detected)
	// an inconsistency.
	ValidateState func() error

	// Cleanup releases any per-conversation resources.
	Cleanup func() error
}

// Target is the system under test as seen by the harness: an identity plus a
// set of named operation slots.
//
// The harness borrows a Target for the duration of a scenario and must leave
// it observably unchanged afterward. Swap is the only mutation primitive;
// restoration is re-swapping the original value back.
//
// All methods are safe for concurrent use.
type Target struct {
	id string

	mu    sync.RWMutex
	ops   map[string]Operation
	hooks Hooks
}

// NewTarget creates an empty target with the given identity.
func NewTarget(id string) *Target {
	return &Target{
		id:  id,
		ops: make(map[string]Operation),
	}
}

// ID returns the target's identity, used to key interception records.
func (t *Target) ID() string {
	return t.id
}

// Register installs an operation under the given name, replacing any
// previous slot value.
func (t *Target) Register(name string, op Operation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ops[name] = op
}

// Operation looks up an operation slot by name.
func (t *Target) Operation(name string) (Operation, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	op, ok := t.ops[name]
	return op, ok
}

// Swap replaces the slot value for name and returns the previous value.
// Returns false if no operation with that name exists; the slot set itself
// is fixed — swapping never creates new operations.
func (t *Target) Swap(name string, op Operation) (Operation, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.ops[name]
	if !ok {
		return nil, false
	}
	t.ops[name] = op
	return prev, true
}

// Invoke calls the named operation with pass-through argument forwarding.
func (t *Target) Invoke(name string, args ...any) (any, error) {
	op, ok := t.Operation(name)
	if !ok {
		return nil, fmt.Errorf("target %s has no operation %q", t.id, name)
	}
	return op(args...)
}

// OperationNames returns the registered operation names in sorted order.
func (t *Target) OperationNames() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.ops))
	for name := range t.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetHooks installs the optional capability hooks.
func (t *Target) SetHooks(h Hooks) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = h
}

// Hooks returns the optional capability hooks. Fields may be nil.
func (t *Target) Hooks() Hooks {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hooks
}
