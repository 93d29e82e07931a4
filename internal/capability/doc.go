// Package capability defines the contract between the chaos harness and the
// system under test.
//
// A Target is an opaque bag of named operations. The harness never assumes
// anything about the system behind it beyond "has an operation named X":
// operations are reachable by string lookup, and wrapping/restoring is done
// by swapping slot values, not by reflecting over the target's type.
//
// Optional recovery hooks (cycle breaking, timeout checks, state validation,
// cleanup) are modeled as nullable function fields rather than runtime
// attribute probing. A nil hook means the capability is absent, which is
// expected and never an error.
package capability
