package engine

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError reports a run request for an unregistered scenario. The
// available names are included so the message is actionable.
type NotFoundError struct {
	Name      string
	Available []string
}

func (e *NotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("scenario not found: %q (no scenarios registered)", e.Name)
	}
	return fmt.Sprintf("scenario not found: %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// IsNotFound returns true if the error is a scenario lookup failure.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// RunError wraps a failure from one phase of a scenario's lifecycle.
type RunError struct {
	Name  string
	Phase string // setup, run or teardown
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("scenario %s failed during %s: %v", e.Name, e.Phase, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
