package runner

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrConcurrentExecution is returned by Execute while another run is in
// flight on the same engine.
var ErrConcurrentExecution = errors.New("a suite is already executing on this engine")

// ScriptNotFoundError reports a script reference that the script source
// cannot resolve. It aborts the run.
type ScriptNotFoundError struct {
	ScriptID string
	// Owner is the referencing test case ID, or "setup"/"teardown"
	Owner string
}

func (e *ScriptNotFoundError) Error() string {
	return fmt.Sprintf("script %q referenced by %s not found", e.ScriptID, e.Owner)
}

// TimeoutError reports an attempt whose Script Runner did not answer in time.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("script runner did not respond within %s", e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// ScriptRunnerError wraps an invocation failure reported by the Script Runner.
type ScriptRunnerError struct {
	Err error
}

func (e *ScriptRunnerError) Error() string {
	return "script runner: " + e.Err.Error()
}

func (e *ScriptRunnerError) Unwrap() error {
	return e.Err
}

// SetupTeardownError reports a failed setup or teardown script.
type SetupTeardownError struct {
	Phase    string
	ScriptID string
	Err      error
}

func (e *SetupTeardownError) Error() string {
	return fmt.Sprintf("%s script %q failed: %v", e.Phase, e.ScriptID, e.Err)
}

func (e *SetupTeardownError) Unwrap() error {
	return e.Err
}
