package suite

import (
	"time"
)

// Status is the state of an execution or of a single test case result.
type Status string

const (
	StatusRunning   Status = "running"
	StatusPassed    Status = "passed"
	StatusFailed    Status = "failed"
	StatusError     Status = "error"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Terminal reports whether an execution in this status has finished.
func (s Status) Terminal() bool {
	return s != StatusRunning && s != ""
}

// ErrorKind classifies a test case error.
type ErrorKind string

const (
	ErrorKindTimeout      ErrorKind = "timeout"
	ErrorKindScriptRunner ErrorKind = "script_runner"
	ErrorKindAssertion    ErrorKind = "assertion"
	ErrorKindScript       ErrorKind = "script_failure"
	ErrorKindDependency   ErrorKind = "dependency"
	ErrorKindStopped      ErrorKind = "stopped"
	ErrorKindSetup        ErrorKind = "setup"
)

// CaseError describes why a test case did not pass.
type CaseError struct {
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind"`
}

// AssertionResult is one assertion outcome reported by an executed script.
type AssertionResult struct {
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// TestCaseResult is the terminal outcome of one test case.
type TestCaseResult struct {
	TestCaseID   string            `json:"testCaseId"`
	TestCaseName string            `json:"testCaseName"`
	Status       Status            `json:"status"`
	Duration     time.Duration     `json:"duration"`
	Output       string            `json:"output,omitempty"`
	Assertions   []AssertionResult `json:"assertions,omitempty"`
	Error        *CaseError        `json:"error,omitempty"`
	Attempts     int               `json:"attempts"`
	StartedAt    time.Time         `json:"startedAt"`
	EndedAt      time.Time         `json:"endedAt"`
}

// FailedAssertions returns the number of assertions that did not pass.
func (r *TestCaseResult) FailedAssertions() int {
	n := 0
	for _, a := range r.Assertions {
		if !a.Passed {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the result.
func (r *TestCaseResult) Clone() *TestCaseResult {
	if r == nil {
		return nil
	}
	c := *r
	if r.Assertions != nil {
		c.Assertions = append([]AssertionResult(nil), r.Assertions...)
	}
	if r.Error != nil {
		e := *r.Error
		c.Error = &e
	}
	return &c
}

// Summary counts test case results by status.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// Add increments the bucket matching status.
func (s *Summary) Add(status Status) {
	switch status {
	case StatusPassed:
		s.Passed++
	case StatusFailed:
		s.Failed++
	case StatusSkipped:
		s.Skipped++
	case StatusError:
		s.Errors++
	}
}

// Summarize derives a summary by scanning the results.
func Summarize(results []*TestCaseResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		s.Add(r.Status)
	}
	return s
}

// StatusFor computes the terminal status implied by a summary:
// errors beat failures, failures beat passes, and a run with nothing
// passed, failed or errored is completed.
func StatusFor(s Summary) Status {
	switch {
	case s.Errors > 0:
		return StatusError
	case s.Failed > 0:
		return StatusFailed
	case s.Passed > 0:
		return StatusPassed
	default:
		return StatusCompleted
	}
}

// Environment describes where an execution ran.
type Environment struct {
	Context   string    `json:"context"`
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionResult is the aggregated record of one suite run.
type ExecutionResult struct {
	ID          string            `json:"id"`
	SuiteID     string            `json:"suiteId"`
	SuiteName   string            `json:"suiteName"`
	StartedAt   time.Time         `json:"startedAt"`
	Duration    time.Duration     `json:"duration"`
	Status      Status            `json:"status"`
	Summary     Summary           `json:"summary"`
	Results     []*TestCaseResult `json:"results"`
	Environment Environment       `json:"environment"`
	Error       string            `json:"error,omitempty"`
}

// Result returns the result recorded for a test case.
func (r *ExecutionResult) Result(testCaseID string) (*TestCaseResult, bool) {
	for _, res := range r.Results {
		if res.TestCaseID == testCaseID {
			return res, true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the execution result.
func (r *ExecutionResult) Clone() *ExecutionResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Results = make([]*TestCaseResult, len(r.Results))
	for i, res := range r.Results {
		c.Results[i] = res.Clone()
	}
	return &c
}
