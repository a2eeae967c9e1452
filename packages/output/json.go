package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary    JSONSummary     `json:"summary"`
	Executions []JSONExecution `json:"executions"`
	Duration   float64         `json:"duration"`
	Time       string          `json:"time"`
}

// JSONSummary totals every execution in the output
type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// JSONExecution represents one suite run
type JSONExecution struct {
	ID        string      `json:"id"`
	SuiteID   string      `json:"suiteId"`
	Suite     string      `json:"suite"`
	Status    string      `json:"status"`
	StartedAt string      `json:"startedAt"`
	Duration  float64     `json:"duration"`
	Context   string      `json:"context,omitempty"`
	Error     string      `json:"error,omitempty"`
	Summary   JSONSummary `json:"summary"`
	Tests     []JSONTest  `json:"tests"`
}

// JSONTest represents a single test case result
type JSONTest struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Status     string          `json:"status"`
	Duration   float64         `json:"duration"`
	Attempts   int             `json:"attempts"`
	Error      string          `json:"error,omitempty"`
	ErrorKind  string          `json:"errorKind,omitempty"`
	Output     string          `json:"output,omitempty"`
	Assertions []JSONAssertion `json:"assertions,omitempty"`
}

// JSONAssertion represents an assertion result
type JSONAssertion struct {
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// JSONFormatter formats execution results as JSON
type JSONFormatter struct {
	writer     io.Writer
	executions []JSONExecution
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:     os.Stdout,
		executions: make([]JSONExecution, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatResult(result *suite.ExecutionResult) {
	exec := JSONExecution{
		ID:        result.ID,
		SuiteID:   result.SuiteID,
		Suite:     result.SuiteName,
		Status:    string(result.Status),
		StartedAt: result.StartedAt.Format(time.RFC3339),
		Duration:  float64(result.Duration.Milliseconds()),
		Context:   result.Environment.Context,
		Error:     result.Error,
		Summary:   jsonSummary(result.Summary),
		Tests:     make([]JSONTest, 0, len(result.Results)),
	}

	for _, r := range result.Results {
		test := JSONTest{
			ID:       r.TestCaseID,
			Name:     r.TestCaseName,
			Status:   string(r.Status),
			Duration: float64(r.Duration.Milliseconds()),
			Attempts: r.Attempts,
			Output:   r.Output,
		}
		if r.Error != nil {
			test.Error = r.Error.Message
			test.ErrorKind = string(r.Error.Kind)
		}
		for _, a := range r.Assertions {
			test.Assertions = append(test.Assertions, JSONAssertion{Passed: a.Passed, Message: a.Message})
		}
		exec.Tests = append(exec.Tests, test)
	}

	f.executions = append(f.executions, exec)
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors are included in individual execution results
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	var total JSONSummary
	for _, e := range f.executions {
		total.Total += e.Summary.Total
		total.Passed += e.Summary.Passed
		total.Failed += e.Summary.Failed
		total.Skipped += e.Summary.Skipped
		total.Errors += e.Summary.Errors
	}

	output := JSONOutput{
		Summary:    total,
		Executions: f.executions,
		Duration:   float64(totalDuration.Milliseconds()),
		Time:       time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func jsonSummary(s suite.Summary) JSONSummary {
	return JSONSummary{Total: s.Total, Passed: s.Passed, Failed: s.Failed, Skipped: s.Skipped, Errors: s.Errors}
}
