package output

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
)

// HTMLOutput represents the complete HTML output structure
type HTMLOutput struct {
	Version        string
	Summary        HTMLSummary
	Executions     []HTMLExecution
	Duration       float64
	Time           string
	PassedPercent  float64
	FailedPercent  float64
	SkippedPercent float64
}

// HTMLSummary represents the test summary for HTML output
type HTMLSummary struct {
	Total   int
	Passed  int
	Failed  int
	Errors  int
	Skipped int
}

// HTMLExecution groups the cases of one suite run
type HTMLExecution struct {
	ID          string
	Suite       string
	Status      string
	StatusClass string
	Context     string
	Error       string
	Duration    float64
	Tests       []HTMLTest
}

// HTMLTest represents a single test result for HTML output
type HTMLTest struct {
	Name        string
	Status      string
	StatusClass string
	Duration    float64
	Attempts    int
	Error       string
	Output      string
	Assertions  []HTMLAssertion
}

// HTMLAssertion represents an assertion result for HTML output
type HTMLAssertion struct {
	Passed  bool
	Message string
}

// HTMLFormatter formats execution results as a standalone HTML page
type HTMLFormatter struct {
	writer     io.Writer
	executions []HTMLExecution
	version    string
}

// HTMLOption is a functional option for HTMLFormatter
type HTMLOption func(*HTMLFormatter)

// NewHTMLFormatter creates a new HTML formatter
func NewHTMLFormatter(opts ...HTMLOption) *HTMLFormatter {
	f := &HTMLFormatter{
		writer:     os.Stdout,
		executions: make([]HTMLExecution, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// HTMLWithWriter sets the output writer
func HTMLWithWriter(w io.Writer) HTMLOption {
	return func(f *HTMLFormatter) {
		f.writer = w
	}
}

// FormatResult accumulates an execution result
func (f *HTMLFormatter) FormatResult(result *suite.ExecutionResult) {
	exec := HTMLExecution{
		ID:          result.ID,
		Suite:       result.SuiteName,
		Status:      string(result.Status),
		StatusClass: statusClass(result.Status),
		Context:     result.Environment.Context,
		Error:       result.Error,
		Duration:    float64(result.Duration.Milliseconds()),
	}

	for _, r := range result.Results {
		test := HTMLTest{
			Name:        r.TestCaseName,
			Status:      string(r.Status),
			StatusClass: statusClass(r.Status),
			Duration:    float64(r.Duration.Milliseconds()),
			Attempts:    r.Attempts,
			Output:      truncate(r.Output, 4000),
		}
		if r.Status != suite.StatusPassed {
			test.Error = failureDetail(r)
		}
		for _, a := range r.Assertions {
			test.Assertions = append(test.Assertions, HTMLAssertion{Passed: a.Passed, Message: a.Message})
		}
		exec.Tests = append(exec.Tests, test)
	}

	f.executions = append(f.executions, exec)
}

// FormatError handles errors (no-op for HTML, errors are in execution results)
func (f *HTMLFormatter) FormatError(err error) {
	// Errors are included in individual execution results
}

// FormatHeader captures the version for the HTML report
func (f *HTMLFormatter) FormatHeader(version string) {
	f.version = version
}

// Flush writes the accumulated HTML output
func (f *HTMLFormatter) Flush(totalDuration time.Duration) error {
	var summary HTMLSummary
	for _, e := range f.executions {
		for _, t := range e.Tests {
			summary.Total++
			switch suite.Status(t.Status) {
			case suite.StatusPassed:
				summary.Passed++
			case suite.StatusFailed:
				summary.Failed++
			case suite.StatusError:
				summary.Errors++
			case suite.StatusSkipped:
				summary.Skipped++
			}
		}
	}

	var passedPct, failedPct, skippedPct float64
	if summary.Total > 0 {
		total := float64(summary.Total)
		passedPct = float64(summary.Passed) / total * 100
		failedPct = float64(summary.Failed+summary.Errors) / total * 100
		skippedPct = float64(summary.Skipped) / total * 100
	}

	output := HTMLOutput{
		Version:        f.version,
		Summary:        summary,
		Executions:     f.executions,
		Duration:       float64(totalDuration.Milliseconds()),
		Time:           time.Now().Format("2006-01-02 15:04:05"),
		PassedPercent:  passedPct,
		FailedPercent:  failedPct,
		SkippedPercent: skippedPct,
	}

	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse HTML template: %w", err)
	}

	return tmpl.Execute(f.writer, output)
}

func statusClass(s suite.Status) string {
	switch s {
	case suite.StatusPassed:
		return "passed"
	case suite.StatusSkipped, suite.StatusCancelled, suite.StatusCompleted:
		return "skipped"
	}
	return "failed"
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>scriptsuite report</title>
<style>
body { font-family: -apple-system, sans-serif; margin: 2rem; color: #222; }
h1 { font-size: 1.4rem; }
.bar { display: flex; height: 10px; border-radius: 4px; overflow: hidden; background: #eee; margin: 1rem 0; }
.bar .passed { background: #2da44e; }
.bar .failed { background: #cf222e; }
.bar .skipped { background: #bf8700; }
.execution { border: 1px solid #ddd; border-radius: 6px; margin-bottom: 1.5rem; }
.execution > header { padding: .6rem 1rem; background: #f6f8fa; border-bottom: 1px solid #ddd; }
.test { padding: .5rem 1rem; border-bottom: 1px solid #eee; }
.test:last-child { border-bottom: none; }
.badge { font-size: .75rem; padding: 1px 6px; border-radius: 10px; color: #fff; }
.badge.passed { background: #2da44e; }
.badge.failed { background: #cf222e; }
.badge.skipped { background: #bf8700; }
.error { color: #cf222e; white-space: pre-wrap; }
pre { background: #f6f8fa; padding: .5rem; overflow-x: auto; }
ul.assertions { margin: .3rem 0; }
.muted { color: #666; font-size: .85rem; }
</style>
</head>
<body>
<h1>scriptsuite report{{if .Version}} <span class="muted">{{.Version}}</span>{{end}}</h1>
<p class="muted">Generated {{.Time}} in {{.Duration}}ms</p>
<p>{{.Summary.Passed}} passed, {{.Summary.Failed}} failed, {{.Summary.Errors}} errors, {{.Summary.Skipped}} skipped, {{.Summary.Total}} total</p>
<div class="bar">
<div class="passed" style="width: {{printf "%.1f" .PassedPercent}}%"></div>
<div class="failed" style="width: {{printf "%.1f" .FailedPercent}}%"></div>
<div class="skipped" style="width: {{printf "%.1f" .SkippedPercent}}%"></div>
</div>
{{range .Executions}}
<section class="execution">
<header>
<strong>{{.Suite}}</strong> <span class="badge {{.StatusClass}}">{{.Status}}</span>
<span class="muted">{{.Duration}}ms{{if .Context}} &middot; {{.Context}}{{end}} &middot; {{.ID}}</span>
{{if .Error}}<div class="error">{{.Error}}</div>{{end}}
</header>
{{range .Tests}}
<div class="test">
<span class="badge {{.StatusClass}}">{{.Status}}</span> {{.Name}}
<span class="muted">{{.Duration}}ms{{if gt .Attempts 1}}, {{.Attempts}} attempts{{end}}</span>
{{if .Error}}<div class="error">{{.Error}}</div>{{end}}
{{if .Assertions}}<ul class="assertions">{{range .Assertions}}<li>{{if .Passed}}&#10003;{{else}}&#10007;{{end}} {{.Message}}</li>{{end}}</ul>{{end}}
{{if .Output}}<details><summary>Output</summary><pre>{{.Output}}</pre></details>{{end}}
</div>
{{end}}
</section>
{{end}}
</body>
</html>
`
