package output

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
)

// TAPFormatter writes TAP version 13. Points are numbered across every
// suite formatted before Flush; failed and errored points carry a YAML
// diagnostic block.
type TAPFormatter struct {
	writer io.Writer
	points []tapPoint
}

type tapPoint struct {
	name   string
	status suite.Status
	reason string
	diag   *tapDiagnostic
}

// tapDiagnostic is rendered as the indented YAML block after "not ok".
type tapDiagnostic struct {
	Message    string   `yaml:"message,omitempty"`
	Severity   string   `yaml:"severity"`
	Kind       string   `yaml:"kind,omitempty"`
	Attempts   int      `yaml:"attempts,omitempty"`
	DurationMS int64    `yaml:"duration_ms"`
	Failures   []string `yaml:"failures,omitempty"`
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) { f.writer = w }
}

func (f *TAPFormatter) FormatResult(result *suite.ExecutionResult) {
	for _, r := range result.Results {
		p := tapPoint{name: result.SuiteName + " > " + r.TestCaseName, status: r.Status}
		if r.Error != nil {
			p.reason = r.Error.Message
		}
		if r.Status == suite.StatusFailed || r.Status == suite.StatusError {
			p.diag = diagnose(r)
		}
		f.points = append(f.points, p)
	}
}

func diagnose(r *suite.TestCaseResult) *tapDiagnostic {
	d := &tapDiagnostic{
		Severity:   "fail",
		Attempts:   r.Attempts,
		DurationMS: r.Duration.Milliseconds(),
	}
	if r.Status == suite.StatusError {
		d.Severity = "error"
	}
	if r.Error != nil {
		d.Kind = string(r.Error.Kind)
	}
	for _, a := range r.Assertions {
		if !a.Passed {
			d.Failures = append(d.Failures, a.Message)
		}
	}
	if len(d.Failures) == 0 && r.Error != nil {
		d.Message = r.Error.Message
	}
	return d
}

func (f *TAPFormatter) FormatError(err error) {
	f.points = append(f.points, tapPoint{
		name:   "suite could not run",
		status: suite.StatusError,
		diag:   &tapDiagnostic{Message: err.Error(), Severity: "error"},
	})
}

func (f *TAPFormatter) FormatHeader(version string) {}

// Flush writes the plan, every point and a trailing count summary.
func (f *TAPFormatter) Flush(totalDuration time.Duration) error {
	var b bytes.Buffer
	b.WriteString("TAP version 13\n")
	fmt.Fprintf(&b, "1..%d\n", len(f.points))

	tally := map[suite.Status]int{}
	for i, p := range f.points {
		tally[p.status]++
		n := i + 1
		switch p.status {
		case suite.StatusPassed:
			fmt.Fprintf(&b, "ok %d - %s\n", n, p.name)
		case suite.StatusSkipped, suite.StatusCancelled:
			reason := p.reason
			if reason == "" {
				reason = string(p.status)
			}
			fmt.Fprintf(&b, "ok %d - %s # SKIP %s\n", n, p.name, reason)
		default:
			fmt.Fprintf(&b, "not ok %d - %s\n", n, p.name)
			if p.diag != nil {
				if err := writeDiagnostic(&b, p.diag); err != nil {
					return err
				}
			}
		}
	}

	fmt.Fprintf(&b, "# pass %d\n", tally[suite.StatusPassed])
	fmt.Fprintf(&b, "# fail %d\n", tally[suite.StatusFailed]+tally[suite.StatusError])
	fmt.Fprintf(&b, "# skip %d\n", tally[suite.StatusSkipped]+tally[suite.StatusCancelled])
	fmt.Fprintf(&b, "# time %dms\n", totalDuration.Milliseconds())

	_, err := f.writer.Write(b.Bytes())
	return err
}

func writeDiagnostic(b *bytes.Buffer, d *tapDiagnostic) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding TAP diagnostic: %w", err)
	}
	b.WriteString("  ---\n")
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("  ...\n")
	return nil
}
