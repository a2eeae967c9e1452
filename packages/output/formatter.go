package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
)

// Formatter renders execution results.
type Formatter interface {
	FormatResult(result *suite.ExecutionResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable is implemented by formatters that write once all results are in.
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// Formats lists the names accepted by New.
var Formats = []string{"console", "json", "junit", "tap", "html"}

// New returns the formatter registered under format, writing to w.
func New(format string, w io.Writer, verbose, noColor bool) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "console":
		return NewConsoleFormatter(WithWriter(w), WithVerbose(verbose), WithNoColor(noColor)), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case "junit":
		return NewJUnitFormatter(JUnitWithWriter(w)), nil
	case "tap":
		return NewTAPFormatter(TAPWithWriter(w)), nil
	case "html":
		return NewHTMLFormatter(HTMLWithWriter(w)), nil
	}
	return nil, fmt.Errorf("unknown output format %q (available: %s)", format, strings.Join(Formats, ", "))
}

// failureDetail describes why a case did not pass.
func failureDetail(r *suite.TestCaseResult) string {
	var lines []string
	for _, a := range r.Assertions {
		if !a.Passed {
			lines = append(lines, a.Message)
		}
	}
	if len(lines) > 0 {
		return strings.Join(lines, "\n")
	}
	if r.Error != nil {
		return r.Error.Message
	}
	return ""
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
