package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
)

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatResult(result *suite.ExecutionResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n\n", bold("Suite: "+result.SuiteName))

	for _, r := range result.Results {
		switch r.Status {
		case suite.StatusSkipped:
			fmt.Fprintf(f.writer, "  %s %s", yellow("-"), r.TestCaseName)
			if r.Error != nil {
				fmt.Fprintf(f.writer, " (%s)", r.Error.Message)
			}
			fmt.Fprintf(f.writer, "\n")
			continue

		case suite.StatusError:
			fmt.Fprintf(f.writer, "  %s %s %s\n", red("x"), r.TestCaseName, red(fmt.Sprintf("(%s)", failureDetail(r))))
			if r.Attempts > 1 {
				fmt.Fprintf(f.writer, "    after %d attempts\n", r.Attempts)
			}
			continue
		}

		symbol := green("✓")
		if r.Status != suite.StatusPassed {
			symbol = red("✗")
		}
		fmt.Fprintf(f.writer, "  %s %s %s\n", symbol, r.TestCaseName, cyan(fmt.Sprintf("(%dms)", r.Duration.Milliseconds())))

		if r.Status == suite.StatusFailed {
			failedAssertions := 0
			for _, a := range r.Assertions {
				if !a.Passed {
					failedAssertions++
					fmt.Fprintf(f.writer, "    %s %s\n", red("→"), a.Message)
				}
			}
			if failedAssertions == 0 && r.Error != nil {
				fmt.Fprintf(f.writer, "    %s %s\n", red("→"), r.Error.Message)
			}
		}

		if f.verbose {
			for _, a := range r.Assertions {
				if a.Passed {
					fmt.Fprintf(f.writer, "    %s %s\n", green("·"), a.Message)
				}
			}
			if out := strings.TrimSpace(r.Output); out != "" {
				fmt.Fprintf(f.writer, "    Output:\n")
				for _, line := range strings.Split(truncate(out, 2000), "\n") {
					fmt.Fprintf(f.writer, "      %s\n", line)
				}
			}
		}
	}

	if result.Error != "" {
		fmt.Fprintf(f.writer, "\n%s %s\n", red("Aborted:"), result.Error)
	}

	s := result.Summary
	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Tests: ")
	if s.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", s.Passed)))
	}
	if s.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", s.Failed)))
	}
	if s.Errors > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d errors", s.Errors)))
	}
	if s.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", s.Skipped)))
	}
	fmt.Fprintf(f.writer, "%d total\n", s.Total)
	fmt.Fprintf(f.writer, "Status: %s\n", statusColor(result.Status)(string(result.Status)))
	fmt.Fprintf(f.writer, "Time:   %dms\n", result.Duration.Milliseconds())
	if f.verbose && result.Environment.Context != "" {
		fmt.Fprintf(f.writer, "Runner: %s\n", result.Environment.Context)
	}
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("scriptsuite"), version)
}

func statusColor(status suite.Status) func(a ...any) string {
	switch status {
	case suite.StatusPassed:
		return color.New(color.FgGreen).SprintFunc()
	case suite.StatusFailed, suite.StatusError:
		return color.New(color.FgRed).SprintFunc()
	case suite.StatusCancelled:
		return color.New(color.FgYellow).SprintFunc()
	}
	return fmt.Sprint
}
