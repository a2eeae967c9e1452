package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/runner"
	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
)

// ProgressObserver prints one line per finished test case while a run is
// in progress.
type ProgressObserver struct {
	runner.BaseObserver

	mu     sync.Mutex
	writer io.Writer
}

// NewProgressObserver writes progress lines to w.
func NewProgressObserver(w io.Writer) *ProgressObserver {
	return &ProgressObserver{writer: w}
}

func (p *ProgressObserver) OnStart(result *suite.ExecutionResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.writer, "%s %s\n", color.New(color.Bold).Sprint("Running"), result.SuiteName)
}

func (p *ProgressObserver) OnProgress(result *suite.ExecutionResult, current, total int) {
	if current == 0 || current > len(result.Results) {
		return
	}
	r := result.Results[current-1]

	p.mu.Lock()
	defer p.mu.Unlock()
	line := fmt.Sprintf("[%d/%d] %s %s", current, total, r.Status, r.TestCaseName)
	if r.Status != suite.StatusSkipped {
		line += fmt.Sprintf(" (%dms)", r.Duration.Milliseconds())
	}
	fmt.Fprintln(p.writer, statusColor(r.Status)(line))
}

func (p *ProgressObserver) OnError(err error, _ *suite.ExecutionResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.writer, "%s %v\n", color.New(color.FgRed).Sprint("aborted:"), err)
}
