// Package notify sends execution summaries to chat webhooks.
package notify

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
)

const defaultWebhookTimeout = 10 * time.Second

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every run
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when a run does not pass
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when a run passes
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications on failure and on the first pass after one
	NotifyRecovery NotifyOn = "recovery"
)

// ParseNotifyOn maps a config value to a policy, defaulting to NotifyFailure.
func ParseNotifyOn(s string) NotifyOn {
	switch NotifyOn(s) {
	case NotifyAlways, NotifySuccess, NotifyRecovery:
		return NotifyOn(s)
	}
	return NotifyFailure
}

// RunSummary represents the summary of an execution for notifications
type RunSummary struct {
	Suite         string        `json:"suite"`
	Status        suite.Status  `json:"status"`
	TotalTests    int           `json:"total_tests"`
	PassedTests   int           `json:"passed_tests"`
	FailedTests   int           `json:"failed_tests"`
	ErrorTests    int           `json:"error_tests"`
	SkippedTests  int           `json:"skipped_tests"`
	Duration      time.Duration `json:"duration"`
	Environment   string        `json:"environment,omitempty"`
	Error         string        `json:"error,omitempty"`
	FailedResults []FailedTest  `json:"failed_results,omitempty"`
	IsRecovery    bool          `json:"is_recovery,omitempty"`
}

// Failed reports whether the run ended in anything other than a pass.
func (s *RunSummary) Failed() bool {
	return s.FailedTests > 0 || s.ErrorTests > 0 || s.Status == suite.StatusError || s.Status == suite.StatusFailed
}

// FailedTest represents a failed test for notifications
type FailedTest struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// SummaryFromResult builds a notification summary for an execution.
func SummaryFromResult(result *suite.ExecutionResult, environment string) *RunSummary {
	s := &RunSummary{
		Suite:        result.SuiteName,
		Status:       result.Status,
		TotalTests:   result.Summary.Total,
		PassedTests:  result.Summary.Passed,
		FailedTests:  result.Summary.Failed,
		ErrorTests:   result.Summary.Errors,
		SkippedTests: result.Summary.Skipped,
		Duration:     result.Duration,
		Environment:  environment,
		Error:        result.Error,
	}
	for _, r := range result.Results {
		if r.Status != suite.StatusFailed && r.Status != suite.StatusError {
			continue
		}
		ft := FailedTest{Name: r.TestCaseName}
		for _, a := range r.Assertions {
			if !a.Passed {
				ft.Errors = append(ft.Errors, a.Message)
			}
		}
		if r.Error != nil {
			ft.Kind = string(r.Error.Kind)
			if len(ft.Errors) == 0 {
				ft.Errors = append(ft.Errors, r.Error.Message)
			}
		}
		s.FailedResults = append(s.FailedResults, ft)
	}
	return s
}

// Notifier is the interface for notification services
type Notifier interface {
	// Notify sends a notification about an execution
	Notify(ctx context.Context, summary *RunSummary) error

	// Name returns the name of the notifier
	Name() string
}

// Manager manages multiple notifiers
type Manager struct {
	mu        sync.Mutex
	notifiers []Notifier
	notifyOn  NotifyOn
	lastState bool // true if last run was successful
}

// NewManager creates a new notification manager
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
		lastState: true, // Assume success initially
	}
}

// AddNotifier adds a notifier to the manager
func (m *Manager) AddNotifier(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifiers = append(m.notifiers, n)
}

// Len returns the number of registered notifiers.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notifiers)
}

// Notify sends notifications based on the configured policy. Notifiers
// run concurrently; the first error is returned.
func (m *Manager) Notify(ctx context.Context, summary *RunSummary) error {
	m.mu.Lock()
	shouldNotify := false
	currentSuccess := !summary.Failed()

	switch m.notifyOn {
	case NotifyAlways:
		shouldNotify = true
	case NotifyFailure:
		shouldNotify = !currentSuccess
	case NotifySuccess:
		shouldNotify = currentSuccess
	case NotifyRecovery:
		if !m.lastState && currentSuccess {
			shouldNotify = true
			summary.IsRecovery = true
		}
		if !currentSuccess {
			shouldNotify = true
		}
	}

	m.lastState = currentSuccess
	notifiers := append([]Notifier(nil), m.notifiers...)
	m.mu.Unlock()

	if !shouldNotify {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, n := range notifiers {
		g.Go(func() error {
			return n.Notify(ctx, summary)
		})
	}
	return g.Wait()
}

func headline(summary *RunSummary) (title string, ok bool) {
	switch {
	case summary.Failed():
		n := summary.FailedTests + summary.ErrorTests
		if n == 0 {
			return "Execution aborted", false
		}
		return strconv.Itoa(n) + " test(s) failed", false
	case summary.IsRecovery:
		return "Tests recovered!", true
	}
	return "All tests passed!", true
}
