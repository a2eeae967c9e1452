package runner

import "github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"

// Observer receives lifecycle callbacks from an Engine. Callbacks run on
// the executing goroutine, except OnComplete after Stop, which runs on the
// caller of Stop. Every result passed in is a copy owned by the observer.
type Observer interface {
	OnStart(result *suite.ExecutionResult)
	// OnProgress fires after each test case result is recorded, skipped
	// ones included.
	OnProgress(result *suite.ExecutionResult, current, total int)
	OnTestCaseStart(tc *suite.TestCase)
	// OnTestCaseComplete follows OnTestCaseStart once per case, except for
	// the case that is running when the run is stopped or its context is
	// cancelled: that case gets no completion callback and no result.
	OnTestCaseComplete(tc *suite.TestCase, result *suite.TestCaseResult)
	// OnComplete fires exactly once for every run that was accepted.
	OnComplete(result *suite.ExecutionResult)
	OnError(err error, result *suite.ExecutionResult)
}

// BaseObserver implements Observer with no-ops. Embed it to implement a
// subset of the callbacks.
type BaseObserver struct{}

func (BaseObserver) OnStart(*suite.ExecutionResult) {}
func (BaseObserver) OnProgress(*suite.ExecutionResult, int, int) {}
func (BaseObserver) OnTestCaseStart(*suite.TestCase) {}
func (BaseObserver) OnTestCaseComplete(*suite.TestCase, *suite.TestCaseResult) {}
func (BaseObserver) OnComplete(*suite.ExecutionResult) {}
func (BaseObserver) OnError(error, *suite.ExecutionResult) {}

// MultiObserver fans every callback out to its members in order.
type MultiObserver []Observer

// NewMultiObserver combines observers, dropping nil entries.
func NewMultiObserver(observers ...Observer) MultiObserver {
	m := make(MultiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m MultiObserver) OnStart(r *suite.ExecutionResult) {
	for _, o := range m {
		o.OnStart(r)
	}
}

func (m MultiObserver) OnProgress(r *suite.ExecutionResult, current, total int) {
	for _, o := range m {
		o.OnProgress(r, current, total)
	}
}

func (m MultiObserver) OnTestCaseStart(tc *suite.TestCase) {
	for _, o := range m {
		o.OnTestCaseStart(tc)
	}
}

func (m MultiObserver) OnTestCaseComplete(tc *suite.TestCase, r *suite.TestCaseResult) {
	for _, o := range m {
		o.OnTestCaseComplete(tc, r)
	}
}

func (m MultiObserver) OnComplete(r *suite.ExecutionResult) {
	for _, o := range m {
		o.OnComplete(r)
	}
}

func (m MultiObserver) OnError(err error, r *suite.ExecutionResult) {
	for _, o := range m {
		o.OnError(err, r)
	}
}
