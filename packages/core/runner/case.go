package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/scriptsuite/packages/assertions"
	"github.com/abdul-hamid-achik/scriptsuite/packages/core/env"
	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
	"github.com/abdul-hamid-achik/scriptsuite/packages/scriptrunner"
)

// DefaultRetryDelay is the pause between two attempts of the same case.
const DefaultRetryDelay = time.Second

type settings struct {
	observer   Observer
	retryDelay time.Duration
	logger     *slog.Logger
}

func defaultSettings() settings {
	return settings{
		observer:   BaseObserver{},
		retryDelay: DefaultRetryDelay,
		logger:     slog.New(slog.DiscardHandler),
	}
}

// Option configures an Engine or a CaseRunner.
type Option func(*settings)

// WithObserver registers an observer. Repeated calls add observers.
func WithObserver(o Observer) Option {
	return func(s *settings) {
		if o == nil {
			return
		}
		if _, ok := s.observer.(BaseObserver); ok {
			s.observer = o
			return
		}
		s.observer = NewMultiObserver(s.observer, o)
	}
}

// WithRetryDelay sets the pause between attempts. Negative values are ignored.
func WithRetryDelay(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.retryDelay = d
		}
	}
}

// WithLogger sets the logger used for engine diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// CaseRunner runs one test case against a Script Runner.
type CaseRunner struct {
	runner scriptrunner.Runner
	settings
}

// NewCaseRunner creates a case runner for r.
func NewCaseRunner(r scriptrunner.Runner, opts ...Option) *CaseRunner {
	c := &CaseRunner{runner: r, settings: defaultSettings()}
	for _, opt := range opts {
		opt(&c.settings)
	}
	return c
}

// Run executes tc with the given script. Invocation errors, timeouts
// included, are retried up to retries more times. The first attempt that
// returns is final.
//
// When ctx is cancelled no further attempt starts, the wait for an
// in-flight invocation is abandoned (it is left to finish on its own), and
// the returned result carries a stopped error. OnTestCaseComplete is not
// fired in that case.
func (c *CaseRunner) Run(ctx context.Context, tc *suite.TestCase, script *suite.Script, vars map[string]string, timeout time.Duration, retries int) *suite.TestCaseResult {
	result := &suite.TestCaseResult{
		TestCaseID:   tc.ID,
		TestCaseName: tc.DisplayName(),
		StartedAt:    time.Now(),
	}
	log := c.logger.With("test_case", tc.ID)
	code := c.substitute(script.Code, vars, log)

	c.observer.OnTestCaseStart(tc)

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			log.Debug("retrying test case", "attempt", attempt+1, "error", lastErr)
			if !sleep(ctx, c.retryDelay) {
				break
			}
		}

		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		result.Attempts++
		out, err := c.invoke(ctx, code, timeout)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		lastErr = nil
		classify(result, out)
		break
	}

	result.EndedAt = time.Now()
	result.Duration = result.EndedAt.Sub(result.StartedAt)

	if lastErr != nil {
		if ctx.Err() != nil {
			result.Status = suite.StatusError
			result.Error = &suite.CaseError{Message: "execution stopped", Kind: suite.ErrorKindStopped}
			return result
		}
		result.Status = suite.StatusError
		result.Error = &suite.CaseError{Message: lastErr.Error(), Kind: errorKind(lastErr)}
	}

	c.observer.OnTestCaseComplete(tc, result.Clone())
	return result
}

type outcome struct {
	result *scriptrunner.Result
	err    error
}

// invoke runs one attempt. The Script Runner races a deadline of timeout;
// a response arriving after the deadline is dropped.
func (c *CaseRunner) invoke(ctx context.Context, code string, timeout time.Duration) (*scriptrunner.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)

	done := make(chan outcome, 1)
	go func() {
		res, err := c.runner.Invoke(attemptCtx, code)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		cancel()
		if o.err != nil {
			if errors.Is(o.err, context.DeadlineExceeded) {
				return nil, &TimeoutError{Timeout: timeout}
			}
			return nil, &ScriptRunnerError{Err: o.err}
		}
		if o.result == nil {
			return nil, &ScriptRunnerError{Err: errors.New("runner returned no result")}
		}
		return o.result, nil

	case <-attemptCtx.Done():
		cancel()
		c.logger.Debug("discarding late script runner response", "timeout", timeout)
		return nil, &TimeoutError{Timeout: timeout}

	case <-ctx.Done():
		// leave the invocation running until its own deadline
		go func() {
			<-done
			cancel()
		}()
		return nil, ctx.Err()
	}
}

func (c *CaseRunner) substitute(code string, vars map[string]string, log *slog.Logger) string {
	r := env.NewResolver()
	r.SetVariables(vars)
	r.SetWarnFunc(func(format string, args ...any) {
		log.Warn(fmt.Sprintf(format, args...))
	})
	return r.Resolve(code)
}

func classify(result *suite.TestCaseResult, out *scriptrunner.Result) {
	result.Output = out.Output
	result.Assertions = assertions.Parse(out.Output)
	failed := assertions.Failed(result.Assertions)

	switch {
	case out.Success && failed == 0:
		result.Status = suite.StatusPassed
	case failed > 0:
		result.Status = suite.StatusFailed
		var msgs []string
		for _, a := range result.Assertions {
			if !a.Passed {
				msgs = append(msgs, a.Message)
			}
		}
		result.Error = &suite.CaseError{
			Message: fmt.Sprintf("%d assertion(s) failed: %s", failed, strings.Join(msgs, "; ")),
			Kind:    suite.ErrorKindAssertion,
		}
	default:
		result.Status = suite.StatusFailed
		result.Error = &suite.CaseError{Message: "script reported failure", Kind: suite.ErrorKindScript}
	}
}

func errorKind(err error) suite.ErrorKind {
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return suite.ErrorKindTimeout
	}
	return suite.ErrorKindScriptRunner
}

// sleep waits for d and reports false if ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
