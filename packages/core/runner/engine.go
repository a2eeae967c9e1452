package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/dependency"
	"github.com/abdul-hamid-achik/scriptsuite/packages/core/env"
	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
	"github.com/abdul-hamid-achik/scriptsuite/packages/scriptrunner"
)

// State is the lifecycle state of an Engine.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// ScriptSource resolves script references. *suite.Library implements it.
type ScriptSource interface {
	Lookup(id string) (*suite.Script, bool)
}

// Engine runs one suite at a time.
type Engine struct {
	runner scriptrunner.Runner
	cases  *CaseRunner
	settings

	mu      sync.Mutex
	current *execution
	last    State
}

// execution is the bookkeeping of one accepted run. Its result is guarded
// by Engine.mu.
type execution struct {
	result    *suite.ExecutionResult
	start     time.Time
	cancel    context.CancelFunc
	cancelled bool
	finished  bool
}

// NewEngine creates an engine that executes scripts through r.
func NewEngine(r scriptrunner.Runner, opts ...Option) *Engine {
	e := &Engine{runner: r, settings: defaultSettings(), last: StateIdle}
	for _, opt := range opts {
		opt(&e.settings)
	}
	e.cases = &CaseRunner{runner: r, settings: e.settings}
	return e
}

// State returns StateRunning while a run is in flight, otherwise the
// terminal status of the last run, or StateIdle before the first one.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil {
		return StateRunning
	}
	return e.last
}

// IsRunning reports whether a run is in flight.
func (e *Engine) IsRunning() bool {
	return e.State() == StateRunning
}

// Execute runs the enabled cases of s in order. Scripts are resolved
// through scripts, or through s.Scripts when scripts is nil. vars override
// the suite's own variables.
//
// The returned result is always well formed, except with
// ErrConcurrentExecution. A non-nil error accompanies a result whose
// status is error (setup failure, missing script) or, when ctx was
// cancelled, cancelled.
func (e *Engine) Execute(ctx context.Context, s *suite.Suite, scripts ScriptSource, vars map[string]string) (*suite.ExecutionResult, error) {
	if scripts == nil {
		scripts = s.Scripts
	}
	cases := s.EnabledTestCases()
	vars = env.MergeVariables(s.Variables, vars)

	now := time.Now()
	result := &suite.ExecutionResult{
		ID:        uuid.New().String(),
		SuiteID:   s.ID,
		SuiteName: s.Name,
		StartedAt: now,
		Status:    suite.StatusRunning,
		Summary:   suite.Summary{Total: len(cases)},
		Results:   make([]*suite.TestCaseResult, 0, len(cases)),
		Environment: suite.Environment{
			Context:   scriptrunner.Describe(e.runner),
			Timestamp: now,
		},
	}

	ex, runCtx, err := e.acquire(ctx, result)
	if err != nil {
		return nil, err
	}
	defer e.release(ex)

	log := e.logger.With("suite", s.Name, "execution", result.ID)
	log.Info("suite execution started", "cases", len(cases))
	e.observer.OnStart(e.snapshot(ex))

	cfg := s.Configuration
	total := len(cases)

	if s.Setup.Runnable() {
		if err := e.runHook(runCtx, "setup", s.Setup.Script, scripts, vars, cfg.Timeout); err != nil {
			if runCtx.Err() != nil {
				return e.abandon(ctx, ex)
			}
			log.Error("setup failed", "error", err)
			for _, tc := range cases {
				if !e.record(ex, skipped(tc, suite.ErrorKindSetup, "setup failed"), total) {
					return e.abandon(ctx, ex)
				}
			}
			e.teardown(runCtx, s, scripts, vars)
			return e.abort(ex, err)
		}
	}

	for i, tc := range cases {
		if runCtx.Err() != nil {
			return e.abandon(ctx, ex)
		}

		res := dependency.Resolve(tc.Dependencies, e.results(ex))
		if !res.AllSatisfied {
			msg := "unsatisfied dependencies: " + strings.Join(res.Unsatisfied, ", ")
			if !e.record(ex, skipped(tc, suite.ErrorKindDependency, msg), total) {
				return e.abandon(ctx, ex)
			}
			continue
		}

		script, ok := scripts.Lookup(tc.Script)
		if !ok {
			err := &ScriptNotFoundError{ScriptID: tc.Script, Owner: fmt.Sprintf("test case %q", tc.ID)}
			e.teardown(runCtx, s, scripts, vars)
			return e.abort(ex, err)
		}

		caseResult := e.cases.Run(runCtx, tc, script, vars, tc.EffectiveTimeout(cfg), tc.EffectiveRetryCount(cfg))
		if runCtx.Err() != nil {
			// the in-flight result belongs to an abandoned run
			return e.abandon(ctx, ex)
		}
		if !e.record(ex, caseResult, total) {
			return e.abandon(ctx, ex)
		}

		if cfg.StopOnFailure && (caseResult.Status == suite.StatusFailed || caseResult.Status == suite.StatusError) {
			log.Info("stopping after failure", "test_case", tc.ID)
			for _, rest := range cases[i+1:] {
				if !e.record(ex, skipped(rest, suite.ErrorKindStopped, "stopped due to prior failure"), total) {
					return e.abandon(ctx, ex)
				}
			}
			break
		}
	}

	e.teardown(runCtx, s, scripts, vars)
	return e.complete(ex)
}

// Stop cancels the run in flight. The run becomes cancelled at once, the
// engine accepts a new Execute, and OnComplete fires with the partial
// result. An invocation already in progress is not interrupted; its result
// is discarded. Stop reports whether there was a run to cancel.
func (e *Engine) Stop() bool {
	e.mu.Lock()
	ex := e.current
	if ex == nil || ex.finished {
		e.mu.Unlock()
		return false
	}
	snap := e.cancelLocked(ex)
	e.mu.Unlock()

	ex.cancel()
	e.logger.Info("suite execution stopped", "execution", snap.ID, "recorded", len(snap.Results))
	e.observer.OnComplete(snap)
	return true
}

func (e *Engine) acquire(ctx context.Context, result *suite.ExecutionResult) (*execution, context.Context, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil {
		return nil, nil, ErrConcurrentExecution
	}
	runCtx, cancel := context.WithCancel(ctx)
	ex := &execution{result: result, start: time.Now(), cancel: cancel}
	e.current = ex
	return ex, runCtx, nil
}

// release frees the engine unless a newer run already owns it.
func (e *Engine) release(ex *execution) {
	ex.cancel()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == ex {
		e.current = nil
		e.last = State(ex.result.Status)
	}
}

func (e *Engine) snapshot(ex *execution) *suite.ExecutionResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ex.result.Clone()
}

func (e *Engine) results(ex *execution) []*suite.TestCaseResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*suite.TestCaseResult(nil), ex.result.Results...)
}

// record appends res and fires OnProgress. It reports false when the run
// was cancelled and res was dropped.
func (e *Engine) record(ex *execution, res *suite.TestCaseResult, total int) bool {
	e.mu.Lock()
	if ex.cancelled {
		e.mu.Unlock()
		return false
	}
	ex.result.Results = append(ex.result.Results, res)
	ex.result.Summary.Add(res.Status)
	current := len(ex.result.Results)
	snap := ex.result.Clone()
	e.mu.Unlock()

	e.observer.OnProgress(snap, current, total)
	return true
}

func (e *Engine) cancelLocked(ex *execution) *suite.ExecutionResult {
	ex.cancelled = true
	ex.finished = true
	ex.result.Status = suite.StatusCancelled
	ex.result.Summary = suite.Summarize(ex.result.Results)
	ex.result.Duration = time.Since(ex.start)
	e.current = nil
	e.last = State(suite.StatusCancelled)
	return ex.result.Clone()
}

// abandon ends a run whose context is done. After Stop it only returns the
// cancelled result; otherwise the caller's context was cancelled and the
// run is cancelled here.
func (e *Engine) abandon(ctx context.Context, ex *execution) (*suite.ExecutionResult, error) {
	e.mu.Lock()
	if ex.cancelled {
		snap := ex.result.Clone()
		e.mu.Unlock()
		return snap, nil
	}
	snap := e.cancelLocked(ex)
	e.mu.Unlock()

	e.logger.Info("suite execution cancelled", "execution", snap.ID, "reason", ctx.Err())
	e.observer.OnComplete(snap)
	return snap, ctx.Err()
}

// abort ends the run with status error.
func (e *Engine) abort(ex *execution, cause error) (*suite.ExecutionResult, error) {
	e.mu.Lock()
	if ex.cancelled {
		snap := ex.result.Clone()
		e.mu.Unlock()
		return snap, nil
	}
	r := ex.result
	r.Summary = suite.Summarize(r.Results)
	r.Status = suite.StatusError
	r.Error = cause.Error()
	r.Duration = time.Since(ex.start)
	ex.finished = true
	snap := r.Clone()
	e.mu.Unlock()

	e.logger.Error("suite execution aborted", "execution", snap.ID, "error", cause)
	e.observer.OnError(cause, snap)
	e.observer.OnComplete(snap.Clone())
	return snap, cause
}

func (e *Engine) complete(ex *execution) (*suite.ExecutionResult, error) {
	e.mu.Lock()
	if ex.cancelled {
		snap := ex.result.Clone()
		e.mu.Unlock()
		return snap, nil
	}
	r := ex.result
	r.Summary = suite.Summarize(r.Results)
	r.Status = suite.StatusFor(r.Summary)
	r.Duration = time.Since(ex.start)
	ex.finished = true
	snap := r.Clone()
	e.mu.Unlock()

	e.logger.Info("suite execution finished",
		"execution", snap.ID,
		"status", snap.Status,
		"passed", snap.Summary.Passed,
		"failed", snap.Summary.Failed,
		"skipped", snap.Summary.Skipped,
		"errors", snap.Summary.Errors,
		"duration", snap.Duration)
	e.observer.OnComplete(snap.Clone())
	return snap, nil
}

// runHook runs a setup or teardown script as a single attempt bounded by
// timeout. A script that reports failure is an error.
func (e *Engine) runHook(ctx context.Context, phase, scriptID string, scripts ScriptSource, vars map[string]string, timeout time.Duration) error {
	script, ok := scripts.Lookup(scriptID)
	if !ok {
		return &ScriptNotFoundError{ScriptID: scriptID, Owner: phase}
	}

	code := e.cases.substitute(script.Code, vars, e.logger.With("phase", phase))
	out, err := e.cases.invoke(ctx, code, timeout)
	if err != nil {
		return &SetupTeardownError{Phase: phase, ScriptID: scriptID, Err: err}
	}
	if !out.Success {
		return &SetupTeardownError{
			Phase:    phase,
			ScriptID: scriptID,
			Err:      fmt.Errorf("script reported failure: %s", strings.TrimSpace(out.Output)),
		}
	}
	return nil
}

// teardown failures are logged and never change the run status.
func (e *Engine) teardown(ctx context.Context, s *suite.Suite, scripts ScriptSource, vars map[string]string) {
	if !s.Teardown.Runnable() || ctx.Err() != nil {
		return
	}
	if err := e.runHook(ctx, "teardown", s.Teardown.Script, scripts, vars, s.Configuration.Timeout); err != nil {
		e.logger.Error("teardown failed", "suite", s.Name, "error", err)
	}
}

func skipped(tc *suite.TestCase, kind suite.ErrorKind, msg string) *suite.TestCaseResult {
	now := time.Now()
	return &suite.TestCaseResult{
		TestCaseID:   tc.ID,
		TestCaseName: tc.DisplayName(),
		Status:       suite.StatusSkipped,
		Error:        &suite.CaseError{Message: msg, Kind: kind},
		StartedAt:    now,
		EndedAt:      now,
	}
}
