package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
	"github.com/abdul-hamid-achik/scriptsuite/packages/scriptrunner"
)

// fakeRunner behaves according to the prefix of the code it receives.
type fakeRunner struct {
	mu      sync.Mutex
	calls   map[string]int
	started chan string
	release chan struct{}
}

func newFakeRunner(t *testing.T) *fakeRunner {
	f := &fakeRunner{
		calls:   make(map[string]int),
		started: make(chan string, 16),
		release: make(chan struct{}),
	}
	t.Cleanup(func() { close(f.release) })
	return f
}

func (f *fakeRunner) Invoke(ctx context.Context, code string) (*scriptrunner.Result, error) {
	f.mu.Lock()
	f.calls[code]++
	n := f.calls[code]
	f.mu.Unlock()

	switch {
	case strings.HasPrefix(code, "pass"):
		return &scriptrunner.Result{Success: true, Output: "[PASS] " + code}, nil
	case strings.HasPrefix(code, "fail"):
		return &scriptrunner.Result{Success: false, Output: "exit status 1"}, nil
	case strings.HasPrefix(code, "assertfail"):
		return &scriptrunner.Result{Success: true, Output: "[PASS] one\n[FAIL] broken"}, nil
	case strings.HasPrefix(code, "error"):
		return nil, errors.New("agent unreachable")
	case strings.HasPrefix(code, "flaky"):
		if n < 2 {
			return nil, errors.New("transient")
		}
		return &scriptrunner.Result{Success: true}, nil
	case strings.HasPrefix(code, "hang"), strings.HasPrefix(code, "block"):
		f.started <- code
		// ignores ctx on purpose
		<-f.release
		return &scriptrunner.Result{Success: true}, nil
	case strings.HasPrefix(code, "echo "):
		return &scriptrunner.Result{Success: true, Output: strings.TrimPrefix(code, "echo ")}, nil
	}
	return &scriptrunner.Result{Success: true}, nil
}

func (f *fakeRunner) count(code string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[code]
}

func (f *fakeRunner) Describe() string { return "fake" }

// identitySource serves every script ID as a script whose code is the ID.
type identitySource struct{}

func (identitySource) Lookup(id string) (*suite.Script, bool) {
	if strings.HasPrefix(id, "missing") {
		return nil, false
	}
	return &suite.Script{ID: id, Code: id}, true
}

// recorder collects observer callbacks.
type recorder struct {
	mu        sync.Mutex
	events    []string
	completed []*suite.ExecutionResult
	errs      []error
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) OnStart(res *suite.ExecutionResult) { r.add("start %d", res.Summary.Total) }
func (r *recorder) OnProgress(res *suite.ExecutionResult, current, total int) {
	r.add("progress %d/%d", current, total)
}
func (r *recorder) OnTestCaseStart(tc *suite.TestCase) { r.add("case-start %s", tc.ID) }
func (r *recorder) OnTestCaseComplete(tc *suite.TestCase, res *suite.TestCaseResult) {
	r.add("case-complete %s %s", tc.ID, res.Status)
}
func (r *recorder) OnComplete(res *suite.ExecutionResult) {
	r.add("complete %s", res.Status)
	r.mu.Lock()
	r.completed = append(r.completed, res)
	r.mu.Unlock()
}
func (r *recorder) OnError(err error, res *suite.ExecutionResult) {
	r.add("error")
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func testCase(id, script string, deps ...string) *suite.TestCase {
	return &suite.TestCase{ID: id, Name: "case " + id, Script: script, Enabled: true, Dependencies: deps}
}

func newSuite(cases ...*suite.TestCase) *suite.Suite {
	for i, tc := range cases {
		tc.Order = i
	}
	return &suite.Suite{
		ID:            "suite-1",
		Name:          "demo",
		Configuration: suite.DefaultConfiguration(),
		TestCases:     cases,
	}
}

func assertSummaryConsistent(t *testing.T, r *suite.ExecutionResult) {
	t.Helper()
	s := r.Summary
	assert.Equal(t, s.Total, s.Passed+s.Failed+s.Skipped+s.Errors)
	assert.Equal(t, suite.Summarize(r.Results), s)
}

func TestEngine_DependencyScenario(t *testing.T) {
	t.Run("continues past failures", func(t *testing.T) {
		fake := newFakeRunner(t)
		s := newSuite(testCase("A", "pass-a"), testCase("B", "fail-b"), testCase("C", "pass-c", "A"))

		result, err := NewEngine(fake).Execute(context.Background(), s, identitySource{}, nil)
		require.NoError(t, err)

		assert.Equal(t, suite.Summary{Total: 3, Passed: 1, Failed: 1}, result.Summary)
		assert.Equal(t, suite.StatusFailed, result.Status)
		c, ok := result.Result("C")
		require.True(t, ok)
		assert.Equal(t, suite.StatusPassed, c.Status)
		assertSummaryConsistent(t, result)
	})

	t.Run("stop on failure skips the rest", func(t *testing.T) {
		fake := newFakeRunner(t)
		s := newSuite(testCase("A", "pass-a"), testCase("B", "fail-b"), testCase("C", "pass-c", "A"))
		s.Configuration.StopOnFailure = true

		result, err := NewEngine(fake).Execute(context.Background(), s, identitySource{}, nil)
		require.NoError(t, err)

		assert.Equal(t, suite.Summary{Total: 3, Passed: 1, Failed: 1, Skipped: 1}, result.Summary)
		c, _ := result.Result("C")
		assert.Equal(t, suite.StatusSkipped, c.Status)
		assert.Equal(t, suite.ErrorKindStopped, c.Error.Kind)
		assert.Equal(t, "stopped due to prior failure", c.Error.Message)
		assert.Zero(t, fake.count("pass-c"))
	})

	t.Run("stop on failure after an error", func(t *testing.T) {
		fake := newFakeRunner(t)
		s := newSuite(testCase("A", "pass-a"), testCase("B", "error-b"), testCase("C", "pass-c"))
		s.Configuration.StopOnFailure = true
		s.Teardown = suite.ScriptRef{Script: "pass-teardown", Enabled: true}

		result, err := NewEngine(fake, WithRetryDelay(0)).Execute(context.Background(), s, identitySource{}, nil)
		require.NoError(t, err)

		assert.Equal(t, suite.StatusError, result.Status)
		assert.Equal(t, suite.Summary{Total: 3, Passed: 1, Errors: 1, Skipped: 1}, result.Summary)
		c, ok := result.Result("C")
		require.True(t, ok)
		assert.Equal(t, suite.StatusSkipped, c.Status)
		assert.Equal(t, suite.ErrorKindStopped, c.Error.Kind)
		assert.Zero(t, fake.count("pass-c"))
		assert.Equal(t, 1, fake.count("pass-teardown"))
		assertSummaryConsistent(t, result)
	})
}

func TestEngine_UnsatisfiedDependencyNeverInvokesRunner(t *testing.T) {
	fake := newFakeRunner(t)
	s := newSuite(
		testCase("A", "fail-a"),
		testCase("B", "pass-b", "A", "Z"),
		testCase("C", "pass-c", "B"),
	)

	result, err := NewEngine(fake).Execute(context.Background(), s, identitySource{}, nil)
	require.NoError(t, err)

	b, _ := result.Result("B")
	assert.Equal(t, suite.StatusSkipped, b.Status)
	assert.Equal(t, "unsatisfied dependencies: A, Z", b.Error.Message)
	assert.Equal(t, suite.ErrorKindDependency, b.Error.Kind)
	assert.Zero(t, b.Attempts)

	c, _ := result.Result("C")
	assert.Equal(t, suite.StatusSkipped, c.Status)

	assert.Zero(t, fake.count("pass-b"))
	assert.Zero(t, fake.count("pass-c"))
	assertSummaryConsistent(t, result)
}

func TestEngine_DisabledCasesAreExcluded(t *testing.T) {
	fake := newFakeRunner(t)
	off := testCase("B", "pass-b")
	off.Enabled = false
	s := newSuite(testCase("A", "pass-a"), off)

	result, err := NewEngine(fake).Execute(context.Background(), s, identitySource{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Summary.Total)
	assert.Len(t, result.Results, 1)
	assert.Zero(t, fake.count("pass-b"))
	assert.Equal(t, suite.StatusPassed, result.Status)
}

func TestEngine_RunsInOrder(t *testing.T) {
	fake := newFakeRunner(t)
	a, b, c := testCase("A", "pass-a"), testCase("B", "pass-b"), testCase("C", "pass-c")
	s := newSuite(a, b, c)
	a.Order, b.Order, c.Order = 2, 0, 1

	result, err := NewEngine(fake).Execute(context.Background(), s, identitySource{}, nil)
	require.NoError(t, err)

	var ids []string
	for _, r := range result.Results {
		ids = append(ids, r.TestCaseID)
	}
	assert.Equal(t, []string{"B", "C", "A"}, ids)
	assert.Equal(t, "A", s.TestCases[0].ID, "suite must not be mutated")
}

func TestEngine_AllSkippedIsCompleted(t *testing.T) {
	fake := newFakeRunner(t)
	s := newSuite(testCase("A", "pass-a", "ghost"))

	result, err := NewEngine(fake).Execute(context.Background(), s, identitySource{}, nil)
	require.NoError(t, err)
	assert.Equal(t, suite.StatusCompleted, result.Status)

	empty, err := NewEngine(fake).Execute(context.Background(), newSuite(), identitySource{}, nil)
	require.NoError(t, err)
	assert.Equal(t, suite.StatusCompleted, empty.Status)
	assert.Zero(t, empty.Summary.Total)
}

func TestEngine_ErrorBeatsFailure(t *testing.T) {
	fake := newFakeRunner(t)
	s := newSuite(testCase("A", "fail-a"), testCase("B", "error-b"), testCase("C", "pass-c"))

	result, err := NewEngine(fake, WithRetryDelay(0)).Execute(context.Background(), s, identitySource{}, nil)
	require.NoError(t, err)

	assert.Equal(t, suite.StatusError, result.Status)
	assert.Equal(t, suite.Summary{Total: 3, Passed: 1, Failed: 1, Errors: 1}, result.Summary)
	b, _ := result.Result("B")
	assert.Equal(t, suite.ErrorKindScriptRunner, b.Error.Kind)
	assert.Contains(t, b.Error.Message, "agent unreachable")
}

func TestEngine_RetryOverrides(t *testing.T) {
	fake := newFakeRunner(t)
	two := 2
	a := testCase("A", "error-a")
	a.RetryCount = &two
	s := newSuite(a, testCase("B", "error-b"))
	s.Configuration.RetryCount = 1

	result, err := NewEngine(fake, WithRetryDelay(time.Millisecond)).Execute(context.Background(), s, identitySource{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, fake.count("error-a"))
	assert.Equal(t, 2, fake.count("error-b"))
	ra, _ := result.Result("A")
	assert.Equal(t, 3, ra.Attempts)
}

func TestEngine_ObserverSequence(t *testing.T) {
	fake := newFakeRunner(t)
	rec := &recorder{}
	s := newSuite(testCase("A", "pass-a"), testCase("B", "pass-b", "missing-dep"))

	_, err := NewEngine(fake, WithObserver(rec)).Execute(context.Background(), s, identitySource{}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"start 2",
		"case-start A",
		"case-complete A passed",
		"progress 1/2",
		"progress 2/2",
		"complete passed",
	}, rec.snapshot())
}

func TestEngine_ObserversReceiveCopies(t *testing.T) {
	fake := newFakeRunner(t)
	var seen *suite.ExecutionResult
	obs := &completeHook{fn: func(r *suite.ExecutionResult) {
		seen = r
		r.Results[0].Status = suite.StatusFailed
		r.Summary.Passed = 99
	}}

	result, err := NewEngine(fake, WithObserver(obs)).Execute(context.Background(), newSuite(testCase("A", "pass-a")), identitySource{}, nil)
	require.NoError(t, err)
	require.NotNil(t, seen)

	assert.Equal(t, suite.StatusPassed, result.Results[0].Status)
	assert.Equal(t, 1, result.Summary.Passed)
}

type completeHook struct {
	BaseObserver
	fn func(*suite.ExecutionResult)
}

func (c *completeHook) OnComplete(r *suite.ExecutionResult) { c.fn(r) }

func TestEngine_Variables(t *testing.T) {
	fake := newFakeRunner(t)
	s := newSuite(testCase("A", "echo ${greeting} ${target} ${unknown}"))
	s.Variables = map[string]string{"greeting": "hello", "target": "suite"}

	result, err := NewEngine(fake).Execute(context.Background(), s, identitySource{}, map[string]string{"target": "world"})
	require.NoError(t, err)

	assert.Equal(t, "hello world ${unknown}", result.Results[0].Output)
}

func TestEngine_UsesSuiteLibraryByDefault(t *testing.T) {
	fake := newFakeRunner(t)
	s := newSuite(testCase("A", "login"))
	s.Scripts = suite.NewLibrary(&suite.Script{ID: "login", Code: "pass-login"})

	result, err := NewEngine(fake).Execute(context.Background(), s, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, suite.StatusPassed, result.Status)
	assert.Equal(t, 1, fake.count("pass-login"))
	assert.Equal(t, "fake", result.Environment.Context)
}

func TestEngine_ScriptNotFound(t *testing.T) {
	fake := newFakeRunner(t)
	rec := &recorder{}
	s := newSuite(testCase("A", "pass-a"), testCase("B", "missing-b"), testCase("C", "pass-c"))
	s.Teardown = suite.ScriptRef{Script: "pass-teardown", Enabled: true}

	engine := NewEngine(fake, WithObserver(rec))
	result, err := engine.Execute(context.Background(), s, identitySource{}, nil)

	var notFound *ScriptNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing-b", notFound.ScriptID)

	require.NotNil(t, result)
	assert.Equal(t, suite.StatusError, result.Status)
	assert.Contains(t, result.Error, "missing-b")
	assert.Len(t, result.Results, 1)
	assert.Zero(t, fake.count("pass-c"))
	assert.Equal(t, 1, fake.count("pass-teardown"))

	require.Len(t, rec.errs, 1)
	assert.Len(t, rec.completed, 1)
	assert.Equal(t, State(suite.StatusError), engine.State())
	assertSummaryConsistent(t, result)
}

func TestEngine_SetupFailure(t *testing.T) {
	fake := newFakeRunner(t)
	s := newSuite(testCase("A", "pass-a"), testCase("B", "pass-b"))
	s.Setup = suite.ScriptRef{Script: "fail-setup", Enabled: true}
	s.Teardown = suite.ScriptRef{Script: "pass-teardown", Enabled: true}

	result, err := NewEngine(fake).Execute(context.Background(), s, identitySource{}, nil)

	var setupErr *SetupTeardownError
	require.ErrorAs(t, err, &setupErr)
	assert.Equal(t, "setup", setupErr.Phase)

	assert.Equal(t, suite.StatusError, result.Status)
	assert.Equal(t, suite.Summary{Total: 2, Skipped: 2}, result.Summary)
	for _, r := range result.Results {
		assert.Equal(t, suite.ErrorKindSetup, r.Error.Kind)
	}
	assert.Zero(t, fake.count("pass-a"))
	assert.Equal(t, 1, fake.count("pass-teardown"))
}

func TestEngine_SetupRunsBeforeCases(t *testing.T) {
	fake := newFakeRunner(t)
	s := newSuite(testCase("A", "pass-a"))
	s.Setup = suite.ScriptRef{Script: "pass-setup", Enabled: true}
	disabled := suite.ScriptRef{Script: "fail-teardown", Enabled: false}
	s.Teardown = disabled

	result, err := NewEngine(fake).Execute(context.Background(), s, identitySource{}, nil)
	require.NoError(t, err)
	assert.Equal(t, suite.StatusPassed, result.Status)
	assert.Equal(t, 1, fake.count("pass-setup"))
	assert.Zero(t, fake.count("fail-teardown"))
}

func TestEngine_TeardownFailureIsOnlyLogged(t *testing.T) {
	fake := newFakeRunner(t)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	s := newSuite(testCase("A", "pass-a"))
	s.Teardown = suite.ScriptRef{Script: "fail-teardown", Enabled: true}

	result, err := NewEngine(fake, WithLogger(logger)).Execute(context.Background(), s, identitySource{}, nil)
	require.NoError(t, err)

	assert.Equal(t, suite.StatusPassed, result.Status)
	assert.Empty(t, result.Error)
	assert.Contains(t, logs.String(), "teardown failed")
	assert.Equal(t, 1, fake.count("fail-teardown"))
}

func TestEngine_ConcurrentExecutionRejected(t *testing.T) {
	fake := newFakeRunner(t)
	rec := &recorder{}
	engine := NewEngine(fake, WithObserver(rec))
	s := newSuite(testCase("A", "block-a"))

	done := make(chan *suite.ExecutionResult, 1)
	go func() {
		r, _ := engine.Execute(context.Background(), s, identitySource{}, nil)
		done <- r
	}()
	<-fake.started

	assert.Equal(t, StateRunning, engine.State())
	assert.True(t, engine.IsRunning())

	before := len(rec.snapshot())
	result, err := engine.Execute(context.Background(), newSuite(testCase("X", "pass-x")), identitySource{}, nil)
	assert.ErrorIs(t, err, ErrConcurrentExecution)
	assert.Nil(t, result)
	assert.Zero(t, fake.count("pass-x"))
	assert.Len(t, rec.snapshot(), before, "rejected call must not fire callbacks")

	fake.release <- struct{}{}
	r := <-done
	assert.Equal(t, suite.StatusPassed, r.Status)
	assert.Equal(t, State(suite.StatusPassed), engine.State())
}

func TestEngine_Stop(t *testing.T) {
	fake := newFakeRunner(t)
	rec := &recorder{}
	engine := NewEngine(fake, WithObserver(rec))
	s := newSuite(testCase("A", "pass-a"), testCase("B", "block-b"), testCase("C", "pass-c"))

	type outcome struct {
		result *suite.ExecutionResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := engine.Execute(context.Background(), s, identitySource{}, nil)
		done <- outcome{r, err}
	}()
	<-fake.started

	assert.True(t, engine.Stop())
	assert.False(t, engine.IsRunning())
	assert.Equal(t, State(suite.StatusCancelled), engine.State())
	assert.False(t, engine.Stop(), "nothing left to stop")

	var out outcome
	select {
	case out = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Execute did not return after Stop")
	}
	require.NoError(t, out.err)
	assert.Equal(t, suite.StatusCancelled, out.result.Status)
	assert.Len(t, out.result.Results, 1, "in-flight and remaining cases are absent")
	assert.Equal(t, suite.Summary{Total: 1, Passed: 1}, out.result.Summary)
	assert.Zero(t, fake.count("pass-c"))

	assert.Len(t, rec.completed, 1)
	assert.Equal(t, suite.StatusCancelled, rec.completed[0].Status)
	assert.NotContains(t, rec.snapshot(), "case-complete B passed")

	// the engine is free again while the abandoned invocation still hangs
	next, err := engine.Execute(context.Background(), newSuite(testCase("D", "pass-d")), identitySource{}, nil)
	require.NoError(t, err)
	assert.Equal(t, suite.StatusPassed, next.Status)
}

// stopOnStart stops the engine as soon as a test case is announced.
type stopOnStart struct {
	BaseObserver
	engine *Engine
}

func (o *stopOnStart) OnTestCaseStart(*suite.TestCase) { o.engine.Stop() }

func TestEngine_StopBeforeInvocation(t *testing.T) {
	var calls atomic.Int32
	counting := scriptrunner.RunnerFunc(func(ctx context.Context, code string) (*scriptrunner.Result, error) {
		calls.Add(1)
		return &scriptrunner.Result{Success: true}, nil
	})
	rec := &recorder{}
	stopper := &stopOnStart{}
	engine := NewEngine(counting, WithObserver(rec), WithObserver(stopper))
	stopper.engine = engine

	s := newSuite(testCase("A", "pass-a"), testCase("B", "pass-b"))
	result, err := engine.Execute(context.Background(), s, identitySource{}, nil)
	require.NoError(t, err)

	assert.Equal(t, suite.StatusCancelled, result.Status)
	assert.Empty(t, result.Results)
	assert.Zero(t, calls.Load(), "no script may run once the engine is stopped")
	assert.Equal(t, []string{"start 2", "case-start A", "complete cancelled"}, rec.snapshot())
}

func TestEngine_ContextCancellation(t *testing.T) {
	fake := newFakeRunner(t)
	rec := &recorder{}
	engine := NewEngine(fake, WithObserver(rec))
	s := newSuite(testCase("A", "block-a"), testCase("B", "pass-b"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	var result *suite.ExecutionResult
	go func() {
		var err error
		result, err = engine.Execute(ctx, s, identitySource{}, nil)
		done <- err
	}()
	<-fake.started
	cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, suite.StatusCancelled, result.Status)
	assert.Empty(t, result.Results)
	assert.Len(t, rec.completed, 1)
	assert.False(t, engine.IsRunning())
}

func TestEngine_StopWhenIdle(t *testing.T) {
	engine := NewEngine(newFakeRunner(t))
	assert.Equal(t, StateIdle, engine.State())
	assert.False(t, engine.Stop())
}
