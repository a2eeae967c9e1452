package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
)

func run(status suite.Status, results ...*suite.TestCaseResult) *suite.ExecutionResult {
	return &suite.ExecutionResult{Status: status, Results: results, Summary: suite.Summarize(results)}
}

func caseResult(id string, status suite.Status, d time.Duration) *suite.TestCaseResult {
	return &suite.TestCaseResult{TestCaseID: id, TestCaseName: "case " + id, Status: status, Duration: d, Attempts: 1}
}

func TestDurations(t *testing.T) {
	results := []*suite.ExecutionResult{
		run(suite.StatusPassed,
			caseResult("fast", suite.StatusPassed, 10*time.Millisecond),
			caseResult("slow", suite.StatusPassed, 400*time.Millisecond)),
		run(suite.StatusFailed,
			caseResult("fast", suite.StatusPassed, 12*time.Millisecond),
			caseResult("slow", suite.StatusFailed, 600*time.Millisecond)),
		run(suite.StatusFailed,
			caseResult("fast", suite.StatusFailed, 11*time.Millisecond),
			caseResult("slow", suite.StatusSkipped, 0)),
	}

	report := Durations(results)
	assert.Equal(t, 3, report.Executions)
	assert.InDelta(t, 1.0/3.0, report.PassRate(), 0.001)
	assert.Equal(t, 2, report.ByStatus[suite.StatusFailed])
	assert.Equal(t, int64(5), report.Overall.Count)

	require.Len(t, report.Cases, 2)
	slow := report.Cases[0]
	assert.Equal(t, "slow", slow.ID)
	assert.Equal(t, 3, slow.Runs)
	assert.Equal(t, 1, slow.Skipped)
	assert.Equal(t, int64(2), slow.Latency.Count)
	assert.InDelta(t, 0.5, slow.PassRate(), 0.001)
	assert.InDelta(t, float64(600*time.Millisecond), float64(slow.Latency.Max), float64(time.Millisecond))
	assert.InDelta(t, float64(400*time.Millisecond), float64(slow.Latency.Min), float64(time.Millisecond))

	fast := report.Cases[1]
	assert.InDelta(t, 2.0/3.0, fast.PassRate(), 0.001)
	assert.LessOrEqual(t, fast.Latency.P50, fast.Latency.P99)
}

func TestDurations_Empty(t *testing.T) {
	report := Durations(nil)
	assert.Zero(t, report.Executions)
	assert.Zero(t, report.PassRate())
	assert.Equal(t, Latency{}, report.Overall)
	assert.Empty(t, report.Cases)
}
