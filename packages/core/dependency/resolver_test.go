package dependency

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
)

func results(pairs ...string) []*suite.TestCaseResult {
	var out []*suite.TestCaseResult
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, &suite.TestCaseResult{TestCaseID: pairs[i], Status: suite.Status(pairs[i+1])})
	}
	return out
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		deps        []string
		results     []*suite.TestCaseResult
		satisfied   bool
		unsatisfied []string
	}{
		{
			name:      "no dependencies",
			deps:      nil,
			results:   nil,
			satisfied: true,
		},
		{
			name:      "all passed",
			deps:      []string{"a", "b"},
			results:   results("a", "passed", "b", "passed"),
			satisfied: true,
		},
		{
			name:        "failed dependency",
			deps:        []string{"a", "b"},
			results:     results("a", "passed", "b", "failed"),
			unsatisfied: []string{"b"},
		},
		{
			name:        "error and skipped dependencies",
			deps:        []string{"a", "b"},
			results:     results("a", "error", "b", "skipped"),
			unsatisfied: []string{"a", "b"},
		},
		{
			name:        "forward reference has no result yet",
			deps:        []string{"later"},
			results:     results("a", "passed"),
			unsatisfied: []string{"later"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(tt.deps, tt.results)
			assert.Equal(t, tt.satisfied, res.AllSatisfied)
			assert.Equal(t, tt.unsatisfied, res.Unsatisfied)
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	deps := []string{"a", "b", "c"}
	rs := results("a", "passed", "b", "failed")

	first := Resolve(deps, rs)
	second := Resolve(deps, rs)

	assert.Equal(t, first, second)
	assert.Equal(t, results("a", "passed", "b", "failed"), rs, "inputs must not be modified")
}
