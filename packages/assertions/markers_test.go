package assertions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		expected []suite.AssertionResult
	}{
		{
			name:     "no markers",
			output:   "just some log output\nmore",
			expected: nil,
		},
		{
			name:   "bracket markers",
			output: "starting\n[PASS] title is set\n  [FAIL] button missing\n",
			expected: []suite.AssertionResult{
				{Passed: true, Message: "title is set"},
				{Passed: false, Message: "button missing"},
			},
		},
		{
			name:   "check marks",
			output: "✓ logged in\n✗ cart empty\n✔ ok\n✘ bad",
			expected: []suite.AssertionResult{
				{Passed: true, Message: "logged in"},
				{Passed: false, Message: "cart empty"},
				{Passed: true, Message: "ok"},
				{Passed: false, Message: "bad"},
			},
		},
		{
			name:   "ansi colors are stripped",
			output: "\x1b[32m[PASS]\x1b[0m green\n\x1b[31m✗ red\x1b[0m",
			expected: []suite.AssertionResult{
				{Passed: true, Message: "green"},
				{Passed: false, Message: "red"},
			},
		},
		{
			name:   "marker must start the line",
			output: "the word [PASS] in the middle",
		},
		{
			name:   "json assertions",
			output: `{"assertions": [{"passed": true, "message": "a"}, {"passed": false, "message": "b"}]}`,
			expected: []suite.AssertionResult{
				{Passed: true, Message: "a"},
				{Passed: false, Message: "b"},
			},
		},
		{
			name:   "json without assertions falls back to lines",
			output: `{"value": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Parse(tt.output))
		})
	}
}

func TestFailed(t *testing.T) {
	results := Parse("[PASS] a\n[FAIL] b\n[FAIL] c")
	assert.Equal(t, 2, Failed(results))
	assert.Equal(t, 0, Failed(nil))
}
