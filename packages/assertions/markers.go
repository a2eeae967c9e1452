package assertions

import (
	"strings"

	"github.com/acarl005/stripansi"
	"github.com/tidwall/gjson"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
)

type marker struct {
	prefix string
	passed bool
}

var markers = []marker{
	{"[PASS]", true},
	{"[FAIL]", false},
	{"✓", true},
	{"✔", true},
	{"✗", false},
	{"✘", false},
}

// Parse returns the assertions reported in output, in order.
func Parse(output string) []suite.AssertionResult {
	clean := stripansi.Strip(output)

	if results, ok := parseJSON(clean); ok {
		return results
	}
	return parseLines(clean)
}

// Failed counts the assertions that did not pass.
func Failed(results []suite.AssertionResult) int {
	n := 0
	for _, r := range results {
		if !r.Passed {
			n++
		}
	}
	return n
}

func parseJSON(output string) ([]suite.AssertionResult, bool) {
	trimmed := strings.TrimSpace(output)
	if !strings.HasPrefix(trimmed, "{") || !gjson.Valid(trimmed) {
		return nil, false
	}

	list := gjson.Get(trimmed, "assertions")
	if !list.IsArray() {
		return nil, false
	}

	var results []suite.AssertionResult
	list.ForEach(func(_, item gjson.Result) bool {
		results = append(results, suite.AssertionResult{
			Passed:  item.Get("passed").Bool(),
			Message: item.Get("message").String(),
		})
		return true
	})
	return results, true
}

func parseLines(output string) []suite.AssertionResult {
	var results []suite.AssertionResult
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		for _, m := range markers {
			if rest, ok := strings.CutPrefix(line, m.prefix); ok {
				results = append(results, suite.AssertionResult{
					Passed:  m.passed,
					Message: strings.TrimSpace(rest),
				})
				break
			}
		}
	}
	return results
}
