// Package dependency decides whether a test case may run given the results
// collected so far in the current execution.
package dependency

import "github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"

// Resolution is the outcome of checking a case's dependencies.
type Resolution struct {
	AllSatisfied bool
	Unsatisfied  []string
}

// Resolve checks each dependency against resultsSoFar. A dependency is
// satisfied only when a result for that case exists and has passed; a case
// that has not produced a result yet (forward reference, or skipped earlier)
// is unsatisfied. Unsatisfied IDs are returned in the order they were given.
//
// Resolve has no side effects.
func Resolve(dependencies []string, resultsSoFar []*suite.TestCaseResult) Resolution {
	if len(dependencies) == 0 {
		return Resolution{AllSatisfied: true}
	}

	statuses := make(map[string]suite.Status, len(resultsSoFar))
	for _, r := range resultsSoFar {
		statuses[r.TestCaseID] = r.Status
	}

	var unsatisfied []string
	for _, dep := range dependencies {
		if status, ok := statuses[dep]; !ok || status != suite.StatusPassed {
			unsatisfied = append(unsatisfied, dep)
		}
	}

	return Resolution{
		AllSatisfied: len(unsatisfied) == 0,
		Unsatisfied:  unsatisfied,
	}
}
