package suite

import (
	"fmt"
	"strings"
)

// ValidationError lists every rule a suite definition violates.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 1 {
		return "invalid suite: " + e.Violations[0]
	}
	return fmt.Sprintf("invalid suite: %d problems:\n  - %s",
		len(e.Violations), strings.Join(e.Violations, "\n  - "))
}

// Validate checks the suite and all of its test cases. It collects every
// violation instead of stopping at the first one and returns a
// *ValidationError, or nil when the suite is valid.
func (s *Suite) Validate() error {
	var v []string
	v = append(v, s.issues...)

	if strings.TrimSpace(s.Name) == "" {
		v = append(v, "suite name is required")
	}
	if s.Configuration.Timeout <= 0 {
		v = append(v, fmt.Sprintf("configuration timeout must be positive, got %s", s.Configuration.Timeout))
	}
	if s.Configuration.RetryCount < 0 {
		v = append(v, fmt.Sprintf("configuration retryCount must not be negative, got %d", s.Configuration.RetryCount))
	}
	if s.Setup.Enabled && s.Setup.Script == "" {
		v = append(v, "setup is enabled but references no script")
	}
	if s.Teardown.Enabled && s.Teardown.Script == "" {
		v = append(v, "teardown is enabled but references no script")
	}

	ids := make(map[string]int, len(s.TestCases))
	for _, tc := range s.TestCases {
		ids[tc.ID]++
	}

	orders := make(map[int]bool, len(s.TestCases))
	for i, tc := range s.TestCases {
		label := fmt.Sprintf("test case %q", tc.ID)
		if tc.ID == "" {
			label = fmt.Sprintf("test case #%d", i)
			v = append(v, label+": id is required")
		} else if ids[tc.ID] > 1 {
			v = append(v, label+": duplicate id")
			ids[tc.ID] = -1 // report once
		}
		v = append(v, tc.violations(label, ids)...)
		orders[tc.Order] = true
	}

	for i := range s.TestCases {
		if !orders[i] {
			v = append(v, "test case orders must form a dense 0..n-1 sequence (call Reorder)")
			break
		}
	}

	if len(v) > 0 {
		return &ValidationError{Violations: v}
	}
	return nil
}

// Validate checks a single test case in isolation.
func (tc *TestCase) Validate() error {
	v := tc.violations(fmt.Sprintf("test case %q", tc.ID), nil)
	if len(v) > 0 {
		return &ValidationError{Violations: v}
	}
	return nil
}

// violations checks the case fields. When ids is non-nil, dependencies
// must name another case in it.
func (tc *TestCase) violations(label string, ids map[string]int) []string {
	var v []string
	if strings.TrimSpace(tc.Name) == "" {
		v = append(v, label+": name is required")
	}
	if strings.TrimSpace(tc.Script) == "" {
		v = append(v, label+": script reference is required")
	}
	if tc.Timeout != nil && (*tc.Timeout < MinCaseTimeout || *tc.Timeout > MaxCaseTimeout) {
		v = append(v, fmt.Sprintf("%s: timeout must be between %s and %s, got %s",
			label, MinCaseTimeout, MaxCaseTimeout, *tc.Timeout))
	}
	if tc.RetryCount != nil && (*tc.RetryCount < 0 || *tc.RetryCount > MaxCaseRetries) {
		v = append(v, fmt.Sprintf("%s: retryCount must be between 0 and %d, got %d",
			label, MaxCaseRetries, *tc.RetryCount))
	}
	for _, dep := range tc.Dependencies {
		if dep == tc.ID {
			v = append(v, label+": cannot depend on itself")
			continue
		}
		if ids != nil {
			if _, ok := ids[dep]; !ok {
				v = append(v, fmt.Sprintf("%s: depends on unknown test case %q", label, dep))
			}
		}
	}
	return v
}
