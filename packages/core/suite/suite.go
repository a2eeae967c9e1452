package suite

import (
	"fmt"
	"sort"
	"time"
)

const (
	// DefaultTimeout is the suite-level timeout used when none is configured
	DefaultTimeout = 30 * time.Second
	// MinCaseTimeout and MaxCaseTimeout bound a per-case timeout override
	MinCaseTimeout = 1 * time.Second
	MaxCaseTimeout = 300 * time.Second
	// MaxCaseRetries bounds a per-case retry override
	MaxCaseRetries = 5
)

// Configuration is the suite-wide execution policy.
//
// Parallel is part of the model so suites round-trip unchanged, but the
// runner always executes cases sequentially and never reads it.
type Configuration struct {
	StopOnFailure bool          `json:"stopOnFailure" yaml:"stopOnFailure"`
	Timeout       time.Duration `json:"timeout" yaml:"timeout"`
	RetryCount    int           `json:"retryCount" yaml:"retryCount"`
	Parallel      bool          `json:"parallel" yaml:"parallel"`
}

// DefaultConfiguration returns the fallback table applied to missing
// configuration fields.
func DefaultConfiguration() Configuration {
	return Configuration{
		StopOnFailure: false,
		Timeout:       DefaultTimeout,
		RetryCount:    0,
		Parallel:      false,
	}
}

// ScriptRef points at an optional setup or teardown script.
type ScriptRef struct {
	Script  string `json:"script,omitempty" yaml:"script,omitempty"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// Runnable reports whether the reference is enabled and names a script.
func (r ScriptRef) Runnable() bool {
	return r.Enabled && r.Script != ""
}

// Suite is a named, ordered collection of test cases plus setup/teardown
// scripts and execution policy.
type Suite struct {
	ID             string            `json:"id" yaml:"id"`
	Name           string            `json:"name" yaml:"name"`
	Description    string            `json:"description,omitempty" yaml:"description,omitempty"`
	Tags           []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Setup          ScriptRef         `json:"setup" yaml:"setup"`
	Teardown       ScriptRef         `json:"teardown" yaml:"teardown"`
	TestCases      []*TestCase       `json:"testCases" yaml:"testCases"`
	Configuration  Configuration     `json:"configuration" yaml:"configuration"`
	Scripts        *Library          `json:"-" yaml:"-"`
	Variables      map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`
	CreatedAt      time.Time         `json:"createdAt" yaml:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt" yaml:"updatedAt"`
	LastExecutedAt *time.Time        `json:"lastExecutedAt,omitempty" yaml:"lastExecutedAt,omitempty"`
	History        []HistoryEntry    `json:"history,omitempty" yaml:"history,omitempty"`

	// issues collects decode problems so Validate can report them
	issues []string
}

// TestCase is one unit of execution bound to a script.
type TestCase struct {
	ID           string         `json:"id" yaml:"id"`
	Name         string         `json:"name" yaml:"name"`
	Description  string         `json:"description,omitempty" yaml:"description,omitempty"`
	Script       string         `json:"script" yaml:"script"`
	Enabled      bool           `json:"enabled" yaml:"enabled"`
	Order        int            `json:"order" yaml:"order"`
	Timeout      *time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	RetryCount   *int           `json:"retryCount,omitempty" yaml:"retryCount,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Tags         []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// EffectiveTimeout returns the case override, or the suite value when unset.
func (tc *TestCase) EffectiveTimeout(cfg Configuration) time.Duration {
	if tc.Timeout != nil {
		return *tc.Timeout
	}
	return cfg.Timeout
}

// EffectiveRetryCount returns the case override, or the suite value when unset.
func (tc *TestCase) EffectiveRetryCount(cfg Configuration) int {
	if tc.RetryCount != nil {
		return *tc.RetryCount
	}
	return cfg.RetryCount
}

// DisplayName returns the case name, falling back to its ID.
func (tc *TestCase) DisplayName() string {
	if tc.Name != "" {
		return tc.Name
	}
	return tc.ID
}

// HasAnyTag reports whether the case carries at least one of the given tags.
func (tc *TestCase) HasAnyTag(filters []string) bool {
	for _, filter := range filters {
		for _, tag := range tc.Tags {
			if tag == filter {
				return true
			}
		}
	}
	return false
}

// TestCase returns the case with the given ID.
func (s *Suite) TestCase(id string) (*TestCase, bool) {
	for _, tc := range s.TestCases {
		if tc.ID == id {
			return tc, true
		}
	}
	return nil, false
}

// EnabledTestCases returns the enabled cases sorted by ascending order.
// The suite itself is left untouched.
func (s *Suite) EnabledTestCases() []*TestCase {
	var cases []*TestCase
	for _, tc := range s.TestCases {
		if tc.Enabled {
			cases = append(cases, tc)
		}
	}
	sort.SliceStable(cases, func(i, j int) bool {
		return cases[i].Order < cases[j].Order
	})
	return cases
}

// Reorder sorts cases by their order value and re-indexes them 0..n-1.
// Applying it twice yields the same ordering.
func (s *Suite) Reorder() {
	sort.SliceStable(s.TestCases, func(i, j int) bool {
		return s.TestCases[i].Order < s.TestCases[j].Order
	})
	for i, tc := range s.TestCases {
		tc.Order = i
	}
}

// AddTestCase appends a case at the end of the suite.
func (s *Suite) AddTestCase(tc *TestCase) {
	s.Reorder()
	tc.Order = len(s.TestCases)
	s.TestCases = append(s.TestCases, tc)
	s.touch()
}

// RemoveTestCase deletes the case with the given ID.
func (s *Suite) RemoveTestCase(id string) error {
	s.Reorder()
	for i, tc := range s.TestCases {
		if tc.ID == id {
			s.TestCases = append(s.TestCases[:i], s.TestCases[i+1:]...)
			s.Reorder()
			s.touch()
			return nil
		}
	}
	return fmt.Errorf("test case %q not found", id)
}

// MoveTestCase moves the case with the given ID to position index.
// Out-of-range positions are clamped.
func (s *Suite) MoveTestCase(id string, index int) error {
	s.Reorder()
	from := -1
	for i, tc := range s.TestCases {
		if tc.ID == id {
			from = i
			break
		}
	}
	if from < 0 {
		return fmt.Errorf("test case %q not found", id)
	}

	if index < 0 {
		index = 0
	}
	if index >= len(s.TestCases) {
		index = len(s.TestCases) - 1
	}

	tc := s.TestCases[from]
	cases := append(s.TestCases[:from:from], s.TestCases[from+1:]...)
	cases = append(cases[:index], append([]*TestCase{tc}, cases[index:]...)...)
	s.TestCases = cases
	for i, c := range s.TestCases {
		c.Order = i
	}
	s.touch()
	return nil
}

func (s *Suite) touch() {
	s.UpdatedAt = time.Now()
}
