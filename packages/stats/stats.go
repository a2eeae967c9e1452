// Package stats summarizes case durations and outcomes across a set of
// past executions.
package stats

import (
	"sort"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
)

// durations are recorded in microseconds, up to ten minutes
const (
	minTrackable = 1
	maxTrackable = 600_000_000
	sigFigures   = 3
)

// Latency holds duration percentiles for a group of case runs.
type Latency struct {
	Count int64
	Min   time.Duration
	Max   time.Duration
	Mean  time.Duration
	P50   time.Duration
	P95   time.Duration
	P99   time.Duration
}

// CaseStats aggregates one test case across executions.
type CaseStats struct {
	ID       string
	Name     string
	Runs     int
	Passed   int
	Failed   int
	Errors   int
	Skipped  int
	Attempts int
	Latency  Latency
}

// PassRate is the share of non-skipped runs that passed, in [0, 1].
func (c *CaseStats) PassRate() float64 {
	return rate(c.Passed, c.Runs-c.Skipped)
}

// Report is the aggregate over a set of executions.
type Report struct {
	Executions int
	ByStatus   map[suite.Status]int
	Overall    Latency
	// Cases is sorted by descending p95 latency
	Cases []*CaseStats
}

// PassRate is the share of executions whose status is passed.
func (r *Report) PassRate() float64 {
	return rate(r.ByStatus[suite.StatusPassed], r.Executions)
}

// Durations builds a report from results. Skipped cases count towards
// outcomes but not towards latency.
func Durations(results []*suite.ExecutionResult) *Report {
	report := &Report{
		Executions: len(results),
		ByStatus:   make(map[suite.Status]int),
	}

	overall := newHistogram()
	cases := make(map[string]*CaseStats)
	histograms := make(map[string]*hdrhistogram.Histogram)

	for _, exec := range results {
		report.ByStatus[exec.Status]++

		for _, r := range exec.Results {
			cs, ok := cases[r.TestCaseID]
			if !ok {
				cs = &CaseStats{ID: r.TestCaseID, Name: r.TestCaseName}
				cases[r.TestCaseID] = cs
				histograms[r.TestCaseID] = newHistogram()
			}
			cs.Runs++
			cs.Attempts += r.Attempts

			switch r.Status {
			case suite.StatusPassed:
				cs.Passed++
			case suite.StatusFailed:
				cs.Failed++
			case suite.StatusError:
				cs.Errors++
			case suite.StatusSkipped:
				cs.Skipped++
				continue
			}

			record(overall, r.Duration)
			record(histograms[r.TestCaseID], r.Duration)
		}
	}

	report.Overall = latency(overall)
	for id, cs := range cases {
		cs.Latency = latency(histograms[id])
		report.Cases = append(report.Cases, cs)
	}
	sort.Slice(report.Cases, func(i, j int) bool {
		if report.Cases[i].Latency.P95 != report.Cases[j].Latency.P95 {
			return report.Cases[i].Latency.P95 > report.Cases[j].Latency.P95
		}
		return report.Cases[i].ID < report.Cases[j].ID
	})

	return report
}

func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(minTrackable, maxTrackable, sigFigures)
}

func record(h *hdrhistogram.Histogram, d time.Duration) {
	us := d.Microseconds()
	if us < minTrackable {
		us = minTrackable
	}
	if us > maxTrackable {
		us = maxTrackable
	}
	_ = h.RecordValue(us)
}

func latency(h *hdrhistogram.Histogram) Latency {
	if h.TotalCount() == 0 {
		return Latency{}
	}
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return Latency{
		Count: h.TotalCount(),
		Min:   us(h.Min()),
		Max:   us(h.Max()),
		Mean:  time.Duration(h.Mean() * float64(time.Microsecond)),
		P50:   us(h.ValueAtQuantile(50)),
		P95:   us(h.ValueAtQuantile(95)),
		P99:   us(h.ValueAtQuantile(99)),
	}
}

func rate(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) / float64(total)
}
