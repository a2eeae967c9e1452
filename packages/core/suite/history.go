package suite

import "time"

// MaxHistory is the number of executions kept in a suite's history.
const MaxHistory = 10

// HistoryEntry summarizes one past execution of a suite.
type HistoryEntry struct {
	ExecutionID string        `json:"executionId" yaml:"executionId"`
	Status      Status        `json:"status" yaml:"status"`
	StartedAt   time.Time     `json:"startedAt" yaml:"startedAt"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
	Summary     Summary       `json:"summary" yaml:"summary"`
}

// RecordExecution prepends a history entry for result, trims the history to
// MaxHistory entries and updates the execution timestamps.
func (s *Suite) RecordExecution(result *ExecutionResult) {
	entry := HistoryEntry{
		ExecutionID: result.ID,
		Status:      result.Status,
		StartedAt:   result.StartedAt,
		Duration:    result.Duration,
		Summary:     result.Summary,
	}

	history := make([]HistoryEntry, 0, len(s.History)+1)
	history = append(history, entry)
	history = append(history, s.History...)
	if len(history) > MaxHistory {
		history = history[:MaxHistory]
	}
	s.History = history

	executedAt := result.StartedAt
	s.LastExecutedAt = &executedAt
	s.touch()
}
