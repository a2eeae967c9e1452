// Package db persists execution results in SQLite so runs can be compared
// over time.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
)

// ErrNotFound is returned by Get for an unknown execution ID.
var ErrNotFound = errors.New("execution not found")

const schema = `
CREATE TABLE IF NOT EXISTS executions (
	id          TEXT PRIMARY KEY,
	suite_id    TEXT NOT NULL,
	suite_name  TEXT NOT NULL,
	status      TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	total       INTEGER NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	errors      INTEGER NOT NULL,
	result      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_executions_suite ON executions (suite_id, started_at DESC);
`

// Store is a SQLite-backed execution history.
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// Open opens (creating if needed) the store described by connectionString.
// Accepted forms: sqlite://path/to/runs.db, sqlite:./runs.db, or a bare path.
func Open(connectionString string) (*Store, error) {
	dsn, err := parseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, queryTimeout: 30 * time.Second}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save stores r, replacing any execution with the same ID.
func (s *Store) Save(ctx context.Context, r *suite.ExecutionResult) error {
	if !r.Status.Terminal() {
		return fmt.Errorf("execution %s has not finished (status %q)", r.ID, r.Status)
	}
	blob, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding execution %s: %w", r.ID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO executions
			(id, suite_id, suite_name, status, started_at, duration_ms, total, passed, failed, skipped, errors, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SuiteID, r.SuiteName, string(r.Status), r.StartedAt.UnixNano(), r.Duration.Milliseconds(),
		r.Summary.Total, r.Summary.Passed, r.Summary.Failed, r.Summary.Skipped, r.Summary.Errors,
		string(blob))
	if err != nil {
		return fmt.Errorf("saving execution %s: %w", r.ID, err)
	}
	return nil
}

// Get loads one execution.
func (s *Store) Get(ctx context.Context, id string) (*suite.ExecutionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var blob string
	err := s.db.QueryRowContext(ctx, `SELECT result FROM executions WHERE id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return decode(blob)
}

// Recent returns up to limit executions, newest first. An empty suiteID
// matches every suite; a limit of zero or less means no limit.
func (s *Store) Recent(ctx context.Context, suiteID string, limit int) ([]*suite.ExecutionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := `SELECT result FROM executions`
	var args []any
	if suiteID != "" {
		query += ` WHERE suite_id = ?`
		args = append(args, suiteID)
	}
	query += ` ORDER BY started_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var results []*suite.ExecutionResult
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r, err := decode(blob)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return results, nil
}

// Prune keeps the newest keep executions of a suite and deletes the rest.
// It returns the number of deleted rows.
func (s *Store) Prune(ctx context.Context, suiteID string, keep int) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM executions
		WHERE suite_id = ? AND id NOT IN (
			SELECT id FROM executions WHERE suite_id = ? ORDER BY started_at DESC LIMIT ?
		)`, suiteID, suiteID, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning executions: %w", err)
	}
	return res.RowsAffected()
}

func decode(blob string) (*suite.ExecutionResult, error) {
	var r suite.ExecutionResult
	if err := json.Unmarshal([]byte(blob), &r); err != nil {
		return nil, fmt.Errorf("decoding stored execution: %w", err)
	}
	return &r, nil
}

// parseConnectionString turns a connection string into a sqlite3 DSN.
// Supported formats:
// - sqlite://path/to/db.sqlite
// - sqlite:./test.db
// - path/to/db.sqlite
func parseConnectionString(connStr string) (string, error) {
	connStr = strings.TrimSpace(connStr)

	switch {
	case connStr == "":
		return "", fmt.Errorf("empty connection string")
	case strings.HasPrefix(connStr, "sqlite://"):
		return strings.TrimPrefix(connStr, "sqlite://"), nil
	case strings.HasPrefix(connStr, "sqlite:"):
		return strings.TrimPrefix(connStr, "sqlite:"), nil
	case strings.Contains(connStr, "://"):
		scheme, _, _ := strings.Cut(connStr, "://")
		return "", fmt.Errorf("unsupported database scheme: %s", scheme)
	}
	return connStr, nil
}
