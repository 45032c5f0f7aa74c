// Package postgres provides a Postgres-backed job store for deployments that
// keep job records in a relational table instead of a document database.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kbsearch/crawl-worker/internal/jobs"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool for the job table.
type Config struct {
	DSN   string
	Table string
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store reads and updates job rows. The expected schema is:
//
//	CREATE TABLE jobs (
//		id          TEXT PRIMARY KEY,
//		status      TEXT NOT NULL,
//		input_data  TEXT NOT NULL,
//		result_data JSONB,
//		errors      TEXT[],
//		message     TEXT,
//		updated_at  TIMESTAMPTZ
//	);
type Store struct {
	pool  querier
	table string
}

// New connects a pool and returns a Store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("jobs.postgres.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "jobs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, table: table}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool querier, table string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "jobs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: pool, table: table}, nil
}

// Get fetches the job row.
func (s *Store) Get(ctx context.Context, id string) (jobs.Record, error) {
	query := fmt.Sprintf(
		`SELECT status, input_data, COALESCE(message, ''), COALESCE(errors, '{}') FROM %s WHERE id = $1`,
		s.table,
	)

	var (
		statusText string
		rec        jobs.Record
	)
	row := s.pool.QueryRow(ctx, query, id)
	if err := row.Scan(&statusText, &rec.InputData, &rec.Message, &rec.Errors); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return jobs.Record{}, fmt.Errorf("job %s: %w", id, jobs.ErrNotFound)
		}
		return jobs.Record{}, fmt.Errorf("get job %s: %w", id, err)
	}
	rec.ID = id
	rec.Status = jobs.Status(statusText)
	return rec, nil
}

// MarkActive transitions the row to the active status.
func (s *Store) MarkActive(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET status = $2, updated_at = now() WHERE id = $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, id, string(jobs.StatusActive))
	if err != nil {
		return fmt.Errorf("mark job %s active: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s: %w", id, jobs.ErrNotFound)
	}
	return nil
}

// Complete writes results, message and succeeded status in one statement.
func (s *Store) Complete(ctx context.Context, id string, docs []jobs.ScrapedDocument, message string) error {
	if docs == nil {
		docs = []jobs.ScrapedDocument{}
	}
	resultJSON, err := json.Marshal(map[string]any{"scraped_documents": docs})
	if err != nil {
		return fmt.Errorf("marshal scraped documents: %w", err)
	}

	query := fmt.Sprintf(
		`UPDATE %s SET status = $2, result_data = $3, message = $4, updated_at = now() WHERE id = $1`,
		s.table,
	)
	tag, err := s.pool.Exec(ctx, query, id, string(jobs.StatusSucceeded), resultJSON, message)
	if err != nil {
		return fmt.Errorf("complete job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s: %w", id, jobs.ErrNotFound)
	}
	return nil
}

// Fail appends the error and sets failed status in one statement.
func (s *Store) Fail(ctx context.Context, id string, errMsg string) error {
	query := fmt.Sprintf(
		`UPDATE %s SET status = $2, errors = array_append(COALESCE(errors, '{}'), $3), message = $3, updated_at = now() WHERE id = $1`,
		s.table,
	)
	tag, err := s.pool.Exec(ctx, query, id, string(jobs.StatusFailed), errMsg)
	if err != nil {
		return fmt.Errorf("fail job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s: %w", id, jobs.ErrNotFound)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
