package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InsertRun persists a collection run record and fills in its identifier.
func (s *Store) InsertRun(ctx context.Context, run *CollectionRun) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO collection_runs (
            started_at, finished_at, trigger_kind, mode, collected,
            queries_succeeded, queries_failed, api_calls, error_count
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		string(run.Trigger),
		run.Mode,
		run.Collected,
		run.QueriesSucceeded,
		run.QueriesFailed,
		run.APICalls,
		run.ErrorCount,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	run.ID = id
	return nil
}

// RecentRuns returns the newest collection runs, most recent first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*CollectionRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, started_at, finished_at, trigger_kind, mode, collected,
                queries_succeeded, queries_failed, api_calls, error_count
         FROM collection_runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	var runs []*CollectionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunSummarySince aggregates run counters over the trailing window.
func (s *Store) RunSummarySince(ctx context.Context, since time.Time) (*RunSummary, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1), COALESCE(SUM(collected), 0), COALESCE(SUM(queries_succeeded), 0),
                COALESCE(SUM(queries_failed), 0), COALESCE(SUM(api_calls), 0),
                COALESCE(SUM(error_count), 0)
         FROM collection_runs WHERE started_at >= ?`,
		since.UTC().Format(time.RFC3339Nano),
	)
	summary := &RunSummary{}
	if err := row.Scan(
		&summary.Runs,
		&summary.Collected,
		&summary.QueriesSucceeded,
		&summary.QueriesFailed,
		&summary.APICalls,
		&summary.ErrorCount,
	); err != nil {
		return nil, fmt.Errorf("run summary: %w", err)
	}
	return summary, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*CollectionRun, error) {
	var (
		run         CollectionRun
		startedRaw  string
		finishedRaw string
		trigger     string
	)
	if err := scanner.Scan(
		&run.ID,
		&startedRaw,
		&finishedRaw,
		&trigger,
		&run.Mode,
		&run.Collected,
		&run.QueriesSucceeded,
		&run.QueriesFailed,
		&run.APICalls,
		&run.ErrorCount,
	); err != nil {
		return nil, err
	}
	run.Trigger = Trigger(trigger)
	run.StartedAt = parseTimestamp(sql.NullString{String: startedRaw, Valid: true})
	run.FinishedAt = parseTimestamp(sql.NullString{String: finishedRaw, Valid: true})
	return &run, nil
}
