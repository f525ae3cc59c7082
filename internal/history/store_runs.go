package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"reelkey/internal/episodes"
	"reelkey/internal/services"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

const timeLayout = time.RFC3339Nano

// BeginRun inserts a running row for kind ("harvest" or "download"). The run
// id is taken from ctx when present so log lines and history rows agree.
func (s *Store) BeginRun(ctx context.Context, kind string) (*Run, error) {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return nil, errors.New("run kind is required")
	}
	id, ok := services.RunIDFromContext(ctx)
	if !ok {
		id = uuid.NewString()
	}
	run := &Run{
		ID:        id,
		Kind:      kind,
		Status:    RunRunning,
		StartedAt: time.Now().UTC(),
	}
	err := withBusyRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO runs (id, kind, status, started_at) VALUES (?, ?, ?, ?)`,
			run.ID, run.Kind, string(run.Status), run.StartedAt.Format(timeLayout),
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stores per-episode outcomes and final counts for run. A canceled
// ctx marks the run aborted but the write itself uses a background context so
// partial results still land.
func (s *Store) FinishRun(ctx context.Context, run *Run, results []episodes.Result) error {
	if run == nil {
		return errors.New("run is nil")
	}
	status := RunFinished
	if ctx.Err() != nil {
		status = RunAborted
	}
	writeCtx := context.WithoutCancel(ctx)

	summary := episodes.Summarize(results)
	run.Status = status
	run.FinishedAt = time.Now().UTC()
	run.Total = summary.Total
	run.Succeeded = summary.Succeeded
	run.Missing = summary.Missing
	run.Failed = summary.Failed
	run.Skipped = summary.Skipped

	return withBusyRetry(writeCtx, func() error {
		tx, err := s.db.BeginTx(writeCtx, nil)
		if err != nil {
			return fmt.Errorf("begin finish tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(writeCtx, `INSERT OR REPLACE INTO items
			(run_id, episode, key, status, error_kind, error_message, duration_ms, bytes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare item insert: %w", err)
		}
		defer stmt.Close()

		for _, r := range results {
			var kind, message sql.NullString
			if r.Err != nil {
				kind = sql.NullString{String: services.Kind(r.Err), Valid: true}
				message = sql.NullString{String: r.Err.Error(), Valid: true}
			}
			if _, err := stmt.ExecContext(writeCtx,
				run.ID, r.Index, r.Key, string(r.Status), kind, message,
				r.Duration.Milliseconds(), r.Bytes,
			); err != nil {
				return fmt.Errorf("insert item %s: %w", r.Index, err)
			}
		}

		res, err := tx.ExecContext(writeCtx, `UPDATE runs SET status = ?, finished_at = ?,
			total = ?, succeeded = ?, missing = ?, failed = ?, skipped = ? WHERE id = ?`,
			string(run.Status), run.FinishedAt.Format(timeLayout),
			run.Total, run.Succeeded, run.Missing, run.Failed, run.Skipped, run.ID,
		)
		if err != nil {
			return fmt.Errorf("update run: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
		}
		return tx.Commit()
	})
}

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, kind, status, started_at, finished_at, total, succeeded, missing, failed, skipped
		FROM runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun loads a single run by id or unique id prefix.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("run id is required")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, kind, status, started_at, finished_at, total, succeeded, missing, failed, skipped
		FROM runs WHERE id = ? OR id LIKE ? LIMIT 2`, id, id+"%")
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var found []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return &found[0], nil
	default:
		for i := range found {
			if found[i].ID == id {
				return &found[i], nil
			}
		}
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
}

// ListItems returns the recorded episodes for a run, in episode order.
func (s *Store) ListItems(ctx context.Context, runID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, episode, key, status, error_kind, error_message, duration_ms, bytes
		FROM items WHERE run_id = ? ORDER BY CAST(episode AS INTEGER), episode`, runID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			item       Item
			kind, msg  sql.NullString
			durationMS int64
		)
		if err := rows.Scan(&item.RunID, &item.Episode, &item.Key, &item.Status, &kind, &msg, &durationMS, &item.Bytes); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item.ErrorKind = kind.String
		item.ErrorMessage = msg.String
		item.Duration = time.Duration(durationMS) * time.Millisecond
		items = append(items, item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run      Run
		status   string
		started  string
		finished sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Kind, &status, &started, &finished,
		&run.Total, &run.Succeeded, &run.Missing, &run.Failed, &run.Skipped); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = RunStatus(status)
	if ts, err := time.Parse(timeLayout, started); err == nil {
		run.StartedAt = ts
	}
	if finished.Valid {
		if ts, err := time.Parse(timeLayout, finished.String); err == nil {
			run.FinishedAt = ts
		}
	}
	return run, nil
}
