package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/catalog-steward/internal/common"
	"github.com/Veraticus/catalog-steward/internal/model"
)

// StartRun inserts a run row and assigns it an id if it has none.
func (s *SQLiteStorage) StartRun(ctx context.Context, run *model.Run) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, mode, dry_run, started_at)
		VALUES (?, ?, ?, ?)
	`, run.ID, string(run.Mode), run.DryRun, run.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// FinishRun stores the final counters and stop reason of a run.
func (s *SQLiteStorage) FinishRun(ctx context.Context, run *model.Run) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}
	if err := validateString(run.ID, "run.ID"); err != nil {
		return err
	}
	if run.FinishedAt == nil {
		now := time.Now()
		run.FinishedAt = &now
	}

	c := run.Counters
	result, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, stop_reason = ?, processed = ?, approved = ?,
			flagged = ?, skipped = ?, stuck = ?, dry_run_previewed = ?
		WHERE id = ?
	`, run.FinishedAt.UTC(), run.StopReason, c.Processed, c.Approved,
		c.Flagged, c.Skipped, c.Stuck, c.DryRun, run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run %s: %w", run.ID, common.ErrNotFound)
	}
	return nil
}

// GetRun returns one run by id.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, runColumns+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *SQLiteStorage) RecentRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, runColumns+` ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

const runColumns = `
	SELECT id, mode, dry_run, started_at, finished_at, stop_reason,
		processed, approved, flagged, skipped, stuck, dry_run_previewed
	FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*model.Run, error) {
	var (
		run        model.Run
		mode       string
		finishedAt sql.NullTime
		stopReason sql.NullString
	)
	err := row.Scan(&run.ID, &mode, &run.DryRun, &run.StartedAt, &finishedAt, &stopReason,
		&run.Counters.Processed, &run.Counters.Approved, &run.Counters.Flagged,
		&run.Counters.Skipped, &run.Counters.Stuck, &run.Counters.DryRun)
	if err != nil {
		return nil, err
	}
	run.Mode = model.RunMode(mode)
	run.StopReason = stopReason.String
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
