package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"studysync/internal/models"
)

const runColumns = `id, job, trigger, started_at, finished_at,
	fetched, created, updated, skipped_cache, skipped_store, failed, archived, error`

// RecordRun inserts a run, or overwrites it when the id already exists. The
// scheduler calls it once when a run starts and again when it finishes.
func (d *DB) RecordRun(ctx context.Context, run *models.SyncRun) error {
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO sync_runs (`+runColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			fetched = EXCLUDED.fetched,
			created = EXCLUDED.created,
			updated = EXCLUDED.updated,
			skipped_cache = EXCLUDED.skipped_cache,
			skipped_store = EXCLUDED.skipped_store,
			failed = EXCLUDED.failed,
			archived = EXCLUDED.archived,
			error = EXCLUDED.error
	`, run.ID, run.Job, run.Trigger, run.StartedAt, run.FinishedAt,
		run.Fetched, run.Created, run.Updated, run.SkippedCache, run.SkippedStore,
		run.Failed, run.Archived, run.Error)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun returns a run by id.
func (d *DB) GetRun(ctx context.Context, id uuid.UUID) (*models.SyncRun, error) {
	row := d.Pool.QueryRow(ctx, `SELECT `+runColumns+` FROM sync_runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRecentRuns returns up to limit runs, newest first.
func (d *DB) ListRecentRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.Pool.Query(ctx, `
		SELECT `+runColumns+`
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []models.SyncRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// CountRuns returns run totals grouped by job and result for metrics export.
func (d *DB) CountRuns(ctx context.Context) ([]models.RunCount, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT job,
			CASE
				WHEN finished_at IS NULL THEN 'running'
				WHEN error IS NULL THEN 'success'
				ELSE 'failure'
			END AS result,
			COUNT(*)
		FROM sync_runs
		GROUP BY 1, 2
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []models.RunCount
	for rows.Next() {
		var c models.RunCount
		if err := rows.Scan(&c.Job, &c.Result, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func scanRun(row pgx.Row) (*models.SyncRun, error) {
	var r models.SyncRun
	err := row.Scan(&r.ID, &r.Job, &r.Trigger, &r.StartedAt, &r.FinishedAt,
		&r.Fetched, &r.Created, &r.Updated, &r.SkippedCache, &r.SkippedStore,
		&r.Failed, &r.Archived, &r.Error)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
