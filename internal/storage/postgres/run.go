package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/bianchenglequ/OneClick/internal/domain"
)

// RunStore persists settled sync batches. History is append-only; nothing
// in the sync path ever reads it back.
type RunStore struct {
	db *sqlx.DB
}

func NewRunStore(db *sqlx.DB) *RunStore {
	return &RunStore{db: db}
}

// SaveRun writes one batch and its per-platform results in a single
// transaction.
func (s *RunStore) SaveRun(ctx context.Context, status *domain.SyncStatus) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var runID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO sync_runs (started_at, finished_at, total, completed, failed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		status.StartTime,
		status.EndTime,
		status.Total,
		status.Completed,
		status.Failed,
	).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("insert sync run: %w", err)
	}

	for _, result := range status.Results {
		var data []byte
		if result.Data != nil {
			if data, err = json.Marshal(result.Data); err != nil {
				data = nil
			}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sync_results (run_id, platform, success, duplicate, message, status_code, data)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			runID,
			result.Platform,
			result.Success,
			result.Duplicate,
			result.Message,
			result.StatusCode,
			data,
		)
		if err != nil {
			return 0, fmt.Errorf("insert sync result for %s: %w", result.Platform, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return runID, nil
}

// GetRun loads one batch with its results, most useful for operator
// tooling and tests.
func (s *RunStore) GetRun(ctx context.Context, id int64) (*domain.SyncRun, error) {
	var run domain.SyncRun
	err := s.db.GetContext(ctx, &run, `
		SELECT id, started_at, finished_at, total, completed, failed
		FROM sync_runs WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("select sync run %d: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT platform, success, duplicate, message, status_code
		FROM sync_results WHERE run_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("select sync results for run %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var r domain.SyncResult
		if err := rows.Scan(&r.Platform, &r.Success, &r.Duplicate, &r.Message, &r.StatusCode); err != nil {
			return nil, err
		}
		run.Results = append(run.Results, r)
	}
	return &run, rows.Err()
}

// RecentRuns returns the latest batches without their per-platform results.
func (s *RunStore) RecentRuns(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	var runs []domain.SyncRun
	err := s.db.SelectContext(ctx, &runs, `
		SELECT id, started_at, finished_at, total, completed, failed
		FROM sync_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select recent runs: %w", err)
	}
	return runs, nil
}
