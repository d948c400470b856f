package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nichelabs/discovery-engine/internal/store"
)

// ProgressStore implements store.ProgressRepository using Postgres.
type ProgressStore struct {
	pool querier
}

// NewProgressStoreWithPool constructs a store from an existing pool.
func NewProgressStoreWithPool(pool querier) (*ProgressStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &ProgressStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *ProgressStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// UpsertSessionStart inserts or revives a session run as running.
func (s *ProgressStore) UpsertSessionStart(ctx context.Context, sessionID uuid.UUID, startedAt time.Time) error {
	query := `
		INSERT INTO session_runs (session_id, started_at, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE
		SET status = EXCLUDED.status, finished_at = NULL;
	`
	if _, err := s.pool.Exec(ctx, query, sessionID, startedAt, store.RunRunning); err != nil {
		return fmt.Errorf("upsert session start: %w", err)
	}
	return nil
}

// CompleteSession marks a run finished with a status and optional error.
func (s *ProgressStore) CompleteSession(
	ctx context.Context,
	sessionID uuid.UUID,
	finishedAt time.Time,
	status store.RunStatus,
	errMsg *string,
) error {
	query := `
		UPDATE session_runs
		SET finished_at = $1, status = $2, error_message = $3
		WHERE session_id = $4;
	`
	if _, err := s.pool.Exec(ctx, query, finishedAt, status, errMsg, sessionID); err != nil {
		return fmt.Errorf("complete session run: %w", err)
	}
	return nil
}

// PauseSession records a pause without finishing the run.
func (s *ProgressStore) PauseSession(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	query := `
		UPDATE session_runs
		SET status = $1
		WHERE session_id = $2;
	`
	if _, err := s.pool.Exec(ctx, query, store.RunPaused, sessionID); err != nil {
		return fmt.Errorf("pause session run: %w", err)
	}
	return nil
}

// UpsertGridProgress replaces the session's latest progress snapshot.
func (s *ProgressStore) UpsertGridProgress(ctx context.Context, gp store.GridProgress) error {
	query := `
		INSERT INTO session_progress
			(session_id, grid_id, completed_grids, total_grids, errored_grids,
			 found, imported, percent_complete, eta_seconds, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (session_id) DO UPDATE
		SET grid_id = EXCLUDED.grid_id,
			completed_grids = EXCLUDED.completed_grids,
			total_grids = EXCLUDED.total_grids,
			errored_grids = EXCLUDED.errored_grids,
			found = EXCLUDED.found,
			imported = EXCLUDED.imported,
			percent_complete = EXCLUDED.percent_complete,
			eta_seconds = EXCLUDED.eta_seconds,
			updated_at = EXCLUDED.updated_at;
	`
	_, err := s.pool.Exec(
		ctx,
		query,
		gp.SessionID,
		gp.GridID,
		gp.CompletedGrids,
		gp.TotalGrids,
		gp.ErroredGrids,
		gp.Found,
		gp.Imported,
		gp.PercentComplete,
		gp.ETASeconds,
		gp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert grid progress: %w", err)
	}
	return nil
}

// GetSessionRun retrieves a single session run by session id.
func (s *ProgressStore) GetSessionRun(ctx context.Context, sessionID uuid.UUID) (store.SessionRun, error) {
	query := `
		SELECT session_id, started_at, finished_at, status, error_message
		FROM session_runs
		WHERE session_id = $1;
	`
	var run store.SessionRun
	err := s.pool.QueryRow(ctx, query, sessionID).Scan(
		&run.SessionID,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Status,
		&run.ErrorMessage,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.SessionRun{}, store.ErrNotFound
		}
		return store.SessionRun{}, fmt.Errorf("get session run: %w", err)
	}
	return run, nil
}

// ListSessionRuns retrieves session runs, with optional status filtering.
func (s *ProgressStore) ListSessionRuns(
	ctx context.Context,
	status *store.RunStatus,
	limit,
	offset int,
) ([]store.SessionRun, error) {
	query := `
		SELECT session_id, started_at, finished_at, status, error_message
		FROM session_runs
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3;
	`
	rows, err := s.pool.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list session runs: %w", err)
	}
	defer rows.Close()

	var runs []store.SessionRun
	for rows.Next() {
		var run store.SessionRun
		if err := rows.Scan(
			&run.SessionID,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Status,
			&run.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("scan session run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session run rows: %w", err)
	}
	return runs, nil
}

// GetGridProgress loads the latest snapshot for one session.
func (s *ProgressStore) GetGridProgress(ctx context.Context, sessionID uuid.UUID) (store.GridProgress, error) {
	query := `
		SELECT session_id, grid_id, completed_grids, total_grids, errored_grids,
			found, imported, percent_complete, eta_seconds, updated_at
		FROM session_progress
		WHERE session_id = $1;
	`
	var gp store.GridProgress
	err := s.pool.QueryRow(ctx, query, sessionID).Scan(
		&gp.SessionID,
		&gp.GridID,
		&gp.CompletedGrids,
		&gp.TotalGrids,
		&gp.ErroredGrids,
		&gp.Found,
		&gp.Imported,
		&gp.PercentComplete,
		&gp.ETASeconds,
		&gp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.GridProgress{}, store.ErrNotFound
		}
		return store.GridProgress{}, fmt.Errorf("get grid progress: %w", err)
	}
	return gp, nil
}
