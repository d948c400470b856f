// Package store declares interfaces for persisting session progress.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("progress record not found")

// RunStatus mirrors the session_runs status column.
type RunStatus string

// Session run statuses persisted in session_runs.status.
const (
	RunRunning RunStatus = "running"
	RunPaused  RunStatus = "paused"
	RunSuccess RunStatus = "success"
	RunStopped RunStatus = "stopped"
	RunError   RunStatus = "error"
)

// SessionRun models the session_runs table for API responses.
type SessionRun struct {
	// SessionID is the discovery session identifier shared with the
	// orchestrator.
	SessionID uuid.UUID
	// StartedAt captures when the run was first marked running.
	StartedAt time.Time
	// FinishedAt is nil until the run reaches a terminal status.
	FinishedAt *time.Time
	// Status is running/paused/success/stopped/error.
	Status RunStatus
	// ErrorMessage optionally stores the final failure reason.
	ErrorMessage *string
}

// GridProgress captures the latest per-session progress snapshot.
type GridProgress struct {
	// SessionID is the owning session.
	SessionID uuid.UUID
	// GridID is the tile whose completion produced this snapshot.
	GridID string
	// CompletedGrids and TotalGrids drive percent and ETA reporting.
	CompletedGrids int
	TotalGrids     int
	// ErroredGrids counts tiles that finished in the error status.
	ErroredGrids int
	// Found and Imported are session-cumulative business counts.
	Found    int
	Imported int
	// PercentComplete is 0-100 over grids.
	PercentComplete float64
	// ETASeconds is the projected remaining runtime, zero when unknown.
	ETASeconds int64
	// UpdatedAt is the snapshot timestamp.
	UpdatedAt time.Time
}

// ProgressRepository persists incremental session progress.
type ProgressRepository interface {
	// UpsertSessionStart inserts (or idempotently updates) started_at.
	UpsertSessionStart(ctx context.Context, sessionID uuid.UUID, startedAt time.Time) error
	// CompleteSession marks the run finished with the provided status.
	CompleteSession(ctx context.Context, sessionID uuid.UUID, finishedAt time.Time, status RunStatus, errMsg *string) error
	// PauseSession records a pause without finishing the run.
	PauseSession(ctx context.Context, sessionID uuid.UUID, at time.Time) error
	// UpsertGridProgress replaces the session's latest progress snapshot.
	UpsertGridProgress(ctx context.Context, gp GridProgress) error

	// GetSessionRun loads a single run or returns ErrNotFound.
	GetSessionRun(ctx context.Context, sessionID uuid.UUID) (SessionRun, error)
	// ListSessionRuns returns runs filtered by optional status plus
	// limit/offset.
	ListSessionRuns(ctx context.Context, status *RunStatus, limit, offset int) ([]SessionRun, error)
	// GetGridProgress loads the latest snapshot or returns ErrNotFound.
	GetGridProgress(ctx context.Context, sessionID uuid.UUID) (GridProgress, error)
}
