package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nichelabs/discovery-engine/internal/progress"
	"github.com/nichelabs/discovery-engine/internal/store"
)

type fakeRepo struct {
	starts    []uuid.UUID
	pauses    []uuid.UUID
	completes []store.RunStatus
	grid      []store.GridProgress
}

func (f *fakeRepo) UpsertSessionStart(_ context.Context, id uuid.UUID, _ time.Time) error {
	f.starts = append(f.starts, id)
	return nil
}

func (f *fakeRepo) CompleteSession(_ context.Context, _ uuid.UUID, _ time.Time, status store.RunStatus, _ *string) error {
	f.completes = append(f.completes, status)
	return nil
}

func (f *fakeRepo) PauseSession(_ context.Context, id uuid.UUID, _ time.Time) error {
	f.pauses = append(f.pauses, id)
	return nil
}

func (f *fakeRepo) UpsertGridProgress(_ context.Context, gp store.GridProgress) error {
	f.grid = append(f.grid, gp)
	return nil
}

func (f *fakeRepo) GetSessionRun(context.Context, uuid.UUID) (store.SessionRun, error) {
	return store.SessionRun{}, store.ErrNotFound
}

func (f *fakeRepo) ListSessionRuns(context.Context, *store.RunStatus, int, int) ([]store.SessionRun, error) {
	return nil, nil
}

func (f *fakeRepo) GetGridProgress(context.Context, uuid.UUID) (store.GridProgress, error) {
	return store.GridProgress{}, store.ErrNotFound
}

func gridEvent(sessionID uuid.UUID, gridID string, completed int, ts time.Time) progress.Event {
	return progress.Event{
		SessionID: progress.SessionIDBytes(sessionID.String()),
		TS:        ts,
		Stage:     progress.StageGridDone,
		GridID:    gridID,
		Snapshot: progress.Snapshot{
			TotalGrids:     10,
			CompletedGrids: completed,
			Found:          completed * 20,
			ETA:            90 * time.Second,
		},
	}
}

// TestStoreSinkCollapsesGridSnapshots ensures one batch writes only the
// latest snapshot per session.
func TestStoreSinkCollapsesGridSnapshots(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	sink := NewStoreSink(repo, nil)
	sessionID := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := sink.Consume(context.Background(), []progress.Event{
		gridEvent(sessionID, "grid-0000", 1, base),
		gridEvent(sessionID, "grid-0001", 2, base.Add(time.Minute)),
		gridEvent(sessionID, "grid-0002", 3, base.Add(2*time.Minute)),
	})
	require.NoError(t, err)
	require.Len(t, repo.grid, 1)
	require.Equal(t, "grid-0002", repo.grid[0].GridID)
	require.Equal(t, 3, repo.grid[0].CompletedGrids)
	require.Equal(t, int64(90), repo.grid[0].ETASeconds)
}

// TestStoreSinkLifecycleEvents verifies start, pause, and completion flow to
// the repository.
func TestStoreSinkLifecycleEvents(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	sink := NewStoreSink(repo, nil)
	sessionID := uuid.New()
	now := time.Now()
	idBytes := progress.SessionIDBytes(sessionID.String())

	err := sink.Consume(context.Background(), []progress.Event{
		{SessionID: idBytes, TS: now, Stage: progress.StageSessionStart},
		{SessionID: idBytes, TS: now.Add(time.Minute), Stage: progress.StageSessionPause},
		{SessionID: idBytes, TS: now.Add(2 * time.Minute), Stage: progress.StageSessionResume},
		{SessionID: idBytes, TS: now.Add(3 * time.Minute), Stage: progress.StageSessionError, Note: "quota exceeded"},
	})
	require.NoError(t, err)
	require.Len(t, repo.starts, 2)
	require.Len(t, repo.pauses, 1)
	require.Equal(t, []store.RunStatus{store.RunError}, repo.completes)
}
