package sinks

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nichelabs/discovery-engine/internal/progress"
	"github.com/nichelabs/discovery-engine/internal/store"
)

// StoreSink persists progress via a store.ProgressRepository. Grid snapshots
// within one batch collapse to the latest per session to reduce write
// amplification.
type StoreSink struct {
	repo   store.ProgressRepository
	logger *zap.Logger
}

// NewStoreSink constructs a StoreSink for the provided repository.
func NewStoreSink(repo store.ProgressRepository, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{repo: repo, logger: logger}
}

// Consume forwards lifecycle events and the latest grid snapshot per session
// to the repository. It respects ctx deadlines and returns repository errors
// verbatim.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.repo == nil {
		return nil
	}
	latest := make(map[uuid.UUID]progress.Event)

	for _, evt := range batch {
		sessionID := evt.SessionUUID()
		switch evt.Stage {
		case progress.StageSessionStart, progress.StageSessionResume:
			if err := s.repo.UpsertSessionStart(ctx, sessionID, evt.TS); err != nil {
				return fmt.Errorf("upsert session start: %w", err)
			}
		case progress.StageSessionPause:
			if err := s.repo.PauseSession(ctx, sessionID, evt.TS); err != nil {
				return fmt.Errorf("pause session: %w", err)
			}
		case progress.StageSessionDone:
			if err := s.repo.CompleteSession(ctx, sessionID, evt.TS, store.RunSuccess, nil); err != nil {
				return fmt.Errorf("complete session: %w", err)
			}
		case progress.StageSessionError:
			var note *string
			if evt.Note != "" {
				note = &evt.Note
			}
			if err := s.repo.CompleteSession(ctx, sessionID, evt.TS, store.RunError, note); err != nil {
				return fmt.Errorf("complete session: %w", err)
			}
		case progress.StageGridDone:
			prev, ok := latest[sessionID]
			if !ok || evt.TS.After(prev.TS) {
				latest[sessionID] = evt
			}
		}
	}

	for sessionID, evt := range latest {
		gp := store.GridProgress{
			SessionID:       sessionID,
			GridID:          evt.GridID,
			CompletedGrids:  evt.Snapshot.CompletedGrids,
			TotalGrids:      evt.Snapshot.TotalGrids,
			ErroredGrids:    evt.Snapshot.ErroredGrids,
			Found:           evt.Snapshot.Found,
			Imported:        evt.Snapshot.Imported,
			PercentComplete: evt.Snapshot.PercentComplete,
			ETASeconds:      int64(evt.Snapshot.ETA.Seconds()),
			UpdatedAt:       evt.TS,
		}
		if err := s.repo.UpsertGridProgress(ctx, gp); err != nil {
			return fmt.Errorf("upsert grid progress: %w", err)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *StoreSink) Close(context.Context) error {
	return nil
}
