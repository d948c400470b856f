// Package memory provides an in-memory ProgressRepository for tests and
// local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nichelabs/discovery-engine/internal/store"
)

// Repository implements store.ProgressRepository with maps.
type Repository struct {
	mu       sync.RWMutex
	runs     map[uuid.UUID]store.SessionRun
	progress map[uuid.UUID]store.GridProgress
}

// New returns an empty Repository.
func New() *Repository {
	return &Repository{
		runs:     make(map[uuid.UUID]store.SessionRun),
		progress: make(map[uuid.UUID]store.GridProgress),
	}
}

// UpsertSessionStart implements store.ProgressRepository.
func (r *Repository) UpsertSessionStart(_ context.Context, sessionID uuid.UUID, startedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[sessionID]
	if !ok {
		run = store.SessionRun{SessionID: sessionID, StartedAt: startedAt}
	}
	run.Status = store.RunRunning
	run.FinishedAt = nil
	run.ErrorMessage = nil
	r.runs[sessionID] = run
	return nil
}

// CompleteSession implements store.ProgressRepository.
func (r *Repository) CompleteSession(_ context.Context, sessionID uuid.UUID, finishedAt time.Time, status store.RunStatus, errMsg *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[sessionID]
	if !ok {
		run = store.SessionRun{SessionID: sessionID, StartedAt: finishedAt}
	}
	run.FinishedAt = &finishedAt
	run.Status = status
	run.ErrorMessage = errMsg
	r.runs[sessionID] = run
	return nil
}

// PauseSession implements store.ProgressRepository.
func (r *Repository) PauseSession(_ context.Context, sessionID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[sessionID]
	if !ok {
		run = store.SessionRun{SessionID: sessionID, StartedAt: at}
	}
	run.Status = store.RunPaused
	r.runs[sessionID] = run
	return nil
}

// UpsertGridProgress implements store.ProgressRepository.
func (r *Repository) UpsertGridProgress(_ context.Context, gp store.GridProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress[gp.SessionID] = gp
	return nil
}

// GetSessionRun implements store.ProgressRepository.
func (r *Repository) GetSessionRun(_ context.Context, sessionID uuid.UUID) (store.SessionRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[sessionID]
	if !ok {
		return store.SessionRun{}, store.ErrNotFound
	}
	return run, nil
}

// ListSessionRuns implements store.ProgressRepository. Runs are returned
// newest first.
func (r *Repository) ListSessionRuns(_ context.Context, status *store.RunStatus, limit, offset int) ([]store.SessionRun, error) {
	r.mu.RLock()
	all := make([]store.SessionRun, 0, len(r.runs))
	for _, run := range r.runs {
		if status != nil && run.Status != *status {
			continue
		}
		all = append(all, run)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].StartedAt.After(all[j].StartedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// GetGridProgress implements store.ProgressRepository.
func (r *Repository) GetGridProgress(_ context.Context, sessionID uuid.UUID) (store.GridProgress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gp, ok := r.progress[sessionID]
	if !ok {
		return store.GridProgress{}, store.ErrNotFound
	}
	return gp, nil
}
