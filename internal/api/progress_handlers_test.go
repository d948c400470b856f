package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nichelabs/discovery-engine/internal/store"
)

type fakeProgressRepo struct {
	runs     map[uuid.UUID]store.SessionRun
	progress map[uuid.UUID]store.GridProgress
	listErr  error
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{
		runs:     make(map[uuid.UUID]store.SessionRun),
		progress: make(map[uuid.UUID]store.GridProgress),
	}
}

func (r *fakeProgressRepo) UpsertSessionStart(context.Context, uuid.UUID, time.Time) error {
	return nil
}

func (r *fakeProgressRepo) CompleteSession(context.Context, uuid.UUID, time.Time, store.RunStatus, *string) error {
	return nil
}

func (r *fakeProgressRepo) PauseSession(context.Context, uuid.UUID, time.Time) error {
	return nil
}

func (r *fakeProgressRepo) UpsertGridProgress(context.Context, store.GridProgress) error {
	return nil
}

func (r *fakeProgressRepo) GetSessionRun(_ context.Context, id uuid.UUID) (store.SessionRun, error) {
	run, ok := r.runs[id]
	if !ok {
		return store.SessionRun{}, store.ErrNotFound
	}
	return run, nil
}

func (r *fakeProgressRepo) ListSessionRuns(_ context.Context, status *store.RunStatus, limit, _ int) ([]store.SessionRun, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []store.SessionRun
	for _, run := range r.runs {
		if status != nil && run.Status != *status {
			continue
		}
		out = append(out, run)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeProgressRepo) GetGridProgress(_ context.Context, id uuid.UUID) (store.GridProgress, error) {
	gp, ok := r.progress[id]
	if !ok {
		return store.GridProgress{}, store.ErrNotFound
	}
	return gp, nil
}

func newProgressServer(repo store.ProgressRepository) *httptest.Server {
	h := NewProgressHandler(repo, nil)
	r := chi.NewRouter()
	r.Get("/v1/sessions", h.ListSessions)
	r.Get("/v1/sessions/{session_id}/progress", h.GetProgress)
	return httptest.NewServer(r)
}

func TestGetProgressReturnsRunAndSnapshot(t *testing.T) {
	t.Parallel()

	repo := newFakeProgressRepo()
	id := uuid.New()
	repo.runs[id] = store.SessionRun{SessionID: id, StartedAt: time.Now(), Status: store.RunRunning}
	repo.progress[id] = store.GridProgress{
		SessionID:       id,
		GridID:          "grid-0005",
		CompletedGrids:  5,
		TotalGrids:      20,
		Found:           140,
		Imported:        120,
		PercentComplete: 25,
		ETASeconds:      900,
	}

	ts := newProgressServer(repo)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/sessions/" + id.String() + "/progress")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Session  runDTO      `json:"session"`
		Progress progressDTO `json:"progress"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "running", body.Session.Status)
	require.Equal(t, "grid-0005", body.Progress.GridID)
	require.Equal(t, int64(900), body.Progress.ETASeconds)
}

func TestGetProgressWithoutSnapshot(t *testing.T) {
	t.Parallel()

	repo := newFakeProgressRepo()
	id := uuid.New()
	repo.runs[id] = store.SessionRun{SessionID: id, Status: store.RunRunning}

	ts := newProgressServer(repo)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/sessions/" + id.String() + "/progress")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Contains(t, body, "session")
	require.NotContains(t, body, "progress")
}

func TestGetProgressUnknownSession(t *testing.T) {
	t.Parallel()

	ts := newProgressServer(newFakeProgressRepo())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/sessions/" + uuid.NewString() + "/progress")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetProgressRejectsMalformedID(t *testing.T) {
	t.Parallel()

	ts := newProgressServer(newFakeProgressRepo())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/sessions/not-a-uuid/progress")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListSessionsFiltersAndLimits(t *testing.T) {
	t.Parallel()

	repo := newFakeProgressRepo()
	running := uuid.New()
	done := uuid.New()
	repo.runs[running] = store.SessionRun{SessionID: running, Status: store.RunRunning}
	repo.runs[done] = store.SessionRun{SessionID: done, Status: store.RunSuccess}

	ts := newProgressServer(repo)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/sessions?status=running")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Sessions []runDTO `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Sessions, 1)
	require.Equal(t, running.String(), body.Sessions[0].SessionID)

	resp2, err := http.Get(ts.URL + "/v1/sessions?status=bogus")
	require.NoError(t, err)
	require.NoError(t, resp2.Body.Close())
	require.Equal(t, http.StatusBadRequest, resp2.StatusCode)

	resp3, err := http.Get(ts.URL + "/v1/sessions?limit=-1")
	require.NoError(t, err)
	require.NoError(t, resp3.Body.Close())
	require.Equal(t, http.StatusBadRequest, resp3.StatusCode)
}

func TestListSessionsRepoFailure(t *testing.T) {
	t.Parallel()

	repo := newFakeProgressRepo()
	repo.listErr = errors.New("db down")

	ts := newProgressServer(repo)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/sessions")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
