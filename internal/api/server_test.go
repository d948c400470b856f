package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nichelabs/discovery-engine/internal/config"
	"github.com/nichelabs/discovery-engine/internal/discovery"
	"github.com/nichelabs/discovery-engine/internal/metrics"
	storagemem "github.com/nichelabs/discovery-engine/internal/storage/memory"
)

type fakeDriver struct {
	mu      sync.Mutex
	started []discovery.Config
	ran     []string
	paused  []string
	stopped []string

	startErr error
	pauseErr error
	stopErr  error
}

func (d *fakeDriver) StartSession(_ context.Context, cfg discovery.Config) (discovery.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return discovery.Session{}, d.startErr
	}
	d.started = append(d.started, cfg)
	return discovery.Session{ID: "sess-1", Config: cfg, Status: discovery.SessionStatusCreated}, nil
}

func (d *fakeDriver) Run(_ context.Context, sessionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ran = append(d.ran, sessionID)
	return nil
}

func (d *fakeDriver) Pause(sessionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pauseErr != nil {
		return d.pauseErr
	}
	d.paused = append(d.paused, sessionID)
	return nil
}

func (d *fakeDriver) Stop(sessionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopErr != nil {
		return d.stopErr
	}
	d.stopped = append(d.stopped, sessionID)
	return nil
}

func (d *fakeDriver) ranSessions() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.ran))
	copy(out, d.ran)
	return out
}

func newTestServer(t *testing.T, driver *fakeDriver, sessions discovery.SessionStore) *httptest.Server {
	t.Helper()
	metrics.Init()
	srv := NewServer(context.Background(), driver, sessions, NewProgressHandler(nil, nil), config.Config{}, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestCreateSessionStartsRun(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	ts := newTestServer(t, driver, storagemem.NewSessionStore())

	resp := postJSON(t, ts.URL+"/v1/sessions", `{
		"target_count": 100,
		"strategy": "metro_first",
		"niche": {"search_terms": ["dentist"]}
	}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "sess-1", body["session_id"])

	// Run is launched in a goroutine; give it a moment.
	require.Eventually(t, func() bool {
		return len(driver.ranSessions()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCreateSessionAutostartFalse(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	ts := newTestServer(t, driver, storagemem.NewSessionStore())

	resp := postJSON(t, ts.URL+"/v1/sessions", `{
		"target_count": 100,
		"strategy": "metro_first",
		"niche": {"search_terms": ["dentist"]},
		"autostart": false
	}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	time.Sleep(50 * time.Millisecond)
	require.Empty(t, driver.ranSessions())
}

func TestCreateSessionRejectsBadJSON(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeDriver{}, storagemem.NewSessionStore())
	resp := postJSON(t, ts.URL+"/v1/sessions", "{not json")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetSessionStatus(t *testing.T) {
	t.Parallel()

	sessions := storagemem.NewSessionStore()
	require.NoError(t, sessions.CreateSession(context.Background(), discovery.Session{
		ID:      "sess-9",
		Status:  discovery.SessionStatusPaused,
		Version: 3,
		Config:  discovery.Config{TargetCount: 50, Strategy: discovery.StrategyNationwide},
		Grids: []discovery.Grid{
			{ID: "grid-0001", Status: discovery.GridStatusCompleted, Found: 12},
			{ID: "grid-0002", Status: discovery.GridStatusPending},
		},
		Cursor: 1,
		Found:  12,
	}))

	ts := newTestServer(t, &fakeDriver{}, sessions)
	resp, err := http.Get(ts.URL + "/v1/sessions/sess-9")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Session sessionDTO `json:"session"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "paused", body.Session.Status)
	require.Equal(t, 2, body.Session.TotalGrids)
	require.Equal(t, 1, body.Session.CompletedGrids)
	require.Equal(t, 12, body.Session.Found)
}

func TestGetSessionNotFound(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeDriver{}, storagemem.NewSessionStore())
	resp, err := http.Get(ts.URL + "/v1/sessions/missing")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPauseSignals(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	ts := newTestServer(t, driver, storagemem.NewSessionStore())

	resp := postJSON(t, ts.URL+"/v1/sessions/sess-1/pause", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, []string{"sess-1"}, driver.paused)
}

func TestPauseNotRunningConflicts(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{pauseErr: discovery.ErrSessionNotRunning}
	ts := newTestServer(t, driver, storagemem.NewSessionStore())

	resp := postJSON(t, ts.URL+"/v1/sessions/sess-1/pause", "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestResumePausedSession(t *testing.T) {
	t.Parallel()

	sessions := storagemem.NewSessionStore()
	require.NoError(t, sessions.CreateSession(context.Background(), discovery.Session{
		ID: "sess-2", Status: discovery.SessionStatusPaused, Version: 2,
	}))
	driver := &fakeDriver{}
	ts := newTestServer(t, driver, sessions)

	resp := postJSON(t, ts.URL+"/v1/sessions/sess-2/resume", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Eventually(t, func() bool {
		return len(driver.ranSessions()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestResumeTerminalSessionConflicts(t *testing.T) {
	t.Parallel()

	sessions := storagemem.NewSessionStore()
	require.NoError(t, sessions.CreateSession(context.Background(), discovery.Session{
		ID: "sess-3", Status: discovery.SessionStatusCompleted, Version: 2,
	}))
	ts := newTestServer(t, &fakeDriver{}, sessions)

	resp := postJSON(t, ts.URL+"/v1/sessions/sess-3/resume", "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeDriver{}, storagemem.NewSessionStore())
	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, resp.Body.Close())
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	t.Parallel()

	metrics.Init()
	srv := NewServer(context.Background(), &fakeDriver{}, storagemem.NewSessionStore(),
		NewProgressHandler(nil, nil),
		config.Config{Auth: config.AuthConfig{Enabled: true, APIKey: "secret"}}, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())
}
