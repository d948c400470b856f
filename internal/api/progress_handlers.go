package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nichelabs/discovery-engine/internal/store"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
	progressTimeout = 3 * time.Second
)

// ProgressHandler exposes read-only session progress endpoints.
type ProgressHandler struct {
	repo    store.ProgressRepository
	timeout time.Duration
	logger  *zap.Logger
}

// NewProgressHandler wires the repository and logger.
func NewProgressHandler(repo store.ProgressRepository, logger *zap.Logger) *ProgressHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressHandler{
		repo:    repo,
		timeout: progressTimeout,
		logger:  logger,
	}
}

// ListSessions handles GET /v1/sessions?status=&limit=&offset=. It returns a
// JSON object {"sessions": [...]} on success, 400 for invalid filters, 503
// when the repo is unavailable, or 500 if the repository call fails.
func (h *ProgressHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "progress repository unavailable")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit, offset, err := parseLimitOffset(r, defaultRunLimit, maxRunLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	statusParam := strings.TrimSpace(r.URL.Query().Get("status"))
	var status *store.RunStatus
	if statusParam != "" {
		statusVal, parseErr := parseStatus(statusParam)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, parseErr.Error())
			return
		}
		status = &statusVal
	}
	runs, err := h.repo.ListSessionRuns(ctx, status, limit, offset)
	if err != nil {
		h.logger.Error("list session runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": toRunDTOs(runs),
	})
}

// GetProgress handles GET /v1/sessions/{session_id}/progress. It returns the
// run record plus the latest grid snapshot, 400 for malformed IDs, 404 when
// the repository reports store.ErrNotFound, 503 if the repo is not
// initialized, or 500 otherwise.
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "progress repository unavailable")
		return
	}
	sessionID, err := parseSessionID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	run, err := h.repo.GetSessionRun(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("get session run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	resp := map[string]any{"session": toRunDTO(run)}
	gp, err := h.repo.GetGridProgress(ctx, sessionID)
	switch {
	case err == nil:
		resp["progress"] = toProgressDTO(gp)
	case errors.Is(err, store.ErrNotFound):
		// No grid has finished yet; the run record alone is the answer.
	default:
		h.logger.Error("get grid progress failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load progress")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseSessionID(r *http.Request) (uuid.UUID, error) {
	idStr := chi.URLParam(r, "session_id")
	if idStr == "" {
		return uuid.UUID{}, errors.New("session_id is required")
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.UUID{}, errors.New("invalid session_id")
	}
	return id, nil
}

func parseLimitOffset(r *http.Request, def, maxLimit int) (int, int, error) {
	q := r.URL.Query()
	limit := def
	if limStr := q.Get("limit"); limStr != "" {
		val, err := strconv.Atoi(limStr)
		if err != nil || val <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		if val > maxLimit {
			val = maxLimit
		}
		limit = val
	}
	offset := 0
	if offStr := q.Get("offset"); offStr != "" {
		val, err := strconv.Atoi(offStr)
		if err != nil || val < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = val
	}
	return limit, offset, nil
}

func parseStatus(input string) (store.RunStatus, error) {
	switch strings.ToLower(input) {
	case "running":
		return store.RunRunning, nil
	case "paused":
		return store.RunPaused, nil
	case "success", "completed":
		return store.RunSuccess, nil
	case "stopped":
		return store.RunStopped, nil
	case "error", "failed", "failure":
		return store.RunError, nil
	default:
		return "", errors.New("invalid status")
	}
}

func toRunDTOs(in []store.SessionRun) []runDTO {
	out := make([]runDTO, 0, len(in))
	for _, run := range in {
		out = append(out, toRunDTO(run))
	}
	return out
}

func toRunDTO(run store.SessionRun) runDTO {
	dto := runDTO{
		SessionID: run.SessionID.String(),
		StartedAt: run.StartedAt,
		Status:    string(run.Status),
		Error:     run.ErrorMessage,
	}
	if run.FinishedAt != nil {
		dto.FinishedAt = run.FinishedAt
	}
	return dto
}

func toProgressDTO(gp store.GridProgress) progressDTO {
	return progressDTO{
		GridID:          gp.GridID,
		CompletedGrids:  gp.CompletedGrids,
		TotalGrids:      gp.TotalGrids,
		ErroredGrids:    gp.ErroredGrids,
		Found:           gp.Found,
		Imported:        gp.Imported,
		PercentComplete: gp.PercentComplete,
		ETASeconds:      gp.ETASeconds,
		UpdatedAt:       gp.UpdatedAt,
	}
}

type runDTO struct {
	SessionID  string     `json:"session_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     string     `json:"status"`
	Error      *string    `json:"error,omitempty"`
}

type progressDTO struct {
	GridID          string    `json:"grid_id"`
	CompletedGrids  int       `json:"completed_grids"`
	TotalGrids      int       `json:"total_grids"`
	ErroredGrids    int       `json:"errored_grids"`
	Found           int       `json:"found"`
	Imported        int       `json:"imported"`
	PercentComplete float64   `json:"percent_complete"`
	ETASeconds      int64     `json:"eta_seconds"`
	UpdatedAt       time.Time `json:"updated_at"`
}
