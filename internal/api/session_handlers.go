package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nichelabs/discovery-engine/internal/discovery"
)

type createSessionRequest struct {
	TargetCount             int             `json:"target_count"`
	Strategy                string          `json:"strategy"`
	Niche                   discovery.Niche `json:"niche"`
	EnableReviewImport      bool            `json:"enable_review_import"`
	EnableSocialEnhancement bool            `json:"enable_social_enhancement"`
	MaxConcurrentSearches   int             `json:"max_concurrent_searches"`
	PauseAfterMinutes       int             `json:"pause_after_minutes"`
	Autostart               *bool           `json:"autostart"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	cfg := discovery.Config{
		TargetCount:             req.TargetCount,
		Strategy:                discovery.Strategy(req.Strategy),
		Niche:                   req.Niche,
		EnableReviewImport:      req.EnableReviewImport,
		EnableSocialEnhancement: req.EnableSocialEnhancement,
		MaxConcurrentSearches:   req.MaxConcurrentSearches,
		PauseAfterMinutes:       req.PauseAfterMinutes,
	}
	if cfg.Strategy == "" {
		cfg.Strategy = discovery.StrategyMetroFirst
	}
	if len(cfg.Niche.SearchTerms) == 0 && len(s.cfg.Niches) > 0 {
		cfg.Niche = s.cfg.Niches[0]
	}

	sess, err := s.driver.StartSession(r.Context(), cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Autostart == nil || *req.Autostart {
		s.runSession(sess.ID)
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"session_id": sess.ID,
		"status":     string(sess.Status),
	})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	sess, err := s.sessions.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, discovery.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		s.logger.Error("get session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": toSessionDTO(sess)})
}

func (s *Server) pauseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if err := s.driver.Pause(sessionID); err != nil {
		if errors.Is(err, discovery.ErrSessionNotRunning) {
			writeError(w, http.StatusConflict, "session is not running")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"session_id": sessionID, "signal": "pause"})
}

func (s *Server) resumeSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	sess, err := s.sessions.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, discovery.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if sess.Terminal() {
		writeError(w, http.StatusConflict, "session is finished")
		return
	}
	if sess.Status == discovery.SessionStatusRunning {
		writeError(w, http.StatusConflict, "session is already running")
		return
	}
	s.runSession(sessionID)
	writeJSON(w, http.StatusAccepted, map[string]string{"session_id": sessionID, "signal": "resume"})
}

func (s *Server) stopSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if err := s.driver.Stop(sessionID); err != nil {
		if errors.Is(err, discovery.ErrSessionNotRunning) {
			writeError(w, http.StatusConflict, "session is not running")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"session_id": sessionID, "signal": "stop"})
}

type sessionDTO struct {
	ID             string           `json:"id"`
	Status         string           `json:"status"`
	TargetCount    int              `json:"target_count"`
	Strategy       string           `json:"strategy"`
	TotalGrids     int              `json:"total_grids"`
	CompletedGrids int              `json:"completed_grids"`
	Cursor         int              `json:"cursor"`
	Found          int              `json:"found"`
	Imported       int              `json:"imported"`
	Errors         []string         `json:"errors,omitempty"`
	Version        int64            `json:"version"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Grids          []sessionGridDTO `json:"grids"`
}

type sessionGridDTO struct {
	ID       string  `json:"id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	RadiusKm float64 `json:"radius_km"`
	Status   string  `json:"status"`
	Found    int     `json:"found"`
	Error    string  `json:"error,omitempty"`
}

func toSessionDTO(s discovery.Session) sessionDTO {
	dto := sessionDTO{
		ID:             s.ID,
		Status:         string(s.Status),
		TargetCount:    s.Config.TargetCount,
		Strategy:       string(s.Config.Strategy),
		TotalGrids:     len(s.Grids),
		CompletedGrids: s.CompletedGrids(),
		Cursor:         s.Cursor,
		Found:          s.Found,
		Imported:       s.Imported,
		Errors:         s.Errors,
		Version:        s.Version,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	dto.Grids = make([]sessionGridDTO, 0, len(s.Grids))
	for _, g := range s.Grids {
		dto.Grids = append(dto.Grids, sessionGridDTO{
			ID:       g.ID,
			Lat:      g.CenterLat,
			Lng:      g.CenterLng,
			RadiusKm: g.RadiusKm,
			Status:   string(g.Status),
			Found:    g.Found,
			Error:    g.ErrorText,
		})
	}
	return dto
}
