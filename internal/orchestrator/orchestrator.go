// Package orchestrator drives discovery sessions: it owns the run loop, the
// pause/resume/stop state machine, progress emission, and error accumulation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nichelabs/discovery-engine/internal/collector"
	"github.com/nichelabs/discovery-engine/internal/dedup"
	"github.com/nichelabs/discovery-engine/internal/discovery"
	"github.com/nichelabs/discovery-engine/internal/progress"
)

// GridPlanner produces the ordered grid list for a config.
type GridPlanner interface {
	Generate(cfg discovery.Config) ([]discovery.Grid, error)
}

// GridSearcher runs the provider searches for one grid.
type GridSearcher interface {
	SearchGrid(ctx context.Context, req collector.Request) ([]discovery.Candidate, error)
}

// CandidateResolver decides create/merge/skip against the record store.
type CandidateResolver interface {
	Resolve(ctx context.Context, cand discovery.Candidate) (dedup.Resolution, error)
}

// Config controls Orchestrator behavior.
type Config struct {
	// GridDelay is the courtesy pause between grids (default 2s).
	GridDelay time.Duration
	// Topic receives imported-record events; empty disables publishing.
	Topic string
}

// Orchestrator composes the planner, searcher, and resolver against a
// durable session. One Orchestrator may drive many sessions, but a given
// session must have a single driver; the store's version check turns a second
// driver into an explicit ErrVersionConflict instead of silent interleaving.
type Orchestrator struct {
	planner   GridPlanner
	searcher  GridSearcher
	resolver  CandidateResolver
	sessions  discovery.SessionStore
	publisher discovery.Publisher
	clock     discovery.Clock
	idGen     discovery.IDGenerator
	emitter   progress.Emitter
	cfg       Config
	logger    *zap.Logger

	mu       sync.Mutex
	controls map[string]*control
}

// control carries the cooperative pause/stop flags for one driven session.
// Flags are observed only at the top of a loop iteration: a grid in flight
// always finishes first.
type control struct {
	mu    sync.Mutex
	pause bool
	stop  bool
}

func (c *control) requestPause() { c.mu.Lock(); c.pause = true; c.mu.Unlock() }
func (c *control) requestStop()  { c.mu.Lock(); c.stop = true; c.mu.Unlock() }

func (c *control) requested() (pause, stop bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pause, c.stop
}

// New constructs an Orchestrator.
func New(
	planner GridPlanner,
	searcher GridSearcher,
	resolver CandidateResolver,
	sessions discovery.SessionStore,
	publisher discovery.Publisher,
	clock discovery.Clock,
	idGen discovery.IDGenerator,
	emitter progress.Emitter,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.GridDelay <= 0 {
		cfg.GridDelay = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		planner:   planner,
		searcher:  searcher,
		resolver:  resolver,
		sessions:  sessions,
		publisher: publisher,
		clock:     clock,
		idGen:     idGen,
		emitter:   emitter,
		cfg:       cfg,
		logger:    logger,
	}
}

// StartSession validates the config, generates the grid plan, and persists a
// new session in the created status. The caller runs it with Run.
func (o *Orchestrator) StartSession(ctx context.Context, cfg discovery.Config) (discovery.Session, error) {
	if err := validateConfig(cfg); err != nil {
		return discovery.Session{}, err
	}
	if cfg.MaxConcurrentSearches <= 0 {
		cfg.MaxConcurrentSearches = 1
	}

	grids, err := o.planner.Generate(cfg)
	if err != nil {
		return discovery.Session{}, fmt.Errorf("generate grids: %w", err)
	}
	id, err := o.idGen.NewID()
	if err != nil {
		return discovery.Session{}, fmt.Errorf("generate session id: %w", err)
	}

	now := o.clock.Now()
	s := discovery.Session{
		ID:        id,
		Config:    cfg,
		Grids:     grids,
		Status:    discovery.SessionStatusCreated,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.sessions.CreateSession(ctx, s); err != nil {
		return discovery.Session{}, fmt.Errorf("create session: %w", err)
	}
	o.logger.Info("session created",
		zap.String("session_id", s.ID),
		zap.Int("grids", len(s.Grids)),
		zap.Int("target_count", cfg.TargetCount),
	)
	return s, nil
}

func validateConfig(cfg discovery.Config) error {
	if cfg.TargetCount <= 0 {
		return errors.New("target count must be positive")
	}
	switch cfg.Strategy {
	case discovery.StrategyMetroFirst, discovery.StrategyNationwide, discovery.StrategyStateByState:
	default:
		return fmt.Errorf("unknown strategy %q", cfg.Strategy)
	}
	if len(cfg.Niche.SearchTerms) == 0 {
		return errors.New("niche needs at least one search term")
	}
	return nil
}

// Pause requests a cooperative pause of a running session. The request takes
// effect after the in-flight grid finishes.
func (o *Orchestrator) Pause(sessionID string) error {
	c, ok := o.lookupControl(sessionID)
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, discovery.ErrSessionNotRunning)
	}
	c.requestPause()
	return nil
}

// Stop requests a cooperative stop of a running session.
func (o *Orchestrator) Stop(sessionID string) error {
	c, ok := o.lookupControl(sessionID)
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, discovery.ErrSessionNotRunning)
	}
	c.requestStop()
	return nil
}

func (o *Orchestrator) lookupControl(sessionID string) (*control, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.controls[sessionID]
	return c, ok
}

func (o *Orchestrator) registerControl(sessionID string) (*control, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.controls == nil {
		o.controls = make(map[string]*control)
	}
	if _, ok := o.controls[sessionID]; ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, discovery.ErrSessionAlreadyRunning)
	}
	c := &control{}
	o.controls[sessionID] = c
	return c, nil
}

func (o *Orchestrator) dropControl(sessionID string) {
	o.mu.Lock()
	delete(o.controls, sessionID)
	o.mu.Unlock()
}

// Run loads the session's last persisted snapshot and drives the run loop
// until the target is reached, grids are exhausted, a pause/stop request is
// honored, or a snapshot write fails. A paused or created session resumes at
// its persisted cursor; no earlier grid is reprocessed.
func (o *Orchestrator) Run(ctx context.Context, sessionID string) error {
	s, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if s.Terminal() {
		return fmt.Errorf("session %s is %s: %w", s.ID, s.Status, discovery.ErrSessionTerminal)
	}
	if len(s.Grids) == 0 {
		// An empty but valid grid plan completes immediately.
		s.Status = discovery.SessionStatusCompleted
		if err := o.saveSnapshot(ctx, &s); err != nil {
			return err
		}
		o.emit(s, progress.StageSessionDone, "", 0, "")
		return nil
	}

	ctl, err := o.registerControl(s.ID)
	if err != nil {
		return err
	}
	defer o.dropControl(s.ID)

	resumed := s.Status == discovery.SessionStatusPaused
	s.Status = discovery.SessionStatusRunning
	if err := o.saveSnapshot(ctx, &s); err != nil {
		return err
	}
	startStage := progress.StageSessionStart
	if resumed {
		startStage = progress.StageSessionResume
	}
	o.emit(s, startStage, "", 0, "")
	runStart := o.clock.Now()

	for s.Cursor < len(s.Grids) {
		if pause, stop := ctl.requested(); pause || stop {
			return o.suspend(ctx, &s, stop, runStart)
		}
		if ctx.Err() != nil {
			// Context cancellation is treated as a pause so the session
			// stays resumable.
			if err := o.suspend(ctx, &s, false, runStart); err != nil {
				return err
			}
			return ctx.Err()
		}

		if err := o.processGrid(ctx, &s, runStart); err != nil {
			return err
		}

		if s.Found >= s.Config.TargetCount {
			s.Status = discovery.SessionStatusCompleted
			if err := o.saveSnapshot(ctx, &s); err != nil {
				return err
			}
			o.emit(s, progress.StageSessionDone, "", o.clock.Now().Sub(runStart), "")
			o.logger.Info("session completed at target",
				zap.String("session_id", s.ID),
				zap.Int("found", s.Found),
				zap.Int("imported", s.Imported),
			)
			return nil
		}

		if budget := s.Config.PauseAfterMinutes; budget > 0 {
			if o.clock.Now().Sub(runStart) >= time.Duration(budget)*time.Minute {
				return o.suspend(ctx, &s, false, runStart)
			}
		}

		if s.Cursor < len(s.Grids) {
			select {
			case <-ctx.Done():
			case <-time.After(o.cfg.GridDelay):
			}
		}
	}

	s.Status = discovery.SessionStatusCompleted
	if err := o.saveSnapshot(ctx, &s); err != nil {
		return err
	}
	o.emit(s, progress.StageSessionDone, "", o.clock.Now().Sub(runStart), "")
	o.logger.Info("session completed, grids exhausted",
		zap.String("session_id", s.ID),
		zap.Int("found", s.Found),
		zap.Int("imported", s.Imported),
	)
	return nil
}

// processGrid runs one grid end to end: searching status, provider search,
// resolve each candidate, grid terminal status, cursor advance, snapshot,
// progress. Provider failures mark the grid errored and the loop continues;
// snapshot write failures propagate and halt the run.
func (o *Orchestrator) processGrid(ctx context.Context, s *discovery.Session, runStart time.Time) error {
	g := &s.Grids[s.Cursor]
	g.Status = discovery.GridStatusSearching
	if err := o.saveSnapshot(ctx, s); err != nil {
		return err
	}

	gridStart := o.clock.Now()
	cands, err := o.searcher.SearchGrid(ctx, collector.Request{
		SessionID:     s.ID,
		Grid:          *g,
		Niche:         s.Config.Niche,
		FanOut:        s.Config.MaxConcurrentSearches,
		ImportReviews: s.Config.EnableReviewImport,
		EnrichSocial:  s.Config.EnableSocialEnhancement,
	})
	if err != nil {
		g.Status = discovery.GridStatusError
		g.ErrorText = err.Error()
		s.Errors = append(s.Errors, fmt.Sprintf("%s: %v", g.ID, err))
		o.logger.Error("grid search failed",
			zap.String("session_id", s.ID),
			zap.String("grid_id", g.ID),
			zap.Error(err),
		)
	} else {
		imported := o.importCandidates(ctx, s, g, cands)
		g.Found = len(cands)
		g.Status = discovery.GridStatusCompleted
		s.Found += len(cands)
		s.Imported += imported
	}

	s.Cursor++
	if err := o.saveSnapshot(ctx, s); err != nil {
		return err
	}
	o.emit(*s, progress.StageGridDone, g.ID, o.clock.Now().Sub(gridStart), g.ErrorText)
	return nil
}

// importCandidates resolves each candidate against the store. Resolver
// failures drop the candidate, never the grid.
func (o *Orchestrator) importCandidates(ctx context.Context, s *discovery.Session, g *discovery.Grid, cands []discovery.Candidate) int {
	imported := 0
	for _, cand := range cands {
		res, err := o.resolver.Resolve(ctx, cand)
		if err != nil {
			o.logger.Warn("candidate resolve failed, dropping",
				zap.String("session_id", s.ID),
				zap.String("grid_id", g.ID),
				zap.String("name", cand.Name),
				zap.Error(err),
			)
			continue
		}
		if res.Action == dedup.ActionSkip {
			continue
		}
		imported++
		o.publishImport(ctx, s.ID, g.ID, res)
	}
	return imported
}

func (o *Orchestrator) publishImport(ctx context.Context, sessionID, gridID string, res dedup.Resolution) {
	if o.publisher == nil || o.cfg.Topic == "" {
		return
	}
	payload := map[string]any{
		"session_id": sessionID,
		"grid_id":    gridID,
		"record_id":  res.Record.ID,
		"action":     string(res.Action),
		"confidence": res.Confidence,
		"name":       res.Record.Name,
		"timestamp":  o.clock.Now().Format(time.RFC3339),
	}
	if _, err := o.publisher.Publish(ctx, o.cfg.Topic, payload); err != nil {
		o.logger.Warn("imported-record publish failed",
			zap.String("session_id", sessionID),
			zap.String("record_id", res.Record.ID),
			zap.Error(err),
		)
	}
}

// suspend persists the paused or stopped status and emits the matching event.
func (o *Orchestrator) suspend(ctx context.Context, s *discovery.Session, stop bool, runStart time.Time) error {
	stage := progress.StageSessionPause
	s.Status = discovery.SessionStatusPaused
	if stop {
		stage = progress.StageSessionDone
		s.Status = discovery.SessionStatusStopped
	}
	if err := o.saveSnapshot(ctx, s); err != nil {
		return err
	}
	o.emit(*s, stage, "", o.clock.Now().Sub(runStart), "")
	o.logger.Info("session suspended",
		zap.String("session_id", s.ID),
		zap.String("status", string(s.Status)),
		zap.Int("cursor", s.Cursor),
	)
	return nil
}

// saveSnapshot writes the full session document. The store accepts the write
// only when the caller's version matches the stored one, then stores
// version+1; the local copy advances in step.
func (o *Orchestrator) saveSnapshot(ctx context.Context, s *discovery.Session) error {
	s.UpdatedAt = o.clock.Now()
	if err := o.sessions.SaveSnapshot(ctx, *s); err != nil {
		return fmt.Errorf("save snapshot for session %s: %w", s.ID, err)
	}
	s.Version++
	return nil
}

func (o *Orchestrator) emit(s discovery.Session, stage progress.Stage, gridID string, dur time.Duration, note string) {
	if o.emitter == nil {
		return
	}
	var elapsed time.Duration
	if !s.CreatedAt.IsZero() {
		elapsed = o.clock.Now().Sub(s.CreatedAt)
	}
	o.emitter.Emit(progress.Event{
		SessionID: progress.SessionIDBytes(s.ID),
		TS:        o.clock.Now(),
		Stage:     stage,
		GridID:    gridID,
		Snapshot:  progress.TakeSnapshot(s, elapsed),
		Dur:       dur,
		Note:      note,
	})
}
