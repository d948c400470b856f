// Package collector drives provider searches for one grid: fanning out
// search terms, pacing detail fetches, filtering irrelevant places, and
// merging responses from multiple providers into candidates.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nichelabs/discovery-engine/internal/discovery"
)

// Config tunes search pacing and retry behavior.
type Config struct {
	// DetailQPS caps detail fetches per second across all terms; zero means
	// no pacing.
	DetailQPS float64
	// SearchRetries is how many times a failed nearby search is retried
	// before the grid is reported as errored.
	SearchRetries int
	// RetryBackoff is the initial delay between search retries.
	RetryBackoff time.Duration
	// ArchiveContentType is used for raw payload archive writes.
	ArchiveContentType string
}

// Request describes one grid search.
type Request struct {
	SessionID     string
	Grid          discovery.Grid
	Niche         discovery.Niche
	FanOut        int
	ImportReviews bool
	EnrichSocial  bool
}

// Enricher augments a candidate from its website (emails, social links).
// Enrichment failures are non-fatal.
type Enricher interface {
	Enrich(ctx context.Context, cand *discovery.Candidate) error
}

// Collector searches one grid at a time across the configured providers.
type Collector struct {
	providers []discovery.SearchProvider
	archive   discovery.ArchiveStore
	enricher  Enricher
	limiter   *rate.Limiter
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Collector. archive and enricher may be nil to disable
// raw-payload archival and website enrichment.
func New(
	providers []discovery.SearchProvider,
	archive discovery.ArchiveStore,
	enricher Enricher,
	cfg Config,
	logger *zap.Logger,
) *Collector {
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.ArchiveContentType == "" {
		cfg.ArchiveContentType = "application/json"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.DetailQPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.DetailQPS), 1)
	}
	return &Collector{
		providers: providers,
		archive:   archive,
		enricher:  enricher,
		limiter:   limiter,
		cfg:       cfg,
		logger:    logger,
	}
}

// SearchGrid runs every search term against every provider for one grid and
// returns the merged, relevance-filtered candidates. A provider search that
// fails after retries fails the whole grid; detail-fetch failures only drop
// the affected place.
func (c *Collector) SearchGrid(ctx context.Context, req Request) ([]discovery.Candidate, error) {
	if len(c.providers) == 0 {
		return nil, errors.New("no search providers configured")
	}
	if len(req.Niche.SearchTerms) == 0 {
		return nil, errors.New("niche has no search terms")
	}
	if req.FanOut <= 0 {
		req.FanOut = 1
	}

	m := newMerger(c.providers[0].Name())
	for _, p := range c.providers {
		cands, err := c.searchProvider(ctx, p, req)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", p.Name(), err)
		}
		m.add(p.Name(), cands)
	}

	merged := m.candidates()
	if c.enricher != nil && req.EnrichSocial {
		for i := range merged {
			if merged[i].Website == "" {
				continue
			}
			if err := c.enricher.Enrich(ctx, &merged[i]); err != nil {
				c.logger.Warn("website enrichment failed",
					zap.String("grid_id", req.Grid.ID),
					zap.String("website", merged[i].Website),
					zap.Error(err),
				)
			}
		}
	}
	return merged, nil
}

func (c *Collector) searchProvider(ctx context.Context, p discovery.SearchProvider, req Request) ([]discovery.Candidate, error) {
	radiusMeters := req.Grid.RadiusKm * 1000
	if limit := p.MaxRadiusMeters(); limit > 0 && radiusMeters > limit {
		radiusMeters = limit
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		out  []discovery.Candidate
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(req.FanOut)
	for _, term := range req.Niche.SearchTerms {
		term := term
		g.Go(func() error {
			summaries, err := c.nearbySearchWithRetry(ctx, p, req.Grid, radiusMeters, term)
			if err != nil {
				return fmt.Errorf("search %q: %w", term, err)
			}
			for _, s := range summaries {
				mu.Lock()
				dup := seen[s.ExternalID]
				seen[s.ExternalID] = true
				mu.Unlock()
				if dup {
					continue
				}
				cand, ok := c.fetchCandidate(ctx, p, req, s)
				if !ok {
					continue
				}
				mu.Lock()
				out = append(out, cand)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Collector) nearbySearchWithRetry(ctx context.Context, p discovery.SearchProvider, grid discovery.Grid, radiusMeters float64, term string) ([]discovery.PlaceSummary, error) {
	attempts := c.cfg.SearchRetries + 1
	backoff := c.cfg.RetryBackoff
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		summaries, err := p.NearbySearch(ctx, grid.CenterLat, grid.CenterLng, radiusMeters, term)
		if err == nil {
			return summaries, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		c.logger.Warn("nearby search failed, retrying",
			zap.String("grid_id", grid.ID),
			zap.String("term", term),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 4*c.cfg.RetryBackoff {
			backoff *= 2
		}
	}
	return nil, lastErr
}

// fetchCandidate turns one summary into a candidate, applying relevance
// filtering before and after the detail fetch. A failed detail fetch drops
// the place without failing the grid.
func (c *Collector) fetchCandidate(ctx context.Context, p discovery.SearchProvider, req Request, s discovery.PlaceSummary) (discovery.Candidate, bool) {
	if !Relevant(s.Name, []string{s.Category}, req.Niche) {
		return discovery.Candidate{}, false
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return discovery.Candidate{}, false
	}
	details, err := p.Details(ctx, s.ExternalID)
	if err != nil {
		c.logger.Warn("detail fetch failed, skipping place",
			zap.String("grid_id", req.Grid.ID),
			zap.String("external_id", s.ExternalID),
			zap.Error(err),
		)
		return discovery.Candidate{}, false
	}

	if !Relevant(details.Name, details.Categories, req.Niche) {
		return discovery.Candidate{}, false
	}

	cand, err := Convert(details, p.Name(), req.ImportReviews)
	if err != nil {
		c.logger.Warn("place rejected during conversion",
			zap.String("grid_id", req.Grid.ID),
			zap.String("external_id", s.ExternalID),
			zap.Error(err),
		)
		return discovery.Candidate{}, false
	}

	c.archiveRaw(ctx, req, p.Name(), details)
	return cand, true
}

func (c *Collector) archiveRaw(ctx context.Context, req Request, providerName string, details discovery.PlaceDetails) {
	if c.archive == nil || len(details.Raw) == 0 {
		return
	}
	path := fmt.Sprintf("sessions/%s/%s/%s/%s.json", req.SessionID, req.Grid.ID, providerName, details.ExternalID)
	if _, err := c.archive.PutObject(ctx, path, c.cfg.ArchiveContentType, details.Raw); err != nil {
		c.logger.Warn("raw payload archive failed",
			zap.String("path", path),
			zap.Error(err),
		)
	}
}
