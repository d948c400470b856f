package discovery

import (
	"time"
)

// GridStatus represents the lifecycle state of one search tile.
type GridStatus string

// Grid status values persisted in the session snapshot. Status only moves
// forward within a run: pending -> searching -> completed|error.
const (
	GridStatusPending   GridStatus = "pending"
	GridStatusSearching GridStatus = "searching"
	GridStatusCompleted GridStatus = "completed"
	GridStatusError     GridStatus = "error"
)

// Grid is one bounded geographic search tile.
type Grid struct {
	ID          string     `json:"id"`
	CenterLat   float64    `json:"center_lat"`
	CenterLng   float64    `json:"center_lng"`
	RadiusKm    float64    `json:"radius_km"`
	Priority    int        `json:"priority"`
	Status      GridStatus `json:"status"`
	SearchTerms []string   `json:"search_terms,omitempty"`
	Found       int        `json:"found"`
	ErrorText   string     `json:"error_text,omitempty"`
}

// Bounds is a lat/lng bounding box used by grid generation strategies.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Strategy selects how the macro region is partitioned into grids.
type Strategy string

// Supported grid generation strategies.
const (
	StrategyMetroFirst   Strategy = "metro_first"
	StrategyNationwide   Strategy = "nationwide"
	StrategyStateByState Strategy = "state_by_state"
)

// Niche names the kind of business being discovered: search terms fanned out
// per grid plus exclusion terms applied during relevance filtering.
type Niche struct {
	SearchTerms  []string `json:"search_terms" mapstructure:"search_terms"`
	ExcludeTerms []string `json:"exclude_terms" mapstructure:"exclude_terms"`
}

// Config captures one discovery run's parameters. It is immutable once a
// session starts; a resumed session reuses the config captured at creation.
type Config struct {
	TargetCount             int      `json:"target_count" mapstructure:"target_count"`
	Strategy                Strategy `json:"strategy" mapstructure:"strategy"`
	Niche                   Niche    `json:"niche" mapstructure:"niche"`
	EnableReviewImport      bool     `json:"enable_review_import" mapstructure:"enable_review_import"`
	EnableSocialEnhancement bool     `json:"enable_social_enhancement" mapstructure:"enable_social_enhancement"`
	MaxConcurrentSearches   int      `json:"max_concurrent_searches" mapstructure:"max_concurrent_searches"`
	PauseAfterMinutes       int      `json:"pause_after_minutes,omitempty" mapstructure:"pause_after_minutes"`
}

// SessionStatus represents the lifecycle state of a discovery session.
type SessionStatus string

// Session status values. Running exists only while a process drives the
// session; completed/stopped/error are terminal.
const (
	SessionStatusCreated   SessionStatus = "created"
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusPaused    SessionStatus = "paused"
	SessionStatusStopped   SessionStatus = "stopped"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusError     SessionStatus = "error"
)

// Session is the durable, resumable record of one discovery run. The grid
// list is fixed at creation; the cursor indexes the next grid to process and
// never decreases while running.
type Session struct {
	ID        string        `json:"id"`
	Config    Config        `json:"config"`
	Grids     []Grid        `json:"grids"`
	Status    SessionStatus `json:"status"`
	Cursor    int           `json:"cursor"`
	Found     int           `json:"found"`
	Imported  int           `json:"imported"`
	Errors    []string      `json:"errors,omitempty"`
	Version   int64         `json:"version"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// CompletedGrids counts grids that reached a terminal status.
func (s Session) CompletedGrids() int {
	n := 0
	for _, g := range s.Grids {
		if g.Status == GridStatusCompleted || g.Status == GridStatusError {
			n++
		}
	}
	return n
}

// Terminal reports whether the session can no longer be resumed.
func (s Session) Terminal() bool {
	switch s.Status {
	case SessionStatusCompleted, SessionStatusStopped, SessionStatusError:
		return true
	default:
		return false
	}
}

// PlaceSummary is one row of a provider nearby-search response.
type PlaceSummary struct {
	ExternalID string
	Name       string
	Category   string
	Lat        float64
	Lng        float64
}

// PlaceDetails is the full detail payload for one place. Raw carries the
// provider's original response body for archival.
type PlaceDetails struct {
	ExternalID   string
	Name         string
	StreetNumber string
	Route        string
	City         string
	Region       string
	PostalCode   string
	Phone        string
	Website      string
	Lat          float64
	Lng          float64
	Rating       float64
	ReviewCount  int
	Categories   []string
	Hours        []string
	PhotoURLs    []string
	Raw          []byte
}

// Address renders the normalized street line (street-number + route).
func (d PlaceDetails) Address() string {
	switch {
	case d.StreetNumber == "":
		return d.Route
	case d.Route == "":
		return d.StreetNumber
	default:
		return d.StreetNumber + " " + d.Route
	}
}

// Candidate is an in-flight, not-yet-persisted business observation assembled
// from one or more provider responses. Sources maps provider name to the
// provider's external id for provenance.
type Candidate struct {
	Name        string
	Address     string
	City        string
	Region      string
	PostalCode  string
	Phone       string
	Website     string
	Email       string
	Lat         float64
	Lng         float64
	Rating      float64
	ReviewCount int
	Categories  []string
	Services    []string
	Tags        []string
	Hours       []string
	PhotoURLs   []string
	Socials     map[string]string
	Sources     map[string]string
}

// BusinessRecord is the durable, deduplicated entity in the directory store.
type BusinessRecord struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Address     string            `json:"address"`
	City        string            `json:"city"`
	Region      string            `json:"region"`
	PostalCode  string            `json:"postal_code"`
	Phone       string            `json:"phone"`
	Website     string            `json:"website"`
	Email       string            `json:"email"`
	Lat         float64           `json:"lat"`
	Lng         float64           `json:"lng"`
	Rating      float64           `json:"rating"`
	ReviewCount int               `json:"review_count"`
	Categories  []string          `json:"categories,omitempty"`
	Services    []string          `json:"services,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Hours       []string          `json:"hours,omitempty"`
	PhotoURLs   []string          `json:"photo_urls,omitempty"`
	Socials     map[string]string `json:"socials,omitempty"`
	Sources     map[string]string `json:"sources,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
