package discovery

import (
	"context"
	"time"
)

// SearchProvider is an external place-search API treated as a black box. A
// NearbySearch call returns at most the provider's result cap (~60); callers
// accept truncation rather than paginate.
type SearchProvider interface {
	// Name identifies the provider in candidate provenance maps.
	Name() string
	// NearbySearch returns place summaries around a point for one keyword.
	NearbySearch(ctx context.Context, lat, lng float64, radiusMeters float64, keyword string) ([]PlaceSummary, error)
	// Details fetches the full attribute payload for one place.
	Details(ctx context.Context, externalID string) (PlaceDetails, error)
	// MaxRadiusMeters is the largest search radius the provider accepts.
	MaxRadiusMeters() float64
}

// SessionStore persists session snapshots. SaveSnapshot must reject writes
// whose version does not match the stored version (ErrVersionConflict) so two
// drivers of the same session cannot silently interleave.
type SessionStore interface {
	CreateSession(ctx context.Context, s Session) error
	SaveSnapshot(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (Session, error)
}

// RecordStore is the canonical business record store. Lookup methods take
// normalized keys (see dedup package) and report found=false on no match.
type RecordStore interface {
	FindByNamePostal(ctx context.Context, nameKey, postalCode string) (BusinessRecord, bool, error)
	FindByAddress(ctx context.Context, addressKey, cityKey, regionKey string) (BusinessRecord, bool, error)
	FindByPhone(ctx context.Context, phoneKey string) (BusinessRecord, bool, error)
	FindNear(ctx context.Context, lat, lng, radiusKm float64) ([]BusinessRecord, error)
	Insert(ctx context.Context, rec BusinessRecord) error
	Update(ctx context.Context, rec BusinessRecord) error
}

// Publisher pushes imported-record events downstream (Pub/Sub or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// ArchiveStore writes raw provider payloads for audit and returns a URI.
type ArchiveStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces session and record IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
