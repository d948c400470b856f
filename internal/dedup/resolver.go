// Package dedup decides whether a discovered candidate creates a new
// canonical business record, merges into an existing one, or is skipped. It
// owns the normalized dedup keys shared by cross-provider matching and the
// store lookups.
package dedup

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/nichelabs/discovery-engine/internal/discovery"
	"github.com/nichelabs/discovery-engine/internal/metrics"
)

// Action is the resolution outcome for one candidate.
type Action string

// Resolution actions.
const (
	ActionCreate Action = "create"
	ActionMerge  Action = "merge"
	ActionSkip   Action = "skip"
)

// Match-tier confidences, highest tier first.
const (
	confNamePostal = 0.9
	confAddress    = 0.85
	confPhone      = 0.8
	confProximity  = 0.7
)

// Resolution reports the action taken and the resulting canonical record.
type Resolution struct {
	Action     Action
	Confidence float64
	Record     discovery.BusinessRecord
}

// Config tunes matching and merge behavior.
type Config struct {
	// AllowMerge permits updating matched records; when false a match is
	// skipped and the existing record returned unchanged.
	AllowMerge bool
	// OverwriteFields lists field names a merge may overwrite even when the
	// existing value is non-empty.
	OverwriteFields []string
	// ProximityKm bounds the tier-4 geo match distance.
	ProximityKm float64
	// MinNameTokenOverlap is the leading-token agreement tier 4 requires.
	MinNameTokenOverlap int
}

const (
	defaultProximityKm = 0.5
	defaultNameOverlap = 2
)

// Resolver matches candidates against the canonical record store.
type Resolver struct {
	store     discovery.RecordStore
	clock     discovery.Clock
	idGen     discovery.IDGenerator
	cfg       Config
	overwrite map[string]bool
	logger    *zap.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(
	store discovery.RecordStore,
	clock discovery.Clock,
	idGen discovery.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Resolver {
	if cfg.ProximityKm <= 0 {
		cfg.ProximityKm = defaultProximityKm
	}
	if cfg.MinNameTokenOverlap <= 0 {
		cfg.MinNameTokenOverlap = defaultNameOverlap
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	overwrite := make(map[string]bool, len(cfg.OverwriteFields))
	for _, f := range cfg.OverwriteFields {
		overwrite[f] = true
	}
	return &Resolver{
		store:     store,
		clock:     clock,
		idGen:     idGen,
		cfg:       cfg,
		overwrite: overwrite,
		logger:    logger,
	}
}

// Resolve evaluates the matching tiers in order, first match wins. No match
// inserts a new record; a match either merges (field policy applies) or is
// skipped when merging is disabled.
func (r *Resolver) Resolve(ctx context.Context, cand discovery.Candidate) (Resolution, error) {
	existing, confidence, err := r.match(ctx, cand)
	if err != nil {
		return Resolution{}, err
	}

	if existing == nil {
		rec, err := r.create(ctx, cand)
		if err != nil {
			return Resolution{}, err
		}
		metrics.ObserveResolution(string(ActionCreate))
		return Resolution{Action: ActionCreate, Confidence: 1.0, Record: rec}, nil
	}

	if !r.cfg.AllowMerge {
		metrics.ObserveResolution(string(ActionSkip))
		return Resolution{Action: ActionSkip, Confidence: confidence, Record: *existing}, nil
	}

	merged := *existing
	r.mergeInto(&merged, cand)
	merged.UpdatedAt = r.clock.Now()
	if err := r.store.Update(ctx, merged); err != nil {
		return Resolution{}, fmt.Errorf("update merged record: %w", err)
	}
	r.logger.Debug("candidate merged into existing record",
		zap.String("record_id", merged.ID),
		zap.Float64("confidence", confidence),
	)
	metrics.ObserveResolution(string(ActionMerge))
	return Resolution{Action: ActionMerge, Confidence: confidence, Record: merged}, nil
}

func (r *Resolver) match(ctx context.Context, cand discovery.Candidate) (*discovery.BusinessRecord, float64, error) {
	nameKey := NameKey(cand.Name)
	postal := PostalKey(cand.PostalCode)
	if nameKey != "" && postal != "" {
		rec, found, err := r.store.FindByNamePostal(ctx, nameKey, postal)
		if err != nil {
			return nil, 0, fmt.Errorf("match name+postal: %w", err)
		}
		if found {
			return &rec, confNamePostal, nil
		}
	}

	addrKey := AddressKey(cand.Address)
	if addrKey != "" && cand.City != "" {
		rec, found, err := r.store.FindByAddress(ctx, addrKey, CityKey(cand.City), CityKey(cand.Region))
		if err != nil {
			return nil, 0, fmt.Errorf("match address: %w", err)
		}
		if found {
			return &rec, confAddress, nil
		}
	}

	if phone := PhoneKey(cand.Phone); phone != "" {
		rec, found, err := r.store.FindByPhone(ctx, phone)
		if err != nil {
			return nil, 0, fmt.Errorf("match phone: %w", err)
		}
		if found {
			return &rec, confPhone, nil
		}
	}

	if cand.Lat != 0 || cand.Lng != 0 {
		nearby, err := r.store.FindNear(ctx, cand.Lat, cand.Lng, r.cfg.ProximityKm)
		if err != nil {
			return nil, 0, fmt.Errorf("match proximity: %w", err)
		}
		for i := range nearby {
			if LeadingTokenOverlap(nearby[i].Name, cand.Name) >= r.cfg.MinNameTokenOverlap {
				return &nearby[i], confProximity, nil
			}
		}
	}

	return nil, 0, nil
}

func (r *Resolver) create(ctx context.Context, cand discovery.Candidate) (discovery.BusinessRecord, error) {
	id, err := r.idGen.NewID()
	if err != nil {
		return discovery.BusinessRecord{}, fmt.Errorf("generate record id: %w", err)
	}
	now := r.clock.Now()
	rec := discovery.BusinessRecord{
		ID:          id,
		Name:        cand.Name,
		Address:     cand.Address,
		City:        cand.City,
		Region:      cand.Region,
		PostalCode:  cand.PostalCode,
		Phone:       cand.Phone,
		Website:     cand.Website,
		Email:       cand.Email,
		Lat:         cand.Lat,
		Lng:         cand.Lng,
		Rating:      cand.Rating,
		ReviewCount: cand.ReviewCount,
		Categories:  append([]string(nil), cand.Categories...),
		Services:    append([]string(nil), cand.Services...),
		Tags:        append([]string(nil), cand.Tags...),
		Hours:       append([]string(nil), cand.Hours...),
		PhotoURLs:   append([]string(nil), cand.PhotoURLs...),
		Socials:     copyMap(cand.Socials),
		Sources:     copyMap(cand.Sources),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.store.Insert(ctx, rec); err != nil {
		return discovery.BusinessRecord{}, fmt.Errorf("insert record: %w", err)
	}
	return rec, nil
}

// mergeInto applies the field policy: scalar fields are overwritten only when
// listed in OverwriteFields or currently empty; array fields are unioned;
// maps are additive.
func (r *Resolver) mergeInto(rec *discovery.BusinessRecord, cand discovery.Candidate) {
	mergeString(&rec.Name, cand.Name, r.overwrite["name"])
	mergeString(&rec.Address, cand.Address, r.overwrite["address"])
	mergeString(&rec.City, cand.City, r.overwrite["city"])
	mergeString(&rec.Region, cand.Region, r.overwrite["region"])
	mergeString(&rec.PostalCode, cand.PostalCode, r.overwrite["postal_code"])
	mergeString(&rec.Phone, cand.Phone, r.overwrite["phone"])
	mergeString(&rec.Website, cand.Website, r.overwrite["website"])
	mergeString(&rec.Email, cand.Email, r.overwrite["email"])

	if (rec.Lat == 0 && rec.Lng == 0 && (cand.Lat != 0 || cand.Lng != 0)) || r.overwrite["coordinates"] {
		if cand.Lat != 0 || cand.Lng != 0 {
			rec.Lat, rec.Lng = cand.Lat, cand.Lng
		}
	}
	if (rec.Rating == 0 || r.overwrite["rating"]) && cand.Rating != 0 {
		rec.Rating = cand.Rating
	}
	if (rec.ReviewCount == 0 || r.overwrite["review_count"]) && cand.ReviewCount != 0 {
		rec.ReviewCount = cand.ReviewCount
	}

	rec.Categories = unionStrings(rec.Categories, cand.Categories)
	rec.Services = unionStrings(rec.Services, cand.Services)
	rec.Tags = unionStrings(rec.Tags, cand.Tags)
	rec.Hours = mergeHours(rec.Hours, cand.Hours, r.overwrite["hours"])
	rec.PhotoURLs = unionStrings(rec.PhotoURLs, cand.PhotoURLs)
	rec.Socials = addMap(rec.Socials, cand.Socials)
	rec.Sources = addMap(rec.Sources, cand.Sources)
}

func mergeString(dst *string, src string, overwrite bool) {
	if src == "" {
		return
	}
	if *dst == "" || overwrite {
		*dst = src
	}
}

// unionStrings merges two string sets preserving existing order and sorting
// the newly added tail for stable output.
func unionStrings(existing, incoming []string) []string {
	if len(incoming) == 0 {
		return existing
	}
	seen := make(map[string]bool, len(existing))
	for _, s := range existing {
		seen[s] = true
	}
	var added []string
	for _, s := range incoming {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		added = append(added, s)
	}
	sort.Strings(added)
	return append(existing, added...)
}

// Hours describe one weekly schedule; union would interleave two schedules,
// so incoming hours replace only an empty or explicitly overwritable set.
func mergeHours(existing, incoming []string, overwrite bool) []string {
	if len(incoming) == 0 {
		return existing
	}
	if len(existing) == 0 || overwrite {
		return append([]string(nil), incoming...)
	}
	return existing
}

func addMap(dst, src map[string]string) map[string]string {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		if _, ok := dst[k]; !ok && v != "" {
			dst[k] = v
		}
	}
	return dst
}

func copyMap(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
