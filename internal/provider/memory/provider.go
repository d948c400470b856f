// Package memory contains an in-memory search provider for development and
// tests. It serves seeded places filtered by distance and keyword, mimicking
// a real provider's result cap.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nichelabs/discovery-engine/internal/discovery"
)

const resultCap = 60

// Provider implements discovery.SearchProvider over a seeded place set.
type Provider struct {
	name      string
	maxRadius float64

	mu     sync.RWMutex
	places map[string]discovery.PlaceDetails
	order  []string
}

// New returns an empty Provider publishing under the given name.
func New(name string) *Provider {
	if name == "" {
		name = "memory"
	}
	return &Provider{
		name:      name,
		maxRadius: 50000,
		places:    make(map[string]discovery.PlaceDetails),
	}
}

// Seed registers places served by subsequent searches.
func (p *Provider) Seed(details ...discovery.PlaceDetails) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range details {
		if d.ExternalID == "" {
			d.ExternalID = fmt.Sprintf("%s-%04d", p.name, len(p.order)+1)
		}
		if _, ok := p.places[d.ExternalID]; !ok {
			p.order = append(p.order, d.ExternalID)
		}
		p.places[d.ExternalID] = d
	}
}

// Name implements discovery.SearchProvider.
func (p *Provider) Name() string { return p.name }

// MaxRadiusMeters implements discovery.SearchProvider.
func (p *Provider) MaxRadiusMeters() float64 { return p.maxRadius }

// NearbySearch returns seeded places within the radius whose name or
// categories contain the keyword, in seed order, capped like a real provider.
func (p *Provider) NearbySearch(ctx context.Context, lat, lng, radiusMeters float64, keyword string) ([]discovery.PlaceSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if radiusMeters > p.maxRadius {
		radiusMeters = p.maxRadius
	}
	needle := strings.ToLower(keyword)

	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []discovery.PlaceSummary
	for _, id := range p.order {
		d := p.places[id]
		if discovery.HaversineKm(lat, lng, d.Lat, d.Lng) > radiusMeters/1000 {
			continue
		}
		if needle != "" && !matches(d, needle) {
			continue
		}
		s := discovery.PlaceSummary{
			ExternalID: d.ExternalID,
			Name:       d.Name,
			Lat:        d.Lat,
			Lng:        d.Lng,
		}
		if len(d.Categories) > 0 {
			s.Category = d.Categories[0]
		}
		out = append(out, s)
		if len(out) >= resultCap {
			break
		}
	}
	return out, nil
}

// Details implements discovery.SearchProvider.
func (p *Provider) Details(ctx context.Context, externalID string) (discovery.PlaceDetails, error) {
	if err := ctx.Err(); err != nil {
		return discovery.PlaceDetails{}, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, ok := p.places[externalID]
	if !ok {
		return discovery.PlaceDetails{}, fmt.Errorf("place %q not seeded", externalID)
	}
	return d, nil
}

func matches(d discovery.PlaceDetails, needle string) bool {
	if strings.Contains(strings.ToLower(d.Name), needle) {
		return true
	}
	for _, c := range d.Categories {
		if strings.Contains(strings.ToLower(c), needle) {
			return true
		}
	}
	return false
}
