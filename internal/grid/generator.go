// Package grid partitions a macro search region into a prioritized, ordered
// list of search tiles for the discovery orchestrator.
package grid

import (
	"fmt"
	"math"
	"sort"

	"github.com/nichelabs/discovery-engine/internal/discovery"
)

// Tile spacing is chosen so one provider query near the tile center is
// unlikely to exceed the provider's ~60 result cap.
const (
	denseSpacingKm  = 6.0
	sparseSpacingKm = 12.0
	coarseSpacingKm = 60.0
)

// Config tunes grid generation. Zero values fall back to defaults.
type Config struct {
	// MinSeparationKm drops tiles whose centers sit closer than this to an
	// already-kept, higher-or-equal-priority tile.
	MinSeparationKm float64
	// AvgYieldPerGrid is the assumed businesses found per tile, used to
	// truncate the output to what plausibly reaches the target count.
	AvgYieldPerGrid int
	// MacroBounds overrides the default macro region bounding box.
	MacroBounds discovery.Bounds
}

const (
	defaultMinSeparationKm = 4.0
	defaultAvgYield        = 20
)

// Generator produces deterministic grid lists: the same strategy and target
// count always yield the same tiles in the same order, which makes resume
// after a crash safe and the output unit-testable.
type Generator struct {
	cfg Config
}

// New builds a Generator, applying defaults for unset config fields.
func New(cfg Config) *Generator {
	if cfg.MinSeparationKm <= 0 {
		cfg.MinSeparationKm = defaultMinSeparationKm
	}
	if cfg.AvgYieldPerGrid <= 0 {
		cfg.AvgYieldPerGrid = defaultAvgYield
	}
	if cfg.MacroBounds == (discovery.Bounds{}) {
		cfg.MacroBounds = continentalBounds
	}
	return &Generator{cfg: cfg}
}

// Generate returns the ordered tile list for one discovery config: built per
// strategy, near-duplicates removed, sorted by priority then generation
// order, and truncated to the count needed to plausibly reach the target.
func (g *Generator) Generate(dc discovery.Config) []discovery.Grid {
	var tiles []tile
	switch dc.Strategy {
	case discovery.StrategyNationwide:
		tiles = g.nationwideTiles()
	case discovery.StrategyStateByState:
		tiles = g.stateTiles(sortedRegionCodes())
	default:
		tiles = g.metroFirstTiles()
	}
	return g.finalize(tiles, dc)
}

// generateFromRegions is the state_by_state path scoped to an explicit region
// list. An empty or unconfigured region set yields an empty, valid grid list.
func (g *Generator) generateFromRegions(dc discovery.Config, regions []string) []discovery.Grid {
	return g.finalize(g.stateTiles(regions), dc)
}

func (g *Generator) finalize(tiles []tile, dc discovery.Config) []discovery.Grid {
	tiles = g.dropNearDuplicates(tiles)

	sort.SliceStable(tiles, func(i, j int) bool {
		if tiles[i].priority != tiles[j].priority {
			return tiles[i].priority < tiles[j].priority
		}
		return tiles[i].order < tiles[j].order
	})

	if needed := g.neededTiles(dc.TargetCount); needed < len(tiles) {
		tiles = tiles[:needed]
	}

	grids := make([]discovery.Grid, len(tiles))
	for i, t := range tiles {
		grids[i] = discovery.Grid{
			ID:        fmt.Sprintf("grid-%04d", i),
			CenterLat: t.lat,
			CenterLng: t.lng,
			RadiusKm:  t.radiusKm,
			Priority:  t.priority,
			Status:    discovery.GridStatusPending,
		}
	}
	return grids
}

type tile struct {
	lat, lng float64
	radiusKm float64
	priority int
	order    int
}

func (g *Generator) metroFirstTiles() []tile {
	var out []tile
	for _, m := range primaryMetros {
		out = append(out, radialTiles(m, denseSpacingKm, 1, len(out))...)
	}
	for _, c := range secondaryCenters {
		out = append(out, radialTiles(c, sparseSpacingKm, 2, len(out))...)
	}
	out = append(out, uniformTiles(g.cfg.MacroBounds, coarseSpacingKm, 3, len(out))...)
	return out
}

func (g *Generator) nationwideTiles() []tile {
	return uniformTiles(g.cfg.MacroBounds, coarseSpacingKm, 2, 0)
}

func (g *Generator) stateTiles(regions []string) []tile {
	out := []tile{}
	for _, code := range regions {
		bounds, ok := regionBounds[code]
		if !ok {
			continue
		}
		for _, m := range primaryMetros {
			if m.Region != code {
				continue
			}
			out = append(out, radialTiles(m, denseSpacingKm, 1, len(out))...)
		}
		out = append(out, uniformTiles(bounds, sparseSpacingKm*2, 2, len(out))...)
	}
	return out
}

// radialTiles synthesizes a center tile plus concentric rings out to the
// seed's coverage radius, with ring points roughly one spacing apart.
func radialTiles(seed seedCenter, spacingKm float64, priority, orderBase int) []tile {
	radius := spacingKm * 0.75
	out := []tile{{
		lat: seed.Lat, lng: seed.Lng,
		radiusKm: radius, priority: priority, order: orderBase,
	}}

	rings := int(seed.RadiusKm / spacingKm)
	for ring := 1; ring <= rings; ring++ {
		dist := float64(ring) * spacingKm
		points := int(math.Ceil(2 * math.Pi * dist / spacingKm))
		for p := 0; p < points; p++ {
			angle := 2 * math.Pi * float64(p) / float64(points)
			lat := seed.Lat + kmToLat(dist*math.Cos(angle))
			lng := seed.Lng + kmToLng(dist*math.Sin(angle), seed.Lat)
			out = append(out, tile{
				lat: lat, lng: lng,
				radiusKm: radius, priority: priority, order: orderBase + len(out),
			})
		}
	}
	return out
}

// uniformTiles lays a fixed-spacing lattice over a bounding box.
func uniformTiles(b discovery.Bounds, spacingKm float64, priority, orderBase int) []tile {
	radius := spacingKm * 0.75
	latStep := kmToLat(spacingKm)

	var out []tile
	for lat := b.MinLat + latStep/2; lat < b.MaxLat; lat += latStep {
		lngStep := kmToLng(spacingKm, lat)
		for lng := b.MinLng + lngStep/2; lng < b.MaxLng; lng += lngStep {
			out = append(out, tile{
				lat: lat, lng: lng,
				radiusKm: radius, priority: priority, order: orderBase + len(out),
			})
		}
	}
	return out
}

// dropNearDuplicates removes tiles whose center is within MinSeparationKm of
// an already-kept, higher-or-equal-priority tile, using great-circle
// distance. Tiles are examined in priority-then-order sequence so kept tiles
// always outrank or tie the one under test.
func (g *Generator) dropNearDuplicates(tiles []tile) []tile {
	ordered := make([]tile, len(tiles))
	copy(ordered, tiles)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].priority != ordered[j].priority {
			return ordered[i].priority < ordered[j].priority
		}
		return ordered[i].order < ordered[j].order
	})

	kept := make([]tile, 0, len(ordered))
	for _, t := range ordered {
		tooClose := false
		for _, k := range kept {
			if discovery.HaversineKm(t.lat, t.lng, k.lat, k.lng) < g.cfg.MinSeparationKm {
				tooClose = true
				break
			}
		}
		if !tooClose {
			kept = append(kept, t)
		}
	}
	return kept
}

func sortedRegionCodes() []string {
	codes := make([]string, 0, len(regionBounds))
	for code := range regionBounds {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (g *Generator) neededTiles(targetCount int) int {
	if targetCount <= 0 {
		return 0
	}
	return (targetCount + g.cfg.AvgYieldPerGrid - 1) / g.cfg.AvgYieldPerGrid
}

func kmToLat(km float64) float64 {
	return km / 110.574
}

func kmToLng(km float64, atLat float64) float64 {
	return km / (111.320 * math.Cos(radiansAt(atLat)))
}

func radiansAt(deg float64) float64 {
	return deg * math.Pi / 180.0
}
