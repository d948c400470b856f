package grid

import "github.com/nichelabs/discovery-engine/internal/discovery"

// seedCenter is one curated population center used to anchor dense tilings.
type seedCenter struct {
	Name     string
	Region   string
	Lat      float64
	Lng      float64
	RadiusKm float64
}

// Primary metros get dense priority-1 tilings. Order is fixed; grid
// generation must be deterministic for a given config.
var primaryMetros = []seedCenter{
	{Name: "New York", Region: "NY", Lat: 40.7128, Lng: -74.0060, RadiusKm: 40},
	{Name: "Los Angeles", Region: "CA", Lat: 34.0522, Lng: -118.2437, RadiusKm: 45},
	{Name: "Chicago", Region: "IL", Lat: 41.8781, Lng: -87.6298, RadiusKm: 35},
	{Name: "Houston", Region: "TX", Lat: 29.7604, Lng: -95.3698, RadiusKm: 40},
	{Name: "Phoenix", Region: "AZ", Lat: 33.4484, Lng: -112.0740, RadiusKm: 35},
	{Name: "Philadelphia", Region: "PA", Lat: 39.9526, Lng: -75.1652, RadiusKm: 30},
	{Name: "San Antonio", Region: "TX", Lat: 29.4241, Lng: -98.4936, RadiusKm: 30},
	{Name: "San Diego", Region: "CA", Lat: 32.7157, Lng: -117.1611, RadiusKm: 30},
	{Name: "Dallas", Region: "TX", Lat: 32.7767, Lng: -96.7970, RadiusKm: 40},
	{Name: "San Jose", Region: "CA", Lat: 37.3382, Lng: -121.8863, RadiusKm: 25},
	{Name: "Austin", Region: "TX", Lat: 30.2672, Lng: -97.7431, RadiusKm: 30},
	{Name: "Jacksonville", Region: "FL", Lat: 30.3322, Lng: -81.6557, RadiusKm: 30},
	{Name: "Fort Worth", Region: "TX", Lat: 32.7555, Lng: -97.3308, RadiusKm: 25},
	{Name: "Columbus", Region: "OH", Lat: 39.9612, Lng: -82.9988, RadiusKm: 25},
	{Name: "Charlotte", Region: "NC", Lat: 35.2271, Lng: -80.8431, RadiusKm: 25},
	{Name: "San Francisco", Region: "CA", Lat: 37.7749, Lng: -122.4194, RadiusKm: 25},
	{Name: "Indianapolis", Region: "IN", Lat: 39.7684, Lng: -86.1581, RadiusKm: 25},
	{Name: "Seattle", Region: "WA", Lat: 47.6062, Lng: -122.3321, RadiusKm: 30},
	{Name: "Denver", Region: "CO", Lat: 39.7392, Lng: -104.9903, RadiusKm: 30},
	{Name: "Boston", Region: "MA", Lat: 42.3601, Lng: -71.0589, RadiusKm: 30},
	{Name: "Nashville", Region: "TN", Lat: 36.1627, Lng: -86.7816, RadiusKm: 25},
	{Name: "Detroit", Region: "MI", Lat: 42.3314, Lng: -83.0458, RadiusKm: 30},
	{Name: "Portland", Region: "OR", Lat: 45.5152, Lng: -122.6784, RadiusKm: 25},
	{Name: "Las Vegas", Region: "NV", Lat: 36.1699, Lng: -115.1398, RadiusKm: 30},
	{Name: "Miami", Region: "FL", Lat: 25.7617, Lng: -80.1918, RadiusKm: 35},
	{Name: "Atlanta", Region: "GA", Lat: 33.7490, Lng: -84.3880, RadiusKm: 35},
	{Name: "Washington", Region: "DC", Lat: 38.9072, Lng: -77.0369, RadiusKm: 30},
	{Name: "Minneapolis", Region: "MN", Lat: 44.9778, Lng: -93.2650, RadiusKm: 25},
	{Name: "Tampa", Region: "FL", Lat: 27.9506, Lng: -82.4572, RadiusKm: 25},
	{Name: "St. Louis", Region: "MO", Lat: 38.6270, Lng: -90.1994, RadiusKm: 25},
}

// Secondary centers get sparser priority-2 tilings.
var secondaryCenters = []seedCenter{
	{Name: "Baltimore", Region: "MD", Lat: 39.2904, Lng: -76.6122, RadiusKm: 20},
	{Name: "Oklahoma City", Region: "OK", Lat: 35.4676, Lng: -97.5164, RadiusKm: 20},
	{Name: "Louisville", Region: "KY", Lat: 38.2527, Lng: -85.7585, RadiusKm: 20},
	{Name: "Milwaukee", Region: "WI", Lat: 43.0389, Lng: -87.9065, RadiusKm: 20},
	{Name: "Albuquerque", Region: "NM", Lat: 35.0844, Lng: -106.6504, RadiusKm: 20},
	{Name: "Tucson", Region: "AZ", Lat: 32.2226, Lng: -110.9747, RadiusKm: 20},
	{Name: "Fresno", Region: "CA", Lat: 36.7378, Lng: -119.7871, RadiusKm: 20},
	{Name: "Sacramento", Region: "CA", Lat: 38.5816, Lng: -121.4944, RadiusKm: 20},
	{Name: "Kansas City", Region: "MO", Lat: 39.0997, Lng: -94.5786, RadiusKm: 20},
	{Name: "Mesa", Region: "AZ", Lat: 33.4152, Lng: -111.8315, RadiusKm: 15},
	{Name: "Omaha", Region: "NE", Lat: 41.2565, Lng: -95.9345, RadiusKm: 15},
	{Name: "Raleigh", Region: "NC", Lat: 35.7796, Lng: -78.6382, RadiusKm: 20},
	{Name: "Colorado Springs", Region: "CO", Lat: 38.8339, Lng: -104.8214, RadiusKm: 15},
	{Name: "Virginia Beach", Region: "VA", Lat: 36.8529, Lng: -75.9780, RadiusKm: 15},
	{Name: "Salt Lake City", Region: "UT", Lat: 40.7608, Lng: -111.8910, RadiusKm: 20},
	{Name: "Richmond", Region: "VA", Lat: 37.5407, Lng: -77.4360, RadiusKm: 15},
	{Name: "New Orleans", Region: "LA", Lat: 29.9511, Lng: -90.0715, RadiusKm: 20},
	{Name: "Cleveland", Region: "OH", Lat: 41.4993, Lng: -81.6944, RadiusKm: 20},
	{Name: "Pittsburgh", Region: "PA", Lat: 40.4406, Lng: -79.9959, RadiusKm: 20},
	{Name: "Cincinnati", Region: "OH", Lat: 39.1031, Lng: -84.5120, RadiusKm: 20},
	{Name: "Orlando", Region: "FL", Lat: 28.5383, Lng: -81.3792, RadiusKm: 20},
	{Name: "Buffalo", Region: "NY", Lat: 42.8864, Lng: -78.8784, RadiusKm: 15},
	{Name: "Memphis", Region: "TN", Lat: 35.1495, Lng: -90.0490, RadiusKm: 20},
	{Name: "Boise", Region: "ID", Lat: 43.6150, Lng: -116.2023, RadiusKm: 15},
}

// continentalBounds is the macro bounding box for the nationwide strategy and
// the fallback tiling.
var continentalBounds = discovery.Bounds{
	MinLat: 24.5, MinLng: -124.8,
	MaxLat: 49.0, MaxLng: -66.9,
}

// regionBounds maps administrative region codes to bounding boxes for the
// state_by_state strategy. Regions iterate in sorted key order.
var regionBounds = map[string]discovery.Bounds{
	"AZ": {MinLat: 31.3, MinLng: -114.8, MaxLat: 37.0, MaxLng: -109.0},
	"CA": {MinLat: 32.5, MinLng: -124.4, MaxLat: 42.0, MaxLng: -114.1},
	"CO": {MinLat: 37.0, MinLng: -109.1, MaxLat: 41.0, MaxLng: -102.0},
	"FL": {MinLat: 24.5, MinLng: -87.6, MaxLat: 31.0, MaxLng: -80.0},
	"GA": {MinLat: 30.4, MinLng: -85.6, MaxLat: 35.0, MaxLng: -80.8},
	"IL": {MinLat: 37.0, MinLng: -91.5, MaxLat: 42.5, MaxLng: -87.5},
	"MA": {MinLat: 41.2, MinLng: -73.5, MaxLat: 42.9, MaxLng: -69.9},
	"MI": {MinLat: 41.7, MinLng: -90.4, MaxLat: 48.3, MaxLng: -82.4},
	"NC": {MinLat: 33.8, MinLng: -84.3, MaxLat: 36.6, MaxLng: -75.5},
	"NV": {MinLat: 35.0, MinLng: -120.0, MaxLat: 42.0, MaxLng: -114.0},
	"NY": {MinLat: 40.5, MinLng: -79.8, MaxLat: 45.0, MaxLng: -71.9},
	"OH": {MinLat: 38.4, MinLng: -84.8, MaxLat: 42.0, MaxLng: -80.5},
	"OR": {MinLat: 42.0, MinLng: -124.6, MaxLat: 46.3, MaxLng: -116.5},
	"PA": {MinLat: 39.7, MinLng: -80.5, MaxLat: 42.3, MaxLng: -74.7},
	"TN": {MinLat: 35.0, MinLng: -90.3, MaxLat: 36.7, MaxLng: -81.6},
	"TX": {MinLat: 25.8, MinLng: -106.6, MaxLat: 36.5, MaxLng: -93.5},
	"WA": {MinLat: 45.5, MinLng: -124.8, MaxLat: 49.0, MaxLng: -116.9},
}
