package discovery

import "math"

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points in km.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// Center returns the midpoint of a bounding box.
func (b Bounds) Center() (lat, lng float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLng + b.MaxLng) / 2
}

// RadiusKm returns half the diagonal of the bounding box in km.
func (b Bounds) RadiusKm() float64 {
	return HaversineKm(b.MinLat, b.MinLng, b.MaxLat, b.MaxLng) / 2
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
