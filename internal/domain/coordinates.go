package domain

import (
	"fmt"
	"math"
)

// Mean Earth radius in meters (IUGG).
const EarthRadiusMeters = 6371008.8

// Geographic point in decimal degrees.
type Coordinates struct {
	Lat float64
	Lng float64
}

// Valid reports whether both components are finite and inside the WGS84 range.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Return coordinates as [lng, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lng, c.Lat} }

// Key is a stable textual form used for cache keys (~0.1m precision).
func (c Coordinates) Key() string { return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng) }

// DistanceTo returns the great-circle distance in meters.
func (c Coordinates) DistanceTo(o Coordinates) float64 {
	return Haversine(c, o)
}

func Haversine(a, b Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Centroid is the arithmetic mean of lat/lng. This is not a geodesic centroid;
// it is accurate enough for city-scale clusters and that is all it is used for.
func Centroid(points []Coordinates) Coordinates {
	if len(points) == 0 {
		return Coordinates{}
	}
	var lat, lng float64
	for _, p := range points {
		lat += p.Lat
		lng += p.Lng
	}
	n := float64(len(points))
	return Coordinates{Lat: lat / n, Lng: lng / n}
}
