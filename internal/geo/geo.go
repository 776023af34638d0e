// Package geo holds the great-circle helpers used by race resolution.
package geo

import "math"

// EarthRadiusM is the mean earth radius (IUGG) in meters.
const EarthRadiusM = 6371008.8

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Distance returns the haversine distance between a and b in meters.
func Distance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	if s > 1 {
		s = 1
	}
	return 2 * EarthRadiusM * math.Asin(math.Sqrt(s))
}

// PathLength sums the distances between consecutive points.
func PathLength(path []Point) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += Distance(path[i-1], path[i])
	}
	return total
}

// Offset moves p by northM/eastM meters on the local tangent plane.
// Good enough for the few hundred meters a loop spans.
func Offset(p Point, northM, eastM float64) Point {
	dLat := northM / EarthRadiusM * 180 / math.Pi
	dLng := eastM / (EarthRadiusM * math.Cos(p.Lat*math.Pi/180)) * 180 / math.Pi
	return Point{Lat: p.Lat + dLat, Lng: p.Lng + dLng}
}

// Clone returns a copy that does not alias path.
func Clone(path []Point) []Point {
	if path == nil {
		return nil
	}
	out := make([]Point, len(path))
	copy(out, path)
	return out
}
