package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by DistanceKm.
const EarthRadiusKm = 6371.0

func rad(d float64) float64 { return d * math.Pi / 180 }

// DistanceKm returns the haversine great-circle distance between a and b in
// kilometres.
func DistanceKm(a, b Coordinate) float64 {
	φ1, φ2 := rad(a.Lat), rad(b.Lat)
	Δφ := rad(b.Lat - a.Lat)
	Δλ := rad(b.Lon - a.Lon)

	h := math.Sin(Δφ/2)*math.Sin(Δφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	// rounding can push h a hair outside [0, 1] for antipodal points
	h = math.Min(1, math.Max(0, h))

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DistanceFrom returns the distance from home to p, or nil when either
// point is unknown.
func DistanceFrom(p, home *Coordinate) *float64 {
	if p == nil || home == nil {
		return nil
	}
	d := DistanceKm(*p, *home)
	return &d
}
