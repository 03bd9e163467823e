package geo

import (
	"errors"
	"math"
)

// mean Earth radius in meters
const earthRadiusM = 6371000.0

var (
	ErrBadAccuracy = errors.New("accuracy must be a positive number of meters")
	ErrBadRadius   = errors.New("geofence radius must not be negative")
)

// Anchor is the fixed reference coordinate plus the geofence radius.
type Anchor struct {
	Latitude  float64
	Longitude float64
	RadiusM   float64
}

type Check struct {
	WithinRange bool    `json:"within_range"`
	DistanceM   float64 `json:"distance_m"`
}

// Distance computes the great-circle distance between two coordinates
// in meters using the haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// Contains decides whether a reported fix falls inside the geofence.
// The reported GPS accuracy is added to the measured distance before
// comparing against the radius, so an unreliable fix near the boundary
// fails rather than passes.
func (a Anchor) Contains(lat, lon, accuracyM float64) (Check, error) {
	if accuracyM <= 0 {
		return Check{}, ErrBadAccuracy
	}
	if a.RadiusM < 0 {
		return Check{}, ErrBadRadius
	}

	d := Distance(a.Latitude, a.Longitude, lat, lon)
	return Check{
		WithinRange: d+accuracyM <= a.RadiusM,
		DistanceM:   d,
	}, nil
}
