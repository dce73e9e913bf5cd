// Package geo provides the spherical-earth primitives shared by the
// submission store and the proximity search: coordinate validation,
// great-circle distance and WKT conversion.
package geo

import (
	"errors"
	"math"
)

// EarthRadiusMeters is the IUGG mean earth radius, the same sphere
// PostGIS uses for ST_DistanceSphere.
const EarthRadiusMeters = 6371008.8

var (
	ErrLatitudeOutOfRange  = errors.New("latitude must be between -90 and 90")
	ErrLongitudeOutOfRange = errors.New("longitude must be between -180 and 180")
)

// Point is a WGS-84 coordinate pair.
type Point struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// NewPoint validates a coordinate pair and returns it as a Point.
// NaN and infinite values are rejected along with out-of-range ones.
func NewPoint(lat, lng float64) (Point, error) {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return Point{}, ErrLatitudeOutOfRange
	}
	if math.IsNaN(lng) || math.IsInf(lng, 0) || lng < -180 || lng > 180 {
		return Point{}, ErrLongitudeOutOfRange
	}
	return Point{Lat: lat, Lng: lng}, nil
}

// DistanceMeters returns the great-circle distance between two points
// using the haversine formula.
func DistanceMeters(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}
