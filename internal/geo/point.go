// Package geo holds the location privacy primitives: great-circle distance,
// bounding-box pre-filters and disk obfuscation of exact coordinates.
//
// Every function in this package is pure and safe for concurrent use.
package geo

import "fmt"

// GeoPoint is a WGS 84 coordinate in decimal degrees.
//
// The same shape is used for exact points (authoritative, privacy sensitive)
// and display points (derived, safe to hand to a counterpart).
type GeoPoint struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// Valid reports whether the point lies within the WGS 84 ranges.
func (p GeoPoint) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Latitude, p.Longitude)
}

// BoundingBox is a latitude/longitude rectangle.
//
// It over-approximates a circle away from the equator and must only be used
// to narrow a candidate set before an exact HaversineMeters check.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether p falls inside the box, edges included.
func (b BoundingBox) Contains(p GeoPoint) bool {
	return p.Latitude >= b.MinLat && p.Latitude <= b.MaxLat &&
		p.Longitude >= b.MinLon && p.Longitude <= b.MaxLon
}
