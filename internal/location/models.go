// Package location serves job and pro coordinates: privacy-aware job
// location display, nearby-pro search and address geocoding.
package location

import (
	"time"

	"marketguard/internal/geo"
)

// Disclosure values reported with a job location.
const (
	DisclosureExact      = "exact"
	DisclosureObfuscated = "obfuscated"
	DisclosureNone       = "none"
)

// Geocode outcomes.
const (
	GeocodeResolved   = "resolved"
	GeocodeQueued     = "queued"
	GeocodeUnresolved = "unresolved"
)

// Targets of an asynchronous geocode request.
const (
	TargetJob = "job"
	TargetPro = "pro"
)

// JobLocation is what a counterpart may see of a job's position. Point is
// nil while the job has not been geocoded.
type JobLocation struct {
	JobID      string        `json:"job_id"`
	Point      *geo.GeoPoint `json:"point"`
	Exact      bool          `json:"exact"`
	Disclosure string        `json:"disclosure"`
}

// ProLocation is a pro's base position as stored in pro_locations.
type ProLocation struct {
	ProID     string       `bson:"pro_id" json:"pro_id"`
	Point     geo.GeoPoint `bson:",inline" json:"point"`
	Address   string       `bson:"address,omitempty" json:"address,omitempty"`
	UpdatedAt time.Time    `bson:"updated_at" json:"updated_at"`
}

type NearbyPro struct {
	ProID          string       `json:"pro_id"`
	Point          geo.GeoPoint `json:"point"`
	DistanceMeters float64      `json:"distance_meters"`
}

type NearbyQuery struct {
	Center   geo.GeoPoint
	RadiusKm float64
	Limit    int
}

type GeocodeJobRequest struct {
	Address string `json:"address" binding:"required"`
}

// UpdateProLocationRequest carries either coordinates or an address to
// geocode. Coordinates win when both are present.
type UpdateProLocationRequest struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Address   string   `json:"address,omitempty"`
}

type GeocodeResult struct {
	Status string        `json:"status"`
	Point  *geo.GeoPoint `json:"point,omitempty"`
}

// GeocodeRequest is the payload of a geocode_request envelope.
type GeocodeRequest struct {
	Target  string
	ID      string
	Address string
}
