package geo

import (
	"math"
	"math/rand"
)

// DefaultObfuscationRadiusMeters is the displacement bound for undisclosed locations.
const DefaultObfuscationRadiusMeters = 500.0

// Obfuscator perturbs exact points uniformly over a disk.
type Obfuscator struct {
	uniform func() float64
}

// NewObfuscator returns an Obfuscator drawing from uniform, which must return
// values in [0, 1). A nil uniform uses the process-wide random source.
func NewObfuscator(uniform func() float64) *Obfuscator {
	if uniform == nil {
		uniform = rand.Float64
	}
	return &Obfuscator{uniform: uniform}
}

var defaultObfuscator = NewObfuscator(nil)

// Obfuscate returns a point uniformly distributed over the disk of
// radiusMeters around exact, using the process-wide random source.
func Obfuscate(exact GeoPoint, radiusMeters float64) GeoPoint {
	return defaultObfuscator.Obfuscate(exact, radiusMeters)
}

// Obfuscate samples a fresh point on every call; nothing is cached.
func (o *Obfuscator) Obfuscate(exact GeoPoint, radiusMeters float64) GeoPoint {
	if radiusMeters <= 0 || math.IsNaN(radiusMeters) {
		return exact
	}

	// sqrt keeps the density uniform over the area instead of the radius
	distance := radiusMeters * math.Sqrt(o.uniform())
	angle := 2 * math.Pi * o.uniform()

	northMeters := distance * math.Cos(angle)
	eastMeters := distance * math.Sin(angle)

	lat := exact.Latitude + northMeters/MetersPerDegree
	lon := exact.Longitude + eastMeters/(MetersPerDegree*longitudeScale(exact.Latitude))

	return GeoPoint{
		Latitude:  math.Max(-90, math.Min(90, lat)),
		Longitude: wrapLongitude(lon),
	}
}

func wrapLongitude(lon float64) float64 {
	if lon >= -180 && lon <= 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// DisplayPoint decides what a counterpart may see of exact.
//
// It returns nil when exact is nil, a copy of exact when disclosure is
// authorized (the job has a confirmed appointment) and a point obfuscated
// within DefaultObfuscationRadiusMeters otherwise.
func DisplayPoint(exact *GeoPoint, disclosureAuthorized bool) *GeoPoint {
	return defaultObfuscator.DisplayPoint(exact, disclosureAuthorized, DefaultObfuscationRadiusMeters)
}

// DisplayPoint is the package-level DisplayPoint with an explicit radius.
func (o *Obfuscator) DisplayPoint(exact *GeoPoint, disclosureAuthorized bool, radiusMeters float64) *GeoPoint {
	if exact == nil {
		return nil
	}
	if disclosureAuthorized {
		p := *exact
		return &p
	}
	p := o.Obfuscate(*exact, radiusMeters)
	return &p
}
