package geo

import "math"

const (
	// EarthRadiusMeters is the IUGG mean Earth radius.
	EarthRadiusMeters = 6371008.8

	// KilometersPerDegree approximates the length of one degree of latitude.
	KilometersPerDegree = 111.32

	// MetersPerDegree is KilometersPerDegree expressed in meters.
	MetersPerDegree = KilometersPerDegree * 1000

	// polarCosineFloor keeps longitude deltas finite at the poles.
	polarCosineFloor = 1e-6
)

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// HaversineMeters returns the great-circle distance between a and b.
//
// The result is symmetric, zero when a == b and clamped to [0, π·R].
func HaversineMeters(a, b GeoPoint) float64 {
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := lat2 - lat1
	dLon := radians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	// rounding can push h slightly outside [0, 1]
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// BoundingBoxAround returns the box enclosing the circle of radiusKm around center.
// Negative radii are treated as zero.
func BoundingBoxAround(center GeoPoint, radiusKm float64) BoundingBox {
	if radiusKm < 0 || math.IsNaN(radiusKm) {
		radiusKm = 0
	}

	latDelta := radiusKm / KilometersPerDegree
	lonDelta := radiusKm / (KilometersPerDegree * longitudeScale(center.Latitude))

	return BoundingBox{
		MinLat: center.Latitude - latDelta,
		MinLon: center.Longitude - lonDelta,
		MaxLat: center.Latitude + latDelta,
		MaxLon: center.Longitude + lonDelta,
	}
}

// longitudeScale is the cosine of the latitude, floored near the poles.
func longitudeScale(latitude float64) float64 {
	return math.Max(polarCosineFloor, math.Cos(radians(latitude)))
}
