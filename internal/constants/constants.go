package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout = 10 * time.Second
)

const (
	CacheKeyPrefixGeocode = "geocode:"
	DefaultGeocodeTTL     = 30 * 24 * time.Hour
	DefaultGeocodeMissTTL = 6 * time.Hour
)

const (
	DefaultContactViolationTopic = "contact_violations"
	DefaultGeocodeRequestTopic   = "geocode_requests"
	DefaultDLQTopic              = "dlq"
)

const (
	DefaultMongoDBName         = "marketguard"
	CollectionProLocations     = "pro_locations"
	DefaultNominatimURL        = "https://nominatim.openstreetmap.org"
	DefaultNominatimUserAgent  = "marketguard-geocoder/1.0"
	ProviderNameNominatim      = "nominatim"
	ProviderNameGeocodeCache   = "redis_cache"
	CircuitBreakerGeocoderName = "geocoder"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLimit        = 50
	MaxLimit            = 500
	MaxMessageLength    = 4000
	DefaultNearbyRadius = 10.0
	MaxNearbyRadiusKm   = 200.0
)

const (
	ServiceNameRealtime  = "realtime-service"
	ServiceNameGeocoding = "geocoding-service"
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)
