package geocoding

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"marketguard/internal/config"
	"marketguard/internal/constants"
	"marketguard/internal/logger"
	"marketguard/pkg/circuitbreaker"
)

type ChainOptions struct {
	Nominatim      NominatimConfig
	HTTPClient     *http.Client
	CircuitBreaker *circuitbreaker.Config
	CacheEnabled   bool
	CacheTTL       time.Duration
	MissTTL        time.Duration
}

// NewChain assembles cache -> circuit breaker -> Nominatim. The cache layer
// is skipped when disabled or when no Redis client is given.
func NewChain(opts ChainOptions, redisClient *redis.Client, log logger.Logger) Provider {
	var p Provider = NewNominatimProvider(opts.Nominatim, opts.HTTPClient)
	if opts.CircuitBreaker != nil {
		p = NewCircuitBreakerProvider(p, *opts.CircuitBreaker)
	}
	if opts.CacheEnabled && redisClient != nil {
		p = NewCacheProvider(p, redisClient, opts.CacheTTL, opts.MissTTL, log)
	}
	return p
}

// ChainOptionsFromConfig maps the geo.geocoder and circuit_breaker
// sections onto ChainOptions.
func ChainOptionsFromConfig(geocoder config.GeocoderConfig, breaker config.CircuitBreakerConfig) ChainOptions {
	opts := ChainOptions{
		Nominatim: NominatimConfig{
			BaseURL:      geocoder.BaseURL,
			UserAgent:    geocoder.UserAgent,
			Email:        geocoder.Email,
			CountryCodes: geocoder.CountryCodes,
			Timeout:      geocoder.Timeout,
		},
		CacheEnabled: geocoder.CacheEnabled,
		CacheTTL:     geocoder.CacheTTL,
		MissTTL:      geocoder.MissTTL,
	}

	if breaker.Enabled {
		cb := circuitbreaker.DefaultConfig(constants.CircuitBreakerGeocoderName)
		if breaker.MaxRequests > 0 {
			cb.MaxRequests = breaker.MaxRequests
		}
		if breaker.Interval > 0 {
			cb.Interval = breaker.Interval
		}
		if breaker.Timeout > 0 {
			cb.Timeout = breaker.Timeout
		}
		if breaker.FailureRatio > 0 {
			cb.FailureRatio = breaker.FailureRatio
		}
		if breaker.MinRequests > 0 {
			cb.MinRequests = breaker.MinRequests
		}
		opts.CircuitBreaker = &cb
	}

	return opts
}
