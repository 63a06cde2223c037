package geocoding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"marketguard/internal/constants"
	"marketguard/internal/geo"
	"marketguard/internal/logger"
	"marketguard/pkg/metrics"
)

type cacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// cacheEntry stores either a point or a remembered miss.
type cacheEntry struct {
	Point *geo.GeoPoint `json:"point,omitempty"`
	Miss  bool          `json:"miss,omitempty"`
}

// CacheProvider is a read-through Redis cache. Hits are kept for ttl,
// misses for missTTL. Redis failures are logged and bypassed.
type CacheProvider struct {
	next    Provider
	client  cacheClient
	ttl     time.Duration
	missTTL time.Duration
	logger  logger.Logger
}

func NewCacheProvider(next Provider, client *redis.Client, ttl, missTTL time.Duration, log logger.Logger) *CacheProvider {
	return newCacheProvider(next, client, ttl, missTTL, log)
}

func newCacheProvider(next Provider, client cacheClient, ttl, missTTL time.Duration, log logger.Logger) *CacheProvider {
	if ttl <= 0 {
		ttl = constants.DefaultGeocodeTTL
	}
	if missTTL <= 0 {
		missTTL = constants.DefaultGeocodeMissTTL
	}
	if log == nil {
		log = logger.NopLogger()
	}
	return &CacheProvider{next: next, client: client, ttl: ttl, missTTL: missTTL, logger: log}
}

func (p *CacheProvider) Name() string {
	return constants.ProviderNameGeocodeCache
}

func cacheKey(address string) string {
	sum := sha256.Sum256([]byte(NormalizeAddress(address)))
	return constants.CacheKeyPrefixGeocode + hex.EncodeToString(sum[:])
}

func (p *CacheProvider) Geocode(ctx context.Context, address string) (*geo.GeoPoint, error) {
	key := cacheKey(address)

	val, err := p.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var entry cacheEntry
		if jsonErr := json.Unmarshal([]byte(val), &entry); jsonErr == nil {
			if entry.Miss {
				metrics.IncGeocodeCache("negative_hit")
				return nil, ErrNotFound
			}
			if entry.Point != nil && entry.Point.Valid() {
				metrics.IncGeocodeCache("hit")
				return entry.Point, nil
			}
		}
		p.logger.WarnwCtx(ctx, "Ignoring corrupt geocode cache entry", "key", key)
	case errors.Is(err, redis.Nil):
		metrics.IncGeocodeCache("miss")
	default:
		metrics.IncGeocodeCache("error")
		p.logger.WarnwCtx(ctx, "Geocode cache read failed", "key", key, "error", err)
	}

	point, err := p.next.Geocode(ctx, address)
	switch {
	case err == nil:
		p.store(ctx, key, cacheEntry{Point: point}, p.ttl)
	case errors.Is(err, ErrNotFound):
		p.store(ctx, key, cacheEntry{Miss: true}, p.missTTL)
	}
	return point, err
}

func (p *CacheProvider) store(ctx context.Context, key string, entry cacheEntry, ttl time.Duration) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := p.client.Set(ctx, key, data, ttl).Err(); err != nil {
		p.logger.WarnwCtx(ctx, "Geocode cache write failed", "key", key, "error", err)
	}
}
