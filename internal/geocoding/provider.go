// Package geocoding turns free-text addresses into coordinates through a
// chain of providers: a Redis cache in front of a circuit breaker in front
// of the HTTP geocoder.
package geocoding

import (
	"context"
	"errors"
	"strings"

	"marketguard/internal/geo"
)

// ErrNotFound means the provider answered but knows no such address.
var ErrNotFound = errors.New("geocoding: address not found")

type Provider interface {
	Name() string
	Geocode(ctx context.Context, address string) (*geo.GeoPoint, error)
}

// NormalizeAddress lowercases and collapses whitespace so trivially
// different spellings share a cache entry.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}
