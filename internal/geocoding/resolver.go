package geocoding

import (
	"context"
	"errors"
	"strings"
	"time"

	"marketguard/internal/geo"
	"marketguard/internal/logger"
	apperrors "marketguard/pkg/errors"
)

// Resolver is the non-failing face of a Provider: it returns nil for an
// unknown address and for any upstream failure, so address-dependent
// features degrade instead of failing the caller.
type Resolver struct {
	provider Provider
	timeout  time.Duration
	logger   logger.Logger
}

func NewResolver(provider Provider, timeout time.Duration, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.NopLogger()
	}
	return &Resolver{provider: provider, timeout: timeout, logger: log}
}

func (r *Resolver) Resolve(ctx context.Context, address string) (point *geo.GeoPoint) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorwCtx(ctx, "Recovered panic in geocoder", "error", apperrors.RecoverPanic(rec))
			point = nil
		}
	}()

	p, err := r.provider.Geocode(ctx, address)
	switch {
	case err == nil && p != nil && p.Valid():
		return p
	case errors.Is(err, ErrNotFound):
		r.logger.DebugwCtx(ctx, "Address not found by geocoder", "provider", r.provider.Name())
	case err != nil:
		r.logger.WarnwCtx(ctx, "Geocoding failed, continuing without coordinates",
			"provider", r.provider.Name(),
			"error", err,
		)
	default:
		r.logger.WarnwCtx(ctx, "Geocoder returned unusable coordinates", "provider", r.provider.Name())
	}
	return nil
}
