package geocoding

import (
	"context"
	"errors"
	"fmt"

	"marketguard/internal/geo"
	"marketguard/pkg/circuitbreaker"
	apperrors "marketguard/pkg/errors"
)

// CircuitBreakerProvider stops calling the upstream geocoder while it keeps
// failing. A miss is an answer, not a failure, and never trips the breaker.
type CircuitBreakerProvider struct {
	provider Provider
	cb       *circuitbreaker.Wrapper
}

func NewCircuitBreakerProvider(provider Provider, cfg circuitbreaker.Config) *CircuitBreakerProvider {
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, ErrNotFound)
	}
	return &CircuitBreakerProvider{
		provider: provider,
		cb:       circuitbreaker.NewWrapper(cfg),
	}
}

func (p *CircuitBreakerProvider) Name() string {
	return p.provider.Name()
}

func (p *CircuitBreakerProvider) Geocode(ctx context.Context, address string) (*geo.GeoPoint, error) {
	result, err := p.cb.Execute(ctx, func() (interface{}, error) {
		return p.provider.Geocode(ctx, address)
	})
	if err != nil {
		if circuitbreaker.IsBreakerError(err) {
			return nil, apperrors.ErrUpstream.
				WithCause(fmt.Errorf("circuit breaker %s: %w", p.cb.Name(), err)).
				WithDetail("provider", p.provider.Name())
		}
		return nil, err
	}

	point, ok := result.(*geo.GeoPoint)
	if !ok || point == nil {
		return nil, fmt.Errorf("provider %s returned invalid result type %T", p.provider.Name(), result)
	}
	return point, nil
}

func (p *CircuitBreakerProvider) State() string {
	return p.cb.State().String()
}
