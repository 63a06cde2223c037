package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"marketguard/internal/constants"
	"marketguard/internal/geo"
	apperrors "marketguard/pkg/errors"
	"marketguard/pkg/metrics"
)

type NominatimConfig struct {
	BaseURL      string
	UserAgent    string
	Email        string
	CountryCodes []string
	Timeout      time.Duration
}

// NominatimProvider queries an OpenStreetMap Nominatim compatible search API.
type NominatimProvider struct {
	client *http.Client
	cfg    NominatimConfig
}

func NewNominatimProvider(cfg NominatimConfig, client *http.Client) *NominatimProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = constants.DefaultNominatimURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.UserAgent == "" {
		cfg.UserAgent = constants.DefaultNominatimUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DefaultHTTPTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &NominatimProvider{client: client, cfg: cfg}
}

func (p *NominatimProvider) Name() string {
	return constants.ProviderNameNominatim
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (p *NominatimProvider) Geocode(ctx context.Context, address string) (*geo.GeoPoint, error) {
	start := time.Now()
	point, err := p.geocode(ctx, address)
	metrics.ObserveGeocodeDuration(p.Name(), time.Since(start))

	status := "ok"
	switch {
	case err == ErrNotFound:
		status = "not_found"
	case err != nil:
		status = "error"
	}
	metrics.IncGeocodeRequest(p.Name(), status)
	return point, err
}

func (p *NominatimProvider) geocode(ctx context.Context, address string) (*geo.GeoPoint, error) {
	query := url.Values{}
	query.Set("q", address)
	query.Set("format", "jsonv2")
	query.Set("limit", "1")
	if len(p.cfg.CountryCodes) > 0 {
		query.Set("countrycodes", strings.Join(p.cfg.CountryCodes, ","))
	}
	if p.cfg.Email != "" {
		query.Set("email", p.cfg.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/search?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperrors.ErrUpstream.WithCause(fmt.Errorf("nominatim request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return nil, apperrors.ErrUpstream.
			WithDetail("provider", p.Name()).
			WithDetail("status", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, apperrors.ErrUpstream.WithCause(fmt.Errorf("failed to decode response: %w", err))
	}
	if len(places) == 0 {
		return nil, ErrNotFound
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, apperrors.ErrUpstream.WithCause(fmt.Errorf("invalid latitude %q: %w", places[0].Lat, err))
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, apperrors.ErrUpstream.WithCause(fmt.Errorf("invalid longitude %q: %w", places[0].Lon, err))
	}
	point := &geo.GeoPoint{Latitude: lat, Longitude: lon}
	if !point.Valid() {
		return nil, apperrors.ErrUpstream.WithDetail("message", fmt.Sprintf("coordinates out of range: %s", point))
	}
	return point, nil
}
