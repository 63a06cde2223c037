package location

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketguard/internal/constants"
	"marketguard/internal/geo"
	"marketguard/internal/geocoding"
	"marketguard/internal/logger"
	pkgerrors "marketguard/pkg/errors"
	"marketguard/pkg/metrics"
	"marketguard/pkg/models"
	"marketguard/pkg/retry"
)

type Service interface {
	JobLocation(ctx context.Context, jobID string) (*JobLocation, error)
	NearbyPros(ctx context.Context, query NearbyQuery) ([]NearbyPro, error)
	GeocodeJob(ctx context.Context, jobID, address string) (*GeocodeResult, error)
	UpdateProLocation(ctx context.Context, proID string, req UpdateProLocationRequest) (*GeocodeResult, error)
	HandleGeocodeRequest(ctx context.Context, msg models.MessageEnvelope) error
}

// AddressResolver geocodes without failing; nil means no coordinates.
type AddressResolver interface {
	Resolve(ctx context.Context, address string) *geo.GeoPoint
}

type service struct {
	jobs         JobStore
	bookings     BookingStateProvider
	pros         ProStore
	resolver     AddressResolver
	geocoder     geocoding.Provider
	queue        GeocodeQueue
	obfuscator   *geo.Obfuscator
	radiusMeters float64
	maxRadiusKm  float64
	logger       logger.Logger
	now          func() time.Time
}

type ServiceOption func(*service)

// WithResolver enables synchronous geocoding on the request path.
func WithResolver(r AddressResolver) ServiceOption {
	return func(s *service) {
		s.resolver = r
	}
}

// WithGeocoder sets the error-returning provider chain used when
// consuming geocode requests.
func WithGeocoder(p geocoding.Provider) ServiceOption {
	return func(s *service) {
		s.geocoder = p
	}
}

func WithGeocodeQueue(q GeocodeQueue) ServiceOption {
	return func(s *service) {
		s.queue = q
	}
}

func WithObfuscator(o *geo.Obfuscator) ServiceOption {
	return func(s *service) {
		s.obfuscator = o
	}
}

func WithObfuscationRadius(meters float64) ServiceOption {
	return func(s *service) {
		if meters > 0 {
			s.radiusMeters = meters
		}
	}
}

func WithMaxNearbyRadius(km float64) ServiceOption {
	return func(s *service) {
		if km > 0 {
			s.maxRadiusKm = km
		}
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		s.now = now
	}
}

func NewService(jobs JobStore, bookings BookingStateProvider, pros ProStore, log logger.Logger, opts ...ServiceOption) Service {
	if log == nil {
		log = logger.NopLogger()
	}
	s := &service{
		jobs:         jobs,
		bookings:     bookings,
		pros:         pros,
		obfuscator:   geo.NewObfuscator(nil),
		radiusMeters: geo.DefaultObfuscationRadiusMeters,
		maxRadiusKm:  constants.MaxNearbyRadiusKm,
		logger:       log,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// JobLocation returns exact coordinates only once the job has a confirmed
// appointment. If the booking state cannot be read the point is
// obfuscated.
func (s *service) JobLocation(ctx context.Context, jobID string) (*JobLocation, error) {
	id, err := parseID("job_id", jobID)
	if err != nil {
		return nil, err
	}

	exact, err := s.jobs.JobCoordinates(ctx, id)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, err
		}
		return nil, pkgerrors.ErrInternal.WithCause(err)
	}

	loc := &JobLocation{JobID: id, Disclosure: DisclosureNone}
	if exact == nil {
		metrics.IncLocationQuery("job", DisclosureNone)
		return loc, nil
	}

	authorized, err := s.bookings.HasConfirmedAppointment(ctx, id)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Booking state unavailable, obfuscating job location",
			"job_id", id,
			"error", err,
		)
		authorized = false
	}

	loc.Point = s.obfuscator.DisplayPoint(exact, authorized, s.radiusMeters)
	loc.Exact = authorized
	loc.Disclosure = DisclosureObfuscated
	if authorized {
		loc.Disclosure = DisclosureExact
	}
	metrics.IncLocationQuery("job", loc.Disclosure)

	return loc, nil
}

// NearbyPros narrows candidates with a bounding box in the store, then
// keeps those within the exact great-circle radius, closest first.
func (s *service) NearbyPros(ctx context.Context, query NearbyQuery) ([]NearbyPro, error) {
	if !query.Center.Valid() {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "center coordinates are out of range")
	}

	radiusKm := query.RadiusKm
	if radiusKm == 0 {
		radiusKm = constants.DefaultNearbyRadius
	}
	if math.IsNaN(radiusKm) || radiusKm < 0 || radiusKm > s.maxRadiusKm {
		return nil, pkgerrors.ErrValidation.WithDetail("message",
			fmt.Sprintf("radius_km must be between 0 and %g", s.maxRadiusKm))
	}
	limit := normalizeLimit(query.Limit)

	candidates, err := s.pros.WithinBox(ctx, geo.BoundingBoxAround(query.Center, radiusKm))
	if err != nil {
		return nil, pkgerrors.ErrInternal.WithCause(err)
	}
	metrics.ObserveNearbyCandidates(len(candidates))

	radiusMeters := radiusKm * 1000
	nearby := make([]NearbyPro, 0, len(candidates))
	for _, c := range candidates {
		if !c.Point.Valid() {
			continue
		}
		d := geo.HaversineMeters(query.Center, c.Point)
		if d > radiusMeters {
			continue
		}
		nearby = append(nearby, NearbyPro{ProID: c.ProID, Point: c.Point, DistanceMeters: d})
	}

	sort.Slice(nearby, func(i, j int) bool {
		if nearby[i].DistanceMeters != nearby[j].DistanceMeters {
			return nearby[i].DistanceMeters < nearby[j].DistanceMeters
		}
		return nearby[i].ProID < nearby[j].ProID
	})
	if len(nearby) > limit {
		nearby = nearby[:limit]
	}

	metrics.IncLocationQuery("nearby", DisclosureExact)
	return nearby, nil
}

// GeocodeJob tries to resolve the address inline and otherwise queues it.
// Geocoding trouble never fails the call; only a bad request or an unknown
// job does.
func (s *service) GeocodeJob(ctx context.Context, jobID, address string) (*GeocodeResult, error) {
	id, err := parseID("job_id", jobID)
	if err != nil {
		return nil, err
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "address cannot be empty")
	}

	if point := s.resolve(ctx, address); point != nil {
		if err := s.jobs.UpdateJobCoordinates(ctx, id, *point); err != nil {
			if pkgerrors.IsNotFound(err) {
				return nil, err
			}
			return nil, pkgerrors.ErrInternal.WithCause(err)
		}
		return &GeocodeResult{Status: GeocodeResolved, Point: point}, nil
	}

	return &GeocodeResult{Status: s.enqueue(ctx, GeocodeRequest{Target: TargetJob, ID: id, Address: address})}, nil
}

func (s *service) UpdateProLocation(ctx context.Context, proID string, req UpdateProLocationRequest) (*GeocodeResult, error) {
	id, err := parseID("pro_id", proID)
	if err != nil {
		return nil, err
	}
	address := strings.TrimSpace(req.Address)

	var point *geo.GeoPoint
	switch {
	case req.Latitude != nil || req.Longitude != nil:
		if req.Latitude == nil || req.Longitude == nil {
			return nil, pkgerrors.ErrValidation.WithDetail("message", "latitude and longitude must be given together")
		}
		p := geo.GeoPoint{Latitude: *req.Latitude, Longitude: *req.Longitude}
		if !p.Valid() {
			return nil, pkgerrors.ErrValidation.WithDetail("message", "coordinates are out of range")
		}
		point = &p
	case address != "":
		point = s.resolve(ctx, address)
	default:
		return nil, pkgerrors.ErrValidation.WithDetail("message", "coordinates or address required")
	}

	if point == nil {
		return &GeocodeResult{Status: s.enqueue(ctx, GeocodeRequest{Target: TargetPro, ID: id, Address: address})}, nil
	}

	loc := ProLocation{ProID: id, Point: *point, Address: address, UpdatedAt: s.now().UTC()}
	if err := s.pros.UpsertProLocation(ctx, loc); err != nil {
		return nil, pkgerrors.ErrInternal.WithCause(err)
	}
	return &GeocodeResult{Status: GeocodeResolved, Point: point}, nil
}

// HandleGeocodeRequest consumes a geocode_request envelope. Unknown
// addresses and malformed requests are fatal; upstream and storage
// failures are left to the consumer's retry.
func (s *service) HandleGeocodeRequest(ctx context.Context, msg models.MessageEnvelope) error {
	if s.geocoder == nil {
		return retry.NewFatalError(errors.New("geocoder is not configured"))
	}

	req := parseGeocodeRequest(msg)
	id, err := uuid.Parse(req.ID)
	if err != nil || strings.TrimSpace(req.Address) == "" {
		return retry.NewFatalError(fmt.Errorf("malformed geocode request %s", msg.ID))
	}
	if req.Target != TargetJob && req.Target != TargetPro {
		return retry.NewFatalError(fmt.Errorf("unknown geocode target %q", req.Target))
	}

	point, err := s.geocoder.Geocode(ctx, req.Address)
	if errors.Is(err, geocoding.ErrNotFound) {
		s.logger.InfowCtx(ctx, "Address not found, dropping geocode request",
			"target", req.Target,
			"id", req.ID,
		)
		return retry.NewFatalError(err)
	}
	if err != nil {
		return fmt.Errorf("failed to geocode %s %s: %w", req.Target, req.ID, err)
	}
	if point == nil || !point.Valid() {
		return retry.NewFatalError(fmt.Errorf("geocoder returned unusable coordinates for %s %s", req.Target, req.ID))
	}

	switch req.Target {
	case TargetJob:
		err = s.jobs.UpdateJobCoordinates(ctx, id.String(), *point)
	case TargetPro:
		err = s.pros.UpsertProLocation(ctx, ProLocation{
			ProID:     id.String(),
			Point:     *point,
			Address:   strings.TrimSpace(req.Address),
			UpdatedAt: s.now().UTC(),
		})
	}
	if err != nil {
		return err
	}

	s.logger.DebugwCtx(ctx, "Geocode request applied", "target", req.Target, "id", req.ID)
	return nil
}

func (s *service) resolve(ctx context.Context, address string) *geo.GeoPoint {
	if s.resolver == nil {
		return nil
	}
	return s.resolver.Resolve(ctx, address)
}

func (s *service) enqueue(ctx context.Context, req GeocodeRequest) string {
	if s.queue == nil || req.Address == "" {
		return GeocodeUnresolved
	}
	if err := s.queue.Enqueue(ctx, req); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to queue geocode request",
			"target", req.Target,
			"id", req.ID,
			"error", err,
		)
		return GeocodeUnresolved
	}
	return GeocodeQueued
}

func parseID(field, raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", pkgerrors.ErrValidation.WithCause(err).WithDetail("message", field+" must be a UUID")
	}
	return id.String(), nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > constants.MaxLimit {
		return constants.DefaultLimit
	}
	return limit
}
