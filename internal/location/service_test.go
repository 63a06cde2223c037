package location

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketguard/internal/geo"
	"marketguard/internal/geocoding"
	"marketguard/internal/logger"
	pkgerrors "marketguard/pkg/errors"
	"marketguard/pkg/models"
	"marketguard/pkg/retry"
)

type memoryJobs struct {
	mu        sync.Mutex
	points    map[string]*geo.GeoPoint
	getErr    error
	updateErr error
}

func newMemoryJobs() *memoryJobs {
	return &memoryJobs{points: map[string]*geo.GeoPoint{}}
}

func (m *memoryJobs) JobCoordinates(_ context.Context, jobID string) (*geo.GeoPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.points[jobID]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	return p, nil
}

func (m *memoryJobs) UpdateJobCoordinates(_ context.Context, jobID string, point geo.GeoPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.points[jobID]; !ok {
		return pkgerrors.ErrNotFound
	}
	m.points[jobID] = &point
	return nil
}

type staticBookings struct {
	confirmed map[string]bool
	err       error
}

func (b staticBookings) HasConfirmedAppointment(_ context.Context, jobID string) (bool, error) {
	return b.confirmed[jobID], b.err
}

type memoryPros struct {
	mu        sync.Mutex
	locations map[string]ProLocation
	lastBox   geo.BoundingBox
	err       error
}

func newMemoryPros() *memoryPros {
	return &memoryPros{locations: map[string]ProLocation{}}
}

func (m *memoryPros) UpsertProLocation(_ context.Context, loc ProLocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.locations[loc.ProID] = loc
	return nil
}

func (m *memoryPros) WithinBox(_ context.Context, box geo.BoundingBox) ([]ProLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastBox = box
	if m.err != nil {
		return nil, m.err
	}
	var out []ProLocation
	for _, loc := range m.locations {
		if box.Contains(loc.Point) {
			out = append(out, loc)
		}
	}
	return out, nil
}

type fixedResolver struct {
	point *geo.GeoPoint
	calls int
}

func (r *fixedResolver) Resolve(_ context.Context, _ string) *geo.GeoPoint {
	r.calls++
	return r.point
}

type recordingQueue struct {
	requests []GeocodeRequest
	err      error
}

func (q *recordingQueue) Enqueue(_ context.Context, req GeocodeRequest) error {
	if q.err != nil {
		return q.err
	}
	q.requests = append(q.requests, req)
	return nil
}

type stubProvider struct {
	point *geo.GeoPoint
	err   error
}

func (p stubProvider) Name() string { return "stub" }

func (p stubProvider) Geocode(_ context.Context, _ string) (*geo.GeoPoint, error) {
	return p.point, p.err
}

var paris = geo.GeoPoint{Latitude: 48.8566, Longitude: 2.3522}

func TestJobLocation(t *testing.T) {
	confirmedJob := uuid.NewString()
	openJob := uuid.NewString()
	pendingJob := uuid.NewString()

	jobs := newMemoryJobs()
	jobs.points[confirmedJob] = &paris
	jobs.points[openJob] = &paris
	jobs.points[pendingJob] = nil

	svc := NewService(jobs, staticBookings{confirmed: map[string]bool{confirmedJob: true}}, newMemoryPros(), logger.NopLogger(),
		WithObfuscationRadius(500))
	ctx := context.Background()

	t.Run("confirmed appointment discloses exact point", func(t *testing.T) {
		loc, err := svc.JobLocation(ctx, confirmedJob)
		require.NoError(t, err)
		require.NotNil(t, loc.Point)
		assert.True(t, loc.Exact)
		assert.Equal(t, DisclosureExact, loc.Disclosure)
		assert.Equal(t, paris, *loc.Point)
	})

	t.Run("open job is obfuscated within radius", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			loc, err := svc.JobLocation(ctx, openJob)
			require.NoError(t, err)
			require.NotNil(t, loc.Point)
			assert.False(t, loc.Exact)
			assert.Equal(t, DisclosureObfuscated, loc.Disclosure)
			assert.LessOrEqual(t, geo.HaversineMeters(paris, *loc.Point), 500.0*1.01)
		}
	})

	t.Run("job without coordinates", func(t *testing.T) {
		loc, err := svc.JobLocation(ctx, pendingJob)
		require.NoError(t, err)
		assert.Nil(t, loc.Point)
		assert.Equal(t, DisclosureNone, loc.Disclosure)
	})

	t.Run("unknown job", func(t *testing.T) {
		_, err := svc.JobLocation(ctx, uuid.NewString())
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := svc.JobLocation(ctx, "job-1")
		assert.True(t, pkgerrors.IsValidation(err))
	})
}

func TestJobLocation_BookingFailureObfuscates(t *testing.T) {
	jobID := uuid.NewString()
	jobs := newMemoryJobs()
	jobs.points[jobID] = &paris

	bookings := staticBookings{confirmed: map[string]bool{jobID: true}, err: errors.New("db down")}
	svc := NewService(jobs, bookings, newMemoryPros(), logger.NopLogger(),
		WithObfuscator(geo.NewObfuscator(func() float64 { return 0.5 })))

	loc, err := svc.JobLocation(context.Background(), jobID)
	require.NoError(t, err)
	assert.False(t, loc.Exact)
	assert.NotEqual(t, paris, *loc.Point)
}

func TestNearbyPros(t *testing.T) {
	pros := newMemoryPros()
	near := uuid.NewString()
	nearer := uuid.NewString()
	cornerOfBox := uuid.NewString()
	far := uuid.NewString()

	pros.locations[near] = ProLocation{ProID: near, Point: geo.GeoPoint{Latitude: 48.90, Longitude: 2.3522}}
	pros.locations[nearer] = ProLocation{ProID: nearer, Point: geo.GeoPoint{Latitude: 48.86, Longitude: 2.36}}
	// inside the 10 km box, outside the 10 km circle
	pros.locations[cornerOfBox] = ProLocation{ProID: cornerOfBox, Point: geo.GeoPoint{Latitude: 48.9366, Longitude: 2.4722}}
	pros.locations[far] = ProLocation{ProID: far, Point: geo.GeoPoint{Latitude: 45.76, Longitude: 4.83}}

	svc := NewService(newMemoryJobs(), staticBookings{}, pros, logger.NopLogger())

	result, err := svc.NearbyPros(context.Background(), NearbyQuery{Center: paris, RadiusKm: 10})
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, nearer, result[0].ProID)
	assert.Equal(t, near, result[1].ProID)
	assert.Less(t, result[0].DistanceMeters, result[1].DistanceMeters)
	assert.True(t, pros.lastBox.Contains(paris))

	limited, err := svc.NearbyPros(context.Background(), NearbyQuery{Center: paris, RadiusKm: 10, Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, nearer, limited[0].ProID)
}

func TestNearbyPros_Validation(t *testing.T) {
	svc := NewService(newMemoryJobs(), staticBookings{}, newMemoryPros(), logger.NopLogger(), WithMaxNearbyRadius(50))

	tests := []struct {
		name  string
		query NearbyQuery
	}{
		{"latitude out of range", NearbyQuery{Center: geo.GeoPoint{Latitude: 91}, RadiusKm: 1}},
		{"negative radius", NearbyQuery{Center: paris, RadiusKm: -1}},
		{"radius above maximum", NearbyQuery{Center: paris, RadiusKm: 51}},
		{"NaN radius", NearbyQuery{Center: paris, RadiusKm: math.NaN()}},
		{"infinite radius", NearbyQuery{Center: paris, RadiusKm: math.Inf(1)}},
		{"NaN latitude", NearbyQuery{Center: geo.GeoPoint{Latitude: math.NaN(), Longitude: 2.35}, RadiusKm: 1}},
		{"infinite longitude", NearbyQuery{Center: geo.GeoPoint{Latitude: 48.85, Longitude: math.Inf(-1)}, RadiusKm: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.NearbyPros(context.Background(), tt.query)
			assert.True(t, pkgerrors.IsValidation(err))
		})
	}
}

// idOrderedPros returns box candidates ordered by pro ID, the way an
// indexed store scan would.
type idOrderedPros struct {
	locations []ProLocation
}

func (p *idOrderedPros) UpsertProLocation(context.Context, ProLocation) error { return nil }

func (p *idOrderedPros) WithinBox(_ context.Context, box geo.BoundingBox) ([]ProLocation, error) {
	var out []ProLocation
	for _, loc := range p.locations {
		if box.Contains(loc.Point) {
			out = append(out, loc)
		}
	}
	return out, nil
}

func TestNearbyPros_DenseAreaKeepsClosest(t *testing.T) {
	pros := &idOrderedPros{}
	for i := 0; i < 6000; i++ {
		pros.locations = append(pros.locations, ProLocation{
			ProID: fmt.Sprintf("a-%05d", i),
			Point: geo.GeoPoint{Latitude: paris.Latitude + 0.02, Longitude: paris.Longitude + float64(i%100)*0.0001},
		})
	}
	pros.locations = append(pros.locations, ProLocation{
		ProID: "z-closest",
		Point: geo.GeoPoint{Latitude: paris.Latitude + 0.0001, Longitude: paris.Longitude},
	})

	svc := NewService(newMemoryJobs(), staticBookings{}, pros, logger.NopLogger())
	result, err := svc.NearbyPros(context.Background(), NearbyQuery{Center: paris, RadiusKm: 5, Limit: 3})
	require.NoError(t, err)
	require.Len(t, result, 3)
	assert.Equal(t, "z-closest", result[0].ProID)
}

func TestNearbyPros_DefaultRadius(t *testing.T) {
	pros := newMemoryPros()
	svc := NewService(newMemoryJobs(), staticBookings{}, pros, logger.NopLogger())

	result, err := svc.NearbyPros(context.Background(), NearbyQuery{Center: paris})
	require.NoError(t, err)
	assert.Empty(t, result)
	assert.InDelta(t, 10/geo.KilometersPerDegree, pros.lastBox.MaxLat-paris.Latitude, 1e-9)
}

func TestGeocodeJob(t *testing.T) {
	ctx := context.Background()

	t.Run("resolved inline", func(t *testing.T) {
		jobID := uuid.NewString()
		jobs := newMemoryJobs()
		jobs.points[jobID] = nil
		queue := &recordingQueue{}
		svc := NewService(jobs, staticBookings{}, newMemoryPros(), logger.NopLogger(),
			WithResolver(&fixedResolver{point: &paris}), WithGeocodeQueue(queue))

		result, err := svc.GeocodeJob(ctx, jobID, " 1 rue de Rivoli, Paris ")
		require.NoError(t, err)
		assert.Equal(t, GeocodeResolved, result.Status)
		assert.Equal(t, paris, *jobs.points[jobID])
		assert.Empty(t, queue.requests)
	})

	t.Run("unresolved address is queued", func(t *testing.T) {
		jobID := uuid.NewString()
		jobs := newMemoryJobs()
		jobs.points[jobID] = nil
		queue := &recordingQueue{}
		svc := NewService(jobs, staticBookings{}, newMemoryPros(), logger.NopLogger(),
			WithResolver(&fixedResolver{}), WithGeocodeQueue(queue))

		result, err := svc.GeocodeJob(ctx, jobID, "1 rue de Rivoli")
		require.NoError(t, err)
		assert.Equal(t, GeocodeQueued, result.Status)
		require.Len(t, queue.requests, 1)
		assert.Equal(t, GeocodeRequest{Target: TargetJob, ID: jobID, Address: "1 rue de Rivoli"}, queue.requests[0])
	})

	t.Run("queue failure does not fail the call", func(t *testing.T) {
		svc := NewService(newMemoryJobs(), staticBookings{}, newMemoryPros(), logger.NopLogger(),
			WithGeocodeQueue(&recordingQueue{err: errors.New("broker down")}))

		result, err := svc.GeocodeJob(ctx, uuid.NewString(), "somewhere")
		require.NoError(t, err)
		assert.Equal(t, GeocodeUnresolved, result.Status)
	})

	t.Run("unknown job", func(t *testing.T) {
		svc := NewService(newMemoryJobs(), staticBookings{}, newMemoryPros(), logger.NopLogger(),
			WithResolver(&fixedResolver{point: &paris}))

		_, err := svc.GeocodeJob(ctx, uuid.NewString(), "somewhere")
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("blank address", func(t *testing.T) {
		svc := NewService(newMemoryJobs(), staticBookings{}, newMemoryPros(), logger.NopLogger())
		_, err := svc.GeocodeJob(ctx, uuid.NewString(), "   ")
		assert.True(t, pkgerrors.IsValidation(err))
	})
}

func TestUpdateProLocation(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lat, lon := 43.2965, 5.3698

	t.Run("coordinates", func(t *testing.T) {
		pros := newMemoryPros()
		resolver := &fixedResolver{point: &paris}
		svc := NewService(newMemoryJobs(), staticBookings{}, pros, logger.NopLogger(),
			WithResolver(resolver), WithClock(func() time.Time { return now }))
		proID := uuid.NewString()

		result, err := svc.UpdateProLocation(ctx, proID, UpdateProLocationRequest{Latitude: &lat, Longitude: &lon, Address: "Marseille"})
		require.NoError(t, err)
		assert.Equal(t, GeocodeResolved, result.Status)
		assert.Zero(t, resolver.calls)
		assert.Equal(t, ProLocation{ProID: proID, Point: geo.GeoPoint{Latitude: lat, Longitude: lon}, Address: "Marseille", UpdatedAt: now}, pros.locations[proID])
	})

	t.Run("address resolved", func(t *testing.T) {
		pros := newMemoryPros()
		svc := NewService(newMemoryJobs(), staticBookings{}, pros, logger.NopLogger(), WithResolver(&fixedResolver{point: &paris}))
		proID := uuid.NewString()

		result, err := svc.UpdateProLocation(ctx, proID, UpdateProLocationRequest{Address: "Paris"})
		require.NoError(t, err)
		assert.Equal(t, GeocodeResolved, result.Status)
		assert.Equal(t, paris, pros.locations[proID].Point)
	})

	t.Run("address queued", func(t *testing.T) {
		queue := &recordingQueue{}
		svc := NewService(newMemoryJobs(), staticBookings{}, newMemoryPros(), logger.NopLogger(), WithGeocodeQueue(queue))
		proID := uuid.NewString()

		result, err := svc.UpdateProLocation(ctx, proID, UpdateProLocationRequest{Address: "Paris"})
		require.NoError(t, err)
		assert.Equal(t, GeocodeQueued, result.Status)
		require.Len(t, queue.requests, 1)
		assert.Equal(t, TargetPro, queue.requests[0].Target)
	})

	invalidLat := 120.0
	tests := []struct {
		name string
		req  UpdateProLocationRequest
	}{
		{"empty", UpdateProLocationRequest{}},
		{"latitude only", UpdateProLocationRequest{Latitude: &lat}},
		{"out of range", UpdateProLocationRequest{Latitude: &invalidLat, Longitude: &lon}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newMemoryJobs(), staticBookings{}, newMemoryPros(), logger.NopLogger())
			_, err := svc.UpdateProLocation(ctx, uuid.NewString(), tt.req)
			assert.True(t, pkgerrors.IsValidation(err))
		})
	}
}

func geocodeEnvelope(target, id, address string) models.MessageEnvelope {
	return models.NewMessageEnvelopeBuilder().
		WithType(models.TypeGeocodeRequest).
		WithSource("test").
		WithPayload(map[string]interface{}{"target": target, "id": id, "address": address}).
		Build()
}

func TestHandleGeocodeRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("job coordinates written", func(t *testing.T) {
		jobID := uuid.NewString()
		jobs := newMemoryJobs()
		jobs.points[jobID] = nil
		svc := NewService(jobs, staticBookings{}, newMemoryPros(), logger.NopLogger(),
			WithGeocoder(stubProvider{point: &paris}))

		require.NoError(t, svc.HandleGeocodeRequest(ctx, geocodeEnvelope(TargetJob, jobID, "Paris")))
		assert.Equal(t, paris, *jobs.points[jobID])
	})

	t.Run("pro location upserted", func(t *testing.T) {
		pros := newMemoryPros()
		proID := uuid.NewString()
		svc := NewService(newMemoryJobs(), staticBookings{}, pros, logger.NopLogger(),
			WithGeocoder(stubProvider{point: &paris}))

		require.NoError(t, svc.HandleGeocodeRequest(ctx, geocodeEnvelope(TargetPro, proID, "Paris")))
		assert.Equal(t, paris, pros.locations[proID].Point)
		assert.Equal(t, "Paris", pros.locations[proID].Address)
	})

	t.Run("not found is fatal", func(t *testing.T) {
		svc := NewService(newMemoryJobs(), staticBookings{}, newMemoryPros(), logger.NopLogger(),
			WithGeocoder(stubProvider{err: geocoding.ErrNotFound}))

		err := svc.HandleGeocodeRequest(ctx, geocodeEnvelope(TargetJob, uuid.NewString(), "nowhere"))
		require.Error(t, err)
		assert.True(t, retry.IsFatal(err))
	})

	t.Run("upstream failure is retryable", func(t *testing.T) {
		svc := NewService(newMemoryJobs(), staticBookings{}, newMemoryPros(), logger.NopLogger(),
			WithGeocoder(stubProvider{err: pkgerrors.ErrUpstream}))

		err := svc.HandleGeocodeRequest(ctx, geocodeEnvelope(TargetJob, uuid.NewString(), "Paris"))
		require.Error(t, err)
		assert.False(t, retry.IsFatal(err))
	})

	t.Run("unknown job is fatal", func(t *testing.T) {
		svc := NewService(newMemoryJobs(), staticBookings{}, newMemoryPros(), logger.NopLogger(),
			WithGeocoder(stubProvider{point: &paris}))

		err := svc.HandleGeocodeRequest(ctx, geocodeEnvelope(TargetJob, uuid.NewString(), "Paris"))
		require.Error(t, err)
		assert.True(t, retry.IsFatal(err))
	})

	t.Run("store failure is retryable", func(t *testing.T) {
		pros := newMemoryPros()
		pros.err = errors.New("connection reset")
		svc := NewService(newMemoryJobs(), staticBookings{}, pros, logger.NopLogger(),
			WithGeocoder(stubProvider{point: &paris}))

		err := svc.HandleGeocodeRequest(ctx, geocodeEnvelope(TargetPro, uuid.NewString(), "Paris"))
		require.Error(t, err)
		assert.False(t, retry.IsFatal(err))
	})

	malformed := []struct {
		name string
		msg  models.MessageEnvelope
	}{
		{"bad id", geocodeEnvelope(TargetJob, "job-1", "Paris")},
		{"blank address", geocodeEnvelope(TargetJob, uuid.NewString(), " ")},
		{"unknown target", geocodeEnvelope("invoice", uuid.NewString(), "Paris")},
	}
	for _, tt := range malformed {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newMemoryJobs(), staticBookings{}, newMemoryPros(), logger.NopLogger(),
				WithGeocoder(stubProvider{point: &paris}))
			assert.True(t, retry.IsFatal(svc.HandleGeocodeRequest(ctx, tt.msg)))
		})
	}
}
