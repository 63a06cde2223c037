package location

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketguard/internal/geo"
	pkgerrors "marketguard/pkg/errors"
	"marketguard/pkg/metrics"
)

type JobStore interface {
	// JobCoordinates returns nil coordinates for a job that has not been
	// geocoded, and ErrNotFound for an unknown job.
	JobCoordinates(ctx context.Context, jobID string) (*geo.GeoPoint, error)
	UpdateJobCoordinates(ctx context.Context, jobID string, point geo.GeoPoint) error
}

// BookingStateProvider answers whether exact job coordinates may be shown.
type BookingStateProvider interface {
	HasConfirmedAppointment(ctx context.Context, jobID string) (bool, error)
}

type PostgresJobStore struct {
	db *sql.DB
}

func NewJobStore(db *sql.DB) *PostgresJobStore {
	return &PostgresJobStore{db: db}
}

func (s *PostgresJobStore) JobCoordinates(ctx context.Context, jobID string) (*geo.GeoPoint, error) {
	query := `SELECT latitude, longitude FROM jobs WHERE id = $1`

	var lat, lon sql.NullFloat64
	start := time.Now()
	err := s.db.QueryRowContext(ctx, query, jobID).Scan(&lat, &lon)
	observe("job_coordinates", start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithDetail("message", fmt.Sprintf("job %s not found", jobID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job coordinates: %w", err)
	}

	if !lat.Valid || !lon.Valid {
		return nil, nil
	}
	return &geo.GeoPoint{Latitude: lat.Float64, Longitude: lon.Float64}, nil
}

func (s *PostgresJobStore) UpdateJobCoordinates(ctx context.Context, jobID string, point geo.GeoPoint) error {
	query := `
		UPDATE jobs
		SET latitude = $2, longitude = $3, geocoded_at = NOW()
		WHERE id = $1
	`

	start := time.Now()
	result, err := s.db.ExecContext(ctx, query, jobID, point.Latitude, point.Longitude)
	observe("update_job_coordinates", start, err)
	if err != nil {
		return fmt.Errorf("failed to update job coordinates: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return pkgerrors.ErrNotFound.WithDetail("message", fmt.Sprintf("job %s not found", jobID))
	}
	return nil
}

type PostgresBookingState struct {
	db *sql.DB
}

func NewBookingStateProvider(db *sql.DB) *PostgresBookingState {
	return &PostgresBookingState{db: db}
}

// HasConfirmedAppointment counts completed appointments as confirmed: a
// finished job never goes back to obfuscated coordinates.
func (s *PostgresBookingState) HasConfirmedAppointment(ctx context.Context, jobID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE job_id = $1 AND status IN ('confirmed', 'completed')
		)
	`

	var confirmed bool
	start := time.Now()
	err := s.db.QueryRowContext(ctx, query, jobID).Scan(&confirmed)
	observe("has_confirmed_appointment", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to check appointments: %w", err)
	}
	return confirmed, nil
}

func observe(operation string, start time.Time, err error) {
	observeDB("postgres", operation, start, err)
}

func observeDB(db, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IncDatabaseQuery("location", db, operation, status)
	metrics.ObserveDatabaseQueryDuration("location", db, operation, time.Since(start))
}
