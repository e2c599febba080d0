package repository

import (
	"context"
	"time"

	"groupride/internal/domain"
)

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a single ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// CreateSeries persists every ride of a series atomically.
	// Either all rides are stored or none are.
	CreateSeries(ctx context.Context, rides []*domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// List retrieves rides matching the filter, ordered by start time.
	List(ctx context.Context, filter domain.RideFilter) ([]*domain.Ride, error)

	// Update updates the descriptive fields and start time of a ride.
	// The status column is never written. Returns ErrBelowParticipants when
	// the new capacity is below the participant count at write time.
	Update(ctx context.Context, ride *domain.Ride) error

	// UpdateSeriesDetails applies descriptive fields to every ride of a series.
	// Returns ErrBelowParticipants when any member has more participants than
	// the new capacity.
	UpdateSeriesDetails(ctx context.Context, seriesID string, details domain.RideDetails) (int64, error)

	// Delete removes a ride and, by cascade, its participants and comments.
	Delete(ctx context.Context, id string) error

	// DeleteSeries removes every ride of a series.
	DeleteSeries(ctx context.Context, seriesID string) (int64, error)

	// ArchiveStale moves every active ride starting before the given instant
	// to the archived state in one statement and returns the affected IDs.
	ArchiveStale(ctx context.Context, before time.Time) ([]string, error)
}
