package repository

import (
	"context"
	"time"

	"groupride/internal/domain"
)

// ParticipantRepository defines the persistence operations for ride memberships.
type ParticipantRepository interface {
	// Join adds the user to the ride. The capacity check and the insert happen
	// under a lock on the ride row, so concurrent joins cannot overbook.
	// Returns ErrCapacityReached, ErrRideNotActive, ErrDuplicate or ErrNotFound.
	Join(ctx context.Context, rideID, userID string, joinedAt time.Time) error

	// Leave removes the user from the ride.
	Leave(ctx context.Context, rideID, userID string) error

	// ListByRide retrieves the participants of a ride, oldest first.
	ListByRide(ctx context.Context, rideID string) ([]*domain.Participant, error)

	// CountByRide returns the number of participants of a ride.
	CountByRide(ctx context.Context, rideID string) (int, error)
}

// CommentRepository defines the persistence operations for ride comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id string) (*domain.Comment, error)
	ListByRide(ctx context.Context, rideID string) ([]*domain.Comment, error)
	Delete(ctx context.Context, id string) error
}
