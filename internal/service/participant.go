package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"groupride/internal/domain"
	"groupride/internal/repository"
)

// ParticipantService handles joining and leaving rides.
type ParticipantService struct {
	rideRepo        repository.RideRepository
	participantRepo repository.ParticipantRepository
	logger          *logrus.Logger
	now             func() time.Time
}

// NewParticipantService creates a new ParticipantService.
func NewParticipantService(
	rideRepo repository.RideRepository,
	participantRepo repository.ParticipantRepository,
	logger *logrus.Logger,
) *ParticipantService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ParticipantService{
		rideRepo:        rideRepo,
		participantRepo: participantRepo,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Join adds the user to the ride. Capacity is enforced at write time, so of
// two concurrent joins for the last seat only one succeeds.
func (s *ParticipantService) Join(ctx context.Context, rideID, userID string) error {
	if !isUUID(rideID) {
		return ErrInvalidRideID
	}
	if userID == "" {
		return ErrInvalidUserID
	}

	err := s.participantRepo.Join(ctx, rideID, userID, s.now())
	switch {
	case err == nil:
		s.logger.WithFields(logrus.Fields{"ride_id": rideID, "user_id": userID}).Debug("rider joined")
		return nil
	case errors.Is(err, repository.ErrCapacityReached):
		return ErrRideFull
	case errors.Is(err, repository.ErrDuplicate):
		return ErrAlreadyJoined
	case errors.Is(err, repository.ErrRideNotActive):
		return ErrRideArchived
	default:
		return err
	}
}

// Leave removes the user from the ride.
func (s *ParticipantService) Leave(ctx context.Context, rideID, userID string) error {
	if !isUUID(rideID) {
		return ErrInvalidRideID
	}
	if userID == "" {
		return ErrInvalidUserID
	}

	if err := s.participantRepo.Leave(ctx, rideID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotParticipant
		}
		return err
	}
	return nil
}

// ListParticipants returns the riders who joined the ride.
func (s *ParticipantService) ListParticipants(ctx context.Context, rideID string) ([]*domain.Participant, error) {
	if !isUUID(rideID) {
		return nil, ErrInvalidRideID
	}
	if _, err := s.rideRepo.GetByID(ctx, rideID); err != nil {
		return nil, err
	}
	return s.participantRepo.ListByRide(ctx, rideID)
}
