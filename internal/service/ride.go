package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"groupride/internal/domain"
	"groupride/internal/redis"
	"groupride/internal/repository"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Scope selects whether an edit or delete targets one ride or its whole series.
type Scope string

const (
	ScopeSingle Scope = "single"
	ScopeSeries Scope = "series"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID string
	Role   domain.UserRole
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == domain.UserRoleAdmin
}

// RideService handles ride operations.
type RideService struct {
	rideRepo        repository.RideRepository
	participantRepo repository.ParticipantRepository
	cache           redis.RideCacheInterface
	locations       redis.RideLocationStoreInterface
	logger          *logrus.Logger

	newID func() string
	now   func() time.Time
}

// NewRideService creates a new RideService. cache and locations may be nil.
func NewRideService(
	rideRepo repository.RideRepository,
	participantRepo repository.ParticipantRepository,
	cache redis.RideCacheInterface,
	locations redis.RideLocationStoreInterface,
	logger *logrus.Logger,
) *RideService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RideService{
		rideRepo:        rideRepo,
		participantRepo: participantRepo,
		cache:           cache,
		locations:       locations,
		logger:          logger,
		newID:           func() string { return uuid.New().String() },
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// CreateRideRequest contains the parameters for creating a ride or a series.
type CreateRideRequest struct {
	OwnerID  string
	Details  domain.RideDetails
	DateTime string

	IsRecurring      bool
	RecurringType    string
	RecurringDay     *int
	RecurringTime    string
	RecurringEndDate string
}

// CreateRide validates the request and persists a single ride, or expands the
// recurrence rule and persists the whole series in one transaction. The
// returned ride is the first one; series members share its ID as SeriesID.
func (s *RideService) CreateRide(ctx context.Context, req CreateRideRequest) (*domain.Ride, error) {
	if req.OwnerID == "" {
		return nil, ErrInvalidUserID
	}

	v := &validator{}
	validateDetails(v, req.Details)

	var start time.Time
	if req.DateTime == "" {
		v.add("dateTime is required")
	} else if t, err := ParseWallClock(req.DateTime); err != nil {
		v.add("dateTime must be an ISO-8601 date-time")
	} else {
		start = t
	}

	var rule domain.RecurrenceRule
	if req.IsRecurring {
		rule = validateRecurrence(v, req, start)
	}

	if err := v.err(); err != nil {
		return nil, err
	}

	now := s.now()
	template := &domain.Ride{
		OwnerID:     req.OwnerID,
		RideDetails: req.Details,
		DateTime:    start,
		Status:      domain.RideStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if !req.IsRecurring {
		template.ID = s.newID()
		if err := s.rideRepo.Create(ctx, template); err != nil {
			return nil, fmt.Errorf("create ride: %w", err)
		}
		s.indexLocations(ctx, template)
		return template, nil
	}

	rides := ExpandSeries(template, rule, s.newID(), s.newID)
	if err := s.rideRepo.CreateSeries(ctx, rides); err != nil {
		return nil, fmt.Errorf("create series: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"series_id": rides[0].SeriesID,
		"rides":     len(rides),
		"type":      rule.Type,
	}).Info("ride series created")

	s.indexLocations(ctx, rides...)
	return rides[0], nil
}

// RideView is a ride together with its current participant count.
type RideView struct {
	Ride         *domain.Ride
	Participants int
}

// GetRide retrieves a ride and its participant count.
func (s *RideService) GetRide(ctx context.Context, rideID string) (*RideView, error) {
	ride, err := s.loadRide(ctx, rideID)
	if err != nil {
		return nil, err
	}

	count, err := s.participantRepo.CountByRide(ctx, ride.ID)
	if err != nil {
		return nil, err
	}

	return &RideView{Ride: ride, Participants: count}, nil
}

// loadRide reads through the cache, falling back to the repository.
func (s *RideService) loadRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if !isUUID(rideID) {
		return nil, ErrInvalidRideID
	}

	if s.cache != nil {
		cached, err := s.cache.GetRide(ctx, rideID)
		if err != nil {
			s.logger.WithError(err).WithField("ride_id", rideID).Warn("ride cache read failed")
		} else if cached != nil {
			return cachedToRide(cached), nil
		}
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetRide(ctx, rideToCached(ride)); err != nil {
			s.logger.WithError(err).WithField("ride_id", rideID).Warn("ride cache write failed")
		}
	}

	return ride, nil
}

// ListRidesRequest holds the raw query filters of a ride listing.
type ListRidesRequest struct {
	Status     string
	OwnerID    string
	SeriesID   string
	Difficulty string
	From       string
	To         string
	Limit      int
	Offset     int
}

// ListRides returns rides matching the filters ordered by start time.
func (s *RideService) ListRides(ctx context.Context, req ListRidesRequest) ([]*domain.Ride, error) {
	v := &validator{}
	filter := domain.RideFilter{
		Status:     domain.RideStatus(req.Status),
		OwnerID:    req.OwnerID,
		SeriesID:   req.SeriesID,
		Difficulty: domain.Difficulty(req.Difficulty),
		Limit:      req.Limit,
		Offset:     req.Offset,
	}

	if req.Status != "" {
		v.check(filter.Status == domain.RideStatusActive || filter.Status == domain.RideStatusArchived,
			"status must be active or archived")
	}
	if req.SeriesID != "" {
		v.check(isUUID(req.SeriesID), "series_id must be a UUID")
	}
	if req.Difficulty != "" {
		v.check(filter.Difficulty.Valid(), "difficulty must be one of E, D, C, B, A, AA")
	}
	if req.From != "" {
		t, err := ParseDate(req.From)
		v.check(err == nil, "from must be a date or date-time")
		filter.From = t
	}
	if req.To != "" {
		t, err := ParseDate(req.To)
		v.check(err == nil, "to must be a date or date-time")
		filter.To = t
	}
	v.check(req.Offset >= 0, "offset must not be negative")

	if err := v.err(); err != nil {
		return nil, err
	}

	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}

	return s.rideRepo.List(ctx, filter)
}

// NearbyRide is an active ride found by a location search.
type NearbyRide struct {
	Ride       *domain.Ride
	DistanceKm float64
}

// FindNearbyRides returns active rides whose meeting point lies within
// radiusKm of the given point, nearest first.
func (s *RideService) FindNearbyRides(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]NearbyRide, error) {
	if s.locations == nil {
		return nil, ErrNearbySearchUnavailable
	}
	if !isValidLatitude(lat) || !isValidLongitude(lng) || radiusKm <= 0 {
		return nil, ErrInvalidLocation
	}
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	hits, err := s.locations.FindNearbyRides(ctx, lat, lng, radiusKm, limit)
	if err != nil {
		return nil, err
	}

	result := make([]NearbyRide, 0, len(hits))
	var stale []string
	for _, hit := range hits {
		ride, err := s.loadRide(ctx, hit.RideID)
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, ErrInvalidRideID) {
			stale = append(stale, hit.RideID)
			continue
		}
		if err != nil {
			return nil, err
		}
		if ride.Status != domain.RideStatusActive {
			stale = append(stale, ride.ID)
			continue
		}
		result = append(result, NearbyRide{Ride: ride, DistanceKm: hit.DistanceKm})
	}

	if len(stale) > 0 {
		if err := s.locations.RemoveRides(ctx, stale...); err != nil {
			s.logger.WithError(err).Warn("failed to prune ride locations")
		}
	}

	return result, nil
}

// UpdateRideRequest contains the parameters for editing a ride.
type UpdateRideRequest struct {
	RideID   string
	Actor    Actor
	Scope    Scope
	Details  domain.RideDetails
	DateTime string
}

// UpdateRide edits a ride owned by the actor. With ScopeSeries the
// descriptive fields are applied to every ride of the series and dateTime is
// ignored. Rides that belong to a series can only be edited as a series.
func (s *RideService) UpdateRide(ctx context.Context, req UpdateRideRequest) (*domain.Ride, error) {
	ride, err := s.loadRide(ctx, req.RideID)
	if err != nil {
		return nil, err
	}

	if ride.OwnerID != req.Actor.UserID {
		return nil, ErrForbidden
	}

	if req.Scope == ScopeSeries {
		return s.updateSeries(ctx, ride, req)
	}

	if ride.Status == domain.RideStatusArchived {
		return nil, ErrRideArchived
	}

	v := &validator{}
	if ride.InSeries() {
		v.add("rides in a series must be edited with scope=series")
		return nil, v.err()
	}

	validateDetails(v, req.Details)
	start, err := ParseWallClock(req.DateTime)
	v.check(err == nil, "dateTime must be an ISO-8601 date-time")
	if err := v.err(); err != nil {
		return nil, err
	}

	if err := s.checkCapacity(ctx, req.Details.MaxRiders, ride.ID); err != nil {
		return nil, err
	}

	ride.RideDetails = req.Details
	ride.DateTime = start
	if err := s.rideRepo.Update(ctx, ride); err != nil {
		if errors.Is(err, repository.ErrBelowParticipants) {
			return nil, ErrCapacityBelowParticipants
		}
		return nil, fmt.Errorf("update ride: %w", err)
	}

	s.evict(ctx, ride.ID)
	s.indexLocations(ctx, ride)

	return s.rideRepo.GetByID(ctx, ride.ID)
}

func (s *RideService) updateSeries(ctx context.Context, ride *domain.Ride, req UpdateRideRequest) (*domain.Ride, error) {
	if !ride.InSeries() {
		return nil, ErrNotInSeries
	}

	v := &validator{}
	validateDetails(v, req.Details)
	if err := v.err(); err != nil {
		return nil, err
	}

	members, err := s.seriesMembers(ctx, ride.SeriesID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		if err := s.checkCapacity(ctx, req.Details.MaxRiders, m.ID); err != nil {
			return nil, err
		}
		ids = append(ids, m.ID)
	}

	n, err := s.rideRepo.UpdateSeriesDetails(ctx, ride.SeriesID, req.Details)
	if err != nil {
		if errors.Is(err, repository.ErrBelowParticipants) {
			return nil, ErrCapacityBelowParticipants
		}
		return nil, fmt.Errorf("update series: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"series_id": ride.SeriesID,
		"rides":     n,
	}).Info("ride series updated")

	s.evict(ctx, ids...)
	for _, m := range members {
		m.RideDetails = req.Details
		if m.Status == domain.RideStatusActive {
			s.indexLocations(ctx, m)
		}
	}

	return s.rideRepo.GetByID(ctx, ride.ID)
}

// checkCapacity rejects an obviously too small capacity before any write.
// The repository repeats the check under the ride row lock.
func (s *RideService) checkCapacity(ctx context.Context, maxRiders int, rideID string) error {
	count, err := s.participantRepo.CountByRide(ctx, rideID)
	if err != nil {
		return err
	}
	if maxRiders < count {
		return ErrCapacityBelowParticipants
	}
	return nil
}

func (s *RideService) seriesMembers(ctx context.Context, seriesID string) ([]*domain.Ride, error) {
	return s.rideRepo.List(ctx, domain.RideFilter{SeriesID: seriesID, Limit: MaxSeriesLength + 1})
}

// DeleteRideRequest contains the parameters for deleting a ride.
type DeleteRideRequest struct {
	RideID string
	Actor  Actor
	Scope  Scope
}

// DeleteRide removes a ride, or its whole series with ScopeSeries, and
// returns the number of rides deleted. Owners and admins may delete. The
// first ride carries the series id, so it is only deleted alone once it is
// the last member left.
func (s *RideService) DeleteRide(ctx context.Context, req DeleteRideRequest) (int64, error) {
	ride, err := s.loadRide(ctx, req.RideID)
	if err != nil {
		return 0, err
	}

	if ride.OwnerID != req.Actor.UserID && !req.Actor.IsAdmin() {
		return 0, ErrForbidden
	}

	if req.Scope != ScopeSeries {
		if ride.InSeries() && ride.ID == ride.SeriesID {
			members, err := s.seriesMembers(ctx, ride.SeriesID)
			if err != nil {
				return 0, err
			}
			if len(members) > 1 {
				v := &validator{}
				v.add("the first ride of a series can only be deleted with scope=series")
				return 0, v.err()
			}
		}
		if err := s.rideRepo.Delete(ctx, ride.ID); err != nil {
			return 0, err
		}
		s.forget(ctx, ride.ID)
		return 1, nil
	}

	if !ride.InSeries() {
		return 0, ErrNotInSeries
	}

	members, err := s.seriesMembers(ctx, ride.SeriesID)
	if err != nil {
		return 0, err
	}

	n, err := s.rideRepo.DeleteSeries(ctx, ride.SeriesID)
	if err != nil {
		return 0, fmt.Errorf("delete series: %w", err)
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	s.forget(ctx, ids...)

	s.logger.WithFields(logrus.Fields{
		"series_id": ride.SeriesID,
		"rides":     n,
	}).Info("ride series deleted")

	return n, nil
}

func (s *RideService) indexLocations(ctx context.Context, rides ...*domain.Ride) {
	if s.locations == nil {
		return
	}
	for _, r := range rides {
		if err := s.locations.IndexRide(ctx, r.ID, r.Latitude, r.Longitude); err != nil {
			s.logger.WithError(err).WithField("ride_id", r.ID).Warn("failed to index ride location")
			return
		}
	}
}

func (s *RideService) evict(ctx context.Context, ids ...string) {
	if s.cache == nil || len(ids) == 0 {
		return
	}
	if err := s.cache.InvalidateRides(ctx, ids...); err != nil {
		s.logger.WithError(err).Warn("ride cache invalidation failed")
	}
}

// forget drops deleted rides from the cache and the location index.
func (s *RideService) forget(ctx context.Context, ids ...string) {
	s.evict(ctx, ids...)
	if s.locations != nil && len(ids) > 0 {
		if err := s.locations.RemoveRides(ctx, ids...); err != nil {
			s.logger.WithError(err).Warn("failed to remove ride locations")
		}
	}
}
