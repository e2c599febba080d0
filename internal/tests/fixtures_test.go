package tests

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"groupride/internal/domain"
	"groupride/internal/service"
)

func validDetails() domain.RideDetails {
	return domain.RideDetails{
		Title:      "Saturday Hill Repeats",
		Distance:   64.5,
		Difficulty: domain.DifficultyB,
		MaxRiders:  12,
		Address:    "Main St Bakery",
		Latitude:   37.7749,
		Longitude:  -122.4194,
		RideType:   domain.RideTypeRoad,
		Pace:       28,
		Terrain:    domain.TerrainHilly,
		RouteURL:   "https://example.com/routes/42",
	}
}

func intPtr(n int) *int { return &n }

func mustWallClock(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := service.ParseWallClock(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}

func newTestLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}

// seedRide stores an active single ride owned by ownerID.
func seedRide(repo *MockRideRepository, ownerID string, at time.Time) *domain.Ride {
	ride := &domain.Ride{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		RideDetails: validDetails(),
		DateTime:    at,
		Status:      domain.RideStatusActive,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	repo.AddRide(ride)
	return ride
}

type rideEnv struct {
	rides        *MockRideRepository
	participants *MockParticipantRepository
	cache        *MockRideCache
	locations    *MockLocationStore
	service      *service.RideService
}

func newRideEnv() *rideEnv {
	logger, _ := newTestLogger()
	rides := NewMockRideRepository()
	participants := NewMockParticipantRepository(rides)
	cache := NewMockRideCache()
	locations := NewMockLocationStore()
	return &rideEnv{
		rides:        rides,
		participants: participants,
		cache:        cache,
		locations:    locations,
		service:      service.NewRideService(rides, participants, cache, locations, logger),
	}
}
