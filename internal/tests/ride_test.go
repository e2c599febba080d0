package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"groupride/internal/domain"
	"groupride/internal/repository"
	"groupride/internal/service"
)

func createSeries(t *testing.T, env *rideEnv, owner string) *domain.Ride {
	t.Helper()
	first, err := env.service.CreateRide(context.Background(), service.CreateRideRequest{
		OwnerID:          owner,
		Details:          validDetails(),
		DateTime:         "2025-01-01T07:00:00",
		IsRecurring:      true,
		RecurringType:    "weekly",
		RecurringDay:     intPtr(3),
		RecurringTime:    "07:00",
		RecurringEndDate: "2025-01-29",
	})
	if err != nil {
		t.Fatalf("create series: %v", err)
	}
	return first
}

// ──────────────────────────────────────────────
// 1. READS
// ──────────────────────────────────────────────

func TestGetRide_ReadsThroughCache(t *testing.T) {
	t.Parallel()

	env := newRideEnv()
	ride := seedRide(env.rides, "owner-1", mustWallClock(t, "2025-06-01T08:00:00"))
	env.participants.Seed(ride.ID, "a", "b")

	view, err := env.service.GetRide(context.Background(), ride.ID)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if view.Participants != 2 {
		t.Errorf("expected 2 participants, got %d", view.Participants)
	}
	if !env.cache.Has(ride.ID) {
		t.Fatal("expected ride to be cached after first read")
	}

	// Served from cache even after the row is gone.
	_ = env.rides.Delete(context.Background(), ride.ID)
	view, err = env.service.GetRide(context.Background(), ride.ID)
	if err != nil {
		t.Fatalf("expected cached read, got: %v", err)
	}
	if view.Ride.Title != ride.Title || !view.Ride.DateTime.Equal(ride.DateTime) {
		t.Errorf("cached ride differs from stored ride")
	}
}

func TestGetRide_InvalidAndMissing(t *testing.T) {
	t.Parallel()

	env := newRideEnv()
	if _, err := env.service.GetRide(context.Background(), "not-a-uuid"); !errors.Is(err, service.ErrInvalidRideID) {
		t.Errorf("expected ErrInvalidRideID, got: %v", err)
	}
	if _, err := env.service.GetRide(context.Background(), "6f1c1c52-5d43-4d7c-9a6a-6f0b8f3d1e11"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestGetRide_CacheFailure_FallsBackToRepository(t *testing.T) {
	t.Parallel()

	env := newRideEnv()
	env.cache.GetError = errors.New("redis: connection refused")
	ride := seedRide(env.rides, "owner-1", mustWallClock(t, "2025-06-01T08:00:00"))

	view, err := env.service.GetRide(context.Background(), ride.ID)
	if err != nil {
		t.Fatalf("expected repository fallback, got: %v", err)
	}
	if view.Ride.ID != ride.ID {
		t.Errorf("expected ride %s, got %s", ride.ID, view.Ride.ID)
	}
}

func TestListRides_FiltersAndClampsLimit(t *testing.T) {
	t.Parallel()

	env := newRideEnv()
	first := createSeries(t, env, "owner-1")
	seedRide(env.rides, "owner-2", mustWallClock(t, "2025-01-03T09:00:00"))

	rides, err := env.service.ListRides(context.Background(), service.ListRidesRequest{SeriesID: first.SeriesID})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(rides) != 4 {
		t.Fatalf("expected 4 series rides, got %d", len(rides))
	}
	for i := 1; i < len(rides); i++ {
		if rides[i].DateTime.Before(rides[i-1].DateTime) {
			t.Errorf("expected rides ordered by start time")
		}
	}

	rides, err = env.service.ListRides(context.Background(), service.ListRidesRequest{OwnerID: "owner-2", Limit: 1000})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(rides) != 1 {
		t.Errorf("expected 1 ride for owner-2, got %d", len(rides))
	}

	rides, err = env.service.ListRides(context.Background(), service.ListRidesRequest{From: "2025-01-08", To: "2025-01-16"})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(rides) != 2 {
		t.Errorf("expected 2 rides in window, got %d", len(rides))
	}
}

func TestListRides_InvalidFilters(t *testing.T) {
	t.Parallel()

	env := newRideEnv()
	_, err := env.service.ListRides(context.Background(), service.ListRidesRequest{
		Status:     "cancelled",
		SeriesID:   "nope",
		Difficulty: "Z",
		From:       "yesterday",
		Offset:     -1,
	})

	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got: %v", err)
	}
	if len(verr.Messages) != 5 {
		t.Errorf("expected 5 messages, got %d: %v", len(verr.Messages), verr.Messages)
	}
}

func TestFindNearbyRides(t *testing.T) {
	t.Parallel()

	env := newRideEnv()
	env.locations.Distance = 1.5

	active := seedRide(env.rides, "owner-1", mustWallClock(t, "2025-06-01T08:00:00"))
	archived := seedRide(env.rides, "owner-1", mustWallClock(t, "2025-05-01T08:00:00"))
	env.rides.GetRide(archived.ID).Status = domain.RideStatusArchived

	ctx := context.Background()
	_ = env.locations.IndexRide(ctx, active.ID, active.Latitude, active.Longitude)
	_ = env.locations.IndexRide(ctx, archived.ID, archived.Latitude, archived.Longitude)
	_ = env.locations.IndexRide(ctx, "c8a4b1f0-0000-4000-8000-000000000001", 0, 0)

	found, err := env.service.FindNearbyRides(ctx, 37.77, -122.41, 5, 10)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(found) != 1 || found[0].Ride.ID != active.ID {
		t.Fatalf("expected only the active ride, got %+v", found)
	}
	if found[0].DistanceKm != 1.5 {
		t.Errorf("expected distance 1.5, got %v", found[0].DistanceKm)
	}
	if env.locations.Indexed(archived.ID) || env.locations.Indexed("c8a4b1f0-0000-4000-8000-000000000001") {
		t.Error("expected stale entries to be pruned from the index")
	}
}

func TestFindNearbyRides_LimitBounds(t *testing.T) {
	t.Parallel()

	env := newRideEnv()
	ctx := context.Background()

	testCases := []struct {
		limit int
		want  int
	}{
		{0, 20},
		{-3, 20},
		{50, 50},
		{100, 100},
		{500, 100},
	}

	for _, tc := range testCases {
		if _, err := env.service.FindNearbyRides(ctx, 37.77, -122.41, 5, tc.limit); err != nil {
			t.Fatalf("limit %d: expected no error, got: %v", tc.limit, err)
		}
		if env.locations.LastLimit != tc.want {
			t.Errorf("limit %d: expected search limit %d, got %d", tc.limit, tc.want, env.locations.LastLimit)
		}
	}
}

func TestFindNearbyRides_Errors(t *testing.T) {
	t.Parallel()

	logger, _ := newTestLogger()
	rides := NewMockRideRepository()
	noIndex := service.NewRideService(rides, NewMockParticipantRepository(rides), nil, nil, logger)
	if _, err := noIndex.FindNearbyRides(context.Background(), 0, 0, 5, 10); !errors.Is(err, service.ErrNearbySearchUnavailable) {
		t.Errorf("expected ErrNearbySearchUnavailable, got: %v", err)
	}

	env := newRideEnv()
	for _, tc := range []struct{ lat, lng, radius float64 }{{91, 0, 5}, {0, 181, 5}, {0, 0, 0}} {
		if _, err := env.service.FindNearbyRides(context.Background(), tc.lat, tc.lng, tc.radius, 10); !errors.Is(err, service.ErrInvalidLocation) {
			t.Errorf("lat=%v lng=%v radius=%v: expected ErrInvalidLocation, got: %v", tc.lat, tc.lng, tc.radius, err)
		}
	}
}

// ──────────────────────────────────────────────
// 2. UPDATES
// ──────────────────────────────────────────────

func TestUpdateRide_Single_Succeeds(t *testing.T) {
	t.Parallel()

	env := newRideEnv()
	ride := seedRide(env.rides, "owner-1", mustWallClock(t, "2025-06-01T08:00:00"))
	_, _ = env.service.GetRide(context.Background(), ride.ID)

	details := validDetails()
	details.Title = "Sunday Coffee Spin"
	details.Latitude = 40.0

	updated, err := env.service.UpdateRide(context.Background(), service.UpdateRideRequest{
		RideID:   ride.ID,
		Actor:    service.Actor{UserID: "owner-1"},
		Scope:    service.ScopeSingle,
		Details:  details,
		DateTime: "2025-06-02T09:00:00",
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if updated.Title != "Sunday Coffee Spin" {
		t.Errorf("expected new title, got %s", updated.Title)
	}
	if got := updated.DateTime.Format(service.DateTimeLayout); got != "2025-06-02T09:00:00" {
		t.Errorf("expected new start, got %s", got)
	}
	if updated.Status != domain.RideStatusActive {
		t.Errorf("expected status untouched, got %s", updated.Status)
	}
	if env.cache.Has(ride.ID) {
		t.Error("expected cached ride to be evicted")
	}
}

func TestUpdateRide_Permissions(t *testing.T) {
	t.Parallel()

	env := newRideEnv()
	ride := seedRide(env.rides, "owner-1", mustWallClock(t, "2025-06-01T08:00:00"))

	for _, actor := range []service.Actor{
		{UserID: "someone-else"},
		{UserID: "admin-1", Role: domain.UserRoleAdmin},
	} {
		_, err := env.service.UpdateRide(context.Background(), service.UpdateRideRequest{
			RideID:   ride.ID,
			Actor:    actor,
			Details:  validDetails(),
			DateTime: "2025-06-02T09:00:00",
		})
		if !errors.Is(err, service.ErrForbidden) {
			t.Errorf("actor %s: expected ErrForbidden, got: %v", actor.UserID, err)
		}
	}
}

func TestUpdateRide_Archived_Rejected(t *testing.T) {
	t.Parallel()

	env := newRideEnv()
	ride := seedRide(env.rides, "owner-1", mustWallClock(t, "2025-01-01T08:00:00"))
	env.rides.GetRide(ride.ID).Status = domain.RideStatusArchived

	_, err := env.service.UpdateRide(context.Background(), service.UpdateRideRequest{
		RideID:   ride.ID,
		Actor:    service.Actor{UserID: "owner-1"},
		Details:  validDetails(),
		DateTime: "2025-06-02T09:00:00",
	})
	if !errors.Is(err, service.ErrRideArchived) {
		t.Errorf("expected ErrRideArchived, got: %v", err)
	}
}

func TestUpdateRide_CapacityBelowParticipants_Rejected(t *testing.T) {
	t.Parallel()

	env := newRideEnv()
	ride := seedRide(env.rides, "owner-1", mustWallClock(t, "2025-06-01T08:00:00"))
	env.participants.Seed(ride.ID, "a", "b", "c")

	details := validDetails()
	details.MaxRiders = 2

	_, err := env.service.UpdateRide(context.Background(), service.UpdateRideRequest{
		RideID:   ride.ID,
		Actor:    service.Actor{UserID: "owner-1"},
		Details:  details,
		DateTime: "2025-06-02T09:00:00",
	})
	if !errors.Is(err, service.ErrCapacityBelowParticipants) {
		t.Errorf("expected ErrCapacityBelowParticipants, got: %v", err)
	}
	if env.rides.UpdateCallCount != 0 {
		t.Errorf("expected no write, got %d updates", env.rides.UpdateCallCount)
	}
}

func TestUpdateRide_SeriesMemberRequiresSeriesScope(t *testing.T) {
	t.Parallel()

	env := newRideEnv()
	first := createSeries(t, env, "owner-1")

	_, err := env.service.UpdateRide(context.Background(), service.UpdateRideRequest{
		RideID:   first.ID,
		Actor:    service.Actor{UserID: "owner-1"},
		Scope:    service.ScopeSingle,
		Details:  validDetails(),
		DateTime: "2025-01-02T07:00:00",
	})
	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got: %v", err)
	}
}

func TestUpdateRide_SeriesScope_AppliesToEveryRide(t *testing.T) {
	t.Parallel()

	env := newRideEnv()
	first := createSeries(t, env, "owner-1")
	members, _ := env.rides.List(context.Background(), domain.RideFilter{SeriesID: first.SeriesID})
	before := map[string]time.Time{}
	for _, m := range members {
		before[m.ID] = m.DateTime
	}

	details := validDetails()
	details.Title = "Renamed Series"
	details.Pace = 31

	_, err := env.service.UpdateRide(context.Background(), service.UpdateRideRequest{
		RideID:  members[2].ID,
		Actor:   service.Actor{UserID: "owner-1"},
		Scope:   service.ScopeSeries,
		Details: details,
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	after, _ := env.rides.List(context.Background(), domain.RideFilter{SeriesID: first.SeriesID})
	if len(after) != len(members) {
		t.Fatalf("expected %d rides, got %d", len(members), len(after))
	}
	for _, r := range after {
		if r.RideDetails != details {
			t.Errorf("ride %s: details not applied", r.ID)
		}
		if !r.DateTime.Equal(before[r.ID]) {
			t.Errorf("ride %s: start time changed", r.ID)
		}
	}
}

func TestUpdateRide_SeriesScopeOnSingleRide_Rejected(t *testing.T) {
	t.Parallel()

	env := newRideEnv()
	ride := seedRide(env.rides, "owner-1", mustWallClock(t, "2025-06-01T08:00:00"))

	_, err := env.service.UpdateRide(context.Background(), service.UpdateRideRequest{
		RideID:  ride.ID,
		Actor:   service.Actor{UserID: "owner-1"},
		Scope:   service.ScopeSeries,
		Details: validDetails(),
	})
	if !errors.Is(err, service.ErrNotInSeries) {
		t.Errorf("expected ErrNotInSeries, got: %v", err)
	}
}

func TestUpdateRide_CapacityRecheckedAtWrite(t *testing.T) {
	t.Parallel()

	env := newRideEnv()
	ctx := context.Background()
	ride := seedRide(env.rides, "owner-1", mustWallClock(t, "2025-06-01T08:00:00"))
	first := createSeries(t, env, "owner-1")

	// A join landing after the service's count makes the guarded write fail.
	env.rides.UpdateError = repository.ErrBelowParticipants

	details := validDetails()
	details.MaxRiders = 2

	_, err := env.service.UpdateRide(ctx, service.UpdateRideRequest{
		RideID:   ride.ID,
		Actor:    service.Actor{UserID: "owner-1"},
		Details:  details,
		DateTime: "2025-06-02T09:00:00",
	})
	if !errors.Is(err, service.ErrCapacityBelowParticipants) {
		t.Errorf("expected ErrCapacityBelowParticipants for single ride, got: %v", err)
	}

	_, err = env.service.UpdateRide(ctx, service.UpdateRideRequest{
		RideID:  first.ID,
		Actor:   service.Actor{UserID: "owner-1"},
		Scope:   service.ScopeSeries,
		Details: details,
	})
	if !errors.Is(err, service.ErrCapacityBelowParticipants) {
		t.Errorf("expected ErrCapacityBelowParticipants for series, got: %v", err)
	}
}

// ──────────────────────────────────────────────
// 3. DELETES
// ──────────────────────────────────────────────

func TestDeleteRide_OwnerAndAdmin(t *testing.T) {
	t.Parallel()

	env := newRideEnv()
	mine := seedRide(env.rides, "owner-1", mustWallClock(t, "2025-06-01T08:00:00"))
	theirs := seedRide(env.rides, "owner-2", mustWallClock(t, "2025-06-01T08:00:00"))

	if _, err := env.service.DeleteRide(context.Background(), service.DeleteRideRequest{
		RideID: theirs.ID,
		Actor:  service.Actor{UserID: "owner-1"},
	}); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got: %v", err)
	}

	n, err := env.service.DeleteRide(context.Background(), service.DeleteRideRequest{
		RideID: mine.ID,
		Actor:  service.Actor{UserID: "owner-1"},
	})
	if err != nil || n != 1 {
		t.Errorf("expected owner delete of 1 ride, got n=%d err=%v", n, err)
	}

	n, err = env.service.DeleteRide(context.Background(), service.DeleteRideRequest{
		RideID: theirs.ID,
		Actor:  service.Actor{UserID: "admin-1", Role: domain.UserRoleAdmin},
	})
	if err != nil || n != 1 {
		t.Errorf("expected admin delete of 1 ride, got n=%d err=%v", n, err)
	}
	if env.rides.CountRides() != 0 {
		t.Errorf("expected no rides left, got %d", env.rides.CountRides())
	}
}

func TestDeleteRide_SeriesScope(t *testing.T) {
	t.Parallel()

	env := newRideEnv()
	first := createSeries(t, env, "owner-1")
	other := seedRide(env.rides, "owner-1", mustWallClock(t, "2025-01-05T08:00:00"))

	n, err := env.service.DeleteRide(context.Background(), service.DeleteRideRequest{
		RideID: first.ID,
		Actor:  service.Actor{UserID: "owner-1"},
		Scope:  service.ScopeSeries,
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 rides deleted, got %d", n)
	}
	if env.rides.CountRides() != 1 || env.rides.GetRide(other.ID) == nil {
		t.Error("expected only the unrelated ride to remain")
	}
	if env.locations.Indexed(first.ID) {
		t.Error("expected series locations removed")
	}

	if _, err := env.service.DeleteRide(context.Background(), service.DeleteRideRequest{
		RideID: other.ID,
		Actor:  service.Actor{UserID: "owner-1"},
		Scope:  service.ScopeSeries,
	}); !errors.Is(err, service.ErrNotInSeries) {
		t.Errorf("expected ErrNotInSeries, got: %v", err)
	}
}

func TestDeleteRide_SeriesHeadNeedsSeriesScope(t *testing.T) {
	t.Parallel()

	env := newRideEnv()
	ctx := context.Background()
	owner := service.Actor{UserID: "owner-1"}
	first := createSeries(t, env, "owner-1")

	_, err := env.service.DeleteRide(ctx, service.DeleteRideRequest{RideID: first.ID, Actor: owner})
	var vErr *service.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got: %v", err)
	}
	if env.rides.CountRides() != 4 {
		t.Fatalf("expected series untouched, got %d rides", env.rides.CountRides())
	}

	// Later members can go one by one; the head stays canonical.
	members, _ := env.rides.List(ctx, domain.RideFilter{SeriesID: first.ID, Limit: 10})
	for _, m := range members {
		if m.ID == first.ID {
			continue
		}
		if _, err := env.service.DeleteRide(ctx, service.DeleteRideRequest{RideID: m.ID, Actor: owner}); err != nil {
			t.Fatalf("expected member delete, got: %v", err)
		}
	}
	if env.rides.GetRide(first.ID) == nil {
		t.Fatal("expected series head to remain")
	}

	// Last member left: a plain delete is allowed.
	n, err := env.service.DeleteRide(ctx, service.DeleteRideRequest{RideID: first.ID, Actor: owner})
	if err != nil || n != 1 {
		t.Errorf("expected lone head deleted, got n=%d err=%v", n, err)
	}
	if env.rides.CountRides() != 0 {
		t.Errorf("expected no rides left, got %d", env.rides.CountRides())
	}
}
