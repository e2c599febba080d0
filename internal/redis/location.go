package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const rideLocationKey = "rides:locations"

// RideLocation is a ride's meeting point in the geo index.
type RideLocation struct {
	RideID     string
	Lat        float64
	Lng        float64
	DistanceKm float64
}

// LocationStore keeps the meeting points of active rides in a Redis geo set.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// IndexRide stores a ride's meeting point using GEOADD.
func (s *LocationStore) IndexRide(ctx context.Context, rideID string, lat, lng float64) error {
	return s.client.GeoAdd(ctx, rideLocationKey, &redis.GeoLocation{
		Name:      rideID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// FindNearbyRides returns ride IDs within the given radius (in kilometers), nearest first.
func (s *LocationStore) FindNearbyRides(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]RideLocation, error) {
	results, err := s.client.GeoRadius(ctx, rideLocationKey, lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Count:     limit,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	locations := make([]RideLocation, 0, len(results))
	for _, r := range results {
		locations = append(locations, RideLocation{
			RideID:     r.Name,
			Lat:        r.Latitude,
			Lng:        r.Longitude,
			DistanceKm: r.Dist,
		})
	}

	return locations, nil
}

// RemoveRides drops rides from the geo index.
func (s *LocationStore) RemoveRides(ctx context.Context, rideIDs ...string) error {
	if len(rideIDs) == 0 {
		return nil
	}
	members := make([]any, len(rideIDs))
	for i, id := range rideIDs {
		members[i] = id
	}
	return s.client.ZRem(ctx, rideLocationKey, members...).Err()
}
