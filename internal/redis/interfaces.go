package redis

import (
	"context"
	"time"
)

// RideCacheInterface defines the interface for ride caching.
type RideCacheInterface interface {
	GetRide(ctx context.Context, rideID string) (*CachedRide, error)
	SetRide(ctx context.Context, ride *CachedRide) error
	InvalidateRides(ctx context.Context, rideIDs ...string) error
}

// RideLocationStoreInterface defines the interface for the geo index of active rides.
type RideLocationStoreInterface interface {
	IndexRide(ctx context.Context, rideID string, lat, lng float64) error
	FindNearbyRides(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]RideLocation, error)
	RemoveRides(ctx context.Context, rideIDs ...string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, name, token string) error
}

// Ensure concrete types implement interfaces.
var (
	_ RideCacheInterface         = (*CacheStore)(nil)
	_ RideLocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface         = (*LockStore)(nil)
)
