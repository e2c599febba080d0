package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCacheStore creates a new CacheStore. A zero ttl uses RideCacheTTL.
func NewCacheStore(client *redis.Client, ttl time.Duration) *CacheStore {
	if ttl <= 0 {
		ttl = RideCacheTTL
	}
	return &CacheStore{client: client, ttl: ttl}
}

// RideCacheTTL is the default lifetime of a cached ride.
const RideCacheTTL = 30 * time.Second

const rideCachePrefix = "cache:ride:"

// CachedRide represents a cached ride entity.
type CachedRide struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"owner_id"`
	Title            string    `json:"title"`
	Distance         float64   `json:"distance"`
	Difficulty       string    `json:"difficulty"`
	MaxRiders        int       `json:"max_riders"`
	Address          string    `json:"address"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	RideType         string    `json:"ride_type"`
	Pace             float64   `json:"pace"`
	Terrain          string    `json:"terrain"`
	RouteURL         string    `json:"route_url,omitempty"`
	Description      string    `json:"description,omitempty"`
	DateTime         time.Time `json:"date_time"`
	Status           string    `json:"status"`
	IsRecurring      bool      `json:"is_recurring"`
	RecurringType    string    `json:"recurring_type,omitempty"`
	RecurringDay     int       `json:"recurring_day,omitempty"`
	RecurringTime    string    `json:"recurring_time,omitempty"`
	RecurringEndDate time.Time `json:"recurring_end_date"`
	SeriesID         string    `json:"series_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// GetRide retrieves a ride from cache. A miss returns (nil, nil).
func (s *CacheStore) GetRide(ctx context.Context, rideID string) (*CachedRide, error) {
	key := rideCachePrefix + rideID
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var ride CachedRide
	if err := json.Unmarshal(data, &ride); err != nil {
		return nil, err
	}
	return &ride, nil
}

// SetRide stores a ride in cache.
func (s *CacheStore) SetRide(ctx context.Context, ride *CachedRide) error {
	key := rideCachePrefix + ride.ID
	data, err := json.Marshal(ride)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, s.ttl).Err()
}

// InvalidateRides removes rides from cache in one round trip.
func (s *CacheStore) InvalidateRides(ctx context.Context, rideIDs ...string) error {
	if len(rideIDs) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, id := range rideIDs {
		pipe.Del(ctx, rideCachePrefix+id)
	}

	_, err := pipe.Exec(ctx)
	return err
}
