package tests

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"groupride/internal/domain"
	"groupride/internal/redis"
	"groupride/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is a mock implementation of RideRepository.
type MockRideRepository struct {
	mu    sync.RWMutex
	rides map[string]*domain.Ride

	// Counters for verification
	CreateCallCount       int32
	CreateSeriesCallCount int32
	UpdateCallCount       int32
	ArchiveCallCount      int32

	// Error injection
	CreateError       error
	CreateSeriesError error
	UpdateError       error
	ArchiveError      error

	// OnArchive runs inside ArchiveStale before any ride is archived.
	OnArchive func()
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{
		rides: make(map[string]*domain.Ride),
	}
}

// AddRide adds a ride to the mock repository.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *ride
	m.rides[ride.ID] = &copy
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[ride.ID]; ok {
		return repository.ErrDuplicate
	}
	copy := *ride
	m.rides[ride.ID] = &copy
	return nil
}

func (m *MockRideRepository) CreateSeries(ctx context.Context, rides []*domain.Ride) error {
	atomic.AddInt32(&m.CreateSeriesCallCount, 1)
	if m.CreateSeriesError != nil {
		// All or nothing: nothing is stored.
		return m.CreateSeriesError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rides {
		if _, ok := m.rides[r.ID]; ok {
			return repository.ErrDuplicate
		}
	}
	for _, r := range rides {
		copy := *r
		m.rides[r.ID] = &copy
	}
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *ride
	return &copy, nil
}

func (m *MockRideRepository) List(ctx context.Context, filter domain.RideFilter) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*domain.Ride, 0, len(m.rides))
	for _, r := range m.rides {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.OwnerID != "" && r.OwnerID != filter.OwnerID {
			continue
		}
		if filter.SeriesID != "" && r.SeriesID != filter.SeriesID {
			continue
		}
		if filter.Difficulty != "" && r.Difficulty != filter.Difficulty {
			continue
		}
		if !filter.From.IsZero() && r.DateTime.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !r.DateTime.Before(filter.To) {
			continue
		}
		copy := *r
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].DateTime.Equal(result[j].DateTime) {
			return result[i].ID < result[j].ID
		}
		return result[i].DateTime.Before(result[j].DateTime)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*domain.Ride{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *MockRideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rides[ride.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.RideDetails = ride.RideDetails
	stored.DateTime = ride.DateTime
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockRideRepository) UpdateSeriesDetails(ctx context.Context, seriesID string, details domain.RideDetails) (int64, error) {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return 0, m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.rides {
		if r.SeriesID == seriesID {
			r.RideDetails = details
			n++
		}
	}
	return n, nil
}

func (m *MockRideRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rides, id)
	return nil
}

func (m *MockRideRepository) DeleteSeries(ctx context.Context, seriesID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.rides {
		if r.SeriesID == seriesID {
			delete(m.rides, id)
			n++
		}
	}
	return n, nil
}

func (m *MockRideRepository) ArchiveStale(ctx context.Context, before time.Time) ([]string, error) {
	atomic.AddInt32(&m.ArchiveCallCount, 1)
	if m.OnArchive != nil {
		m.OnArchive()
	}
	if m.ArchiveError != nil {
		return nil, m.ArchiveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, r := range m.rides {
		if r.Status == domain.RideStatusActive && r.DateTime.Before(before) {
			r.Status = domain.RideStatusArchived
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// GetRide returns the stored ride by ID (for test assertions).
func (m *MockRideRepository) GetRide(id string) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rides[id]
}

// CountRides returns the number of rides.
func (m *MockRideRepository) CountRides() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rides)
}

// ──────────────────────────────────────────────
// MOCK PARTICIPANT REPOSITORY
// ──────────────────────────────────────────────

// MockParticipantRepository is a mock implementation of ParticipantRepository.
// Join holds one lock across the seat check and the insert, like the row
// lock the Postgres implementation takes.
type MockParticipantRepository struct {
	mu           sync.Mutex
	rides        *MockRideRepository
	participants map[string][]*domain.Participant

	JoinCallCount int32
	CountError    error
}

// NewMockParticipantRepository creates a participant repository backed by rides.
func NewMockParticipantRepository(rides *MockRideRepository) *MockParticipantRepository {
	return &MockParticipantRepository{
		rides:        rides,
		participants: make(map[string][]*domain.Participant),
	}
}

func (m *MockParticipantRepository) Join(ctx context.Context, rideID, userID string, joinedAt time.Time) error {
	atomic.AddInt32(&m.JoinCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()

	ride := m.rides.GetRide(rideID)
	if ride == nil {
		return repository.ErrNotFound
	}
	if ride.Status != domain.RideStatusActive {
		return repository.ErrRideNotActive
	}

	current := m.participants[rideID]
	for _, p := range current {
		if p.UserID == userID {
			return repository.ErrDuplicate
		}
	}
	if len(current) >= ride.MaxRiders {
		return repository.ErrCapacityReached
	}

	m.participants[rideID] = append(current, &domain.Participant{RideID: rideID, UserID: userID, JoinedAt: joinedAt})
	return nil
}

func (m *MockParticipantRepository) Leave(ctx context.Context, rideID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.participants[rideID]
	for i, p := range current {
		if p.UserID == userID {
			m.participants[rideID] = append(current[:i], current[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *MockParticipantRepository) ListByRide(ctx context.Context, rideID string) ([]*domain.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Participant, 0, len(m.participants[rideID]))
	for _, p := range m.participants[rideID] {
		copy := *p
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockParticipantRepository) CountByRide(ctx context.Context, rideID string) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.participants[rideID]), nil
}

// Seed adds participants without capacity checks (for test setup).
func (m *MockParticipantRepository) Seed(rideID string, userIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range userIDs {
		m.participants[rideID] = append(m.participants[rideID], &domain.Participant{RideID: rideID, UserID: u, JoinedAt: time.Now().UTC()})
	}
}

// ──────────────────────────────────────────────
// MOCK COMMENT REPOSITORY
// ──────────────────────────────────────────────

// MockCommentRepository is a mock implementation of CommentRepository.
type MockCommentRepository struct {
	mu       sync.RWMutex
	comments map[string]*domain.Comment
}

// NewMockCommentRepository creates a new mock comment repository.
func NewMockCommentRepository() *MockCommentRepository {
	return &MockCommentRepository{comments: make(map[string]*domain.Comment)}
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *comment
	m.comments[comment.ID] = &copy
	return nil
}

func (m *MockCommentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *c
	return &copy, nil
}

func (m *MockCommentRepository) ListByRide(ctx context.Context, rideID string) ([]*domain.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Comment
	for _, c := range m.comments {
		if c.RideID == rideID {
			copy := *c
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *MockCommentRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.comments, id)
	return nil
}

// ──────────────────────────────────────────────
// MOCK USER REPOSITORY
// ──────────────────────────────────────────────

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

// NewMockUserRepository creates a new mock user repository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*domain.User)}
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *u
	return &copy, nil
}

func (m *MockUserRepository) Upsert(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	copy := *user
	if existing, ok := m.users[user.ID]; ok {
		copy.CreatedAt = existing.CreatedAt
	} else {
		copy.CreatedAt = now
	}
	copy.UpdatedAt = now
	m.users[user.ID] = &copy
	return nil
}

// ──────────────────────────────────────────────
// MOCK REDIS STORES
// ──────────────────────────────────────────────

// MockRideCache is an in-memory RideCacheInterface.
type MockRideCache struct {
	mu    sync.Mutex
	rides map[string]*redis.CachedRide

	GetCallCount int32
	Invalidated  []string
	GetError     error
}

// NewMockRideCache creates an empty cache.
func NewMockRideCache() *MockRideCache {
	return &MockRideCache{rides: make(map[string]*redis.CachedRide)}
}

func (m *MockRideCache) GetRide(ctx context.Context, rideID string) (*redis.CachedRide, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[rideID]
	if !ok {
		return nil, nil
	}
	copy := *r
	return &copy, nil
}

func (m *MockRideCache) SetRide(ctx context.Context, ride *redis.CachedRide) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *ride
	m.rides[ride.ID] = &copy
	return nil
}

func (m *MockRideCache) InvalidateRides(ctx context.Context, rideIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range rideIDs {
		delete(m.rides, id)
		m.Invalidated = append(m.Invalidated, id)
	}
	return nil
}

// Has reports whether the ride is cached.
func (m *MockRideCache) Has(rideID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rides[rideID]
	return ok
}

// MockLocationStore is an in-memory RideLocationStoreInterface. Searches
// return every indexed ride with the configured distance.
type MockLocationStore struct {
	mu        sync.Mutex
	locations map[string][2]float64
	order     []string

	Distance  float64
	Removed   []string
	LastLimit int
}

// NewMockLocationStore creates an empty location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{locations: make(map[string][2]float64)}
}

func (m *MockLocationStore) IndexRide(ctx context.Context, rideID string, lat, lng float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.locations[rideID]; !ok {
		m.order = append(m.order, rideID)
	}
	m.locations[rideID] = [2]float64{lat, lng}
	return nil
}

func (m *MockLocationStore) FindNearbyRides(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]redis.RideLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastLimit = limit
	var result []redis.RideLocation
	for _, id := range m.order {
		loc, ok := m.locations[id]
		if !ok {
			continue
		}
		result = append(result, redis.RideLocation{RideID: id, Lat: loc[0], Lng: loc[1], DistanceKm: m.Distance})
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *MockLocationStore) RemoveRides(ctx context.Context, rideIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range rideIDs {
		delete(m.locations, id)
		m.Removed = append(m.Removed, id)
	}
	return nil
}

// Indexed reports whether the ride has a location entry.
func (m *MockLocationStore) Indexed(rideID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.locations[rideID]
	return ok
}

// MockLockStore is an in-memory LockStoreInterface.
type MockLockStore struct {
	mu     sync.Mutex
	held   map[string]string
	tokens int

	AcquireError error
	ReleaseCount int32
}

// NewMockLockStore creates a lock store with no locks held.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{held: make(map[string]string)}
}

func (m *MockLockStore) Acquire(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	if m.AcquireError != nil {
		return "", false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[name]; ok {
		return "", false, nil
	}
	m.tokens++
	token := fmt.Sprintf("token-%d", m.tokens)
	m.held[name] = token
	return token, true, nil
}

func (m *MockLockStore) Release(ctx context.Context, name, token string) error {
	atomic.AddInt32(&m.ReleaseCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[name] != token {
		return redis.ErrLockNotHeld
	}
	delete(m.held, name)
	return nil
}

// Hold marks the lock as taken by another replica.
func (m *MockLockStore) Hold(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[name] = "other-replica"
}

// HeldBy returns the token currently holding the lock, or "".
func (m *MockLockStore) HeldBy(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[name]
}

// Compile-time interface checks.
var (
	_ repository.RideRepository        = (*MockRideRepository)(nil)
	_ repository.ParticipantRepository = (*MockParticipantRepository)(nil)
	_ repository.CommentRepository     = (*MockCommentRepository)(nil)
	_ repository.UserRepository        = (*MockUserRepository)(nil)
	_ redis.RideCacheInterface         = (*MockRideCache)(nil)
	_ redis.RideLocationStoreInterface = (*MockLocationStore)(nil)
	_ redis.LockStoreInterface         = (*MockLockStore)(nil)
)
