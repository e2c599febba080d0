package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockPrefix = "lock:"

// ErrLockNotHeld is returned by Release when the lock expired or another
// owner has taken it since Acquire.
var ErrLockNotHeld = errors.New("lock not held")

// releaseScript deletes the key only while it still carries the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// Acquire attempts to take the named lock for ttl. On success it returns the
// token that must be passed to Release; ok is false if the lock is held.
func (s *LockStore) Acquire(ctx context.Context, name string, ttl time.Duration) (token string, ok bool, err error) {
	token = uuid.New().String()
	ok, err = s.client.SetNX(ctx, lockPrefix+name, token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}

	return token, true, nil
}

// Release drops the named lock if it is still held with token.
func (s *LockStore) Release(ctx context.Context, name, token string) error {
	n, err := releaseScript.Run(ctx, s.client, []string{lockPrefix + name}, token).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}
