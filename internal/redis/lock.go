package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireProviderLock attempts to acquire the acceptance lock for a
// provider. The lock closes the busy-check window: two accept calls from
// the same provider racing on different instances cannot both pass the
// active-service check. Returns true if the lock was acquired.
func (s *LockStore) AcquireProviderLock(ctx context.Context, providerID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:prestador:%s", providerID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseProviderLock releases the acceptance lock for a provider.
func (s *LockStore) ReleaseProviderLock(ctx context.Context, providerID string) error {
	key := fmt.Sprintf("lock:prestador:%s", providerID)

	return s.client.Del(ctx, key).Err()
}
