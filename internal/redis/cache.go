package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// ServiceCacheTTL bounds staleness of cached service snapshots. Status
// changes often while a service is being worked, so the window is short.
const ServiceCacheTTL = 10 * time.Second

const serviceCachePrefix = "cache:servico:"

// CachedService is the snapshot of a service kept in Redis for fast reads.
type CachedService struct {
	ID           string  `json:"id"`
	ContractorID string  `json:"contractor_id"`
	ProviderID   string  `json:"provider_id,omitempty"`
	Status       string  `json:"status"`
	Version      int64   `json:"version"`
	Value        float64 `json:"value,omitempty"`
}

// CacheStore handles service snapshot caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// GetService retrieves a service snapshot from cache.
// Returns nil on cache miss.
func (s *CacheStore) GetService(ctx context.Context, serviceID string) (*CachedService, error) {
	data, err := s.client.Get(ctx, serviceCachePrefix+serviceID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var svc CachedService
	if err := json.Unmarshal(data, &svc); err != nil {
		return nil, err
	}
	return &svc, nil
}

// SetService stores a service snapshot in cache.
func (s *CacheStore) SetService(ctx context.Context, svc *CachedService) error {
	data, err := json.Marshal(svc)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, serviceCachePrefix+svc.ID, data, ServiceCacheTTL).Err()
}

// InvalidateService removes a service snapshot from cache.
func (s *CacheStore) InvalidateService(ctx context.Context, serviceID string) error {
	return s.client.Del(ctx, serviceCachePrefix+serviceID).Err()
}
