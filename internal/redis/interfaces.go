package redis

import (
	"context"
	"time"
)

// LocationStoreInterface defines the interface for provider location
// operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, providerID string, lat, lng float64) error
	FindNearbyProviders(ctx context.Context, lat, lng, radiusKm float64) ([]ProviderLocation, error)
	RemoveLocation(ctx context.Context, providerID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireProviderLock(ctx context.Context, providerID string, ttl time.Duration) (bool, error)
	ReleaseProviderLock(ctx context.Context, providerID string) error
}

// CacheStoreInterface defines the interface for service snapshot caching.
type CacheStoreInterface interface {
	GetService(ctx context.Context, serviceID string) (*CachedService, error)
	SetService(ctx context.Context, svc *CachedService) error
	InvalidateService(ctx context.Context, serviceID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ CacheStoreInterface    = (*CacheStore)(nil)
)
