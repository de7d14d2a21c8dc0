package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const providerLocationKey = "prestadores:locations"

// ProviderLocation represents a provider's last known position.
type ProviderLocation struct {
	ProviderID string
	Lat        float64
	Lng        float64
}

// LocationStore handles provider location operations in Redis.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateLocation stores a provider's location using GEOADD.
func (s *LocationStore) UpdateLocation(ctx context.Context, providerID string, lat, lng float64) error {
	return s.client.GeoAdd(ctx, providerLocationKey, &redis.GeoLocation{
		Name:      providerID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// FindNearbyProviders returns providers within the given radius (in
// kilometers), nearest first.
func (s *LocationStore) FindNearbyProviders(ctx context.Context, lat, lng, radiusKm float64) ([]ProviderLocation, error) {
	results, err := s.client.GeoRadius(ctx, providerLocationKey, lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	locations := make([]ProviderLocation, 0, len(results))
	for _, r := range results {
		locations = append(locations, ProviderLocation{
			ProviderID: r.Name,
			Lat:        r.Latitude,
			Lng:        r.Longitude,
		})
	}

	return locations, nil
}

// RemoveLocation removes a provider's location from the geo index.
func (s *LocationStore) RemoveLocation(ctx context.Context, providerID string) error {
	return s.client.ZRem(ctx, providerLocationKey, providerID).Err()
}
