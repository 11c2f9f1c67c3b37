package location

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	geoKey    = "drivers:geo"
	onlineKey = "drivers:online"
)

// RedisStore keeps driver positions in a Redis geospatial index and online
// membership in a set, shared across server instances.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed location store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) SetOnline(ctx context.Context, driverID uuid.UUID) error {
	if err := s.client.SAdd(ctx, onlineKey, driverID.String()).Err(); err != nil {
		return fmt.Errorf("failed to mark driver online: %w", err)
	}
	return nil
}

func (s *RedisStore) SetOffline(ctx context.Context, driverID uuid.UUID) error {
	pipe := s.client.TxPipeline()
	pipe.SRem(ctx, onlineKey, driverID.String())
	pipe.ZRem(ctx, geoKey, driverID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark driver offline: %w", err)
	}
	return nil
}

func (s *RedisStore) UpdateLocation(ctx context.Context, driverID uuid.UUID, lat, lng float64) error {
	err := s.client.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      driverID.String(),
		Latitude:  lat,
		Longitude: lng,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to update driver location: %w", err)
	}
	return nil
}

// NearbyDrivers queries the geo index with GEORADIUS and drops anyone who
// is no longer in the online set. Redis returns results sorted ascending by
// distance; equal distances fall back to driver id for determinism.
func (s *RedisStore) NearbyDrivers(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]Nearby, error) {
	query := &redis.GeoRadiusQuery{
		Radius:   radiusKM,
		Unit:     "km",
		WithDist: true,
		Sort:     "ASC",
	}
	if limit > 0 {
		query.Count = limit
	}

	results, err := s.client.GeoRadius(ctx, geoKey, lng, lat, query).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to search nearby drivers: %w", err)
	}

	nearby := make([]Nearby, 0, len(results))
	for _, res := range results {
		id, err := uuid.Parse(res.Name)
		if err != nil {
			continue
		}
		online, err := s.client.SIsMember(ctx, onlineKey, res.Name).Result()
		if err != nil || !online {
			continue
		}
		nearby = append(nearby, Nearby{DriverID: id, DistanceKM: res.Dist})
	}

	sortNearby(nearby)
	return nearby, nil
}
