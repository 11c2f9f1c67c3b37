package location

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDistanceKM_KnownPairs tests the haversine against known distances
func TestDistanceKM_KnownPairs(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		expectedKM             float64
		tolerance              float64
	}{
		{
			name: "Same point",
			lat1: 40.7580, lng1: -73.9855, lat2: 40.7580, lng2: -73.9855,
			expectedKM: 0, tolerance: 0.001,
		},
		{
			name: "Times Square to Central Park",
			lat1: 40.7580, lng1: -73.9855, lat2: 40.7829, lng2: -73.9654,
			expectedKM: 3.2, tolerance: 0.3,
		},
		{
			name: "New York to London",
			lat1: 40.7128, lng1: -74.0060, lat2: 51.5074, lng2: -0.1278,
			expectedKM: 5570, tolerance: 30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKM(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			assert.InDelta(t, tt.expectedKM, got, tt.tolerance)
		})
	}
}

// TestNearbyDrivers_RadiusAndOrder tests filtering and nearest-first ordering
func TestNearbyDrivers_RadiusAndOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	lat, lng := 40.7580, -73.9855

	near := uuid.New()
	far := uuid.New()
	outside := uuid.New()
	for _, id := range []uuid.UUID{near, far, outside} {
		require.NoError(t, store.SetOnline(ctx, id))
	}
	require.NoError(t, store.UpdateLocation(ctx, near, lat+0.001, lng))
	require.NoError(t, store.UpdateLocation(ctx, far, lat+0.02, lng))
	require.NoError(t, store.UpdateLocation(ctx, outside, lat+0.5, lng))

	nearby, err := store.NearbyDrivers(ctx, lat, lng, 5.0, 10)
	require.NoError(t, err)

	require.Len(t, nearby, 2)
	assert.Equal(t, near, nearby[0].DriverID)
	assert.Equal(t, far, nearby[1].DriverID)
}

// TestNearbyDrivers_EqualDistanceTieBreak tests that drivers at the same
// distance come back in driver-id order, so repeated searches over the same
// pool produce the same candidate list
func TestNearbyDrivers_EqualDistanceTieBreak(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	lat, lng := 40.7580, -73.9855

	a := uuid.New()
	b := uuid.New()
	for _, id := range []uuid.UUID{a, b} {
		require.NoError(t, store.SetOnline(ctx, id))
		require.NoError(t, store.UpdateLocation(ctx, id, lat+0.002, lng))
	}

	first, second := a, b
	if b.String() < a.String() {
		first, second = b, a
	}

	for i := 0; i < 5; i++ {
		nearby, err := store.NearbyDrivers(ctx, lat, lng, 5.0, 10)
		require.NoError(t, err)
		require.Len(t, nearby, 2)
		assert.Equal(t, nearby[0].DistanceKM, nearby[1].DistanceKM)
		assert.Equal(t, first, nearby[0].DriverID)
		assert.Equal(t, second, nearby[1].DriverID)
	}
}

// TestNearbyDrivers_SkipsDriversWithoutAFix tests that online drivers with
// no reported location never match
func TestNearbyDrivers_SkipsDriversWithoutAFix(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	noFix := uuid.New()
	require.NoError(t, store.SetOnline(ctx, noFix))

	nearby, err := store.NearbyDrivers(ctx, 40.7580, -73.9855, 5.0, 10)
	require.NoError(t, err)
	assert.Empty(t, nearby)
}

// TestNearbyDrivers_OfflineRemoval tests that going offline removes a driver
func TestNearbyDrivers_OfflineRemoval(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	lat, lng := 40.7580, -73.9855

	id := uuid.New()
	require.NoError(t, store.SetOnline(ctx, id))
	require.NoError(t, store.UpdateLocation(ctx, id, lat, lng))
	require.NoError(t, store.SetOffline(ctx, id))

	nearby, err := store.NearbyDrivers(ctx, lat, lng, 5.0, 10)
	require.NoError(t, err)
	assert.Empty(t, nearby)
}

// TestNearbyDrivers_LimitApplied tests the candidate cap
func TestNearbyDrivers_LimitApplied(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	lat, lng := 40.7580, -73.9855

	for i := 0; i < 5; i++ {
		id := uuid.New()
		require.NoError(t, store.SetOnline(ctx, id))
		require.NoError(t, store.UpdateLocation(ctx, id, lat+float64(i)*0.001, lng))
	}

	nearby, err := store.NearbyDrivers(ctx, lat, lng, 5.0, 3)
	require.NoError(t, err)
	assert.Len(t, nearby, 3)
}
