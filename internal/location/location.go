// Package location tracks each driver's last-reported position and online
// flag, and answers bounded radius queries for the matcher.
package location

import (
	"context"
	"math"

	"github.com/google/uuid"
)

// Nearby pairs a driver id with its distance from a search point.
type Nearby struct {
	DriverID   uuid.UUID
	DistanceKM float64
}

// Store holds driver presence and position. Position and online flag are
// mutated only by the owning driver's client.
type Store interface {
	// SetOnline marks a driver available for dispatch.
	SetOnline(ctx context.Context, driverID uuid.UUID) error

	// SetOffline removes the driver from dispatch and drops its position.
	SetOffline(ctx context.Context, driverID uuid.UUID) error

	// UpdateLocation records the driver's last known position.
	UpdateLocation(ctx context.Context, driverID uuid.UUID, lat, lng float64) error

	// NearbyDrivers returns online drivers within radiusKM of the point,
	// nearest first, ties broken by driver id. Capped at limit when > 0.
	NearbyDrivers(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]Nearby, error)
}

// DistanceKM computes haversine distance between two points
func DistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371 // kilometers

	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
