package dispatch

import (
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/domain/ride"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/domain/user"
)

// Event payloads are plain maps so the wire shape stays decoupled from the
// domain structs.

func ridePayload(r *ride.Ride) map[string]interface{} {
	return map[string]interface{}{
		"ride": r,
	}
}

func statusPayload(r *ride.Ride, status string) map[string]interface{} {
	return map[string]interface{}{
		"ride_id": r.ID,
		"status":  status,
	}
}

func cancelPayload(r *ride.Ride) map[string]interface{} {
	return map[string]interface{}{
		"ride_id": r.ID,
		"status":  string(ride.StatusCancelled),
		"reason":  r.CancellationReason,
	}
}

func newRideRequestPayload(r *ride.Ride, rider *user.User, distanceKM float64) map[string]interface{} {
	return map[string]interface{}{
		"ride_id":     r.ID,
		"rider_name":  rider.Name,
		"pickup":      r.Pickup,
		"destination": r.Destination,
		"fare":        r.Fare,
		"distance_km": distanceKM,
	}
}

func rideWithDriverPayload(r *ride.Ride, driver *user.User) map[string]interface{} {
	return map[string]interface{}{
		"ride": r,
		"driver": map[string]interface{}{
			"id":      driver.ID,
			"name":    driver.Name,
			"rating":  driver.Rating,
			"vehicle": driver.Vehicle,
		},
	}
}
