// Package dispatch orchestrates the ride lifecycle: request fan-out,
// race-free acceptance, status transitions, rating, and the active-ride
// recovery queries used on client reconnect.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/domain/ride"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/domain/user"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/service/matching"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/service/pricing"
	apperrors "github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/errors"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/logger"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/monitoring"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/realtime"
)

// Service coordinates ride dispatch. All cross-instance consistency comes
// from the repository's conditional updates; the service itself holds no
// ride state.
type Service struct {
	rides   ride.Repository
	users   user.Repository
	matcher *matching.Service
	pricing *pricing.Calculator
	bus     *realtime.Bus
	monitor *monitoring.App
	logger  *logger.Logger
	now     func() time.Time
}

// NewService creates a dispatch coordinator
func NewService(rides ride.Repository, users user.Repository, matcher *matching.Service, calc *pricing.Calculator, bus *realtime.Bus, monitor *monitoring.App, log *logger.Logger) *Service {
	return &Service{
		rides:   rides,
		users:   users,
		matcher: matcher,
		pricing: calc,
		bus:     bus,
		monitor: monitor,
		logger:  log,
		now:     time.Now,
	}
}

// RequestInput carries a rider's ride request
type RequestInput struct {
	Pickup      ride.Location
	Destination ride.Location
	Fare        float64
}

// RequestResult is returned to the rider immediately; driver responses
// arrive asynchronously over the realtime bus.
type RequestResult struct {
	Ride            *ride.Ride `json:"ride"`
	EligibleDrivers int        `json:"eligible_driver_count"`
}

// RequestRide creates a requested ride and fans the request out to eligible
// drivers. An empty candidate pool is not an error: the ride stays
// requested and is picked up when a driver comes online and pulls.
func (s *Service) RequestRide(ctx context.Context, riderID uuid.UUID, input RequestInput) (*RequestResult, error) {
	rider, err := s.users.GetByID(ctx, riderID)
	if err != nil {
		return nil, s.mapUserErr(err)
	}
	if rider.Role != user.RoleRider {
		return nil, apperrors.Forbidden("Only riders can request rides", user.ErrNotARider)
	}

	active, err := s.rides.GetActiveByRider(ctx, riderID)
	if err != nil {
		return nil, apperrors.Internal("Failed to check active ride", err)
	}
	if active != nil {
		return nil, apperrors.ErrActiveRideExists
	}

	now := s.now()
	r := &ride.Ride{
		ID:          uuid.New(),
		RiderID:     riderID,
		Status:      ride.StatusRequested,
		Pickup:      input.Pickup,
		Destination: input.Destination,
		Fare:        input.Fare,
		RequestedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.rides.Create(ctx, r); err != nil {
		// The pre-check above raced with another request from the same
		// rider; the repository's own guard is authoritative.
		if errors.Is(err, ride.ErrActiveRideExists) {
			return nil, apperrors.ErrActiveRideExists
		}
		return nil, apperrors.Internal("Failed to create ride", err)
	}

	searchStart := s.now()
	candidates, err := s.matcher.FindCandidates(ctx, input.Pickup, rider.GenderPreference)
	if err != nil {
		// Driver search failing must not lose the request; the ride stays
		// requested and the pull model covers it.
		s.logger.Warn("Driver search failed, ride left requested",
			logger.String("ride_id", r.ID.String()), logger.Err(err))
		candidates = nil
	}
	s.monitor.RecordMatchingLatency(s.now().Sub(searchStart))

	for _, c := range candidates {
		s.bus.Send(c.Driver.ID, realtime.EventNewRideRequest, newRideRequestPayload(r, rider, c.DistanceKM))
	}

	s.logger.Info("Ride requested",
		logger.String("ride_id", r.ID.String()),
		logger.String("rider_id", riderID.String()),
		logger.Int("eligible_drivers", len(candidates)),
	)
	s.monitor.RecordRideRequested(len(candidates))

	return &RequestResult{Ride: r, EligibleDrivers: len(candidates)}, nil
}

// AcceptRide lets a driver claim a requested ride. Exactly one of N
// concurrent claims wins; the rest get AlreadyAccepted and no side effect.
func (s *Service) AcceptRide(ctx context.Context, driverID, rideID uuid.UUID) (*ride.Ride, error) {
	driver, err := s.users.GetByID(ctx, driverID)
	if err != nil {
		return nil, s.mapUserErr(err)
	}
	if driver.Role != user.RoleDriver {
		return nil, apperrors.Forbidden("Only drivers can accept rides", user.ErrNotADriver)
	}

	active, err := s.rides.GetActiveByDriver(ctx, driverID)
	if err != nil {
		return nil, apperrors.Internal("Failed to check active ride", err)
	}
	if active != nil {
		if active.ID == rideID {
			// Re-sent accept from another device; nothing to do.
			return active, nil
		}
		return nil, apperrors.ErrActiveRideExists
	}

	updated, err := s.rides.Accept(ctx, rideID, driverID, s.now())
	if err != nil {
		switch {
		case errors.Is(err, ride.ErrRideNotFound):
			return nil, apperrors.ErrRideNotFound
		case errors.Is(err, ride.ErrActiveRideExists):
			return nil, apperrors.ErrActiveRideExists
		case errors.Is(err, ride.ErrRideConflict):
			s.monitor.RecordAcceptConflict(rideID.String())
			return nil, apperrors.ErrAlreadyAccepted
		}
		return nil, apperrors.Internal("Failed to accept ride", err)
	}

	s.bus.Send(updated.RiderID, realtime.EventDriverAccepted, rideWithDriverPayload(updated, driver))
	// The driver's own devices get a distinct event so a second device
	// stops showing the request as pending.
	s.bus.Send(driverID, realtime.EventRideAcceptedByYou, ridePayload(updated))

	s.logger.Info("Ride accepted",
		logger.String("ride_id", rideID.String()),
		logger.String("driver_id", driverID.String()),
	)
	s.monitor.RecordRideAccepted(rideID.String())

	return updated, nil
}

// ArriveRide signals the rider that the driver is at the pickup point.
// Arrival is a status push, not a persisted state: the ride must be
// accepted and stays accepted.
func (s *Service) ArriveRide(ctx context.Context, driverID, rideID uuid.UUID) (*ride.Ride, error) {
	r, err := s.getDriverRide(ctx, driverID, rideID)
	if err != nil {
		return nil, err
	}
	if r.Status != ride.StatusAccepted {
		return nil, apperrors.ErrInvalidTransition
	}

	s.bus.Send(r.RiderID, realtime.EventRideStatusUpdate, statusPayload(r, "arrived"))
	return r, nil
}

// StartRide moves an accepted ride to started
func (s *Service) StartRide(ctx context.Context, driverID, rideID uuid.UUID) (*ride.Ride, error) {
	if _, err := s.getDriverRide(ctx, driverID, rideID); err != nil {
		return nil, err
	}

	updated, err := s.rides.Start(ctx, rideID, s.now())
	if err != nil {
		return nil, s.mapTransitionErr(err)
	}

	s.bus.Send(updated.RiderID, realtime.EventRideStatusUpdate, statusPayload(updated, "started"))

	s.logger.Info("Ride started", logger.String("ride_id", rideID.String()))
	return updated, nil
}

// CompleteRide moves a started ride to completed and settles the fare
// split: the driver earns a fixed share, the rider-visible fare is
// untouched. Calling it twice succeeds once; the second call gets
// InvalidTransition and changes nothing.
func (s *Service) CompleteRide(ctx context.Context, driverID, rideID uuid.UUID) (*ride.Ride, error) {
	r, err := s.getDriverRide(ctx, driverID, rideID)
	if err != nil {
		return nil, err
	}

	earnings := s.pricing.DriverEarnings(r.Fare)
	updated, err := s.rides.Complete(ctx, rideID, earnings, s.now())
	if err != nil {
		return nil, s.mapTransitionErr(err)
	}

	if err := s.users.IncrementRides(ctx, driverID); err != nil {
		s.logger.Warn("Failed to bump driver ride count",
			logger.String("driver_id", driverID.String()), logger.Err(err))
	}

	s.bus.Send(updated.RiderID, realtime.EventRideCompleted, ridePayload(updated))

	s.logger.Info("Ride completed",
		logger.String("ride_id", rideID.String()),
		logger.Float64("fare", updated.Fare),
		logger.Float64("driver_earnings", earnings),
	)
	s.monitor.RecordRideCompleted(rideID.String(), updated.Fare, earnings)

	return updated, nil
}

// CancelRide cancels an active ride on behalf of either participant and
// notifies the other one.
func (s *Service) CancelRide(ctx context.Context, userID, rideID uuid.UUID, reason string) (*ride.Ride, error) {
	r, err := s.getRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !r.IsParticipant(userID) {
		return nil, apperrors.ErrNotParticipant
	}

	updated, err := s.rides.Cancel(ctx, rideID, reason, s.now())
	if err != nil {
		return nil, s.mapTransitionErr(err)
	}

	if other := updated.OtherParticipant(userID); other != nil {
		s.bus.Send(*other, realtime.EventRideCancelled, cancelPayload(updated))
	}

	s.logger.Info("Ride cancelled",
		logger.String("ride_id", rideID.String()),
		logger.String("by", userID.String()),
		logger.String("reason", reason),
	)
	return updated, nil
}

// RateRide attaches the rider's one-time feedback to a completed ride and
// refreshes the driver's running rating as the mean of all rated rides.
func (s *Service) RateRide(ctx context.Context, riderID, rideID uuid.UUID, fb ride.Feedback) (*ride.Ride, error) {
	if fb.Rating < 1 || fb.Rating > 5 {
		return nil, apperrors.ErrInvalidRating
	}

	r, err := s.getRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if r.RiderID != riderID {
		return nil, apperrors.ErrNotParticipant
	}

	updated, err := s.rides.AttachFeedback(ctx, rideID, fb)
	if err != nil {
		if errors.Is(err, ride.ErrAlreadyRated) {
			return nil, apperrors.ErrAlreadyRated
		}
		return nil, s.mapTransitionErr(err)
	}

	if updated.DriverID != nil {
		avg, _, err := s.rides.AverageDriverRating(ctx, *updated.DriverID)
		if err != nil {
			s.logger.Warn("Failed to recompute driver rating",
				logger.String("driver_id", updated.DriverID.String()), logger.Err(err))
		} else if err := s.users.UpdateRating(ctx, *updated.DriverID, avg); err != nil {
			s.logger.Warn("Failed to store driver rating",
				logger.String("driver_id", updated.DriverID.String()), logger.Err(err))
		}
	}

	return updated, nil
}

// ActiveRide returns the caller's single non-terminal ride, or nil when
// there is none. Clients call this on reconnect instead of replaying the
// push stream.
func (s *Service) ActiveRide(ctx context.Context, userID uuid.UUID) (*ride.Ride, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, s.mapUserErr(err)
	}

	var r *ride.Ride
	if u.Role == user.RoleDriver {
		r, err = s.rides.GetActiveByDriver(ctx, userID)
	} else {
		r, err = s.rides.GetActiveByRider(ctx, userID)
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to resolve active ride", err)
	}
	return r, nil
}

// RideHistory returns the caller's finished rides, newest first
func (s *Service) RideHistory(ctx context.Context, userID uuid.UUID) ([]*ride.Ride, error) {
	all, err := s.rides.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to list rides", err)
	}

	history := make([]*ride.Ride, 0, len(all))
	for _, r := range all {
		if r.Status.IsTerminal() {
			history = append(history, r)
		}
	}
	return history, nil
}

// GetRide returns a ride to one of its participants
func (s *Service) GetRide(ctx context.Context, userID, rideID uuid.UUID) (*ride.Ride, error) {
	r, err := s.getRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !r.IsParticipant(userID) {
		return nil, apperrors.ErrNotParticipant
	}
	return r, nil
}

func (s *Service) getRide(ctx context.Context, rideID uuid.UUID) (*ride.Ride, error) {
	r, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, ride.ErrRideNotFound) {
			return nil, apperrors.ErrRideNotFound
		}
		return nil, apperrors.Internal("Failed to load ride", err)
	}
	return r, nil
}

// getDriverRide loads the ride and checks the caller is its assigned driver
func (s *Service) getDriverRide(ctx context.Context, driverID, rideID uuid.UUID) (*ride.Ride, error) {
	r, err := s.getRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if r.DriverID == nil || *r.DriverID != driverID {
		return nil, apperrors.ErrNotParticipant
	}
	return r, nil
}

func (s *Service) mapUserErr(err error) error {
	if errors.Is(err, user.ErrUserNotFound) {
		return apperrors.ErrUserNotFound
	}
	return apperrors.Internal("Failed to load user", err)
}

func (s *Service) mapTransitionErr(err error) error {
	switch {
	case errors.Is(err, ride.ErrRideNotFound):
		return apperrors.ErrRideNotFound
	case errors.Is(err, ride.ErrRideConflict):
		return apperrors.ErrInvalidTransition
	}
	return apperrors.Internal("Ride transition failed", err)
}
