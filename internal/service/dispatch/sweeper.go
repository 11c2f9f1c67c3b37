package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/domain/ride"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/logger"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/realtime"
)

const expiredReason = "expired"

// Sweeper cancels requested rides no driver has claimed within the expiry
// window, so riders do not wait forever on a dead request.
type Sweeper struct {
	service  *Service
	expiry   time.Duration
	interval time.Duration
	logger   *logger.Logger
}

// NewSweeper creates a sweeper; call Run to start it
func NewSweeper(service *Service, expiry, interval time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{
		service:  service,
		expiry:   expiry,
		interval: interval,
		logger:   log,
	}
}

// Run sweeps on the configured interval until ctx is cancelled. Call it in
// its own goroutine.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sw.sweep(ctx)
		}
	}
}

func (sw *Sweeper) sweep(ctx context.Context) {
	s := sw.service
	cutoff := s.now().Add(-sw.expiry)

	stale, err := s.rides.ListStaleRequested(ctx, cutoff)
	if err != nil {
		sw.logger.Error("Stale ride sweep failed", logger.Err(err))
		return
	}

	for _, r := range stale {
		cancelled, err := s.rides.Cancel(ctx, r.ID, expiredReason, s.now())
		if err != nil {
			// A driver accepted between the list and the cancel; the ride
			// is no longer stale, leave it alone.
			if errors.Is(err, ride.ErrRideConflict) || errors.Is(err, ride.ErrRideNotFound) {
				continue
			}
			sw.logger.Error("Failed to expire ride",
				logger.String("ride_id", r.ID.String()), logger.Err(err))
			continue
		}

		s.bus.Send(cancelled.RiderID, realtime.EventRideCancelled, cancelPayload(cancelled))
		sw.logger.Info("Expired unclaimed ride",
			logger.String("ride_id", r.ID.String()),
			logger.String("rider_id", r.RiderID.String()),
		)
	}
}
