// Package presence tracks driver availability and last-known location,
// which together feed the matching pool.
package presence

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/domain/user"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/location"
	apperrors "github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/errors"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/logger"
)

// Service keeps the durable online flag and the geo index in step
type Service struct {
	users     user.Repository
	locations location.Store
	logger    *logger.Logger
}

// NewService creates a presence service
func NewService(users user.Repository, locations location.Store, log *logger.Logger) *Service {
	return &Service{
		users:     users,
		locations: locations,
		logger:    log,
	}
}

// SetStatus flips a driver's availability. Going offline removes the driver
// from the matching pool along with their stored position, so a driver who
// comes back online must report a fresh fix before matching again.
func (s *Service) SetStatus(ctx context.Context, driverID uuid.UUID, online bool) error {
	if err := s.requireDriver(ctx, driverID); err != nil {
		return err
	}

	if err := s.users.SetOnline(ctx, driverID, online); err != nil {
		return apperrors.Internal("Failed to update driver status", err)
	}

	var err error
	if online {
		err = s.locations.SetOnline(ctx, driverID)
	} else {
		err = s.locations.SetOffline(ctx, driverID)
	}
	if err != nil {
		return apperrors.Internal("Failed to update matching pool", err)
	}

	s.logger.Info("Driver status changed",
		logger.String("driver_id", driverID.String()),
		logger.Bool("online", online),
	)
	return nil
}

// UpdateLocation records a driver's position in the geo index
func (s *Service) UpdateLocation(ctx context.Context, driverID uuid.UUID, lat, lng float64) error {
	if err := s.requireDriver(ctx, driverID); err != nil {
		return err
	}

	if err := s.locations.UpdateLocation(ctx, driverID, lat, lng); err != nil {
		return apperrors.Internal("Failed to store location", err)
	}
	return nil
}

func (s *Service) requireDriver(ctx context.Context, id uuid.UUID) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.Internal("Failed to load user", err)
	}
	if u.Role != user.RoleDriver {
		return apperrors.Forbidden("Only drivers can report presence", user.ErrNotADriver)
	}
	return nil
}
