package matching

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/domain/ride"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/domain/user"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/location"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/logger"
)

// Service finds eligible drivers for a pickup point
type Service struct {
	locations location.Store
	users     user.Repository
	logger    *logger.Logger
	config    Config
}

// Config holds matching configuration
type Config struct {
	RadiusKM      float64 // maximum search radius
	MaxCandidates int
}

// Candidate is one eligible driver, paired with its distance from pickup
type Candidate struct {
	Driver     *user.User
	DistanceKM float64
}

// NewService creates a new matching service
func NewService(locations location.Store, users user.Repository, log *logger.Logger, config Config) *Service {
	return &Service{
		locations: locations,
		users:     users,
		logger:    log,
		config:    config,
	}
}

// FindCandidates returns every online driver within the search radius whose
// gender satisfies the rider's preference, nearest first. An empty result is
// not an error; the caller decides how to proceed.
func (s *Service) FindCandidates(ctx context.Context, pickup ride.Location, pref user.GenderPreference) ([]Candidate, error) {
	start := time.Now()

	nearby, err := s.locations.NearbyDrivers(ctx, pickup.Latitude, pickup.Longitude, s.config.RadiusKM, s.config.MaxCandidates)
	if err != nil {
		return nil, err
	}
	if len(nearby) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(nearby))
	for i, n := range nearby {
		ids[i] = n.DriverID
	}

	drivers, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*user.User, len(drivers))
	for _, d := range drivers {
		byID[d.ID] = d
	}

	// Walk the nearby list so the distance ordering from the location store
	// is preserved through the eligibility filter.
	candidates := make([]Candidate, 0, len(nearby))
	for _, n := range nearby {
		d, ok := byID[n.DriverID]
		if !ok || d.Role != user.RoleDriver || !d.IsOnline {
			continue
		}
		if !pref.Matches(d.Gender) {
			continue
		}
		candidates = append(candidates, Candidate{Driver: d, DistanceKM: n.DistanceKM})
	}

	s.logger.Info("Driver search finished",
		logger.Int("nearby", len(nearby)),
		logger.Int("eligible", len(candidates)),
		logger.String("preference", string(pref)),
		logger.Float64("radius_km", s.config.RadiusKM),
		logger.Float64("latency_ms", float64(time.Since(start).Microseconds())/1000),
	)

	return candidates, nil
}
