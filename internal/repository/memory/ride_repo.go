package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/domain/ride"
)

// RideRepository stores rides in memory. Every conditional mutation checks
// its precondition and applies the write under one lock acquisition, which
// gives the same compare-and-set semantics the SQL repository gets from
// conditional UPDATEs.
type RideRepository struct {
	mu    sync.RWMutex
	rides map[uuid.UUID]*ride.Ride
}

// NewRideRepository creates an empty in-memory ride repository
func NewRideRepository() *RideRepository {
	return &RideRepository{rides: make(map[uuid.UUID]*ride.Ride)}
}

func cloneRide(r *ride.Ride) *ride.Ride {
	cp := *r
	if r.DriverID != nil {
		id := *r.DriverID
		cp.DriverID = &id
	}
	if r.DriverEarnings != nil {
		e := *r.DriverEarnings
		cp.DriverEarnings = &e
	}
	if r.Feedback != nil {
		fb := *r.Feedback
		fb.Tags = append([]string(nil), r.Feedback.Tags...)
		cp.Feedback = &fb
	}
	return &cp
}

// Create inserts the ride, refusing when the rider already has an active
// one. The check and insert share one lock acquisition, matching the
// partial unique index the SQL schema uses for the same invariant.
func (repo *RideRepository) Create(ctx context.Context, r *ride.Ride) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if !r.Status.IsTerminal() {
		for _, existing := range repo.rides {
			if existing.RiderID == r.RiderID && !existing.Status.IsTerminal() {
				return ride.ErrActiveRideExists
			}
		}
	}
	repo.rides[r.ID] = cloneRide(r)
	return nil
}

func (repo *RideRepository) GetByID(ctx context.Context, id uuid.UUID) (*ride.Ride, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	r, ok := repo.rides[id]
	if !ok {
		return nil, ride.ErrRideNotFound
	}
	return cloneRide(r), nil
}

func (repo *RideRepository) Accept(ctx context.Context, rideID, driverID uuid.UUID, at time.Time) (*ride.Ride, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	r, ok := repo.rides[rideID]
	if !ok {
		return nil, ride.ErrRideNotFound
	}
	if !r.CanAccept() {
		return nil, ride.ErrRideConflict
	}
	for _, existing := range repo.rides {
		if existing.DriverID != nil && *existing.DriverID == driverID && !existing.Status.IsTerminal() {
			return nil, ride.ErrActiveRideExists
		}
	}

	id := driverID
	r.DriverID = &id
	r.Status = ride.StatusAccepted
	r.AcceptedAt = &at
	r.UpdatedAt = at
	return cloneRide(r), nil
}

func (repo *RideRepository) Start(ctx context.Context, rideID uuid.UUID, at time.Time) (*ride.Ride, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	r, ok := repo.rides[rideID]
	if !ok {
		return nil, ride.ErrRideNotFound
	}
	if !r.CanStart() {
		return nil, ride.ErrRideConflict
	}

	r.Status = ride.StatusStarted
	r.StartedAt = &at
	r.UpdatedAt = at
	return cloneRide(r), nil
}

func (repo *RideRepository) Complete(ctx context.Context, rideID uuid.UUID, earnings float64, at time.Time) (*ride.Ride, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	r, ok := repo.rides[rideID]
	if !ok {
		return nil, ride.ErrRideNotFound
	}
	if !r.CanComplete() {
		return nil, ride.ErrRideConflict
	}

	r.Status = ride.StatusCompleted
	r.DriverEarnings = &earnings
	r.CompletedAt = &at
	r.UpdatedAt = at
	return cloneRide(r), nil
}

func (repo *RideRepository) Cancel(ctx context.Context, rideID uuid.UUID, reason string, at time.Time) (*ride.Ride, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	r, ok := repo.rides[rideID]
	if !ok {
		return nil, ride.ErrRideNotFound
	}
	if !r.CanCancel() {
		return nil, ride.ErrRideConflict
	}

	r.Status = ride.StatusCancelled
	r.CancellationReason = reason
	r.CancelledAt = &at
	r.UpdatedAt = at
	return cloneRide(r), nil
}

func (repo *RideRepository) AttachFeedback(ctx context.Context, rideID uuid.UUID, fb ride.Feedback) (*ride.Ride, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	r, ok := repo.rides[rideID]
	if !ok {
		return nil, ride.ErrRideNotFound
	}
	if r.Status != ride.StatusCompleted {
		return nil, ride.ErrRideConflict
	}
	if !r.CanRate() {
		return nil, ride.ErrAlreadyRated
	}

	r.Feedback = &fb
	r.UpdatedAt = time.Now()
	return cloneRide(r), nil
}

func (repo *RideRepository) GetActiveByRider(ctx context.Context, riderID uuid.UUID) (*ride.Ride, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	for _, r := range repo.rides {
		if r.RiderID == riderID && !r.Status.IsTerminal() {
			return cloneRide(r), nil
		}
	}
	return nil, nil
}

func (repo *RideRepository) GetActiveByDriver(ctx context.Context, driverID uuid.UUID) (*ride.Ride, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	for _, r := range repo.rides {
		if r.DriverID != nil && *r.DriverID == driverID && !r.Status.IsTerminal() {
			return cloneRide(r), nil
		}
	}
	return nil, nil
}

func (repo *RideRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*ride.Ride, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	var rides []*ride.Ride
	for _, r := range repo.rides {
		if r.RiderID == userID || (r.DriverID != nil && *r.DriverID == userID) {
			rides = append(rides, cloneRide(r))
		}
	}
	sort.Slice(rides, func(i, j int) bool {
		return rides[i].RequestedAt.After(rides[j].RequestedAt)
	})
	return rides, nil
}

func (repo *RideRepository) ListStaleRequested(ctx context.Context, cutoff time.Time) ([]*ride.Ride, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	var stale []*ride.Ride
	for _, r := range repo.rides {
		if r.Status == ride.StatusRequested && r.RequestedAt.Before(cutoff) {
			stale = append(stale, cloneRide(r))
		}
	}
	return stale, nil
}

func (repo *RideRepository) AverageDriverRating(ctx context.Context, driverID uuid.UUID) (float64, int, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	var sum, count int
	for _, r := range repo.rides {
		if r.DriverID != nil && *r.DriverID == driverID && r.Feedback != nil {
			sum += r.Feedback.Rating
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(count), count, nil
}
