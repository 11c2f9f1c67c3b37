package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/domain/ride"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/domain/user"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/location"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/repository/memory"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/service/matching"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/service/pricing"
	apperrors "github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/errors"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/logger"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/monitoring"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/realtime"
)

var testPickup = ride.Location{Address: "Times Square", Latitude: 40.7580, Longitude: -73.9855}
var testDestination = ride.Location{Address: "Brooklyn", Latitude: 40.6782, Longitude: -73.9442}

// recorderConn captures pushed events instead of writing to a socket
type recorderConn struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (c *recorderConn) Enqueue(ev realtime.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return true
}

func (c *recorderConn) Close() error { return nil }

func (c *recorderConn) names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, len(c.events))
	for i, ev := range c.events {
		names[i] = ev.Name
	}
	return names
}

type fixture struct {
	users     *memory.UserRepository
	rides     *memory.RideRepository
	locations *location.MemoryStore
	bus       *realtime.Bus
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	users := memory.NewUserRepository()
	rides := memory.NewRideRepository()
	locations := location.NewMemoryStore()
	bus := realtime.NewBus(logger.NewNop())

	matcher := matching.NewService(locations, users, logger.NewNop(), matching.Config{
		RadiusKM:      5.0,
		MaxCandidates: 10,
	})
	svc := NewService(rides, users, matcher, pricing.NewCalculator(pricing.DefaultDriverShareRate), bus, monitoring.Disabled(), logger.NewNop())

	return &fixture{users: users, rides: rides, locations: locations, bus: bus, svc: svc}
}

func (f *fixture) addRider(t *testing.T, pref user.GenderPreference) *user.User {
	t.Helper()
	r := &user.User{
		ID:               uuid.New(),
		Name:             "Rider",
		Role:             user.RoleRider,
		Gender:           user.GenderFemale,
		GenderPreference: pref,
	}
	require.NoError(t, f.users.Create(context.Background(), r))
	return r
}

func (f *fixture) addDriver(t *testing.T, gender user.Gender) *user.User {
	t.Helper()
	ctx := context.Background()
	d := &user.User{
		ID:     uuid.New(),
		Name:   "Driver",
		Role:   user.RoleDriver,
		Gender: gender,
	}
	require.NoError(t, f.users.Create(ctx, d))
	require.NoError(t, f.users.SetOnline(ctx, d.ID, true))
	require.NoError(t, f.locations.SetOnline(ctx, d.ID))
	require.NoError(t, f.locations.UpdateLocation(ctx, d.ID, testPickup.Latitude+0.001, testPickup.Longitude))
	return d
}

// connect registers a recorder connection for a user
func (f *fixture) connect(userID uuid.UUID) *recorderConn {
	conn := &recorderConn{}
	f.bus.Register(userID, conn)
	return conn
}

func (f *fixture) request(t *testing.T, riderID uuid.UUID, fare float64) *ride.Ride {
	t.Helper()
	result, err := f.svc.RequestRide(context.Background(), riderID, RequestInput{
		Pickup:      testPickup,
		Destination: testDestination,
		Fare:        fare,
	})
	require.NoError(t, err)
	return result.Ride
}

// TestRequestRide_NotifiesEligibleDrivers tests preference-filtered fan-out
func TestRequestRide_NotifiesEligibleDrivers(t *testing.T) {
	f := newFixture(t)
	rider := f.addRider(t, user.PreferFemale)
	femaleDriver := f.addDriver(t, user.GenderFemale)
	maleDriver := f.addDriver(t, user.GenderMale)

	femaleConn := f.connect(femaleDriver.ID)
	maleConn := f.connect(maleDriver.ID)

	result, err := f.svc.RequestRide(context.Background(), rider.ID, RequestInput{
		Pickup:      testPickup,
		Destination: testDestination,
		Fare:        12.50,
	})
	require.NoError(t, err)

	assert.Equal(t, ride.StatusRequested, result.Ride.Status)
	assert.Equal(t, 1, result.EligibleDrivers)
	assert.Equal(t, []string{realtime.EventNewRideRequest}, femaleConn.names())
	assert.Empty(t, maleConn.names())
}

// TestRequestRide_NoDriversStillCreatesRide tests the empty-pool case
func TestRequestRide_NoDriversStillCreatesRide(t *testing.T) {
	f := newFixture(t)
	rider := f.addRider(t, user.PreferAny)

	result, err := f.svc.RequestRide(context.Background(), rider.ID, RequestInput{
		Pickup:      testPickup,
		Destination: testDestination,
		Fare:        12.50,
	})
	require.NoError(t, err)

	assert.Equal(t, ride.StatusRequested, result.Ride.Status)
	assert.Zero(t, result.EligibleDrivers)
}

// TestRequestRide_RejectsSecondActiveRide tests the one-active-ride invariant
func TestRequestRide_RejectsSecondActiveRide(t *testing.T) {
	f := newFixture(t)
	rider := f.addRider(t, user.PreferAny)
	f.request(t, rider.ID, 12.50)

	_, err := f.svc.RequestRide(context.Background(), rider.ID, RequestInput{
		Pickup:      testPickup,
		Destination: testDestination,
		Fare:        8.00,
	})
	assert.ErrorIs(t, err, apperrors.ErrActiveRideExists)
}

// TestRequestRide_RejectsDrivers tests that only riders can request
func TestRequestRide_RejectsDrivers(t *testing.T) {
	f := newFixture(t)
	driver := f.addDriver(t, user.GenderMale)

	_, err := f.svc.RequestRide(context.Background(), driver.ID, RequestInput{
		Pickup:      testPickup,
		Destination: testDestination,
		Fare:        12.50,
	})

	assert.ErrorIs(t, err, user.ErrNotARider)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 403, appErr.Status)
}

// TestAcceptRide_RejectsRiders tests that only drivers can accept
func TestAcceptRide_RejectsRiders(t *testing.T) {
	f := newFixture(t)
	rider := f.addRider(t, user.PreferAny)
	other := f.addRider(t, user.PreferAny)
	r := f.request(t, rider.ID, 12.50)

	_, err := f.svc.AcceptRide(context.Background(), other.ID, r.ID)

	assert.ErrorIs(t, err, user.ErrNotADriver)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 403, appErr.Status)
}

// TestAcceptRide_SingleWinnerUnderContention tests that N concurrent accepts
// produce exactly one assignment
func TestAcceptRide_SingleWinnerUnderContention(t *testing.T) {
	f := newFixture(t)
	rider := f.addRider(t, user.PreferAny)
	r := f.request(t, rider.ID, 12.50)

	const drivers = 8
	ids := make([]uuid.UUID, drivers)
	for i := range ids {
		ids[i] = f.addDriver(t, user.GenderFemale).ID
	}

	var wg sync.WaitGroup
	errs := make([]error, drivers)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = f.svc.AcceptRide(context.Background(), id, r.ID)
		}(i, id)
	}
	wg.Wait()

	winners, losers := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case assert.ErrorIs(t, err, apperrors.ErrAlreadyAccepted):
			losers++
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, drivers-1, losers)

	got, err := f.rides.GetByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, ride.StatusAccepted, got.Status)
	require.NotNil(t, got.DriverID)
}

// TestAcceptRide_NotifiesBothSides tests the acceptance pushes
func TestAcceptRide_NotifiesBothSides(t *testing.T) {
	f := newFixture(t)
	rider := f.addRider(t, user.PreferAny)
	driver := f.addDriver(t, user.GenderFemale)
	r := f.request(t, rider.ID, 12.50)

	riderConn := f.connect(rider.ID)
	driverConn := f.connect(driver.ID)

	_, err := f.svc.AcceptRide(context.Background(), driver.ID, r.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{realtime.EventDriverAccepted}, riderConn.names())
	assert.Equal(t, []string{realtime.EventRideAcceptedByYou}, driverConn.names())
}

// TestAcceptRide_IdempotentForSameDriver tests a re-sent accept
func TestAcceptRide_IdempotentForSameDriver(t *testing.T) {
	f := newFixture(t)
	rider := f.addRider(t, user.PreferAny)
	driver := f.addDriver(t, user.GenderFemale)
	r := f.request(t, rider.ID, 12.50)

	_, err := f.svc.AcceptRide(context.Background(), driver.ID, r.ID)
	require.NoError(t, err)

	riderConn := f.connect(rider.ID)

	again, err := f.svc.AcceptRide(context.Background(), driver.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, again.ID)
	// No duplicate notification on the replay.
	assert.Empty(t, riderConn.names())
}

// TestAcceptRide_RejectsBusyDriver tests the driver-side active-ride invariant
func TestAcceptRide_RejectsBusyDriver(t *testing.T) {
	f := newFixture(t)
	riderA := f.addRider(t, user.PreferAny)
	riderB := f.addRider(t, user.PreferAny)
	driver := f.addDriver(t, user.GenderFemale)

	first := f.request(t, riderA.ID, 12.50)
	second := f.request(t, riderB.ID, 9.00)

	_, err := f.svc.AcceptRide(context.Background(), driver.ID, first.ID)
	require.NoError(t, err)

	_, err = f.svc.AcceptRide(context.Background(), driver.ID, second.ID)
	assert.ErrorIs(t, err, apperrors.ErrActiveRideExists)
}

// TestRideLifecycle_HappyPath tests request -> accept -> arrive -> start -> complete
func TestRideLifecycle_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rider := f.addRider(t, user.PreferAny)
	driver := f.addDriver(t, user.GenderFemale)
	r := f.request(t, rider.ID, 12.50)

	riderConn := f.connect(rider.ID)

	_, err := f.svc.AcceptRide(ctx, driver.ID, r.ID)
	require.NoError(t, err)

	_, err = f.svc.ArriveRide(ctx, driver.ID, r.ID)
	require.NoError(t, err)

	started, err := f.svc.StartRide(ctx, driver.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, ride.StatusStarted, started.Status)

	completed, err := f.svc.CompleteRide(ctx, driver.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, ride.StatusCompleted, completed.Status)
	require.NotNil(t, completed.DriverEarnings)
	assert.Equal(t, 10.00, *completed.DriverEarnings)
	assert.Equal(t, 12.50, completed.Fare)

	assert.Equal(t, []string{
		realtime.EventDriverAccepted,
		realtime.EventRideStatusUpdate, // arrived
		realtime.EventRideStatusUpdate, // started
		realtime.EventRideCompleted,
	}, riderConn.names())

	gotDriver, err := f.users.GetByID(ctx, driver.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, gotDriver.TotalRides)
}

// TestRideLifecycle_NoBackwardTransitions tests transition guards
func TestRideLifecycle_NoBackwardTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rider := f.addRider(t, user.PreferAny)
	driver := f.addDriver(t, user.GenderFemale)
	r := f.request(t, rider.ID, 12.50)

	// Start before accept.
	_, err := f.svc.StartRide(ctx, driver.ID, r.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)

	_, err = f.svc.AcceptRide(ctx, driver.ID, r.ID)
	require.NoError(t, err)

	// Complete before start.
	_, err = f.svc.CompleteRide(ctx, driver.ID, r.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = f.svc.StartRide(ctx, driver.ID, r.ID)
	require.NoError(t, err)

	// Arrive after start.
	_, err = f.svc.ArriveRide(ctx, driver.ID, r.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = f.svc.CompleteRide(ctx, driver.ID, r.ID)
	require.NoError(t, err)

	// Complete twice.
	_, err = f.svc.CompleteRide(ctx, driver.ID, r.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

// TestCompleteRide_OnlyAssignedDriver tests completion authorization
func TestCompleteRide_OnlyAssignedDriver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rider := f.addRider(t, user.PreferAny)
	driver := f.addDriver(t, user.GenderFemale)
	other := f.addDriver(t, user.GenderMale)
	r := f.request(t, rider.ID, 12.50)

	_, err := f.svc.AcceptRide(ctx, driver.ID, r.ID)
	require.NoError(t, err)
	_, err = f.svc.StartRide(ctx, driver.ID, r.ID)
	require.NoError(t, err)

	_, err = f.svc.CompleteRide(ctx, other.ID, r.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)
}

// TestCancelRide_NotifiesOtherParticipant tests cancellation from both sides
func TestCancelRide_NotifiesOtherParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rider := f.addRider(t, user.PreferAny)
	driver := f.addDriver(t, user.GenderFemale)
	r := f.request(t, rider.ID, 12.50)

	_, err := f.svc.AcceptRide(ctx, driver.ID, r.ID)
	require.NoError(t, err)

	driverConn := f.connect(driver.ID)

	cancelled, err := f.svc.CancelRide(ctx, rider.ID, r.ID, "change of plans")
	require.NoError(t, err)
	assert.Equal(t, ride.StatusCancelled, cancelled.Status)
	assert.Equal(t, "change of plans", cancelled.CancellationReason)
	assert.Equal(t, []string{realtime.EventRideCancelled}, driverConn.names())

	// Terminal rides cannot be cancelled again.
	_, err = f.svc.CancelRide(ctx, rider.ID, r.ID, "again")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

// TestCancelRide_RejectsNonParticipants tests cancellation authorization
func TestCancelRide_RejectsNonParticipants(t *testing.T) {
	f := newFixture(t)
	rider := f.addRider(t, user.PreferAny)
	stranger := f.addRider(t, user.PreferAny)
	r := f.request(t, rider.ID, 12.50)

	_, err := f.svc.CancelRide(context.Background(), stranger.ID, r.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)
}

// completeRide drives a ride through the full lifecycle
func (f *fixture) completeRide(t *testing.T, riderID, driverID uuid.UUID, fare float64) *ride.Ride {
	t.Helper()
	ctx := context.Background()
	r := f.request(t, riderID, fare)
	_, err := f.svc.AcceptRide(ctx, driverID, r.ID)
	require.NoError(t, err)
	_, err = f.svc.StartRide(ctx, driverID, r.ID)
	require.NoError(t, err)
	completed, err := f.svc.CompleteRide(ctx, driverID, r.ID)
	require.NoError(t, err)
	return completed
}

// TestRateRide_UpdatesDriverAverage tests rating aggregation over rides
func TestRateRide_UpdatesDriverAverage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rider := f.addRider(t, user.PreferAny)
	driver := f.addDriver(t, user.GenderFemale)

	first := f.completeRide(t, rider.ID, driver.ID, 12.50)
	_, err := f.svc.RateRide(ctx, rider.ID, first.ID, ride.Feedback{Rating: 5, Tags: []string{"safe driving"}})
	require.NoError(t, err)

	second := f.completeRide(t, rider.ID, driver.ID, 9.00)
	_, err = f.svc.RateRide(ctx, rider.ID, second.ID, ride.Feedback{Rating: 4})
	require.NoError(t, err)

	got, err := f.users.GetByID(ctx, driver.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, got.Rating, 0.001)
}

// TestRateRide_Validation tests the rating guards
func TestRateRide_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rider := f.addRider(t, user.PreferAny)
	driver := f.addDriver(t, user.GenderFemale)
	r := f.completeRide(t, rider.ID, driver.ID, 12.50)

	_, err := f.svc.RateRide(ctx, rider.ID, r.ID, ride.Feedback{Rating: 6})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRating)

	// The driver cannot rate.
	_, err = f.svc.RateRide(ctx, driver.ID, r.ID, ride.Feedback{Rating: 5})
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)

	_, err = f.svc.RateRide(ctx, rider.ID, r.ID, ride.Feedback{Rating: 5})
	require.NoError(t, err)

	// One rating per ride.
	_, err = f.svc.RateRide(ctx, rider.ID, r.ID, ride.Feedback{Rating: 3})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyRated)
}

// TestRateRide_RequiresCompletedRide tests that active and cancelled rides
// cannot be rated
func TestRateRide_RequiresCompletedRide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rider := f.addRider(t, user.PreferAny)
	r := f.request(t, rider.ID, 12.50)

	_, err := f.svc.RateRide(ctx, rider.ID, r.ID, ride.Feedback{Rating: 5})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

// TestActiveRide_ReconnectRecovery tests the resolver both sides use after
// a dropped connection
func TestActiveRide_ReconnectRecovery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rider := f.addRider(t, user.PreferAny)
	driver := f.addDriver(t, user.GenderFemale)

	// Nothing in flight yet.
	got, err := f.svc.ActiveRide(ctx, rider.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	r := f.request(t, rider.ID, 12.50)
	_, err = f.svc.AcceptRide(ctx, driver.ID, r.ID)
	require.NoError(t, err)

	riderActive, err := f.svc.ActiveRide(ctx, rider.ID)
	require.NoError(t, err)
	require.NotNil(t, riderActive)
	assert.Equal(t, r.ID, riderActive.ID)
	assert.Equal(t, ride.StatusAccepted, riderActive.Status)

	driverActive, err := f.svc.ActiveRide(ctx, driver.ID)
	require.NoError(t, err)
	require.NotNil(t, driverActive)
	assert.Equal(t, r.ID, driverActive.ID)

	// Terminal rides are not active.
	_, err = f.svc.StartRide(ctx, driver.ID, r.ID)
	require.NoError(t, err)
	_, err = f.svc.CompleteRide(ctx, driver.ID, r.ID)
	require.NoError(t, err)

	got, err = f.svc.ActiveRide(ctx, rider.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

// TestRideHistory_TerminalOnlyNewestFirst tests the history listing
func TestRideHistory_TerminalOnlyNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rider := f.addRider(t, user.PreferAny)
	driver := f.addDriver(t, user.GenderFemale)

	times := []time.Time{
		time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC),
	}

	f.svc.now = func() time.Time { return times[0] }
	first := f.completeRide(t, rider.ID, driver.ID, 12.50)

	f.svc.now = func() time.Time { return times[1] }
	second := f.completeRide(t, rider.ID, driver.ID, 9.00)

	f.svc.now = func() time.Time { return times[2] }
	active := f.request(t, rider.ID, 7.00)

	history, err := f.svc.RideHistory(ctx, rider.ID)
	require.NoError(t, err)

	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
	for _, h := range history {
		assert.NotEqual(t, active.ID, h.ID)
	}
}

// TestSweeper_ExpiresUnclaimedRequests tests request expiry
func TestSweeper_ExpiresUnclaimedRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rider := f.addRider(t, user.PreferAny)

	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return base }
	r := f.request(t, rider.ID, 12.50)

	riderConn := f.connect(rider.ID)

	// Six minutes later, past the five minute expiry.
	f.svc.now = func() time.Time { return base.Add(6 * time.Minute) }
	sw := NewSweeper(f.svc, 5*time.Minute, time.Minute, logger.NewNop())
	sw.sweep(ctx)

	got, err := f.rides.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, ride.StatusCancelled, got.Status)
	assert.Equal(t, expiredReason, got.CancellationReason)
	assert.Equal(t, []string{realtime.EventRideCancelled}, riderConn.names())
}

// TestSweeper_LeavesFreshRequestsAlone tests the expiry cutoff
func TestSweeper_LeavesFreshRequestsAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rider := f.addRider(t, user.PreferAny)

	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return base }
	r := f.request(t, rider.ID, 12.50)

	f.svc.now = func() time.Time { return base.Add(2 * time.Minute) }
	sw := NewSweeper(f.svc, 5*time.Minute, time.Minute, logger.NewNop())
	sw.sweep(ctx)

	got, err := f.rides.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, ride.StatusRequested, got.Status)
}
