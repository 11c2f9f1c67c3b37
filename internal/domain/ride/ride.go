package ride

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status represents ride status
type Status string

const (
	StatusRequested Status = "requested"
	StatusAccepted  Status = "accepted"
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether the status is final. Terminal rides are
// immutable except for the one-time feedback write on completed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ActiveStatuses are the non-terminal states. At most one ride per rider
// and one per driver may be in any of these at a time.
var ActiveStatuses = []Status{StatusRequested, StatusAccepted, StatusStarted}

// Location is an address with coordinates
type Location struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Feedback is the rider's one-time rating of a completed ride
type Feedback struct {
	Rating  int      `json:"rating"`
	Tags    []string `json:"tags,omitempty"`
	Comment string   `json:"comment,omitempty"`
}

// Ride represents one transportation transaction between a rider and a driver
type Ride struct {
	ID                 uuid.UUID  `json:"id"`
	RiderID            uuid.UUID  `json:"rider_id"`
	DriverID           *uuid.UUID `json:"driver_id,omitempty"`
	Status             Status     `json:"status"`
	Pickup             Location   `json:"pickup"`
	Destination        Location   `json:"destination"`
	Fare               float64    `json:"fare"`
	DriverEarnings     *float64   `json:"driver_earnings,omitempty"` // set at completion
	Feedback           *Feedback  `json:"feedback,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	RequestedAt        time.Time  `json:"requested_at"`
	AcceptedAt         *time.Time `json:"accepted_at,omitempty"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Repository defines the interface for ride data access. The conditional
// mutations each apply their status precondition in the same operation that
// performs the write, so concurrent callers on the same ride resolve to
// exactly one winner regardless of how many server instances run.
type Repository interface {
	Create(ctx context.Context, r *Ride) error

	GetByID(ctx context.Context, id uuid.UUID) (*Ride, error)

	// Accept assigns driverID and moves requested -> accepted, only if the
	// ride is still requested with no driver set. Returns ErrRideConflict
	// when the precondition no longer holds.
	Accept(ctx context.Context, rideID, driverID uuid.UUID, at time.Time) (*Ride, error)

	// Start moves accepted -> started. Returns ErrRideConflict when the
	// ride is not accepted.
	Start(ctx context.Context, rideID uuid.UUID, at time.Time) (*Ride, error)

	// Complete moves started -> completed and records the driver's earnings.
	Complete(ctx context.Context, rideID uuid.UUID, earnings float64, at time.Time) (*Ride, error)

	// Cancel moves any active status -> cancelled.
	Cancel(ctx context.Context, rideID uuid.UUID, reason string, at time.Time) (*Ride, error)

	// AttachFeedback writes feedback to a completed, unrated ride.
	AttachFeedback(ctx context.Context, rideID uuid.UUID, fb Feedback) (*Ride, error)

	// GetActiveByRider returns the rider's non-terminal ride, or (nil, nil)
	// when there is none. Having no active ride is not an error.
	GetActiveByRider(ctx context.Context, riderID uuid.UUID) (*Ride, error)

	// GetActiveByDriver is GetActiveByRider for the driver side.
	GetActiveByDriver(ctx context.Context, driverID uuid.UUID) (*Ride, error)

	// ListByUser returns all rides where the user is rider or driver,
	// newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Ride, error)

	// ListStaleRequested returns requested rides older than the cutoff.
	ListStaleRequested(ctx context.Context, cutoff time.Time) ([]*Ride, error)

	// AverageDriverRating returns the mean rating over the driver's rated
	// rides and how many rides were rated.
	AverageDriverRating(ctx context.Context, driverID uuid.UUID) (float64, int, error)
}

// CanAccept checks if the ride can still be claimed by a driver
func (r *Ride) CanAccept() bool {
	return r.Status == StatusRequested && r.DriverID == nil
}

// CanStart checks if the ride can be started
func (r *Ride) CanStart() bool {
	return r.Status == StatusAccepted
}

// CanComplete checks if the ride can be completed
func (r *Ride) CanComplete() bool {
	return r.Status == StatusStarted
}

// CanCancel checks if the ride can still be cancelled
func (r *Ride) CanCancel() bool {
	return !r.Status.IsTerminal()
}

// CanRate checks if feedback may be attached
func (r *Ride) CanRate() bool {
	return r.Status == StatusCompleted && r.Feedback == nil
}

// IsParticipant reports whether the user is the rider or assigned driver.
func (r *Ride) IsParticipant(userID uuid.UUID) bool {
	if r.RiderID == userID {
		return true
	}
	return r.DriverID != nil && *r.DriverID == userID
}

// OtherParticipant returns the ride participant that is not userID, or nil
// when the ride has no driver yet or userID is not a participant.
func (r *Ride) OtherParticipant(userID uuid.UUID) *uuid.UUID {
	if r.RiderID == userID {
		return r.DriverID
	}
	if r.DriverID != nil && *r.DriverID == userID {
		rider := r.RiderID
		return &rider
	}
	return nil
}

// TerminalAt returns when the ride reached its terminal state, or zero time.
func (r *Ride) TerminalAt() time.Time {
	switch {
	case r.CompletedAt != nil:
		return *r.CompletedAt
	case r.CancelledAt != nil:
		return *r.CancelledAt
	}
	return time.Time{}
}
