package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Message is one chat line inside a ride, scoped to the two participants.
// Messages are immutable and ordered by creation time within a ride.
type Message struct {
	ID         uuid.UUID `json:"id"`
	RideID     uuid.UUID `json:"ride_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository defines the interface for message data access
type Repository interface {
	Create(ctx context.Context, m *Message) error

	// ListByRide returns the ride's messages in creation order.
	ListByRide(ctx context.Context, rideID uuid.UUID) ([]*Message, error)
}

var ErrEmptyMessage = errors.New("message text is empty")
