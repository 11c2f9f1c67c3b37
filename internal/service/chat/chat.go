// Package chat handles in-ride messaging between a ride's two participants.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/domain/chat"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/domain/ride"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/domain/user"
	apperrors "github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/errors"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/logger"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/realtime"
)

// DefaultGraceWindow is how long after a ride ends its chat stays open, so
// participants can still coordinate a forgotten item or a missed pickup.
const DefaultGraceWindow = 30 * time.Minute

const maxMessageLen = 1000

// Service mediates ride chat: participant checks, the post-ride grace
// window, persistence, and the push to the other participant.
type Service struct {
	messages    chat.Repository
	rides       ride.Repository
	users       user.Repository
	bus         *realtime.Bus
	logger      *logger.Logger
	graceWindow time.Duration
	now         func() time.Time
}

// NewService creates a chat service
func NewService(messages chat.Repository, rides ride.Repository, users user.Repository, bus *realtime.Bus, log *logger.Logger, graceWindow time.Duration) *Service {
	if graceWindow <= 0 {
		graceWindow = DefaultGraceWindow
	}
	return &Service{
		messages:    messages,
		rides:       rides,
		users:       users,
		bus:         bus,
		logger:      log,
		graceWindow: graceWindow,
		now:         time.Now,
	}
}

// History returns the ride's messages, oldest first. Only participants may
// read it; history stays readable after the chat closes for writing.
func (s *Service) History(ctx context.Context, userID, rideID uuid.UUID) ([]*chat.Message, error) {
	if _, err := s.participantRide(ctx, userID, rideID); err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListByRide(ctx, rideID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load messages", err)
	}
	return msgs, nil
}

// Send persists a message and pushes it to the other participant. The
// sender's own copy comes back in the return value, not over the bus.
func (s *Service) Send(ctx context.Context, senderID, rideID uuid.UUID, text string) (*chat.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.BadRequest("Message text is required", chat.ErrEmptyMessage)
	}
	if len(text) > maxMessageLen {
		return nil, apperrors.BadRequest("Message text is too long", nil)
	}

	r, err := s.participantRide(ctx, senderID, rideID)
	if err != nil {
		return nil, err
	}
	if !s.writable(r) {
		return nil, apperrors.ErrChatClosed
	}

	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Internal("Failed to load sender", err)
	}

	msg := &chat.Message{
		ID:         uuid.New(),
		RideID:     rideID,
		SenderID:   senderID,
		SenderName: sender.Name,
		Text:       text,
		CreatedAt:  s.now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.Internal("Failed to save message", err)
	}

	if other := r.OtherParticipant(senderID); other != nil {
		s.bus.Send(*other, realtime.EventNewMessage, msg)
	}

	return msg, nil
}

func (s *Service) participantRide(ctx context.Context, userID, rideID uuid.UUID) (*ride.Ride, error) {
	r, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, ride.ErrRideNotFound) {
			return nil, apperrors.ErrRideNotFound
		}
		return nil, apperrors.Internal("Failed to load ride", err)
	}
	if !r.IsParticipant(userID) {
		return nil, apperrors.ErrNotParticipant
	}
	return r, nil
}

// writable reports whether the chat still accepts new messages: the ride is
// active, or ended within the grace window.
func (s *Service) writable(r *ride.Ride) bool {
	if !r.Status.IsTerminal() {
		return true
	}
	endedAt := r.TerminalAt()
	if endedAt.IsZero() {
		return false
	}
	return s.now().Sub(endedAt) <= s.graceWindow
}
