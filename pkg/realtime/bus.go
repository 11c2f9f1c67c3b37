// Package realtime is the per-user push fabric: one live connection per
// authenticated user id, best-effort at-most-once delivery, FIFO ordering
// per user. Missed events are recovered through the active-ride and history
// endpoints, never replayed here.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/logger"
)

// Connection is a live transport handle owned by the bus. Enqueue reports
// false when the connection's send buffer is full; the event is dropped.
type Connection interface {
	Enqueue(ev Event) bool
	Close() error
}

// HandlerFunc processes one inbound client event for an authenticated user
type HandlerFunc func(ctx context.Context, userID uuid.UUID, data json.RawMessage)

// Bus maintains the user id -> connection registry and routes inbound
// client events to registered handlers. It is owned by the server lifecycle
// and injected into whoever needs to push.
type Bus struct {
	mu           sync.RWMutex
	conns        map[uuid.UUID]Connection
	handlers     map[string]HandlerFunc
	countChanged func(int)
	logger       *logger.Logger
}

// NewBus creates an empty realtime bus
func NewBus(log *logger.Logger) *Bus {
	return &Bus{
		conns:    make(map[uuid.UUID]Connection),
		handlers: make(map[string]HandlerFunc),
		logger:   log,
	}
}

// Handle registers the handler for an inbound event name. Wiring happens
// once at startup, before any connection is accepted.
func (b *Bus) Handle(event string, fn HandlerFunc) {
	b.handlers[event] = fn
}

// OnCountChange registers a callback invoked with the live connection count
// after every register and unregister. Like Handle, wiring happens once at
// startup, before any connection is accepted.
func (b *Bus) OnCountChange(fn func(int)) {
	b.countChanged = fn
}

// Register binds a connection to a user id. A second registration for the
// same id replaces the previous connection and closes it: single active
// device semantics.
func (b *Bus) Register(userID uuid.UUID, conn Connection) {
	b.mu.Lock()
	prev := b.conns[userID]
	b.conns[userID] = conn
	count := len(b.conns)
	b.mu.Unlock()

	if prev != nil && prev != conn {
		prev.Close()
		b.logger.Info("Replaced existing connection",
			logger.String("user_id", userID.String()))
	}

	if b.countChanged != nil {
		b.countChanged(count)
	}
	b.logger.Info("User connected", logger.String("user_id", userID.String()))
}

// Unregister removes the binding, but only if conn is still the current
// connection for the user. A replaced connection tearing itself down must
// not evict its successor.
func (b *Bus) Unregister(userID uuid.UUID, conn Connection) {
	b.mu.Lock()
	current, ok := b.conns[userID]
	removed := ok && current == conn
	if removed {
		delete(b.conns, userID)
	}
	count := len(b.conns)
	b.mu.Unlock()

	if removed {
		if b.countChanged != nil {
			b.countChanged(count)
		}
		b.logger.Info("User disconnected", logger.String("user_id", userID.String()))
	}
}

// Send pushes a named event to the user's connection. Delivery to a
// disconnected user is silently dropped; clients reconcile through the
// active-ride resolver and history queries.
func (b *Bus) Send(userID uuid.UUID, event string, payload interface{}) {
	b.mu.RLock()
	conn, ok := b.conns[userID]
	b.mu.RUnlock()

	if !ok {
		b.logger.Debug("Dropped event for disconnected user",
			logger.String("user_id", userID.String()),
			logger.String("event", event))
		return
	}

	if !conn.Enqueue(Event{Name: event, Payload: payload}) {
		b.logger.Warn("Send buffer full, event dropped",
			logger.String("user_id", userID.String()),
			logger.String("event", event))
	}
}

// IsConnected reports whether the user currently has a live connection
func (b *Bus) IsConnected(userID uuid.UUID) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.conns[userID]
	return ok
}

// ActiveConnections returns the number of live connections
func (b *Bus) ActiveConnections() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.conns)
}

// Dispatch routes one inbound client event to its handler
func (b *Bus) Dispatch(ctx context.Context, userID uuid.UUID, ev ClientEvent) {
	fn, ok := b.handlers[ev.Event]
	if !ok {
		b.logger.Warn("Unknown client event",
			logger.String("user_id", userID.String()),
			logger.String("event", ev.Event))
		return
	}
	fn(ctx, userID, ev.Data)
}
