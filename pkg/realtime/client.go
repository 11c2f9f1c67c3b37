package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

// Client adapts one gorilla websocket connection to the bus. All writes go
// through the send channel and a single WritePump goroutine, which is what
// preserves per-user event order.
type Client struct {
	bus    *Bus
	conn   *websocket.Conn
	logger *logger.Logger

	send chan []byte

	mu     sync.Mutex
	userID uuid.UUID
	authed bool
	closed bool
}

// NewClient wraps an upgraded websocket connection
func NewClient(bus *Bus, conn *websocket.Conn, log *logger.Logger) *Client {
	return &Client{
		bus:    bus,
		conn:   conn,
		logger: log,
		send:   make(chan []byte, sendBufferSize),
	}
}

// Authenticate binds the connection to a user id and registers it on the
// bus. Called with the upgrade-time identity, or on a later authenticate
// frame for clients that connect anonymously.
func (c *Client) Authenticate(userID uuid.UUID) {
	c.mu.Lock()
	c.userID = userID
	c.authed = true
	c.mu.Unlock()

	c.bus.Register(userID, c)
}

func (c *Client) identity() (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID, c.authed
}

// Enqueue implements Connection. Marshalling happens here so a slow client
// cannot block the caller.
func (c *Client) Enqueue(ev Event) bool {
	data, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error("Failed to marshal event", logger.Err(err),
			logger.String("event", ev.Name))
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close implements Connection. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.send)
	return c.conn.Close()
}

type authenticatePayload struct {
	UserID string `json:"user_id"`
}

// ReadPump pumps inbound frames from the connection into the bus dispatcher
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		if userID, ok := c.identity(); ok {
			c.bus.Unregister(userID, c)
		}
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error", logger.Err(err))
			}
			return
		}

		var ev ClientEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			c.logger.Warn("Malformed client frame", logger.Err(err))
			continue
		}

		c.handleEvent(ctx, ev)
	}
}

func (c *Client) handleEvent(ctx context.Context, ev ClientEvent) {
	switch ev.Event {
	case EventPing:
		c.Enqueue(Event{Name: EventPong})
		return

	case EventAuthenticate:
		var payload authenticatePayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			c.logger.Warn("Malformed authenticate payload", logger.Err(err))
			return
		}
		userID, err := uuid.Parse(payload.UserID)
		if err != nil {
			c.logger.Warn("Invalid user id in authenticate", logger.Err(err))
			return
		}
		c.Authenticate(userID)
		return
	}

	userID, ok := c.identity()
	if !ok {
		c.logger.Warn("Event before authentication",
			logger.String("event", ev.Event))
		return
	}

	c.bus.Dispatch(ctx, userID, ev)
}

// WritePump is the single writer for the connection: it drains the send
// channel in order and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
