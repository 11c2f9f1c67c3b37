package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/logger"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/realtime"
)

// HandleWebSocket handles GET /v1/ws. Identity comes from the user_id query
// parameter or from X-User-ID; a client that supplies neither must send an
// authenticate frame before anything else.
func (h *Handlers) HandleWebSocket(c *gin.Context) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  h.wsReadBufferSize,
		WriteBufferSize: h.wsWriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Error("WebSocket upgrade failed", logger.Err(err))
		return
	}

	client := realtime.NewClient(h.Bus, conn, h.Logger)

	raw := c.Query("user_id")
	if raw == "" {
		raw = c.GetHeader("X-User-ID")
	}
	if raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			h.Logger.Warn("Invalid user id on websocket upgrade", logger.String("user_id", raw))
			conn.Close()
			return
		}
		client.Authenticate(userID)
	}

	go client.WritePump()
	// Not the request context: that is cancelled as soon as this handler
	// returns, and the connection outlives it.
	go client.ReadPump(context.Background())
}
