package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/api/dto"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/api/middleware"
)

// GetMessages handles GET /v1/rides/:id/messages
func (h *Handlers) GetMessages(c *gin.Context) {
	rideID, ok := h.rideID(c)
	if !ok {
		return
	}

	msgs, err := h.Chat.History(c.Request.Context(), middleware.UserID(c), rideID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage handles POST /v1/rides/:id/messages
func (h *Handlers) SendMessage(c *gin.Context) {
	rideID, ok := h.rideID(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	msg, err := h.Chat.Send(c.Request.Context(), middleware.UserID(c), rideID, req.Text)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}
