package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/api/dto"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/api/middleware"
)

// SetDriverStatus handles POST /v1/drivers/status
func (h *Handlers) SetDriverStatus(c *gin.Context) {
	var req dto.DriverStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	if err := h.Presence.SetStatus(c.Request.Context(), middleware.UserID(c), req.Online); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"online": req.Online})
}

// UpdateDriverLocation handles POST /v1/drivers/location
func (h *Handlers) UpdateDriverLocation(c *gin.Context) {
	var req dto.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	if err := h.Presence.UpdateLocation(c.Request.Context(), middleware.UserID(c), req.Latitude, req.Longitude); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
