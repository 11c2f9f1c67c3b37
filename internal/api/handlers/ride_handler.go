package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/api/dto"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/api/middleware"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/domain/ride"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/service/dispatch"
)

// CreateRide handles POST /v1/rides
func (h *Handlers) CreateRide(c *gin.Context) {
	var req dto.CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	result, err := h.Dispatch.RequestRide(c.Request.Context(), middleware.UserID(c), dispatch.RequestInput{
		Pickup:      toLocation(req.Pickup),
		Destination: toLocation(req.Destination),
		Fare:        req.Fare,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// AcceptRide handles POST /v1/rides/:id/accept
func (h *Handlers) AcceptRide(c *gin.Context) {
	rideID, ok := h.rideID(c)
	if !ok {
		return
	}

	r, err := h.Dispatch.AcceptRide(c.Request.Context(), middleware.UserID(c), rideID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ride": r})
}

// ArriveRide handles POST /v1/rides/:id/arrive
func (h *Handlers) ArriveRide(c *gin.Context) {
	rideID, ok := h.rideID(c)
	if !ok {
		return
	}

	r, err := h.Dispatch.ArriveRide(c.Request.Context(), middleware.UserID(c), rideID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ride": r})
}

// StartRide handles POST /v1/rides/:id/start
func (h *Handlers) StartRide(c *gin.Context) {
	rideID, ok := h.rideID(c)
	if !ok {
		return
	}

	r, err := h.Dispatch.StartRide(c.Request.Context(), middleware.UserID(c), rideID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ride": r})
}

// CompleteRide handles POST /v1/rides/:id/complete
func (h *Handlers) CompleteRide(c *gin.Context) {
	rideID, ok := h.rideID(c)
	if !ok {
		return
	}

	r, err := h.Dispatch.CompleteRide(c.Request.Context(), middleware.UserID(c), rideID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ride": r})
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *Handlers) CancelRide(c *gin.Context) {
	rideID, ok := h.rideID(c)
	if !ok {
		return
	}

	var req dto.CancelRideRequest
	// The body is optional; a bare POST cancels without a reason.
	_ = c.ShouldBindJSON(&req)

	r, err := h.Dispatch.CancelRide(c.Request.Context(), middleware.UserID(c), rideID, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ride": r})
}

// RateRide handles POST /v1/rides/:id/rating
func (h *Handlers) RateRide(c *gin.Context) {
	rideID, ok := h.rideID(c)
	if !ok {
		return
	}

	var req dto.RateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	r, err := h.Dispatch.RateRide(c.Request.Context(), middleware.UserID(c), rideID, ride.Feedback{
		Rating:  req.Rating,
		Tags:    req.Tags,
		Comment: req.Comment,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ride": r})
}

// GetActiveRide handles GET /v1/rides/active. A 200 with a null ride means
// the caller has nothing in flight; clients rely on this after reconnect.
func (h *Handlers) GetActiveRide(c *gin.Context) {
	r, err := h.Dispatch.ActiveRide(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ride": r})
}

// GetRideHistory handles GET /v1/rides/history
func (h *Handlers) GetRideHistory(c *gin.Context) {
	rides, err := h.Dispatch.RideHistory(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rides": rides})
}

// GetRide handles GET /v1/rides/:id
func (h *Handlers) GetRide(c *gin.Context) {
	rideID, ok := h.rideID(c)
	if !ok {
		return
	}

	r, err := h.Dispatch.GetRide(c.Request.Context(), middleware.UserID(c), rideID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ride": r})
}

func (h *Handlers) rideID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "ride id must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func toLocation(l dto.LocationRequest) ride.Location {
	return ride.Location{
		Address:   l.Address,
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
	}
}
