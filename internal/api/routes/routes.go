package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/api/handlers"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/api/middleware"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, nrApp *newrelic.Application) {
	if nrApp != nil {
		r.Use(nrgin.Middleware(nrApp))
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})

	v1 := r.Group("/v1")
	{
		// WebSocket connection carries its own identity handshake
		v1.GET("/ws", h.HandleWebSocket)

		authed := v1.Group("", middleware.Identity())

		rides := authed.Group("/rides")
		{
			rides.POST("", h.CreateRide)
			rides.GET("/active", h.GetActiveRide)
			rides.GET("/history", h.GetRideHistory)
			rides.GET("/:id", h.GetRide)
			rides.POST("/:id/accept", h.AcceptRide)
			rides.POST("/:id/arrive", h.ArriveRide)
			rides.POST("/:id/start", h.StartRide)
			rides.POST("/:id/complete", h.CompleteRide)
			rides.POST("/:id/cancel", h.CancelRide)
			rides.POST("/:id/rating", h.RateRide)
			rides.GET("/:id/messages", h.GetMessages)
			rides.POST("/:id/messages", h.SendMessage)
		}

		drivers := authed.Group("/drivers")
		{
			drivers.POST("/status", h.SetDriverStatus)
			drivers.POST("/location", h.UpdateDriverLocation)
		}
	}
}
