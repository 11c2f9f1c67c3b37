package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/api/middleware"
	chatservice "github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/service/chat"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/service/dispatch"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/service/presence"
	apperrors "github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/errors"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/logger"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/realtime"
)

// Handlers holds all handler dependencies
type Handlers struct {
	Dispatch *dispatch.Service
	Chat     *chatservice.Service
	Presence *presence.Service
	Bus      *realtime.Bus
	Logger   *logger.Logger

	wsReadBufferSize  int
	wsWriteBufferSize int
}

// NewHandlers creates a new Handlers instance
func NewHandlers(dispatchSvc *dispatch.Service, chatSvc *chatservice.Service, presenceSvc *presence.Service, bus *realtime.Bus, log *logger.Logger, wsReadBuf, wsWriteBuf int) *Handlers {
	if wsReadBuf <= 0 {
		wsReadBuf = 1024
	}
	if wsWriteBuf <= 0 {
		wsWriteBuf = 1024
	}
	return &Handlers{
		Dispatch:          dispatchSvc,
		Chat:              chatSvc,
		Presence:          presenceSvc,
		Bus:               bus,
		Logger:            log,
		wsReadBufferSize:  wsReadBuf,
		wsWriteBufferSize: wsWriteBuf,
	}
}

// respondError translates a service error into the uniform JSON error body
func (h *Handlers) respondError(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.Logger.Error("Request failed", logger.String("code", appErr.Code), logger.Err(appErr))
	}
	// A 403 means someone reached for a ride or chat that is not theirs.
	// That is worth a trace even when the response itself is routine.
	if appErr.Status == http.StatusForbidden {
		h.Logger.Warn("Forbidden access attempt",
			logger.String("code", appErr.Code),
			logger.String("user_id", middleware.UserID(c).String()),
			logger.String("path", c.Request.URL.Path))
	}

	c.JSON(appErr.Status, gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	})
}
