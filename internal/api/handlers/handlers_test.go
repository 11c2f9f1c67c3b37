package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/api/middleware"
	apperrors "github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/errors"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/logger"
)

func observedHandlers() (*Handlers, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.WarnLevel)
	return &Handlers{Logger: &logger.Logger{Logger: zap.New(core)}}, logs
}

func errorContext(path string, userID uuid.UUID) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, path, nil)
	c.Set(middleware.ContextUserID, userID)
	return c, w
}

func TestRespondError_ForbiddenIsLogged(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, logs := observedHandlers()
	callerID := uuid.New()
	c, w := errorContext("/v1/rides/42/messages", callerID)

	h.respondError(c, apperrors.ErrNotParticipant)

	assert.Equal(t, http.StatusForbidden, w.Code)
	entries := logs.FilterMessage("Forbidden access attempt").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "FORBIDDEN", fields["code"])
	assert.Equal(t, callerID.String(), fields["user_id"])
	assert.Equal(t, "/v1/rides/42/messages", fields["path"])
}

func TestRespondError_NotFoundStaysQuiet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, logs := observedHandlers()
	c, w := errorContext("/v1/rides/42", uuid.New())

	h.respondError(c, apperrors.ErrRideNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, logs.Len())
}
