// Package middleware carries the request-level concerns shared by all
// routes. Identity is header-based: upstream infrastructure authenticates
// the user and forwards the verified id in X-User-ID.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderUserID is set by the authenticating proxy in front of this service.
	HeaderUserID = "X-User-ID"

	// ContextUserID is the gin context key holding the parsed uuid.UUID.
	ContextUserID = "userID"
)

// Identity extracts the caller's id from X-User-ID and rejects requests
// without a valid one.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderUserID)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "UNAUTHENTICATED",
				"message": "X-User-ID header is required",
			})
			return
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "UNAUTHENTICATED",
				"message": "X-User-ID must be a valid UUID",
			})
			return
		}

		c.Set(ContextUserID, id)
		c.Next()
	}
}

// UserID returns the authenticated user's id from the gin context
func UserID(c *gin.Context) uuid.UUID {
	id, _ := c.Get(ContextUserID)
	userID, _ := id.(uuid.UUID)
	return userID
}
