package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/ifta-backend-go/pkg/response"
)

// SessionTripKey is the context key holding the authorized trip ID
const SessionTripKey = "session_trip_id"

// SessionAuthorizer validates a tracking session token for a trip
type SessionAuthorizer interface {
	Authorize(token, tripID string) error
}

// Session requires a Bearer session token issued for the :id trip
func Session(auth SessionAuthorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			response.Unauthorized(c, "Missing session token")
			c.Abort()
			return
		}

		tripID := c.Param("id")
		if err := auth.Authorize(strings.TrimSpace(token), tripID); err != nil {
			_ = c.Error(err)
			response.Unauthorized(c, "Invalid session token")
			c.Abort()
			return
		}

		c.Set(SessionTripKey, tripID)
		c.Next()
	}
}
