package middleware

import (
	"net/http"
	"strings"

	"buddysurf-chat/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const ctxUserID = "auth_user_id"

// Auth resolves the bearer token to a user id and aborts unauthenticated
// requests. Websocket upgrades may carry the token as a query parameter
// since browsers cannot set headers there.
func Auth(sess *session.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		userID, err := sess.CurrentUser(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		c.Set(ctxUserID, userID)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// UserID returns the authenticated user set by Auth.
func UserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ctxUserID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
