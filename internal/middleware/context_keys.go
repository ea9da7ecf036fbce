package middleware

import "github.com/gin-gonic/gin"

// userIDKey carries the authenticated user's ID. The typed key keeps it from
// colliding with other context values.
const userIDKey = contextKey("userID")

// GetUserIDFromContext returns the authenticated user ID set by
// AuthMiddleware. It checks the Gin context map first, then falls back to the
// request context.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	if v, exists := c.Get(string(userIDKey)); exists {
		userID, ok := v.(string)
		return userID, ok
	}
	if userID, ok := c.Request.Context().Value(userIDKey).(string); ok {
		return userID, true
	}
	return "", false
}
