package util

import (
	"github.com/gin-gonic/gin"
)

// ContextUserIDKey is the gin context key the auth middleware stores the caller under
const ContextUserIDKey = "user_id"

// GetUserIDFromContext extracts the user ID from the Gin context.
// Returns the user ID and true if found, or empty string and false if not authenticated.
// If the user is not authenticated, it automatically responds with 401 Unauthorized.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID := ViewerID(c)
	if userID == "" {
		RespondUnauthorized(c)
		return "", false
	}
	return userID, true
}

// ViewerID returns the authenticated caller, or "" for anonymous requests.
// It never writes a response.
func ViewerID(c *gin.Context) string {
	v, exists := c.Get(ContextUserIDKey)
	if !exists {
		return ""
	}
	id, _ := v.(string)
	return id
}
