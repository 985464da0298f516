package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/vlogbook/backend/internal/logger"
	"github.com/zfogg/vlogbook/backend/internal/util"
	"go.uber.org/zap"
)

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth rejects requests without a valid access token
func RequireAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			util.RespondUnauthorized(c, "authentication credentials were not provided")
			return
		}

		userID, err := validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			logger.Log.Debug("Rejected access token", zap.Error(err), zap.String("path", c.FullPath()))
			util.RespondUnauthorized(c, "token is invalid or expired")
			return
		}

		c.Set(util.ContextUserIDKey, userID)
		c.Next()
	}
}

// OptionalAuth resolves the caller when a valid token is present and lets
// anonymous requests through. An invalid token is treated as anonymous.
func OptionalAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if userID, err := validator.ValidateToken(c.Request.Context(), token); err == nil {
				c.Set(util.ContextUserIDKey, userID)
			}
		}
		c.Next()
	}
}
