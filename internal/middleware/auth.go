package middleware

import (
	"net/http"
	"strings"

	"github.com/encore-live/server/pkg/logger"
	"github.com/encore-live/server/pkg/token"

	"github.com/gin-gonic/gin"
)

const (
	// UserIDKey is the gin context key holding the authenticated user id.
	UserIDKey = "user_id"
	// UserNameKey holds the attendee's display name, when the token has one.
	UserNameKey = "user_name"
)

// AuthConfig configures identity extraction.
type AuthConfig struct {
	Manager *token.Manager
	// Required rejects unauthenticated requests; otherwise they pass
	// through anonymously and handlers decide.
	Required bool
}

// Auth extracts the session identity from a Bearer token. Issuing tokens is
// the venue frontend's concern; this side only verifies them.
func Auth(cfg AuthConfig, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if cfg.Required {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
				c.Abort()
				return
			}
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := cfg.Manager.Validate(parts[1])
		if err != nil {
			log.WithFields(
				logger.String("request_id", GetRequestID(c)),
				logger.String("error", err.Error()),
			).Warn("token validation failed")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		if claims.Name != "" {
			c.Set(UserNameKey, claims.Name)
		}
		c.Next()
	}
}
