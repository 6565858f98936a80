package middleware

import (
	"net/http"

	"github.com/encore-live/server/internal/limiter"
	"github.com/encore-live/server/pkg/logger"

	"github.com/gin-gonic/gin"
)

// VoteRateLimit caps vote attempts per authenticated user. Limiter errors
// fail open: a Redis hiccup must not take voting down with it.
func VoteRateLimit(vl *limiter.VoteLimiter, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(UserIDKey)
		if userID == "" {
			c.Next()
			return
		}

		allowed, err := vl.Allow(c.Request.Context(), userID)
		if err != nil {
			log.WithFields(
				logger.String("request_id", GetRequestID(c)),
				logger.String("error", err.Error()),
			).Warn("rate limit check failed")
			c.Next()
			return
		}
		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many vote attempts"})
			c.Abort()
			return
		}
		c.Next()
	}
}
