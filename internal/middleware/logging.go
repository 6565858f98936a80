package middleware

import (
	"time"

	"github.com/encore-live/server/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Logging emits one structured line per request, leveled by status.
func Logging(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []logger.Field{
			logger.String("request_id", GetRequestID(c)),
			logger.String("method", c.Request.Method),
			logger.String("path", path),
			logger.String("query", query),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)),
			logger.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logger.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= 500:
			log.WithFields(fields...).Error("http request error")
		case c.Writer.Status() >= 400:
			log.WithFields(fields...).Warn("http request warning")
		default:
			log.WithFields(fields...).Info("http request")
		}
	}
}
