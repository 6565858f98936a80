package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/encore-live/server/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Recovery turns a handler panic into a 500 instead of a dropped connection.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestID := GetRequestID(c)

				log.WithFields(
					logger.String("request_id", requestID),
					logger.String("panic", fmt.Sprintf("%v", err)),
					logger.String("stack", string(debug.Stack())),
				).Error("panic recovered")

				c.JSON(http.StatusInternalServerError, gin.H{
					"error":      "internal server error",
					"request_id": requestID,
				})
				c.Abort()
			}
		}()

		c.Next()
	}
}
