package ws

import (
	"net/http"

	"github.com/encore-live/server/internal/middleware"
	"github.com/encore-live/server/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Cross-origin browsers are the normal client; auth happens via token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades a session to a websocket and attaches it to the hub.
func Handler(hub *Hub, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("websocket upgrade failed",
				logger.String("request_id", middleware.GetRequestID(c)),
				logger.Error(err),
			)
			return
		}

		session := NewConnection(uuid.NewString(), c.GetString(middleware.UserIDKey), conn, hub)
		hub.register <- session

		go session.writePump()
		go session.readPump()
	}
}
