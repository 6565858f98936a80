package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single write.
	writeWait = 10 * time.Second
	// pongWait is how long a connection may go silent before it is dead.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = 30 * time.Second
	// maxMessageSize caps inbound frames; clients only send pings and
	// small control payloads.
	maxMessageSize = 4096
)

// Connection is one browser session attached to the hub.
type Connection struct {
	ID     string
	UserID string

	conn *websocket.Conn
	hub  *Hub
	send chan []byte

	closeOnce sync.Once
}

// NewConnection wraps an upgraded websocket.
func NewConnection(id, userID string, conn *websocket.Conn, hub *Hub) *Connection {
	return &Connection{
		ID:     id,
		UserID: userID,
		conn:   conn,
		hub:    hub,
		send:   make(chan []byte, 256),
	}
}

func (c *Connection) close(reason string) {
	c.closeOnce.Do(func() {
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
			time.Now().Add(writeWait),
		)
		c.conn.Close()
	})
}

// readPump drains inbound frames until the peer goes away. The engine pushes
// state; it accepts nothing from the socket besides pongs.
func (c *Connection) readPump() {
	defer func() {
		c.hub.unregister <- c
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump delivers queued events and keeps the connection alive with
// periodic pings.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close("write pump exited")
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
