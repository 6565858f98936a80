// Package ws fans change-feed events out to connected browser sessions.
// Every session receives every event; filtering is the client's job, since
// its reconciler decides per table what an event means for its local state.
package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/encore-live/server/internal/domain"
	"github.com/encore-live/server/pkg/logger"
)

// Hub owns the connection registry and the broadcast loop.
type Hub struct {
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan []byte

	connections map[*Connection]struct{}
	maxConns    int

	log   logger.Logger
	stats HubStats
}

// HubStats counts connection churn and deliveries.
type HubStats struct {
	Registered   int64
	Unregistered int64
	Current      int64
	Dropped      int64
}

// NewHub creates a hub. maxConns bounds concurrent sessions; zero means
// unbounded.
func NewHub(maxConns int, log logger.Logger) *Hub {
	if log == nil {
		log = logger.Global()
	}
	return &Hub{
		register:    make(chan *Connection, 64),
		unregister:  make(chan *Connection, 64),
		broadcast:   make(chan []byte, 1024),
		connections: make(map[*Connection]struct{}),
		maxConns:    maxConns,
		log:         log,
	}
}

// Run processes registration and broadcast until ctx is canceled. All map
// access happens on this goroutine; no lock needed.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for conn := range h.connections {
				conn.close("server shutting down")
			}
			return

		case conn := <-h.register:
			if h.maxConns > 0 && len(h.connections) >= h.maxConns {
				conn.close("connection limit reached")
				continue
			}
			h.connections[conn] = struct{}{}
			atomic.AddInt64(&h.stats.Registered, 1)
			atomic.StoreInt64(&h.stats.Current, int64(len(h.connections)))
			h.log.Info("session connected",
				logger.String("conn_id", conn.ID),
				logger.Int("sessions", len(h.connections)),
			)

		case conn := <-h.unregister:
			if _, ok := h.connections[conn]; ok {
				delete(h.connections, conn)
				conn.close("unregistered")
				atomic.AddInt64(&h.stats.Unregistered, 1)
				atomic.StoreInt64(&h.stats.Current, int64(len(h.connections)))
			}

		case msg := <-h.broadcast:
			for conn := range h.connections {
				select {
				case conn.send <- msg:
				default:
					// Slow consumer: drop it rather than stall everyone.
					// It reconnects and resyncs from a fresh snapshot.
					delete(h.connections, conn)
					conn.close("send buffer full")
					atomic.AddInt64(&h.stats.Dropped, 1)
				}
			}
		}
	}
}

// BroadcastEvent queues a change event for delivery to every session. Wire
// it as a change-feed handler.
func (h *Hub) BroadcastEvent(event *domain.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- payload:
	default:
		atomic.AddInt64(&h.stats.Dropped, 1)
		h.log.Warn("broadcast buffer full, event dropped",
			logger.String("table", event.Table),
			logger.String("event_id", event.EventID),
		)
	}
	return nil
}

// Stats returns a snapshot of hub counters.
func (h *Hub) Stats() HubStats {
	return HubStats{
		Registered:   atomic.LoadInt64(&h.stats.Registered),
		Unregistered: atomic.LoadInt64(&h.stats.Unregistered),
		Current:      atomic.LoadInt64(&h.stats.Current),
		Dropped:      atomic.LoadInt64(&h.stats.Dropped),
	}
}
