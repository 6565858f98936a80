package handler

import (
	"net/http"

	"github.com/encore-live/server/internal/service"

	"github.com/gin-gonic/gin"
)

// QueueHandler serves the live queue and its performer-side controls.
type QueueHandler struct {
	queue *service.QueueService
}

// NewQueueHandler creates a queue handler.
func NewQueueHandler(queue *service.QueueService) *QueueHandler {
	return &QueueHandler{queue: queue}
}

// List handles GET /api/v1/queue.
func (h *QueueHandler) List(c *gin.Context) {
	queue, err := h.queue.ListQueue(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": queue, "total": len(queue)})
}

// Lock handles POST /api/v1/queue/:id/lock. Toggles the "next up" marker;
// locking one request releases any other holder.
func (h *QueueHandler) Lock(c *gin.Context) {
	req, err := h.queue.Lock(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// MarkPlayed handles POST /api/v1/queue/:id/played.
func (h *QueueHandler) MarkPlayed(c *gin.Context) {
	req, err := h.queue.MarkPlayed(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// Reset handles POST /api/v1/queue/reset.
func (h *QueueHandler) Reset(c *gin.Context) {
	cleared, err := h.queue.ResetQueue(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}
