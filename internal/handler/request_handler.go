package handler

import (
	"net/http"

	"github.com/encore-live/server/internal/middleware"
	"github.com/encore-live/server/internal/service"

	"github.com/gin-gonic/gin"
)

// RequestHandler serves request submission and voting.
type RequestHandler struct {
	requests *service.RequestService
	votes    *service.VoteService
}

// NewRequestHandler creates a request handler.
func NewRequestHandler(requests *service.RequestService, votes *service.VoteService) *RequestHandler {
	return &RequestHandler{
		requests: requests,
		votes:    votes,
	}
}

// Submit handles POST /api/v1/requests.
func (h *RequestHandler) Submit(c *gin.Context) {
	var body struct {
		Title   string `json:"title" binding:"required"`
		Artist  string `json:"artist"`
		Name    string `json:"name" binding:"required"`
		Photo   []byte `json:"photo"`
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := h.requests.Submit(c.Request.Context(), &service.SubmitInput{
		Title:         body.Title,
		Artist:        body.Artist,
		RequesterName: body.Name,
		Photo:         body.Photo,
		Message:       body.Message,
		UserID:        c.GetString(middleware.UserIDKey),
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, req)
}

// Get handles GET /api/v1/requests/:id.
func (h *RequestHandler) Get(c *gin.Context) {
	req, err := h.requests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// Vote handles POST /api/v1/requests/:id/vote. A duplicate vote is a 200
// with accepted=false, not an error: the client surfaces it as "already
// voted" and rolls back its optimistic bump.
func (h *RequestHandler) Vote(c *gin.Context) {
	result, err := h.votes.CastVote(c.Request.Context(), c.Param("id"), c.GetString(middleware.UserIDKey))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HasVoted handles GET /api/v1/requests/:id/vote.
func (h *RequestHandler) HasVoted(c *gin.Context) {
	voted, err := h.votes.HasVoted(c.Request.Context(), c.Param("id"), c.GetString(middleware.UserIDKey))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voted": voted})
}
