package handler

import (
	"net/http"
	"time"

	"github.com/encore-live/server/internal/service"

	"github.com/gin-gonic/gin"
)

// SetListHandler serves set list management.
type SetListHandler struct {
	setLists *service.SetListService
}

// NewSetListHandler creates a set list handler.
func NewSetListHandler(setLists *service.SetListService) *SetListHandler {
	return &SetListHandler{setLists: setLists}
}

type setListBody struct {
	Name    string    `json:"name" binding:"required"`
	Date    time.Time `json:"date"`
	Notes   string    `json:"notes"`
	SongIDs []string  `json:"song_ids"`
}

func (b *setListBody) toInput() *service.SetListInput {
	return &service.SetListInput{
		Name:    b.Name,
		Date:    b.Date,
		Notes:   b.Notes,
		SongIDs: b.SongIDs,
	}
}

// Create handles POST /api/v1/setlists.
func (h *SetListHandler) Create(c *gin.Context) {
	var body setListBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sl, err := h.setLists.Create(c.Request.Context(), body.toInput())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sl)
}

// Update handles PUT /api/v1/setlists/:id.
func (h *SetListHandler) Update(c *gin.Context) {
	var body setListBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sl, err := h.setLists.Update(c.Request.Context(), c.Param("id"), body.toInput())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sl)
}

// Delete handles DELETE /api/v1/setlists/:id.
func (h *SetListHandler) Delete(c *gin.Context) {
	if err := h.setLists.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// Get handles GET /api/v1/setlists/:id.
func (h *SetListHandler) Get(c *gin.Context) {
	sl, err := h.setLists.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sl)
}

// List handles GET /api/v1/setlists.
func (h *SetListHandler) List(c *gin.Context) {
	lists, err := h.setLists.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": lists, "total": len(lists)})
}

// SetActive handles POST /api/v1/setlists/:id/activate. Toggles: activating
// one set list deactivates the rest, activating the active one turns it off.
func (h *SetListHandler) SetActive(c *gin.Context) {
	sl, err := h.setLists.SetActive(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sl)
}

// GetActive handles GET /api/v1/setlists/active.
func (h *SetListHandler) GetActive(c *gin.Context) {
	sl, err := h.setLists.GetActive(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	if sl == nil {
		c.JSON(http.StatusOK, gin.H{"data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sl})
}
