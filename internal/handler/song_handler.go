package handler

import (
	"net/http"

	"github.com/encore-live/server/internal/service"

	"github.com/gin-gonic/gin"
)

// SongHandler serves the song catalog.
type SongHandler struct {
	songs *service.SongService
}

// NewSongHandler creates a song handler.
func NewSongHandler(songs *service.SongService) *SongHandler {
	return &SongHandler{songs: songs}
}

// Create handles POST /api/v1/songs.
func (h *SongHandler) Create(c *gin.Context) {
	var body struct {
		Title    string   `json:"title" binding:"required"`
		Artist   string   `json:"artist"`
		Genre    []string `json:"genre"`
		AlbumArt string   `json:"album_art"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	song, err := h.songs.Create(c.Request.Context(), &service.SongInput{
		Title:    body.Title,
		Artist:   body.Artist,
		Genre:    body.Genre,
		AlbumArt: body.AlbumArt,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, song)
}

// Get handles GET /api/v1/songs/:id.
func (h *SongHandler) Get(c *gin.Context) {
	song, err := h.songs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, song)
}

// List handles GET /api/v1/songs.
func (h *SongHandler) List(c *gin.Context) {
	songs, err := h.songs.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": songs, "total": len(songs)})
}
