package domain

import (
	"strings"
	"time"
)

// Song is a catalog entry; immutable once created.
// Referenced by set lists and (optionally) by requests, never owned by them.
type Song struct {
	ID        string    `json:"id"`                  // UUID
	Title     string    `json:"title"`               // Song title
	Artist    string    `json:"artist"`              // Artist name
	Genre     string    `json:"genre,omitempty"`     // Comma-joined tag list
	AlbumArt  string    `json:"album_art,omitempty"` // Optional art reference
	CreatedAt time.Time `json:"created_at"`
}

// GenreTags splits the comma-joined genre field into individual tags.
func (s *Song) GenreTags() []string {
	if s.Genre == "" {
		return nil
	}
	parts := strings.Split(s.Genre, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// JoinGenreTags builds the stored genre field from a tag list.
func JoinGenreTags(tags []string) string {
	return strings.Join(tags, ",")
}
