package domain

import "time"

// SetList is a staff-curated, dated collection of ordered song references.
// At most one set list is active at any time system-wide.
type SetList struct {
	ID        string    `json:"id"`   // UUID
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	Notes     string    `json:"notes,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Songs is populated on joined reads, ordered by position.
	Songs []*SetListSong `json:"songs,omitempty"`
}

// SetListSong binds a catalog song to a set list at a dense, zero-based
// position. Re-saving a set list fully replaces these rows.
type SetListSong struct {
	SetListID string `json:"set_list_id"`
	SongID    string `json:"song_id"`
	Position  int    `json:"position"`

	// Denormalized for display without an extra catalog read.
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
}
