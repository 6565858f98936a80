package domain

import "time"

// QueueState is the lifecycle state of a request in the queue.
type QueueState string

const (
	// StatePending is a live request waiting in the queue.
	StatePending QueueState = "pending"
	// StateLocked marks the single request chosen to play next.
	StateLocked QueueState = "locked"
	// StatePlayed is terminal; a played request never re-enters the queue.
	StatePlayed QueueState = "played"
)

// Request is a live, voteable instance of a song being asked for.
//
// Title and artist are denormalized copies rather than a Song reference so
// free-text requests not in the catalog work the same way. At most one
// non-played request exists per exact title; additional attendees asking for
// the same title attach as requesters instead of creating duplicates.
type Request struct {
	ID        string    `json:"id"`        // UUID
	Title     string    `json:"title"`     // Denormalized title
	Artist    string    `json:"artist"`    // Denormalized artist
	Votes     int       `json:"votes"`     // Non-negative counter, eventually equal to the vote-row count
	IsLocked  bool      `json:"is_locked"` // "Next up" marker, exclusive queue-wide
	IsPlayed  bool      `json:"is_played"` // Terminal marker
	CreatedAt time.Time `json:"created_at"`

	// Requesters is populated on joined reads, insertion order.
	Requesters []*Requester `json:"requesters,omitempty"`
}

// State derives the queue state from the two flags.
func (r *Request) State() QueueState {
	switch {
	case r.IsPlayed:
		return StatePlayed
	case r.IsLocked:
		return StateLocked
	default:
		return StatePending
	}
}

// CanTransition reports whether the state machine allows moving to next.
// Played is terminal: nothing leaves it, not even a re-entry into Played via
// a plain toggle. MarkPlayed on an already played request is handled as an
// idempotent no-op by the service, not as a transition.
func (r *Request) CanTransition(next QueueState) bool {
	if r.IsPlayed {
		return false
	}
	switch next {
	case StatePending, StateLocked, StatePlayed:
		return true
	default:
		return false
	}
}

// Requester is one attendee's attachment to a request. Owned by the request
// and cascade-deleted with it.
type Requester struct {
	ID        string    `json:"id"`         // UUID
	RequestID string    `json:"request_id"` // Owning request
	Name      string    `json:"name"`
	Photo     []byte    `json:"photo,omitempty"`   // Small inline image, size-capped at validation
	Message   string    `json:"message,omitempty"` // At most MaxMessageLen characters
	CreatedAt time.Time `json:"created_at"`
}

// MaxMessageLen caps the requester message length.
const MaxMessageLen = 100

// MaxPhotoBytes caps the inline requester photo size.
const MaxPhotoBytes = 256 * 1024
