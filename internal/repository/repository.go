// Package repository defines the store interfaces the engine runs against
// and provides PostgreSQL (pgx) and in-memory implementations.
//
// Cross-entity atomicity lives here: the vote commit routine, the queue
// reset, and set-list activation are single store-native transactions. The
// service layer validates state transitions and publishes change events; it
// never holds a lock across a store round trip.
package repository

import (
	"context"

	"github.com/encore-live/server/internal/domain"
)

// RequestRepository stores live requests and their requesters.
type RequestRepository interface {
	Create(ctx context.Context, req *domain.Request) error
	GetByID(ctx context.Context, id string) (*domain.Request, error)
	// GetPendingByTitle finds the non-played request with this exact title,
	// or nil. Backs request dedup: matching is exact-string by design.
	GetPendingByTitle(ctx context.Context, title string) (*domain.Request, error)
	// ListQueue returns non-played requests, highest votes first.
	ListQueue(ctx context.Context) ([]*domain.Request, error)
	ListAll(ctx context.Context) ([]*domain.Request, error)

	AddRequester(ctx context.Context, r *domain.Requester) error
	ListRequesters(ctx context.Context, requestID string) ([]*domain.Requester, error)

	// SetLockedExclusive unlocks every other request and sets the target's
	// flag, in one transaction. At most one request stays locked queue-wide.
	SetLockedExclusive(ctx context.Context, id string, locked bool) error
	// MarkPlayed sets is_played=true and is_locked=false. Idempotent.
	MarkPlayed(ctx context.Context, id string) error
	// ResetQueue marks every non-played request played with zero votes and no
	// lock, purges all vote rows, and returns how many requests were cleared.
	// One transaction; a failure leaves prior state intact.
	ResetQueue(ctx context.Context) (int, error)
}

// VoteRepository records (request, user) vote pairs.
type VoteRepository interface {
	// AddVoteAtomic inserts the vote row guarded by the pair constraint and,
	// only if the insert took effect, increments the request counter — as one
	// server-side transaction. Returns accepted=false for a duplicate without
	// touching the counter. Safe to retry: the insert is idempotent.
	AddVoteAtomic(ctx context.Context, requestID, userID string) (accepted bool, votes int, err error)
	// Count returns the number of vote rows for a request.
	Count(ctx context.Context, requestID string) (int, error)
	// HasVoted reports whether the pair exists.
	HasVoted(ctx context.Context, requestID, userID string) (bool, error)
}

// SongRepository stores the immutable song catalog.
type SongRepository interface {
	Create(ctx context.Context, song *domain.Song) error
	GetByID(ctx context.Context, id string) (*domain.Song, error)
	List(ctx context.Context) ([]*domain.Song, error)
}

// SetListRepository stores set lists and their ordered song rows.
type SetListRepository interface {
	// Create inserts the set list together with its song-position rows.
	Create(ctx context.Context, sl *domain.SetList, songs []*domain.SetListSong) error
	// Update rewrites the set list and fully replaces its song-position rows.
	// No partial patch.
	Update(ctx context.Context, sl *domain.SetList, songs []*domain.SetListSong) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.SetList, error)
	List(ctx context.Context) ([]*domain.SetList, error)
	// SetActive activates the target after deactivating all others, in one
	// transaction. Deactivation just clears the target's flag.
	SetActive(ctx context.Context, id string, active bool) error
	// GetActive returns the single de-facto active set list: the active row
	// with the most recent updated_at, the documented tie-break should a race
	// ever leave two rows flagged. Nil when none is active.
	GetActive(ctx context.Context) (*domain.SetList, error)
}
