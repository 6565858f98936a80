package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/encore-live/server/internal/domain"
	"github.com/encore-live/server/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock(t *testing.T) {
	ctx := context.Background()

	t.Run("LockSingleRequest", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := NewQueueService(store, nil, nil)
		req := newTestRequest(t, store, "Song A")

		locked, err := svc.Lock(ctx, req.ID)
		require.NoError(t, err)
		assert.True(t, locked.IsLocked)
		assert.Equal(t, domain.StateLocked, locked.State())
	})

	t.Run("LockReleasesPreviousHolder", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := NewQueueService(store, nil, nil)
		a := newTestRequest(t, store, "Song A")
		b := newTestRequest(t, store, "Song B")

		_, err := svc.Lock(ctx, a.ID)
		require.NoError(t, err)
		_, err = svc.Lock(ctx, b.ID)
		require.NoError(t, err)

		queue, err := svc.ListQueue(ctx)
		require.NoError(t, err)
		var lockedIDs []string
		for _, r := range queue {
			if r.IsLocked {
				lockedIDs = append(lockedIDs, r.ID)
			}
		}
		assert.Equal(t, []string{b.ID}, lockedIDs)
	})

	t.Run("ToggleUnlocks", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := NewQueueService(store, nil, nil)
		req := newTestRequest(t, store, "Song A")

		_, err := svc.Lock(ctx, req.ID)
		require.NoError(t, err)
		unlocked, err := svc.Lock(ctx, req.ID)
		require.NoError(t, err)
		assert.False(t, unlocked.IsLocked)
	})

	t.Run("UnknownRequest", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := NewQueueService(store, nil, nil)

		_, err := svc.Lock(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrRequestNotFound)
	})

	t.Run("StoreFailureLeavesStateUntouched", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := NewQueueService(store, nil, nil)
		a := newTestRequest(t, store, "Song A")
		b := newTestRequest(t, store, "Song B")
		_, err := svc.Lock(ctx, a.ID)
		require.NoError(t, err)

		store.FailNext = fmt.Errorf("connection reset")
		_, err = svc.Lock(ctx, b.ID)
		require.Error(t, err)

		// The failed toggle must not have released A.
		got, err := store.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, got.IsLocked)
	})
}

func TestMarkPlayed(t *testing.T) {
	ctx := context.Background()

	t.Run("MarksAndReleasesLock", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := NewQueueService(store, nil, nil)
		req := newTestRequest(t, store, "Song A")
		_, err := svc.Lock(ctx, req.ID)
		require.NoError(t, err)

		played, err := svc.MarkPlayed(ctx, req.ID)
		require.NoError(t, err)
		assert.True(t, played.IsPlayed)
		assert.False(t, played.IsLocked)
		assert.Equal(t, domain.StatePlayed, played.State())
	})

	t.Run("Idempotent", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := NewQueueService(store, nil, nil)
		req := newTestRequest(t, store, "Song A")

		first, err := svc.MarkPlayed(ctx, req.ID)
		require.NoError(t, err)
		second, err := svc.MarkPlayed(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, first.IsPlayed, second.IsPlayed)
		assert.Equal(t, first.Votes, second.Votes)
	})

	t.Run("PlayedRequestLeavesQueue", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := NewQueueService(store, nil, nil)
		req := newTestRequest(t, store, "Song A")

		_, err := svc.MarkPlayed(ctx, req.ID)
		require.NoError(t, err)

		queue, err := svc.ListQueue(ctx)
		require.NoError(t, err)
		for _, r := range queue {
			assert.NotEqual(t, req.ID, r.ID)
		}
	})
}

func TestResetQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("ClearsEverything", func(t *testing.T) {
		store := repository.NewMemoryStore()
		votes := NewVoteService(store, store, nil, nil)
		svc := NewQueueService(store, nil, nil)

		ids := make([]string, 0, 5)
		for i := 0; i < 5; i++ {
			req := newTestRequest(t, store, fmt.Sprintf("Song %d", i))
			ids = append(ids, req.ID)
			for v := 0; v <= i; v++ {
				_, err := votes.CastVote(ctx, req.ID, fmt.Sprintf("user-%d", v))
				require.NoError(t, err)
			}
		}
		_, err := svc.Lock(ctx, ids[2])
		require.NoError(t, err)

		cleared, err := svc.ResetQueue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, cleared)

		queue, err := svc.ListQueue(ctx)
		require.NoError(t, err)
		assert.Empty(t, queue)

		for _, id := range ids {
			req, err := store.GetByID(ctx, id)
			require.NoError(t, err)
			assert.True(t, req.IsPlayed)
			assert.False(t, req.IsLocked)
			assert.Zero(t, req.Votes)

			count, err := store.Count(ctx, id)
			require.NoError(t, err)
			assert.Zero(t, count)
		}
	})

	t.Run("EmptyQueue", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := NewQueueService(store, nil, nil)

		cleared, err := svc.ResetQueue(ctx)
		require.NoError(t, err)
		assert.Zero(t, cleared)
	})

	t.Run("VoteRowsPurgedAllowsRevote", func(t *testing.T) {
		store := repository.NewMemoryStore()
		votes := NewVoteService(store, store, nil, nil)
		svc := NewQueueService(store, nil, nil)
		req := newTestRequest(t, store, "Song A")
		_, err := votes.CastVote(ctx, req.ID, "user-1")
		require.NoError(t, err)

		_, err = svc.ResetQueue(ctx)
		require.NoError(t, err)

		// Reset purged the ledger, so the same user could vote again if the
		// request ever re-entered the queue.
		has, err := store.HasVoted(ctx, req.ID, "user-1")
		require.NoError(t, err)
		assert.False(t, has)
	})
}
