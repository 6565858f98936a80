package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/encore-live/server/internal/domain"
	"github.com/encore-live/server/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRequest(t *testing.T, store *repository.MemoryStore, title string) *domain.Request {
	t.Helper()
	req := &domain.Request{
		ID:        uuid.New().String(),
		Title:     title,
		Artist:    "Test Artist",
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.Create(context.Background(), req))
	return req
}

func TestCastVote(t *testing.T) {
	ctx := context.Background()

	t.Run("FirstVoteAccepted", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := NewVoteService(store, store, nil, nil)
		req := newTestRequest(t, store, "Song A")

		result, err := svc.CastVote(ctx, req.ID, "user-1")
		require.NoError(t, err)
		assert.True(t, result.Accepted)
		assert.Equal(t, 1, result.Votes)
	})

	t.Run("SecondVoteRejectedWithoutDoubleCount", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := NewVoteService(store, store, nil, nil)
		req := newTestRequest(t, store, "Song A")

		first, err := svc.CastVote(ctx, req.ID, "user-1")
		require.NoError(t, err)
		assert.True(t, first.Accepted)

		second, err := svc.CastVote(ctx, req.ID, "user-1")
		require.NoError(t, err)
		assert.False(t, second.Accepted)
		assert.Equal(t, 1, second.Votes)

		updated, err := store.GetByID(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, updated.Votes)
	})

	t.Run("CounterNeverExceedsDistinctVoters", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := NewVoteService(store, store, nil, nil)
		req := newTestRequest(t, store, "Song A")

		const voters = 10
		var wg sync.WaitGroup
		for i := 0; i < voters; i++ {
			userID := fmt.Sprintf("user-%d", i)
			// Every voter tries twice, concurrently.
			for j := 0; j < 2; j++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					svc.CastVote(ctx, req.ID, userID)
				}()
			}
		}
		wg.Wait()

		updated, err := store.GetByID(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, voters, updated.Votes)

		count, err := store.Count(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, voters, count)
	})

	t.Run("EmptyUserRejected", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := NewVoteService(store, store, nil, nil)
		req := newTestRequest(t, store, "Song A")

		_, err := svc.CastVote(ctx, req.ID, "")
		assert.ErrorIs(t, err, domain.ErrEmptyUserID)
	})

	t.Run("UnknownRequestRejected", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := NewVoteService(store, store, nil, nil)

		_, err := svc.CastVote(ctx, uuid.New().String(), "user-1")
		assert.ErrorIs(t, err, domain.ErrRequestNotFound)
	})

	t.Run("PlayedRequestRejected", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := NewVoteService(store, store, nil, nil)
		req := newTestRequest(t, store, "Song A")
		require.NoError(t, store.MarkPlayed(ctx, req.ID))

		_, err := svc.CastVote(ctx, req.ID, "user-1")
		assert.ErrorIs(t, err, domain.ErrRequestPlayed)
	})

	t.Run("RetryAfterFailureIsIdempotent", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := NewVoteService(store, store, nil, nil)
		req := newTestRequest(t, store, "Song A")

		store.FailNext = fmt.Errorf("connection reset")
		_, err := svc.CastVote(ctx, req.ID, "user-1")
		require.Error(t, err)

		// The failed attempt committed nothing, so the retry is a fresh vote.
		result, err := svc.CastVote(ctx, req.ID, "user-1")
		require.NoError(t, err)
		assert.True(t, result.Accepted)
		assert.Equal(t, 1, result.Votes)
	})
}

func TestTwoStepDegradedPath(t *testing.T) {
	// The client-driven read-increment-write fallback is documented as not
	// linearizable. This pins its single-writer behavior only; the atomic
	// routine is the path the engine requires.
	ctx := context.Background()
	store := repository.NewMemoryStore()
	req := newTestRequest(t, store, "Song A")

	accepted, votes, err := store.TwoStepCastVote(ctx, req.ID, "user-1")
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, 1, votes)

	accepted, votes, err = store.TwoStepCastVote(ctx, req.ID, "user-1")
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Equal(t, 1, votes)
}
