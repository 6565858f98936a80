package repository

import (
	"context"
	"testing"
	"time"

	"github.com/encore-live/server/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCreate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Create(ctx, &domain.Request{ID: "r1", Title: "Song A", CreatedAt: time.Now()}))

	t.Run("DuplicatePendingTitleRejected", func(t *testing.T) {
		err := store.Create(ctx, &domain.Request{ID: "r2", Title: "Song A", CreatedAt: time.Now()})
		assert.ErrorIs(t, err, domain.ErrDuplicatePendingTitle)
	})

	t.Run("PlayedTitleReusable", func(t *testing.T) {
		require.NoError(t, store.MarkPlayed(ctx, "r1"))
		assert.NoError(t, store.Create(ctx, &domain.Request{ID: "r3", Title: "Song A", CreatedAt: time.Now()}))
	})
}

func TestMemoryStoreCloneOnRead(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Create(ctx, &domain.Request{ID: "r1", Title: "Song A"}))

	// Mutating what a read returned must not leak into the store.
	got, err := store.GetByID(ctx, "r1")
	require.NoError(t, err)
	got.Votes = 99

	again, err := store.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Zero(t, again.Votes)
}

func TestMemoryStoreGetPendingByTitle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Create(ctx, &domain.Request{ID: "r1", Title: "Song A"}))

	got, err := store.GetPendingByTitle(ctx, "Song A")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "r1", got.ID)

	// Exact match only.
	got, err = store.GetPendingByTitle(ctx, "song a")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Played requests are invisible to dedup.
	require.NoError(t, store.MarkPlayed(ctx, "r1"))
	got, err = store.GetPendingByTitle(ctx, "Song A")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreFailNext(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.FailNext = assert.AnError
	err := store.Create(ctx, &domain.Request{ID: "r1", Title: "Song A"})
	assert.ErrorIs(t, err, assert.AnError)

	// The injected failure is consumed by one call.
	assert.NoError(t, store.Create(ctx, &domain.Request{ID: "r1", Title: "Song A"}))
}
