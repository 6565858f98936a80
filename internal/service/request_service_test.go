package service

import (
	"context"
	"strings"
	"testing"

	"github.com/encore-live/server/internal/domain"
	"github.com/encore-live/server/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequestService(store *repository.MemoryStore) *RequestService {
	votes := NewVoteService(store, store, nil, nil)
	return NewRequestService(store, votes, nil, nil)
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("NewTitleCreatesRequest", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := newRequestService(store)

		req, err := svc.Submit(ctx, &SubmitInput{
			Title:         "Wonderwall",
			Artist:        "Oasis",
			RequesterName: "Alice",
			Message:       "for my sister",
			UserID:        "user-1",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, req.ID)
		assert.Equal(t, "Wonderwall", req.Title)
		assert.Equal(t, 1, req.Votes)
		assert.Equal(t, domain.StatePending, req.State())

		requesters, err := store.ListRequesters(ctx, req.ID)
		require.NoError(t, err)
		require.Len(t, requesters, 1)
		assert.Equal(t, "Alice", requesters[0].Name)
		assert.Equal(t, "for my sister", requesters[0].Message)
	})

	t.Run("DuplicateTitleMergesIntoExisting", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := newRequestService(store)

		first, err := svc.Submit(ctx, &SubmitInput{
			Title: "Wonderwall", Artist: "Oasis", RequesterName: "Alice", UserID: "user-1",
		})
		require.NoError(t, err)

		second, err := svc.Submit(ctx, &SubmitInput{
			Title: "Wonderwall", Artist: "Oasis", RequesterName: "Bob", UserID: "user-2",
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 2, second.Votes)

		requesters, err := store.ListRequesters(ctx, first.ID)
		require.NoError(t, err)
		assert.Len(t, requesters, 2)
	})

	t.Run("ResubmitBySameUserDoesNotDoubleCount", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := newRequestService(store)

		first, err := svc.Submit(ctx, &SubmitInput{
			Title: "Wonderwall", Artist: "Oasis", RequesterName: "Alice", UserID: "user-1",
		})
		require.NoError(t, err)

		second, err := svc.Submit(ctx, &SubmitInput{
			Title: "Wonderwall", Artist: "Oasis", RequesterName: "Alice", UserID: "user-1",
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, second.Votes)
	})

	t.Run("PlayedTitleGetsFreshRequest", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := newRequestService(store)

		first, err := svc.Submit(ctx, &SubmitInput{
			Title: "Wonderwall", Artist: "Oasis", RequesterName: "Alice", UserID: "user-1",
		})
		require.NoError(t, err)
		require.NoError(t, store.MarkPlayed(ctx, first.ID))

		second, err := svc.Submit(ctx, &SubmitInput{
			Title: "Wonderwall", Artist: "Oasis", RequesterName: "Bob", UserID: "user-2",
		})
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
		assert.Equal(t, 1, second.Votes)
	})

	t.Run("Validation", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := newRequestService(store)

		cases := []struct {
			name  string
			input *SubmitInput
			want  error
		}{
			{"EmptyTitle", &SubmitInput{Title: "  ", RequesterName: "Alice", UserID: "u"}, domain.ErrEmptyTitle},
			{"EmptyName", &SubmitInput{Title: "Song", RequesterName: "", UserID: "u"}, domain.ErrEmptyName},
			{"EmptyUser", &SubmitInput{Title: "Song", RequesterName: "Alice", UserID: ""}, domain.ErrEmptyUserID},
			{
				"MessageTooLong",
				&SubmitInput{Title: "Song", RequesterName: "Alice", UserID: "u", Message: strings.Repeat("x", domain.MaxMessageLen+1)},
				domain.ErrMessageTooLong,
			},
			{
				"PhotoTooLarge",
				&SubmitInput{Title: "Song", RequesterName: "Alice", UserID: "u", Photo: make([]byte, domain.MaxPhotoBytes+1)},
				domain.ErrPhotoTooLarge,
			},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := svc.Submit(ctx, tc.input)
				assert.ErrorIs(t, err, tc.want)
			})
		}
	})

	t.Run("MessageAtLimitAccepted", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := newRequestService(store)

		_, err := svc.Submit(ctx, &SubmitInput{
			Title:         "Song",
			RequesterName: "Alice",
			UserID:        "u",
			Message:       strings.Repeat("é", domain.MaxMessageLen), // runes, not bytes
		})
		assert.NoError(t, err)
	})
}

func TestGetRequest(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newRequestService(store)

	created, err := svc.Submit(ctx, &SubmitInput{
		Title: "Song", RequesterName: "Alice", UserID: "user-1",
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	require.Len(t, got.Requesters, 1)
	assert.Equal(t, "Alice", got.Requesters[0].Name)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrRequestNotFound)
}
