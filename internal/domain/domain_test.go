package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestState(t *testing.T) {
	cases := []struct {
		name string
		req  Request
		want QueueState
	}{
		{"Pending", Request{}, StatePending},
		{"Locked", Request{IsLocked: true}, StateLocked},
		{"Played", Request{IsPlayed: true}, StatePlayed},
		{"PlayedWinsOverLocked", Request{IsPlayed: true, IsLocked: true}, StatePlayed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.req.State())
		})
	}
}

func TestCanTransition(t *testing.T) {
	pending := Request{}
	assert.True(t, pending.CanTransition(StateLocked))
	assert.True(t, pending.CanTransition(StatePlayed))

	locked := Request{IsLocked: true}
	assert.True(t, locked.CanTransition(StatePending))
	assert.True(t, locked.CanTransition(StatePlayed))

	// Played is terminal.
	played := Request{IsPlayed: true}
	assert.False(t, played.CanTransition(StatePending))
	assert.False(t, played.CanTransition(StateLocked))
	assert.False(t, played.CanTransition(StatePlayed))
}

func TestGenreTags(t *testing.T) {
	song := Song{Genre: "rock, indie ,folk"}
	assert.Equal(t, []string{"rock", "indie", "folk"}, song.GenreTags())

	empty := Song{}
	assert.Empty(t, empty.GenreTags())

	assert.Equal(t, "rock,indie", JoinGenreTags([]string{"rock", "indie"}))
	assert.Equal(t, "", JoinGenreTags(nil))
}

func TestChangeEventRowID(t *testing.T) {
	event := ChangeEvent{
		Op:  OpDelete,
		Row: json.RawMessage(`{"id":"r1"}`),
	}
	id, err := event.RowID()
	require.NoError(t, err)
	assert.Equal(t, "r1", id)

	missing := ChangeEvent{Op: OpDelete, Row: json.RawMessage(`{}`)}
	_, err = missing.RowID()
	assert.Error(t, err)
}
