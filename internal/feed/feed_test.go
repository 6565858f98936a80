package feed

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/encore-live/server/internal/domain"
	"github.com/encore-live/server/pkg/retry"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestChannelFor(t *testing.T) {
	assert.Equal(t, "feed:requests", ChannelFor(domain.TableRequests))
	assert.Equal(t, "feed:songs", ChannelFor(domain.TableSongs))
	assert.Equal(t, "feed:set_lists", ChannelFor(domain.TableSetLists))
}

func TestPublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := newTestClient(t)
	pub := NewPublisher(client, "instance-a", nil)
	sub := NewSubscriber(client, nil, nil)

	var mu sync.Mutex
	var got []*domain.ChangeEvent
	sub.On(domain.TableRequests, func(event *domain.ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, event)
		return nil
	})

	require.NoError(t, sub.Start(ctx))
	defer sub.Stop()
	time.Sleep(50 * time.Millisecond) // let the subscription settle

	req := &domain.Request{ID: "r1", Title: "Song", Votes: 1}
	require.NoError(t, pub.Publish(ctx, domain.TableRequests, domain.OpInsert, req))
	require.NoError(t, pub.PublishDelete(ctx, domain.TableRequests, "r1"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)

	insert := got[0]
	assert.Equal(t, domain.TableRequests, insert.Table)
	assert.Equal(t, domain.OpInsert, insert.Op)
	assert.Equal(t, "instance-a", insert.InstanceID)
	assert.NotEmpty(t, insert.EventID)
	assert.False(t, insert.OccurredAt.IsZero())

	del := got[1]
	assert.Equal(t, domain.OpDelete, del.Op)
	id, err := del.RowID()
	require.NoError(t, err)
	assert.Equal(t, "r1", id)

	stats := pub.Stats()
	assert.Equal(t, int64(2), stats.Published)
	assert.Equal(t, int64(0), stats.Failed)
}

func TestSubscriberStartWithoutHandlers(t *testing.T) {
	client := newTestClient(t)
	sub := NewSubscriber(client, nil, nil)
	assert.Error(t, sub.Start(context.Background()))
}

func TestSubscriberDispatchesOnlyRegisteredTables(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := newTestClient(t)
	pub := NewPublisher(client, "instance-a", nil)
	sub := NewSubscriber(client, nil, nil)

	var mu sync.Mutex
	var tables []string
	sub.On(domain.TableSongs, func(event *domain.ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		tables = append(tables, event.Table)
		return nil
	})

	require.NoError(t, sub.Start(ctx))
	defer sub.Stop()
	time.Sleep(50 * time.Millisecond)

	// Only the songs channel is subscribed, so the requests event never
	// reaches the handler.
	require.NoError(t, pub.Publish(ctx, domain.TableRequests, domain.OpInsert, &domain.Request{ID: "r1"}))
	require.NoError(t, pub.Publish(ctx, domain.TableSongs, domain.OpInsert, &domain.Song{ID: "s1", Title: "One"}))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(tables)
		mu.Unlock()
		if n >= 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{domain.TableSongs}, tables)
}

func TestSubscriberRecoversAfterConnectionLoss(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	pub := NewPublisher(client, "instance-a", nil)
	sub := NewSubscriber(client, &SubscriberConfig{
		Backoff: &retry.Config{
			MaxAttempts: 3,
			InitialWait: 10 * time.Millisecond,
			MaxWait:     50 * time.Millisecond,
			Multiplier:  1.5,
		},
		HealthInterval: 20 * time.Millisecond,
	}, nil)

	var mu sync.Mutex
	var got []string
	sub.On(domain.TableRequests, func(event *domain.ChangeEvent) error {
		var req domain.Request
		if err := json.Unmarshal(event.Row, &req); err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		got = append(got, req.ID)
		return nil
	})

	var reconnects int32
	sub.OnReconnect(func(context.Context) {
		atomic.AddInt32(&reconnects, 1)
	})

	require.NoError(t, sub.Start(ctx))
	defer sub.Stop()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, pub.Publish(ctx, domain.TableRequests, domain.OpInsert, &domain.Request{ID: "r1"}))
	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})

	// Sever the transport. The health ping notices the dead subscription
	// and the loop starts reconnecting.
	mr.Close()
	waitUntil(t, func() bool { return sub.Stats().Reconnects >= 1 })
	assert.Zero(t, atomic.LoadInt32(&reconnects))

	require.NoError(t, mr.Restart())
	waitUntil(t, func() bool { return atomic.LoadInt32(&reconnects) >= 1 })

	// The re-established subscription delivers again.
	require.NoError(t, pub.Publish(ctx, domain.TableRequests, domain.OpInsert, &domain.Request{ID: "r2"}))
	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2 && got[1] == "r2"
	})
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestSubscriberStopIsIdempotent(t *testing.T) {
	client := newTestClient(t)
	sub := NewSubscriber(client, nil, nil)
	sub.On(domain.TableRequests, func(*domain.ChangeEvent) error { return nil })

	require.NoError(t, sub.Start(context.Background()))
	sub.Stop()
	sub.Stop()
}
