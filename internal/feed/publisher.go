// Package feed carries row-level change events between the store and every
// connected client over Redis Pub/Sub.
//
// One channel per table (feed:requests, feed:songs, feed:set_lists).
// Delivery is at least once; consumers apply events idempotently. The
// subscriber re-establishes its subscription after transport loss, and
// consumers are expected to re-fetch a full snapshot before trusting the
// stream again.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/encore-live/server/internal/domain"
	"github.com/encore-live/server/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "feed:"

// ChannelFor returns the feed channel name for a table.
func ChannelFor(table string) string {
	return channelPrefix + table
}

// Publisher writes change events to the per-table channels.
type Publisher struct {
	redis      *redis.Client
	instanceID string
	log        logger.Logger

	stats PublisherStats
}

// PublisherStats counts publish outcomes.
type PublisherStats struct {
	Published int64 `json:"published"`
	Failed    int64 `json:"failed"`
}

// NewPublisher creates a publisher. instanceID tags outgoing events so a
// process can recognize its own writes coming back on the feed.
func NewPublisher(redisClient *redis.Client, instanceID string, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.Global()
	}
	return &Publisher{
		redis:      redisClient,
		instanceID: instanceID,
		log:        log,
	}
}

// Publish sends one row-level event for a table. The row payload is the full
// entity for inserts and updates; deletes carry only the id.
func (p *Publisher) Publish(ctx context.Context, table string, op domain.ChangeOp, row interface{}) error {
	rawRow, err := json.Marshal(row)
	if err != nil {
		atomic.AddInt64(&p.stats.Failed, 1)
		return fmt.Errorf("failed to marshal row: %w", err)
	}

	event := &domain.ChangeEvent{
		EventID:    uuid.New().String(),
		Table:      table,
		Op:         op,
		Row:        rawRow,
		OccurredAt: time.Now(),
		InstanceID: p.instanceID,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		atomic.AddInt64(&p.stats.Failed, 1)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.redis.Publish(ctx, ChannelFor(table), payload).Err(); err != nil {
		atomic.AddInt64(&p.stats.Failed, 1)
		return fmt.Errorf("failed to publish to %s: %w", ChannelFor(table), err)
	}

	atomic.AddInt64(&p.stats.Published, 1)
	p.log.Debug("published change event",
		logger.String("table", table),
		logger.String("op", string(op)),
		logger.String("event_id", event.EventID),
	)
	return nil
}

// PublishDelete sends a delete event carrying only the row id.
func (p *Publisher) PublishDelete(ctx context.Context, table, id string) error {
	return p.Publish(ctx, table, domain.OpDelete, map[string]string{"id": id})
}

// Stats returns a snapshot of publish counters.
func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{
		Published: atomic.LoadInt64(&p.stats.Published),
		Failed:    atomic.LoadInt64(&p.stats.Failed),
	}
}

// Ping verifies the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.redis.Ping(ctx).Err()
}
