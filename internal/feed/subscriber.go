package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/encore-live/server/internal/domain"
	"github.com/encore-live/server/pkg/logger"
	"github.com/encore-live/server/pkg/retry"

	"github.com/redis/go-redis/v9"
)

// EventHandler consumes one change event from the feed.
type EventHandler func(event *domain.ChangeEvent) error

// ReconnectHandler is invoked after the subscription is re-established
// following a transport loss. Consumers use it to re-fetch a snapshot and
// close any gap in the stream.
type ReconnectHandler func(ctx context.Context)

// Subscriber listens on per-table feed channels and dispatches events to
// registered handlers, reconnecting with bounded exponential backoff when
// the transport drops.
type Subscriber struct {
	redis    *redis.Client
	log      logger.Logger
	backoff  *retry.Config
	maxRecon int
	health   time.Duration

	mu          sync.RWMutex
	handlers    map[string][]EventHandler // table -> handlers
	onReconnect []ReconnectHandler

	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats SubscriberStats
}

// SubscriberStats counts delivery outcomes.
type SubscriberStats struct {
	Received   int64 `json:"received"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
	Reconnects int64 `json:"reconnects"`
}

// SubscriberConfig holds subscriber tuning.
type SubscriberConfig struct {
	// Backoff between reconnect attempts; DefaultConfig when nil.
	Backoff *retry.Config
	// MaxReconnects bounds consecutive failed reconnects before the
	// subscriber gives up. Zero means unbounded.
	MaxReconnects int
	// HealthInterval is how often the live subscription is pinged. A failed
	// ping counts as a subscription loss: the client would otherwise repair
	// the connection silently, and events published during the outage would
	// never be recovered. Zero means 30s.
	HealthInterval time.Duration
}

// NewSubscriber creates a subscriber.
func NewSubscriber(redisClient *redis.Client, cfg *SubscriberConfig, log logger.Logger) *Subscriber {
	if cfg == nil {
		cfg = &SubscriberConfig{}
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = retry.DefaultConfig()
	}
	if log == nil {
		log = logger.Global()
	}
	health := cfg.HealthInterval
	if health <= 0 {
		health = 30 * time.Second
	}
	return &Subscriber{
		redis:    redisClient,
		log:      log,
		backoff:  backoff,
		maxRecon: cfg.MaxReconnects,
		health:   health,
		handlers: make(map[string][]EventHandler),
	}
}

// On registers a handler for a table's events. Must be called before Start.
func (s *Subscriber) On(table string, handler EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[table] = append(s.handlers[table], handler)
}

// OnReconnect registers a callback fired after each re-established
// subscription (not the initial one).
func (s *Subscriber) OnReconnect(handler ReconnectHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReconnect = append(s.onReconnect, handler)
}

// Start begins receiving events. It returns once the subscription loop is
// running; Stop or ctx cancellation shuts it down.
func (s *Subscriber) Start(ctx context.Context) error {
	s.mu.RLock()
	if len(s.handlers) == 0 {
		s.mu.RUnlock()
		return fmt.Errorf("no handlers registered")
	}
	channels := make([]string, 0, len(s.handlers))
	for table := range s.handlers {
		channels = append(channels, ChannelFor(table))
	}
	s.mu.RUnlock()

	subCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.subscribeLoop(subCtx, channels)
	return nil
}

// subscribeLoop keeps one subscription alive, reconnecting after errors.
func (s *Subscriber) subscribeLoop(ctx context.Context, channels []string) {
	defer s.wg.Done()

	attempts := 0
	first := true
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pubsub := s.redis.Subscribe(ctx, channels...)
		// Receive confirms the subscription before we trust it.
		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			if ctx.Err() != nil {
				return
			}
			attempts++
			if s.maxRecon > 0 && attempts > s.maxRecon {
				s.log.Error("feed subscriber giving up", logger.Int("attempts", attempts-1))
				return
			}
			atomic.AddInt64(&s.stats.Reconnects, 1)
			s.sleep(ctx, attempts)
			continue
		}

		if !first {
			s.notifyReconnect(ctx)
		}
		first = false
		attempts = 0

		s.consume(ctx, pubsub)
		pubsub.Close()

		if ctx.Err() != nil {
			return
		}
		attempts++
		if s.maxRecon > 0 && attempts > s.maxRecon {
			s.log.Error("feed subscriber giving up", logger.Int("attempts", attempts-1))
			return
		}
		atomic.AddInt64(&s.stats.Reconnects, 1)
		s.log.Warn("feed subscription lost, reconnecting",
			logger.Int("attempt", attempts),
			logger.Duration("backoff", s.backoff.Backoff(attempts)),
		)
		s.sleep(ctx, attempts)
	}
}

func (s *Subscriber) sleep(ctx context.Context, attempt int) {
	timer := time.NewTimer(s.backoff.Backoff(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (s *Subscriber) notifyReconnect(ctx context.Context) {
	s.mu.RLock()
	handlers := make([]ReconnectHandler, len(s.onReconnect))
	copy(handlers, s.onReconnect)
	s.mu.RUnlock()
	for _, h := range handlers {
		h(ctx)
	}
}

// consume drains the channel until the subscription is lost or the context
// ends. Loss is detected by pinging the subscription: the client repairs a
// broken connection on its own, which would hide the gap in the stream, so a
// failed ping tears the subscription down and forces the reconnect path.
func (s *Subscriber) consume(ctx context.Context, pubsub *redis.PubSub) {
	ch := pubsub.Channel()
	ticker := time.NewTicker(s.health)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := pubsub.Ping(ctx); err != nil {
				if ctx.Err() == nil {
					s.log.Warn("feed subscription ping failed", logger.Error(err))
				}
				return
			}
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg == nil {
				continue
			}
			s.handleMessage(msg)
		}
	}
}

func (s *Subscriber) handleMessage(msg *redis.Message) {
	atomic.AddInt64(&s.stats.Received, 1)

	var event domain.ChangeEvent
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		atomic.AddInt64(&s.stats.Failed, 1)
		s.log.Warn("dropping malformed feed event", logger.Error(err), logger.String("channel", msg.Channel))
		return
	}

	s.mu.RLock()
	handlers := s.handlers[event.Table]
	s.mu.RUnlock()

	failed := false
	for _, handler := range handlers {
		if err := handler(&event); err != nil {
			failed = true
			s.log.Warn("feed handler failed",
				logger.Error(err),
				logger.String("table", event.Table),
				logger.String("op", string(event.Op)),
				logger.String("event_id", event.EventID),
			)
		}
	}
	if failed {
		atomic.AddInt64(&s.stats.Failed, 1)
		return
	}
	atomic.AddInt64(&s.stats.Processed, 1)
}

// Stop shuts the subscriber down and waits for the loop to exit. Safe to
// call before Start and safe to call twice.
func (s *Subscriber) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Stats returns a snapshot of delivery counters.
func (s *Subscriber) Stats() SubscriberStats {
	return SubscriberStats{
		Received:   atomic.LoadInt64(&s.stats.Received),
		Processed:  atomic.LoadInt64(&s.stats.Processed),
		Failed:     atomic.LoadInt64(&s.stats.Failed),
		Reconnects: atomic.LoadInt64(&s.stats.Reconnects),
	}
}
