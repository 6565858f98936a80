// Package limiter rate-limits write endpoints with Redis counters.
package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// atomicIncrExpire increments a counter and sets its TTL on the first
// increment in one script, avoiding the race between separate INCR and
// EXPIRE calls.
var atomicIncrExpire = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// RateLimiter enforces fixed-window limits backed by Redis.
type RateLimiter struct {
	client *redis.Client
}

// NewRateLimiter creates a rate limiter.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow reports whether one more request fits under the limit for key
// within the window.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	result, err := atomicIncrExpire.Run(ctx, rl.client, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return result <= limit, nil
}

// Reset clears the counter for a key.
func (rl *RateLimiter) Reset(ctx context.Context, key string) error {
	if err := rl.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to reset counter: %w", err)
	}
	return nil
}

// VoteLimiter caps how many vote attempts one user may make per window.
// Duplicate votes are already rejected by the commit protocol; this guard
// only keeps a misbehaving client from hammering the store.
type VoteLimiter struct {
	limiter *RateLimiter
	limit   int64
	window  time.Duration
}

// NewVoteLimiter creates a per-user vote limiter.
func NewVoteLimiter(client *redis.Client, limit int64, window time.Duration) *VoteLimiter {
	return &VoteLimiter{
		limiter: NewRateLimiter(client),
		limit:   limit,
		window:  window,
	}
}

// Allow reports whether the user may attempt another vote.
func (vl *VoteLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	key := fmt.Sprintf("ratelimit:vote:%s", userID)
	return vl.limiter.Allow(ctx, key, vl.limit, vl.window)
}
