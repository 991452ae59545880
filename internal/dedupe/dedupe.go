// Package dedupe claims webhook delivery ids so a redelivered event is not
// emailed twice. It is opt-in; the default Noop claims every id.
package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Claimer records delivery ids that are being or have been handled.
type Claimer interface {
	// Claim returns true when id was not claimed before and is now owned by
	// the caller.
	Claim(ctx context.Context, id string) (bool, error)
	// Release drops a claim so a later redelivery can retry.
	Release(ctx context.Context, id string) error
}

// Noop claims everything. Redeliveries are processed again.
type Noop struct{}

// Claim implements Claimer.
func (Noop) Claim(context.Context, string) (bool, error) { return true, nil }

// Release implements Claimer.
func (Noop) Release(context.Context, string) error { return nil }

const keyPrefix = "inboxmailer:webhook:"

// RedisClaimer stores claims as keys with a TTL.
type RedisClaimer struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClaimer parses a redis:// URL and returns a claimer using it.
func NewRedisClaimer(redisURL string, ttl time.Duration) (*RedisClaimer, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	return NewRedisClaimerWithClient(redis.NewClient(opts), ttl), nil
}

// NewRedisClaimerWithClient wraps an existing client.
func NewRedisClaimerWithClient(client *redis.Client, ttl time.Duration) *RedisClaimer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisClaimer{client: client, ttl: ttl}
}

// Ping tests the Redis connection.
func (c *RedisClaimer) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Claim implements Claimer with SET NX.
func (c *RedisClaimer) Claim(ctx context.Context, id string) (bool, error) {
	ok, err := c.client.SetNX(ctx, keyPrefix+id, time.Now().UTC().Format(time.RFC3339), c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claiming delivery %q: %w", id, err)
	}
	return ok, nil
}

// Release implements Claimer.
func (c *RedisClaimer) Release(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("releasing delivery %q: %w", id, err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisClaimer) Close() error {
	return c.client.Close()
}
