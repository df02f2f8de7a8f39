package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCooldown = time.Minute

// Cooldown suppresses repeats of an action per key for a fixed TTL.
// Key format: cooldown:<purpose>:<email>
type Cooldown struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCooldown(client *redis.Client, ttl time.Duration) *Cooldown {
	if ttl <= 0 {
		ttl = defaultCooldown
	}
	return &Cooldown{client: client, ttl: ttl}
}

// Acquire claims key for the cooldown period. It returns false while an
// earlier claim is still live.
func (c *Cooldown) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := c.client.SetNX(ctx, "cooldown:"+key, "1", c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cooldown: %w", err)
	}
	return ok, nil
}
