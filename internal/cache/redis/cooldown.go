package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"polyarb/internal/domain"
)

// Cooldown implements domain.Cooldown using SET NX with a TTL. The first
// caller for a key within the window is allowed; repeat callers are refused
// until the key expires.
type Cooldown struct {
	rdb *redis.Client
}

// NewCooldown creates a Cooldown gate backed by the given Client.
func NewCooldown(c *Client) *Cooldown {
	return &Cooldown{rdb: c.Underlying()}
}

func cooldownKey(key string) string {
	return "cooldown:" + key
}

// Allow reports whether the key is outside its cooldown window, starting a
// new window when it is.
func (cd *Cooldown) Allow(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := cd.rdb.SetNX(ctx, cooldownKey(key), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: cooldown %s: %w", key, err)
	}
	return ok, nil
}

// Compile-time interface check.
var _ domain.Cooldown = (*Cooldown)(nil)
