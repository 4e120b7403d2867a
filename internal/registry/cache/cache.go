// Package cache provides a Redis-backed cache of registry trust status.
// It exists so the blocked-client policy can still be enforced while the
// primary store is unavailable; it is never consulted on the happy path.
package cache

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"memgate/internal/registry/models"
	platformredis "memgate/internal/platform/redis"
)

const keyPrefix = "memgate:client-status:"

// StatusCache caches identifier→status with a TTL. Entries are written on
// every successful upsert and transition, so staleness is bounded by the
// TTL plus the time since the client was last seen.
type StatusCache struct {
	client *platformredis.Client
	ttl    time.Duration
}

func New(client *platformredis.Client, ttl time.Duration) *StatusCache {
	return &StatusCache{client: client, ttl: ttl}
}

// SetStatus records the current status. Best effort: callers count and log
// failures, never propagate them.
func (c *StatusCache) SetStatus(ctx context.Context, identifier string, status models.Status) error {
	return c.client.Set(ctx, keyPrefix+identifier, string(status), c.ttl).Err()
}

// GetStatus returns the cached status and whether one was present.
func (c *StatusCache) GetStatus(ctx context.Context, identifier string) (models.Status, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+identifier).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return models.Status(val), true, nil
}
