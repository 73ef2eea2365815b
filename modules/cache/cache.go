// Package cache provides a Redis-backed cache for the online-users read
// path, following the cache-aside pattern. Presence changes invalidate the
// cached list.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	domain "github.com/example/realtime-chat/domain/chat"
)

const onlineUsersKey = "chat:online_users"

// Loader fetches the online users from the source of truth on a cache miss.
type Loader func(ctx context.Context) ([]domain.User, error)

// Cache caches the online-users list in Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// New creates a cache over an existing Redis client.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
	}
}

// OnlineUsers returns the cached online-users list, loading and caching it
// on a miss. Concurrent misses are collapsed into a single load.
func (c *Cache) OnlineUsers(ctx context.Context, load Loader) ([]domain.User, error) {
	data, err := c.client.Get(ctx, onlineUsersKey).Bytes()
	if err == nil {
		var users []domain.User
		if err := json.Unmarshal(data, &users); err == nil {
			return users, nil
		}
		// Corrupt entry: fall through to reload.
	} else if err != redis.Nil {
		return nil, fmt.Errorf("cache get error: %w", err)
	}

	result, err, _ := c.group.Do(onlineUsersKey, func() (any, error) {
		users, err := load(ctx)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(users)
		if err != nil {
			return nil, fmt.Errorf("cache marshal error: %w", err)
		}
		if err := c.client.Set(ctx, onlineUsersKey, data, c.ttl).Err(); err != nil {
			return nil, fmt.Errorf("cache set error: %w", err)
		}
		return users, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.User), nil
}

// Invalidate drops the cached online-users list.
func (c *Cache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, onlineUsersKey).Err(); err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

// Ping checks if the Redis connection is healthy.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
