package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/redis/go-redis/v9"

	"github.com/example/realtime-chat/events"
)

const defaultTTL = 30 * time.Second

// Module provides the online-users cache as an optional mono module. It is
// registered only when a Redis address is configured; the API falls back to
// the store when the module is absent.
type Module struct {
	redisAddr string
	client    *redis.Client
	cache     *Cache
}

// Compile-time interface checks.
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventConsumerModule = (*Module)(nil)
)

// NewModule creates a new cache module.
func NewModule(redisAddr string) *Module {
	return &Module{redisAddr: redisAddr}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "cache"
}

// Start connects to Redis.
func (m *Module) Start(ctx context.Context) error {
	m.client = redis.NewClient(&redis.Options{
		Addr:         m.redisAddr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := m.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	m.cache = New(m.client, defaultTTL)
	log.Printf("[cache] Connected to Redis at %s (TTL: %s)", m.redisAddr, defaultTTL)
	return nil
}

// Stop closes the Redis connection.
func (m *Module) Stop(_ context.Context) error {
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			return fmt.Errorf("failed to close Redis connection: %w", err)
		}
	}
	log.Println("[cache] Module stopped")
	return nil
}

// RegisterEventConsumers invalidates the cache on presence changes.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.PresenceChangedV1, m.handlePresenceChanged, m,
	); err != nil {
		return fmt.Errorf("failed to register PresenceChanged consumer: %w", err)
	}

	log.Println("[cache] Registered event consumers: PresenceChanged")
	return nil
}

func (m *Module) handlePresenceChanged(ctx context.Context, event events.PresenceChangedEvent, _ *mono.Msg) error {
	if err := m.cache.Invalidate(ctx); err != nil {
		log.Printf("[cache] Failed to invalidate online users after presence change for %s: %v", event.UserID, err)
	}
	return nil
}

// Cache returns the cache instance. Valid after Start.
func (m *Module) Cache() *Cache {
	return m.cache
}
