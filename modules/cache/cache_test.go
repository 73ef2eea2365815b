package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	domain "github.com/example/realtime-chat/domain/chat"
)

// Unit tests require Redis running on localhost:6379; they are skipped
// otherwise.
const testRedisAddr = "localhost:6379"

func setupTestCache(t *testing.T) *Cache {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: testRedisAddr,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	client.Del(ctx, onlineUsersKey)
	t.Cleanup(func() {
		client.Del(context.Background(), onlineUsersKey)
		client.Close()
	})

	return New(client, 5*time.Minute)
}

func TestCache_OnlineUsersMissAndHit(t *testing.T) {
	ctx := context.Background()
	c := setupTestCache(t)

	loads := 0
	load := func(ctx context.Context) ([]domain.User, error) {
		loads++
		return []domain.User{{UserID: "u1", UserName: "alice", Online: true}}, nil
	}

	// Miss: the loader runs and the result is cached.
	users, err := c.OnlineUsers(ctx, load)
	if err != nil {
		t.Fatalf("OnlineUsers() unexpected error: %v", err)
	}
	if len(users) != 1 || users[0].UserID != "u1" {
		t.Errorf("OnlineUsers() = %v, want [u1]", users)
	}
	if loads != 1 {
		t.Fatalf("loader ran %d times, want 1", loads)
	}

	// Hit: served from Redis, the loader does not run again.
	if _, err := c.OnlineUsers(ctx, load); err != nil {
		t.Fatalf("OnlineUsers() unexpected error: %v", err)
	}
	if loads != 1 {
		t.Errorf("loader ran %d times after cache hit, want 1", loads)
	}
}

func TestCache_OnlineUsersLoaderError(t *testing.T) {
	ctx := context.Background()
	c := setupTestCache(t)

	wantErr := errors.New("store down")
	_, err := c.OnlineUsers(ctx, func(ctx context.Context) ([]domain.User, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("OnlineUsers() error = %v, want %v", err, wantErr)
	}
}

func TestCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	c := setupTestCache(t)

	loads := 0
	load := func(ctx context.Context) ([]domain.User, error) {
		loads++
		return []domain.User{}, nil
	}

	if _, err := c.OnlineUsers(ctx, load); err != nil {
		t.Fatalf("OnlineUsers() unexpected error: %v", err)
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate() unexpected error: %v", err)
	}
	if _, err := c.OnlineUsers(ctx, load); err != nil {
		t.Fatalf("OnlineUsers() unexpected error: %v", err)
	}
	if loads != 2 {
		t.Errorf("loader ran %d times across invalidation, want 2", loads)
	}
}
