// Package cooldown provides short-lived claims that serialize OTP sends for
// one verification record across processes. A claim is a TTL'd key, not a
// held lock: it expires on its own if the holder dies.
package cooldown

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "otp:send:"

// Gate grants at most one live claim per key.
type Gate interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisGate claims keys with SET NX PX.
type RedisGate struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisGate {
	return &RedisGate{client: client}
}

func (g *RedisGate) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return g.client.SetNX(ctx, keyPrefix+key, "1", ttl).Result()
}

func (g *RedisGate) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, keyPrefix+key).Err()
}

// MemoryGate is the single-process equivalent of RedisGate.
type MemoryGate struct {
	mu     sync.Mutex
	claims map[string]time.Time
	now    func() time.Time
}

func NewMemory() *MemoryGate {
	return &MemoryGate{claims: make(map[string]time.Time), now: time.Now}
}

func (g *MemoryGate) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if exp, ok := g.claims[key]; ok && now.Before(exp) {
		return false, nil
	}
	g.claims[key] = now.Add(ttl)
	return true, nil
}

func (g *MemoryGate) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claims, key)
	return nil
}

// Noop grants every claim. Used when no shared store is configured; the
// evidence-based cooldown still applies.
type Noop struct{}

func (Noop) Claim(context.Context, string, time.Duration) (bool, error) { return true, nil }
func (Noop) Release(context.Context, string) error                      { return nil }
