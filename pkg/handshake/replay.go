package handshake

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultReplayTTL is how long a claimed code is remembered
const DefaultReplayTTL = 10 * time.Minute

// ReplayGuard remembers authorization codes that were already redeemed
type ReplayGuard interface {
	// Claim reports whether code is seen for the first time
	Claim(ctx context.Context, code string) (bool, error)
}

// codeDigest keeps raw codes out of the guard's storage
func codeDigest(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// RedisReplayGuard shares claimed codes across instances with SETNX
type RedisReplayGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisReplayGuard creates a Redis-backed guard
func NewRedisReplayGuard(client *redis.Client, ttl time.Duration) *RedisReplayGuard {
	if ttl <= 0 {
		ttl = DefaultReplayTTL
	}
	return &RedisReplayGuard{client: client, ttl: ttl}
}

// Claim implements ReplayGuard
func (g *RedisReplayGuard) Claim(ctx context.Context, code string) (bool, error) {
	first, err := g.client.SetNX(ctx, "handshake:code:"+codeDigest(code), 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim authorization code: %w", err)
	}
	return first, nil
}

// MemoryReplayGuard keeps claimed codes in a bounded in-process LRU. It
// only protects a single instance.
type MemoryReplayGuard struct {
	mu   sync.Mutex
	seen *expirable.LRU[string, struct{}]
}

// NewMemoryReplayGuard creates an in-memory guard holding up to size codes
func NewMemoryReplayGuard(size int, ttl time.Duration) *MemoryReplayGuard {
	if size <= 0 {
		size = 10000
	}
	if ttl <= 0 {
		ttl = DefaultReplayTTL
	}
	return &MemoryReplayGuard{seen: expirable.NewLRU[string, struct{}](size, nil, ttl)}
}

// Claim implements ReplayGuard
func (g *MemoryReplayGuard) Claim(ctx context.Context, code string) (bool, error) {
	key := codeDigest(code)

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.seen.Contains(key) {
		return false, nil
	}
	g.seen.Add(key, struct{}{})
	return true, nil
}
