package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/resize.cheap/internal/metrics"
	"github.com/redis/go-redis/v9"
)

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// RedisRateLimiter implements a sliding window rate limiter using Redis
type RedisRateLimiter struct {
	client redis.UniversalClient
	rate   int
	window time.Duration
	prefix string
}

func NewRedisRateLimiter(client redis.UniversalClient, rate int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		rate:   rate,
		window: window,
		prefix: "resize:ratelimit:",
	}
}

// Allow records a hit for key and reports whether it is within the window
// budget. The error is non-nil when Redis could not be reached.
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now().UnixNano()
	windowStart := now - int64(rl.window)
	redisKey := rl.prefix + key

	pipe := rl.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now), Member: now})
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return countCmd.Val() <= int64(rl.rate), nil
}

// MemoryRateLimiter is a fixed-window counter per key.
type MemoryRateLimiter struct {
	rate    int
	window  time.Duration
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

type memoryWindow struct {
	start time.Time
	count int
}

func NewMemoryRateLimiter(rate int, window time.Duration) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		rate:    rate,
		window:  window,
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

func (rl *MemoryRateLimiter) Allow(_ context.Context, key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.window {
		rl.windows[key] = &memoryWindow{start: now, count: 1}
		rl.sweep(now)
		return rl.rate > 0
	}

	w.count++
	return w.count <= rl.rate
}

// sweep drops windows that ended more than one window ago. Callers hold mu.
func (rl *MemoryRateLimiter) sweep(now time.Time) {
	for key, w := range rl.windows {
		if now.Sub(w.start) >= 2*rl.window {
			delete(rl.windows, key)
		}
	}
}

// HybridRateLimiter uses Redis when it answers and the in-memory limiter
// when it does not.
type HybridRateLimiter struct {
	redis    *RedisRateLimiter
	inMemory *MemoryRateLimiter
}

func NewHybridRateLimiter(client redis.UniversalClient, rate int, window time.Duration) *HybridRateLimiter {
	hl := &HybridRateLimiter{inMemory: NewMemoryRateLimiter(rate, window)}
	if client != nil {
		hl.redis = NewRedisRateLimiter(client, rate, window)
	}
	return hl
}

func (hl *HybridRateLimiter) Allow(ctx context.Context, key string) bool {
	if hl.redis != nil {
		allowed, err := hl.redis.Allow(ctx, key)
		if err == nil {
			if !allowed {
				metrics.RecordRateLimitHit("redis")
			}
			return allowed
		}
	}

	allowed := hl.inMemory.Allow(ctx, key)
	if !allowed {
		metrics.RecordRateLimitHit("memory")
	}
	return allowed
}
