/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-10 17:01:17
 * @FilePath: \paper-portal\backend\internal\infra\ratelimit\limiter.go
 * @LastEditTime: 2025-11-04 11:18:40
 */
package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AllowResult 描述限流请求的结果。
type AllowResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Remaining  int
}

// Limiter 定义固定窗口限流器的通用能力。
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (AllowResult, error)
}

// ClickKey 返回用户点击上报使用的限流 key。
func ClickKey(userID uint) string {
	return "clicks:" + strconv.FormatUint(uint64(userID), 10)
}

// unlimited 表示未启用限流时的放行结果。
var unlimited = AllowResult{Allowed: true, Remaining: -1}

// RedisLimiter 使用 Redis INCR + EXPIRE 实现固定窗口计数，多实例部署时共享计数。
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter 根据 Redis 客户端构造限流器，prefix 为空时使用 "ratelimit"。
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{client: client, prefix: prefix}
}

// Allow 计数加一并刷新过期时间，超过 limit 时返回剩余等待时间。
func (r *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (AllowResult, error) {
	if limit <= 0 || r == nil || r.client == nil {
		return unlimited, nil
	}
	if window <= 0 {
		window = time.Minute
	}

	namespaced := r.prefix + ":" + key
	pipe := r.client.TxPipeline()
	counter := pipe.Incr(ctx, namespaced)
	pipe.Expire(ctx, namespaced, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return AllowResult{}, err
	}

	count := int(counter.Val())
	if count <= limit {
		return AllowResult{Allowed: true, Remaining: limit - count}, nil
	}

	ttl, err := r.client.TTL(ctx, namespaced).Result()
	if err != nil {
		return AllowResult{}, err
	}
	if ttl < 0 {
		ttl = window
	}
	return AllowResult{Allowed: false, RetryAfter: ttl}, nil
}

// MemoryLimiter 是 Redis 不可用时的单进程替代方案。
type MemoryLimiter struct {
	mu    sync.Mutex
	now   func() time.Time
	store map[string]bucket
}

type bucket struct {
	count   int
	expires time.Time
}

// NewMemoryLimiter 构建内存版限流器；now 为 nil 时使用 time.Now。
func NewMemoryLimiter(now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{now: now, store: make(map[string]bucket)}
}

// Allow 以内存 map 模拟 Redis 的固定窗口计数。
func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, win time.Duration) (AllowResult, error) {
	if limit <= 0 || m == nil {
		return unlimited, nil
	}
	if win <= 0 {
		win = time.Minute
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	current, ok := m.store[key]
	if !ok || !now.Before(current.expires) {
		current = bucket{expires: now.Add(win)}
	}
	current.count++
	m.store[key] = current

	if current.count > limit {
		return AllowResult{Allowed: false, RetryAfter: current.expires.Sub(now)}, nil
	}
	return AllowResult{Allowed: true, Remaining: limit - current.count}, nil
}
