package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisLimiterFixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRedisLimiter(client, "test")
	ctx := context.Background()
	key := ClickKey(7)

	for i := 0; i < 2; i++ {
		res, err := limiter.Allow(ctx, key, 2, time.Minute)
		if err != nil {
			t.Fatalf("allow #%d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request #%d should be allowed", i)
		}
	}

	res, err := limiter.Allow(ctx, key, 2, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if res.Allowed || res.RetryAfter <= 0 {
		t.Fatalf("expected third request to be limited with retry hint, got %+v", res)
	}
	if !mr.Exists("test:clicks:7") {
		t.Fatalf("expected namespaced counter key")
	}

	mr.FastForward(time.Minute + time.Second)
	res, err = limiter.Allow(ctx, key, 2, time.Minute)
	if err != nil {
		t.Fatalf("allow after window: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("expected counter to reset after window")
	}
}

func TestMemoryLimiter(t *testing.T) {
	now := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(func() time.Time { return now })
	ctx := context.Background()

	if res, _ := limiter.Allow(ctx, "k", 1, 30*time.Second); !res.Allowed {
		t.Fatalf("first request should pass")
	}
	res, _ := limiter.Allow(ctx, "k", 1, 30*time.Second)
	if res.Allowed || res.RetryAfter != 30*time.Second {
		t.Fatalf("expected limit with 30s retry, got %+v", res)
	}
	if other, _ := limiter.Allow(ctx, "other", 1, 30*time.Second); !other.Allowed {
		t.Fatalf("keys must be independent")
	}

	now = now.Add(30 * time.Second)
	if res, _ := limiter.Allow(ctx, "k", 1, 30*time.Second); !res.Allowed {
		t.Fatalf("expected new window to allow")
	}

	if res, _ := limiter.Allow(ctx, "k", 0, time.Second); !res.Allowed {
		t.Fatalf("limit 0 disables limiting")
	}
}
