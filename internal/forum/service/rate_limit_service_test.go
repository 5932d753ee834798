package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"stackit/internal/common/cache"
	pkgerrors "stackit/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRateLimitServiceFixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	if err != nil {
		t.Fatalf("new redis cache: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRateLimitService(client, time.Minute, time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.Allow(ctx, "rl:ip:1.2.3.4", 3, 0); err != nil {
			t.Fatalf("request %d should pass: %v", i+1, err)
		}
	}
	err = limiter.Allow(ctx, "rl:ip:1.2.3.4", 3, 0)
	if !pkgerrors.Is(err, pkgerrors.TooManyRequests) {
		t.Fatalf("expected too many requests, got %v", err)
	}
	if err := limiter.Allow(ctx, "rl:ip:5.6.7.8", 3, 0); err != nil {
		t.Fatalf("other key should pass: %v", err)
	}

	if ttl := mr.TTL("rl:ip:1.2.3.4"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("window ttl = %v", ttl)
	}
	mr.FastForward(time.Minute + time.Second)
	if err := limiter.Allow(ctx, "rl:ip:1.2.3.4", 3, 0); err != nil {
		t.Fatalf("new window should pass: %v", err)
	}
}

func TestRateLimitServiceWithoutCache(t *testing.T) {
	limiter := NewRateLimitService(nil, time.Minute, 0)
	err := limiter.Allow(context.Background(), "k", 1, time.Minute)
	if !pkgerrors.Is(err, pkgerrors.ServiceUnavailable) {
		t.Fatalf("expected service unavailable, got %v", err)
	}
}

func TestLocalRateLimiter(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewLocalRateLimiter()
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := limiter.Allow(ctx, "user_1", 2, time.Minute); err != nil {
			t.Fatalf("burst request %d should pass: %v", i+1, err)
		}
	}
	if err := limiter.Allow(ctx, "user_1", 2, time.Minute); !pkgerrors.Is(err, pkgerrors.TooManyRequests) {
		t.Fatalf("expected too many requests, got %v", err)
	}
	if err := limiter.Allow(ctx, "user_2", 2, time.Minute); err != nil {
		t.Fatalf("independent key should pass: %v", err)
	}

	now = now.Add(30 * time.Second)
	if err := limiter.Allow(ctx, "user_1", 2, time.Minute); err != nil {
		t.Fatalf("refilled token should pass: %v", err)
	}

	if err := limiter.Allow(ctx, "user_1", 0, time.Minute); err != nil {
		t.Fatalf("zero max disables the limit: %v", err)
	}
}

func TestLocalRateLimiterSweepsIdleKeys(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewLocalRateLimiter()
	limiter.now = func() time.Time { return now }
	for i := 0; i < localLimiterSweepSize; i++ {
		limiter.limiters[fmt.Sprintf("idle:%d", i)] = &localLimiter{lastSeen: now, window: time.Second}
	}

	now = now.Add(time.Minute)
	if err := limiter.Allow(context.Background(), "fresh", 1, time.Second); err != nil {
		t.Fatalf("allow: %v", err)
	}
	if len(limiter.limiters) != 1 {
		t.Fatalf("expected idle limiters to be swept, %d left", len(limiter.limiters))
	}
}
