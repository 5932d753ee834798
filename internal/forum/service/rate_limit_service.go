package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stackit/internal/common/cache"
	pkgerrors "stackit/pkg/errors"

	"golang.org/x/time/rate"
)

// RateLimiter admits at most max calls per key within window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, max int, window time.Duration) error
}

// RateLimitService enforces fixed-window limits using Redis so every instance
// shares the same counters.
type RateLimitService struct {
	cache        cache.BasicOps
	window       time.Duration
	redisTimeout time.Duration
}

func NewRateLimitService(cacheClient cache.BasicOps, window time.Duration, redisTimeout time.Duration) *RateLimitService {
	if redisTimeout <= 0 {
		redisTimeout = 100 * time.Millisecond
	}
	return &RateLimitService{cache: cacheClient, window: window, redisTimeout: redisTimeout}
}

func (s *RateLimitService) Allow(ctx context.Context, key string, max int, window time.Duration) error {
	if s.cache == nil {
		return pkgerrors.New(pkgerrors.ServiceUnavailable).WithMessage("rate limit cache is unavailable")
	}
	if max <= 0 {
		return nil
	}
	if window <= 0 {
		window = s.window
	}

	ctxCache, cancel := context.WithTimeout(ctx, s.redisTimeout)
	defer cancel()

	acquired, err := s.cache.SetNX(ctxCache, key, 1, window)
	if err != nil {
		return pkgerrors.Wrapf(err, pkgerrors.CacheError, "rate limit check failed")
	}
	var count int64
	if acquired {
		count = 1
	} else {
		count, err = s.cache.Incr(ctxCache, key)
		if err != nil {
			return pkgerrors.Wrapf(err, pkgerrors.CacheError, "rate limit check failed")
		}
		ttl, ttlErr := s.cache.TTL(ctxCache, key)
		if ttlErr == nil && ttl <= 0 {
			_ = s.cache.Expire(ctxCache, key, window)
		}
	}
	if int(count) > max {
		return pkgerrors.New(pkgerrors.TooManyRequests).WithMessage(fmt.Sprintf("rate limit exceeded for %s", key))
	}
	return nil
}

const localLimiterSweepSize = 10000

// LocalRateLimiter keeps a token bucket per key in process memory. It serves
// single-instance deployments that run without Redis.
type LocalRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*localLimiter
	now      func() time.Time
}

type localLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	window   time.Duration
}

func NewLocalRateLimiter() *LocalRateLimiter {
	return &LocalRateLimiter{limiters: make(map[string]*localLimiter), now: time.Now}
}

func (l *LocalRateLimiter) Allow(_ context.Context, key string, max int, window time.Duration) error {
	if max <= 0 || window <= 0 {
		return nil
	}
	now := l.now()

	l.mu.Lock()
	entry, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= localLimiterSweepSize {
			l.sweep(now)
		}
		entry = &localLimiter{
			limiter: rate.NewLimiter(rate.Every(window/time.Duration(max)), max),
			window:  window,
		}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	allowed := entry.limiter.AllowN(now, 1)
	l.mu.Unlock()

	if !allowed {
		return pkgerrors.New(pkgerrors.TooManyRequests).WithMessage(fmt.Sprintf("rate limit exceeded for %s", key))
	}
	return nil
}

// sweep drops limiters idle for longer than their window. Caller holds mu.
func (l *LocalRateLimiter) sweep(now time.Time) {
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > entry.window {
			delete(l.limiters, key)
		}
	}
}
