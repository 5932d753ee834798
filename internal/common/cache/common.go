package cache

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
)

// NullCacheValue marks a cached miss so repeated lookups of absent keys skip the source.
const NullCacheValue = "$NULL$"

// GetWithCached implements cache-aside with null value caching.
// Cache read and write failures fall through to fn; they never fail the call.
func GetWithCached[T any](
	ctx context.Context,
	cache Cache,
	key string,
	ttl time.Duration,
	emptyTTL time.Duration,
	isEmpty func(T) bool,
	marshal func(T) (string, error),
	unmarshal func(string) (T, error),
	fn func(context.Context) (T, error),
) (T, error) {
	var zero T

	if cached, err := cache.Get(ctx, key); err == nil && cached != "" {
		if cached == NullCacheValue {
			return zero, nil
		}
		if result, err := unmarshal(cached); err == nil {
			return result, nil
		}
	}

	data, err := fn(ctx)
	if err != nil {
		return zero, err
	}

	if isEmpty(data) {
		_ = cache.Set(ctx, key, NullCacheValue, emptyTTL)
		return zero, nil
	}

	if encoded, err := marshal(data); err == nil {
		_ = cache.Set(ctx, key, encoded, JitterTTL(ttl))
	}
	return data, nil
}

// JitterTTL shortens ttl by up to 10% so that entries written together do not expire together.
func JitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	maxJitter := int64(ttl / 10)
	if maxJitter <= 0 {
		return ttl
	}
	n, err := rand.Int(rand.Reader, big.NewInt(maxJitter+1))
	if err != nil {
		return ttl
	}
	return ttl - time.Duration(n.Int64())
}
