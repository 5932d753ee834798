package cache

import (
	"context"
	"time"
)

// Cache is the subset of key-value operations the forum relies on:
// profile caching, rate-limit counters and notification fan-out.
type Cache interface {
	BasicOps
	PubSubOps

	// Ping verifies the cache connection is alive
	Ping(ctx context.Context) error

	// Close closes the cache connection
	Close() error
}

// BasicOps defines basic key-value operations
type BasicOps interface {
	// Get returns "" with a nil error when the key is missing
	Get(ctx context.Context, key string) (string, error)

	// Set stores a key-value pair; a zero ttl never expires
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// SetNX sets the value only if the key does not exist
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)

	Del(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// TTL returns the remaining time to live of a key, negative when unset or missing
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// PubSubOps broadcasts payloads to every subscriber of a channel.
type PubSubOps interface {
	Publish(ctx context.Context, channel string, payload string) error

	// Subscribe delivers payloads until ctx is done, then closes the returned channel.
	Subscribe(ctx context.Context, channel string) (<-chan string, error)
}
