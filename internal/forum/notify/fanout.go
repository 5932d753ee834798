package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"stackit/internal/common/cache"
	"stackit/internal/forum/model"
	"stackit/pkg/utils/logger"

	"go.uber.org/zap"
)

const DefaultChannel = "forum:notifications"

// RedisFanout relays notifications through a Redis channel so that a user
// connected to any instance receives pushes created on any other.
type RedisFanout struct {
	pubsub  cache.PubSubOps
	channel string
	hub     *Hub
}

// NewRedisFanout creates a fan-out publishing on channel and feeding hub.
func NewRedisFanout(pubsub cache.PubSubOps, channel string, hub *Hub) *RedisFanout {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisFanout{pubsub: pubsub, channel: channel, hub: hub}
}

// Deliver publishes n; the local hub receives it through Run like every other instance.
func (f *RedisFanout) Deliver(ctx context.Context, n model.Notification) error {
	if f.pubsub == nil {
		return errors.New("notification fan-out has no cache")
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification failed: %w", err)
	}
	if err := f.pubsub.Publish(ctx, f.channel, string(data)); err != nil {
		return fmt.Errorf("publish notification failed: %w", err)
	}
	return nil
}

// Run forwards channel payloads to the hub until ctx is done.
func (f *RedisFanout) Run(ctx context.Context) error {
	payloads, err := f.pubsub.Subscribe(ctx, f.channel)
	if err != nil {
		return err
	}
	for payload := range payloads {
		var n model.Notification
		if err := json.Unmarshal([]byte(payload), &n); err != nil {
			logger.Warn(ctx, "drop malformed notification payload", zap.Error(err))
			continue
		}
		f.hub.dispatch(n.UserID, []byte(payload))
	}
	return ctx.Err()
}
