package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"stackit/internal/common/mq"
	"stackit/internal/forum/model"
)

// EventPublisher receives workflow events after their transaction commits.
type EventPublisher interface {
	PublishModerationEvent(ctx context.Context, event model.ModerationEvent) error
}

// NotificationSink pushes a stored notification to connected clients.
type NotificationSink interface {
	Deliver(ctx context.Context, n model.Notification) error
}

const (
	headerEventType = "event_type"
	headerQuestion  = "question_id"
)

// ModerationEventPublisher writes moderation events to a message queue topic.
type ModerationEventPublisher struct {
	queue mq.Producer
	topic string
}

// NewModerationEventPublisher creates a publisher for topic.
func NewModerationEventPublisher(queue mq.Producer, topic string) *ModerationEventPublisher {
	return &ModerationEventPublisher{queue: queue, topic: topic}
}

func (p *ModerationEventPublisher) PublishModerationEvent(ctx context.Context, event model.ModerationEvent) error {
	if p == nil || p.queue == nil {
		return errors.New("moderation publisher is nil")
	}
	if p.topic == "" {
		return errors.New("moderation topic is empty")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal moderation event failed: %w", err)
	}
	message := mq.NewMessage(payload)
	message.ID = event.EventID
	message.SetHeader(headerEventType, string(event.Type))
	message.SetHeader(headerQuestion, event.QuestionID)
	if err := p.queue.Publish(ctx, p.topic, message); err != nil {
		return fmt.Errorf("publish moderation event failed: %w", err)
	}
	return nil
}

// DecodeModerationEvent parses a message produced by ModerationEventPublisher.
func DecodeModerationEvent(m *mq.Message) (model.ModerationEvent, error) {
	var event model.ModerationEvent
	if m == nil {
		return event, errors.New("message is nil")
	}
	if err := json.Unmarshal(m.Body, &event); err != nil {
		return event, fmt.Errorf("decode moderation event failed: %w", err)
	}
	return event, nil
}
