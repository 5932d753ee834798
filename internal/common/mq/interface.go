package mq

import (
	"context"
	"time"
)

// MessageQueue combines publishing and consuming over named topics.
type MessageQueue interface {
	Producer
	Consumer

	Ping(ctx context.Context) error
	Close() error
}

// Producer publishes messages to topics.
type Producer interface {
	Publish(ctx context.Context, topic string, message *Message) error
}

// Consumer dispatches topic messages to handlers once started.
type Consumer interface {
	// Subscribe registers handler for topic; consumption begins on Start.
	Subscribe(ctx context.Context, topic string, handler HandlerFunc, opts *SubscribeOptions) error
	Start() error
	Stop() error
}

// Message represents a message in the queue
type Message struct {
	ID         string            `json:"id"`
	Body       []byte            `json:"body"`
	Headers    map[string]string `json:"headers"`
	Timestamp  time.Time         `json:"timestamp"`
	RetryCount int               `json:"retry_count"`
	MaxRetries int               `json:"max_retries"`
}

// HandlerFunc processes one message; a non-nil error schedules a retry.
type HandlerFunc func(ctx context.Context, message *Message) error

// SubscribeOptions defines options for subscribing to a topic
type SubscribeOptions struct {
	ConsumerGroup   string
	Concurrency     int
	MaxRetries      int
	RetryDelay      time.Duration
	DeadLetterTopic string
}

// SetDefaults sets default values for subscribe options
func (o *SubscribeOptions) SetDefaults() {
	if o.Concurrency == 0 {
		o.Concurrency = 1
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = time.Second
	}
}

// NewMessage creates a new message with the given body
func NewMessage(body []byte) *Message {
	return &Message{
		Body:       body,
		Headers:    make(map[string]string),
		Timestamp:  time.Now(),
		MaxRetries: 3,
	}
}

// SetHeader sets a header value
func (m *Message) SetHeader(key, value string) {
	if m.Headers == nil {
		m.Headers = make(map[string]string)
	}
	m.Headers[key] = value
}

// GetHeader retrieves a header value
func (m *Message) GetHeader(key string) (string, bool) {
	if m.Headers == nil {
		return "", false
	}
	val, ok := m.Headers[key]
	return val, ok
}

// deliver runs handler with the retry budget and reports whether the message should be dead-lettered.
func deliver(ctx context.Context, handler HandlerFunc, m *Message, opts SubscribeOptions) bool {
	if m.MaxRetries == 0 {
		m.MaxRetries = opts.MaxRetries
	}
	for {
		if err := handler(ctx, m); err == nil {
			return false
		}
		m.RetryCount++
		if m.RetryCount > m.MaxRetries {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(opts.RetryDelay):
		}
	}
}
