package mq

import (
	"context"
	"errors"
	"sync"
)

// MemoryQueue is an in-process MessageQueue for single-node deployments and tests.
// Each subscription receives every message published to its topic after Start.
type MemoryQueue struct {
	mu      sync.Mutex
	subs    map[string][]*memorySubscription
	started bool
	closed  bool
	wg      sync.WaitGroup
}

type memorySubscription struct {
	handler HandlerFunc
	opts    SubscribeOptions
	baseCtx context.Context
	ch      chan *Message
	cancel  context.CancelFunc
}

// NewMemoryQueue creates an empty in-process queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{subs: make(map[string][]*memorySubscription)}
}

// Publish enqueues a copy of message for every subscriber of topic.
// Publishing to a topic nobody listens on is a no-op.
func (q *MemoryQueue) Publish(ctx context.Context, topic string, message *Message) error {
	if message == nil {
		return errors.New("message is nil")
	}
	if topic == "" {
		return errors.New("topic is required")
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errors.New("message queue is closed")
	}
	subs := append([]*memorySubscription(nil), q.subs[topic]...)
	q.mu.Unlock()

	for _, sub := range subs {
		clone := *message
		select {
		case sub.ch <- &clone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers handler for topic.
func (q *MemoryQueue) Subscribe(ctx context.Context, topic string, handler HandlerFunc, opts *SubscribeOptions) error {
	if topic == "" {
		return errors.New("topic is required")
	}
	if handler == nil {
		return errors.New("handler is required")
	}
	var options SubscribeOptions
	if opts != nil {
		options = *opts
	}
	options.SetDefaults()
	if ctx == nil {
		ctx = context.Background()
	}

	sub := &memorySubscription{handler: handler, opts: options, baseCtx: ctx, ch: make(chan *Message, 128)}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errors.New("message queue is closed")
	}
	q.subs[topic] = append(q.subs[topic], sub)
	if q.started {
		q.run(sub)
	}
	return nil
}

// Start launches handler goroutines for all subscriptions.
func (q *MemoryQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errors.New("message queue is closed")
	}
	if q.started {
		return nil
	}
	for _, subs := range q.subs {
		for _, sub := range subs {
			q.run(sub)
		}
	}
	q.started = true
	return nil
}

func (q *MemoryQueue) run(sub *memorySubscription) {
	ctx, cancel := context.WithCancel(sub.baseCtx)
	sub.cancel = cancel
	for i := 0; i < sub.opts.Concurrency; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case m := <-sub.ch:
					deliver(ctx, sub.handler, m, sub.opts)
				}
			}
		}()
	}
}

// Stop cancels handlers and waits for in-flight messages.
func (q *MemoryQueue) Stop() error {
	q.mu.Lock()
	for _, subs := range q.subs {
		for _, sub := range subs {
			if sub.cancel != nil {
				sub.cancel()
			}
		}
	}
	q.started = false
	q.mu.Unlock()
	q.wg.Wait()
	return nil
}

func (q *MemoryQueue) Ping(context.Context) error { return nil }

// Close stops consumers and rejects further publishes.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	return q.Stop()
}
