package service_test

import (
	"context"
	"testing"
	"time"

	"stackit/internal/common/mq"
	"stackit/internal/forum/model"
	"stackit/internal/forum/service"
)

func TestModerationEventRoundTripThroughQueue(t *testing.T) {
	queue := mq.NewMemoryQueue()
	t.Cleanup(func() { _ = queue.Close() })

	received := make(chan *mq.Message, 1)
	err := queue.Subscribe(context.Background(), "forum.moderation", func(_ context.Context, m *mq.Message) error {
		received <- m
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := queue.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	f := newForum(t)
	workflow := service.NewWorkflow(f.store, service.WorkflowConfig{}).
		WithEvents(service.NewModerationEventPublisher(queue, "forum.moderation"))
	q, err := workflow.Submit(context.Background(), user1, validDraft())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case m := <-received:
		if v, _ := m.GetHeader("event_type"); v != string(model.ActivityQuestionSubmitted) {
			t.Fatalf("event_type header = %q", v)
		}
		if v, _ := m.GetHeader("question_id"); v != q.ID {
			t.Fatalf("question_id header = %q", v)
		}
		event, err := service.DecodeModerationEvent(m)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if event.EventID != m.ID || event.QuestionID != q.ID || event.AuthorID != user1.ID || event.QuestionTitle != q.Title {
			t.Fatalf("unexpected event %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no moderation event delivered")
	}
}

func TestModerationEventPublisherRequiresTopic(t *testing.T) {
	publisher := service.NewModerationEventPublisher(mq.NewMemoryQueue(), "")
	if err := publisher.PublishModerationEvent(context.Background(), model.ModerationEvent{EventID: "e1"}); err == nil {
		t.Fatalf("expected an error for an empty topic")
	}
	if _, err := service.DecodeModerationEvent(&mq.Message{Body: []byte("{")}); err == nil {
		t.Fatalf("expected a decode error")
	}
}
