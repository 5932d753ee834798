package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"stackit/internal/common/mq"
	"stackit/internal/forum/model"
	"stackit/internal/forum/repository"

	mail "github.com/go-mail/mail/v2"
)

type capturingSender struct {
	mu   sync.Mutex
	sent []*mail.Message
	err  error
}

func (s *capturingSender) DialAndSend(m ...*mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, m...)
	return nil
}

func (s *capturingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func newTestMailer(t *testing.T, sender Sender) *Mailer {
	t.Helper()
	store := repository.NewMemoryGateway()
	ada := &model.User{ID: "user_1", Name: "Ada", Email: "ada@example.com", Role: model.RoleUser, CreatedAt: time.Now()}
	if err := store.CreateUser(context.Background(), ada, nil); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return NewMailer(store, sender, MailerConfig{From: "noreply@stackit.dev", SiteURL: "https://forum.example.com/", Topic: "forum.moderation"})
}

func eventMessage(t *testing.T, event model.ModerationEvent) *mq.Message {
	t.Helper()
	body, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return mq.NewMessage(body)
}

func TestMailerHandle(t *testing.T) {
	tests := []struct {
		name    string
		event   model.ModerationEvent
		subject string
	}{
		{name: "approved", event: model.ModerationEvent{Type: model.ActivityQuestionApproved, AuthorID: "user_1", ActorID: "admin_1"}, subject: "Your question was approved"},
		{name: "rejected", event: model.ModerationEvent{Type: model.ActivityQuestionRejected, AuthorID: "user_1", ActorID: "admin_1", Reason: "too vague"}, subject: "Your question was not approved"},
		{name: "answered", event: model.ModerationEvent{Type: model.ActivityAnswerPosted, AuthorID: "user_1", ActorID: "user_2"}, subject: "New answer to your question"},
		{name: "accepted", event: model.ModerationEvent{Type: model.ActivityAnswerAccepted, AuthorID: "user_1", ActorID: "user_2"}, subject: "Your answer was accepted"},
		{name: "submitted is silent", event: model.ModerationEvent{Type: model.ActivityQuestionSubmitted, AuthorID: "user_1", ActorID: "user_1"}},
		{name: "own action is silent", event: model.ModerationEvent{Type: model.ActivityQuestionApproved, AuthorID: "user_1", ActorID: "user_1"}},
		{name: "unknown recipient is acknowledged", event: model.ModerationEvent{Type: model.ActivityQuestionApproved, AuthorID: "user_9", ActorID: "admin_1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &capturingSender{}
			mailer := newTestMailer(t, sender)
			tt.event.QuestionID = "q_1"
			tt.event.QuestionTitle = "Closing channels"

			if err := mailer.Handle(context.Background(), eventMessage(t, tt.event)); err != nil {
				t.Fatalf("handle: %v", err)
			}
			if tt.subject == "" {
				if len(sender.sent) != 0 {
					t.Fatalf("expected no mail, got %d", len(sender.sent))
				}
				return
			}
			if len(sender.sent) != 1 {
				t.Fatalf("expected one mail, got %d", len(sender.sent))
			}
			msg := sender.sent[0]
			if got := msg.GetHeader("Subject"); len(got) != 1 || got[0] != tt.subject {
				t.Fatalf("subject = %v", got)
			}
			if got := msg.GetHeader("To"); len(got) != 1 || !strings.Contains(got[0], "ada@example.com") {
				t.Fatalf("to = %v", got)
			}
		})
	}
}

func TestMailerRetriesOnSendFailure(t *testing.T) {
	mailer := newTestMailer(t, &capturingSender{err: errors.New("smtp down")})
	event := model.ModerationEvent{Type: model.ActivityQuestionApproved, AuthorID: "user_1", ActorID: "admin_1"}
	if err := mailer.Handle(context.Background(), eventMessage(t, event)); err == nil {
		t.Fatalf("expected send failure to surface for retry")
	}
}

func TestMailerIgnoresGarbage(t *testing.T) {
	sender := &capturingSender{}
	mailer := newTestMailer(t, sender)
	if err := mailer.Handle(context.Background(), mq.NewMessage([]byte("not json"))); err != nil {
		t.Fatalf("garbage should be acknowledged, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("garbage produced mail")
	}
}

func TestMailTemplates(t *testing.T) {
	_, tmpl, ok := mailTemplateFor(model.ActivityQuestionRejected)
	if !ok {
		t.Fatalf("no template for rejections")
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, mailData{Name: "Ada", Title: "<script>", Reason: "too vague"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	body := buf.String()
	if !strings.Contains(body, "Reason: too vague") || strings.Contains(body, "<script>") {
		t.Fatalf("unexpected body %q", body)
	}

	mailer := NewMailer(nil, nil, MailerConfig{SiteURL: "https://forum.example.com/"})
	if got := mailer.questionLink("q_1"); got != "https://forum.example.com/questions/q_1" {
		t.Fatalf("link = %q", got)
	}
}

func TestMailerSubscribesToTopic(t *testing.T) {
	queue := mq.NewMemoryQueue()
	t.Cleanup(func() { _ = queue.Close() })
	sender := &capturingSender{}
	mailer := newTestMailer(t, sender)

	if err := mailer.Subscribe(context.Background(), queue); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := queue.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	event := model.ModerationEvent{Type: model.ActivityQuestionApproved, AuthorID: "user_1", ActorID: "admin_1"}
	if err := queue.Publish(context.Background(), "forum.moderation", eventMessage(t, event)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	waitFor(t, "mail delivery", func() bool { return sender.count() == 1 })
	if err := queue.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
