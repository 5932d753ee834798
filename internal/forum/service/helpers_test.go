package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"stackit/internal/forum/model"
	"stackit/internal/forum/repository"
	"stackit/internal/forum/service"
	pkgerrors "stackit/pkg/errors"
)

var (
	admin    = model.Actor{ID: "admin_1", Role: model.RoleAdmin}
	user1    = model.Actor{ID: "user_1", Role: model.RoleUser}
	user2    = model.Actor{ID: "user_2", Role: model.RoleUser}
	guest    = model.Anonymous()
	baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

// testClock advances one second per reading so records get distinct timestamps.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type sequentialIDs struct {
	mu sync.Mutex
	n  int
}

func (s *sequentialIDs) Next(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s_%d", prefix, s.n)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.ModerationEvent
	err    error
}

func (p *recordingPublisher) PublishModerationEvent(_ context.Context, event model.ModerationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []model.ActivityType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.ActivityType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type recordingSink struct {
	mu    sync.Mutex
	notes []model.Notification
}

func (s *recordingSink) Deliver(_ context.Context, n model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, n)
	return nil
}

type forum struct {
	store     *repository.MemoryGateway
	workflow  *service.Workflow
	content   *service.ContentService
	publisher *recordingPublisher
	sink      *recordingSink
	clock     *testClock
}

func newForum(t *testing.T) *forum {
	t.Helper()
	return newForumWithConfig(t, true)
}

func newForumWithConfig(t *testing.T, notifyOnSubmit bool) *forum {
	t.Helper()
	store := repository.NewMemoryGateway()
	for _, u := range []model.User{
		{ID: admin.ID, Name: "Admin", Email: "admin@example.com", Role: model.RoleAdmin, CreatedAt: baseTime},
		{ID: user1.ID, Name: "Ada", Email: "ada@example.com", Role: model.RoleUser, CreatedAt: baseTime},
		{ID: user2.ID, Name: "Linus", Email: "linus@example.com", Role: model.RoleUser, CreatedAt: baseTime},
	} {
		u := u
		if err := store.CreateUser(context.Background(), &u, nil); err != nil {
			t.Fatalf("seed user %s: %v", u.ID, err)
		}
	}

	clock := &testClock{now: baseTime}
	ids := &sequentialIDs{}
	publisher := &recordingPublisher{}
	sink := &recordingSink{}
	workflow := service.NewWorkflow(store, service.WorkflowConfig{
		NotifyOnSubmit: notifyOnSubmit,
		Now:            clock.Now,
		NewID:          ids.Next,
	}).WithEvents(publisher).WithNotificationSink(sink)

	return &forum{
		store:     store,
		workflow:  workflow,
		content:   service.NewContentService(store, workflow),
		publisher: publisher,
		sink:      sink,
		clock:     clock,
	}
}

func validDraft() model.QuestionDraft {
	return model.QuestionDraft{
		Title: "How do I close a channel safely?",
		Body:  "I get a panic when two goroutines close the same channel.",
		Tags:  []string{"Go", "concurrency"},
	}
}

func (f *forum) submit(t *testing.T, actor model.Actor) *model.Question {
	t.Helper()
	q, err := f.workflow.Submit(context.Background(), actor, validDraft())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return q
}

func (f *forum) approved(t *testing.T, actor model.Actor) *model.Question {
	t.Helper()
	q := f.submit(t, actor)
	approved, err := f.workflow.Approve(context.Background(), admin, q.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	return approved
}

func (f *forum) notifications(t *testing.T, userID string) []model.Notification {
	t.Helper()
	page, err := f.store.ListNotifications(context.Background(), userID, false, repository.PageRequest{Page: 1, PageSize: 100})
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	return page.Items
}

func assertCode(t *testing.T, err error, want pkgerrors.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error code %d, got nil", want)
	}
	if got := pkgerrors.GetCode(err); got != want {
		t.Fatalf("expected error code %d, got %d (%v)", want, got, err)
	}
}

func assertValidationField(t *testing.T, err error, field string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected validation error on %s, got nil", field)
	}
	coded := pkgerrors.GetError(err)
	if coded == nil || coded.Code.HTTPStatus() != 400 {
		t.Fatalf("expected a 400 validation error, got %v", err)
	}
	if got := coded.Detail("field"); got != field {
		t.Fatalf("expected field %q, got %q (%v)", field, got, err)
	}
}

var errBroker = errors.New("broker down")
