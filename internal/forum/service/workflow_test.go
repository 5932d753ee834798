package service_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"stackit/internal/forum/model"
	"stackit/internal/forum/repository"
	"stackit/internal/forum/service"
	pkgerrors "stackit/pkg/errors"
)

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name  string
		draft func(d *model.QuestionDraft)
		field string
	}{
		{name: "empty title", draft: func(d *model.QuestionDraft) { d.Title = "" }, field: "title"},
		{name: "blank title", draft: func(d *model.QuestionDraft) { d.Title = "   \t" }, field: "title"},
		{name: "title too long", draft: func(d *model.QuestionDraft) { d.Title = strings.Repeat("é", 201) }, field: "title"},
		{name: "blank body", draft: func(d *model.QuestionDraft) { d.Body = "  \n " }, field: "body"},
		{name: "no tags", draft: func(d *model.QuestionDraft) { d.Tags = nil }, field: "tags"},
		{name: "six tags", draft: func(d *model.QuestionDraft) { d.Tags = []string{"a", "b", "c", "d", "e", "f"} }, field: "tags"},
		{name: "empty tag", draft: func(d *model.QuestionDraft) { d.Tags = []string{"go", " "} }, field: "tags"},
		{name: "duplicate tag after lower-casing", draft: func(d *model.QuestionDraft) { d.Tags = []string{"Go", "go"} }, field: "tags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newForum(t)
			draft := validDraft()
			tt.draft(&draft)

			_, err := f.workflow.Submit(context.Background(), user1, draft)
			assertValidationField(t, err, tt.field)

			page, listErr := f.store.ListQuestions(context.Background(), model.QuestionFilter{}, repository.PageRequest{Page: 1, PageSize: 10})
			if listErr != nil {
				t.Fatalf("list questions: %v", listErr)
			}
			if page.Total != 0 {
				t.Fatalf("failed submit left %d question(s) behind", page.Total)
			}
			if len(f.notifications(t, user1.ID)) != 0 {
				t.Fatalf("failed submit left a notification behind")
			}
		})
	}
}

func TestSubmitAcceptsBoundaryValues(t *testing.T) {
	f := newForum(t)
	draft := model.QuestionDraft{
		Title: "  " + strings.Repeat("題", model.MaxTitleLength) + "  ",
		Body:  "body",
		Tags:  []string{" A ", "b", "c", "d", "E"},
	}
	q, err := f.workflow.Submit(context.Background(), user1, draft)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if q.Title != strings.Repeat("題", model.MaxTitleLength) {
		t.Fatalf("title was not trimmed: %q", q.Title)
	}
	if !reflect.DeepEqual(q.Tags, []string{"a", "b", "c", "d", "e"}) {
		t.Fatalf("tags not normalized: %v", q.Tags)
	}
}

func TestSubmitRequiresContributor(t *testing.T) {
	f := newForum(t)
	_, err := f.workflow.Submit(context.Background(), guest, validDraft())
	if !pkgerrors.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	assertCode(t, err, pkgerrors.Unauthorized)
}

func TestSubmitCreatesPendingQuestion(t *testing.T) {
	f := newForum(t)
	q := f.submit(t, user1)

	if q.Status != model.StatusPending || q.AuthorID != user1.ID || q.AuthorName != "Ada" {
		t.Fatalf("unexpected question: %+v", q)
	}
	if !q.Consistent() {
		t.Fatalf("new question is inconsistent: %+v", q)
	}
	stored, err := f.store.GetQuestion(context.Background(), q.ID)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if stored.Status != model.StatusPending {
		t.Fatalf("stored status = %s", stored.Status)
	}

	notes := f.notifications(t, user1.ID)
	if len(notes) != 1 || notes[0].Type() != model.NotificationQuestionPending {
		t.Fatalf("expected one question_pending notification, got %+v", notes)
	}
	if got := f.publisher.types(); !reflect.DeepEqual(got, []model.ActivityType{model.ActivityQuestionSubmitted}) {
		t.Fatalf("unexpected events: %v", got)
	}
	activity, _ := f.store.ListActivity(context.Background(), repository.PageRequest{Page: 1, PageSize: 10})
	if activity.Total != 1 || activity.Items[0].Type != model.ActivityQuestionSubmitted {
		t.Fatalf("unexpected activity: %+v", activity.Items)
	}
}

func TestSubmitWithoutPendingNotification(t *testing.T) {
	f := newForumWithConfig(t, false)
	f.submit(t, user1)
	if notes := f.notifications(t, user1.ID); len(notes) != 0 {
		t.Fatalf("expected no notification, got %+v", notes)
	}
}

func TestApproveScenario(t *testing.T) {
	f := newForum(t)
	q := f.submit(t, user1)

	approved, err := f.workflow.Approve(context.Background(), admin, q.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != model.StatusApproved || approved.ApprovedBy != admin.ID || approved.ApprovedAt == nil {
		t.Fatalf("unexpected approved question: %+v", approved)
	}

	stored, _ := f.store.GetQuestion(context.Background(), q.ID)
	if stored.Status != model.StatusApproved || stored.ApprovedBy != admin.ID || !stored.Consistent() {
		t.Fatalf("unexpected stored question: %+v", stored)
	}

	var found *model.Notification
	for _, n := range f.notifications(t, user1.ID) {
		if n.Type() == model.NotificationQuestionApproved {
			n := n
			found = &n
		}
	}
	if found == nil {
		t.Fatalf("no question_approved notification for the author")
	}
	payload, ok := found.Payload.(model.QuestionApprovedPayload)
	if !ok || payload.QuestionID != q.ID || payload.ApprovedBy != admin.ID {
		t.Fatalf("unexpected payload: %+v", found.Payload)
	}
	if len(f.sink.notes) != 2 {
		t.Fatalf("expected pending and approved pushes, got %d", len(f.sink.notes))
	}
}

func TestRejectScenario(t *testing.T) {
	f := newForum(t)
	q := f.submit(t, user1)

	rejected, err := f.workflow.Reject(context.Background(), admin, q.ID, "  too vague ")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != model.StatusRejected || rejected.RejectionReason != "too vague" || rejected.RejectedBy != admin.ID {
		t.Fatalf("unexpected rejected question: %+v", rejected)
	}

	before, _ := f.store.GetQuestion(context.Background(), q.ID)
	notesBefore := len(f.notifications(t, user1.ID))

	_, err = f.workflow.Approve(context.Background(), admin, q.ID)
	assertCode(t, err, pkgerrors.InvalidTransition)
	coded := pkgerrors.GetError(err)
	if coded.Detail("id") != q.ID || coded.Detail("expected") != "pending" || coded.Detail("actual") != "rejected" {
		t.Fatalf("unexpected transition details: %v", coded.Details)
	}

	after, _ := f.store.GetQuestion(context.Background(), q.ID)
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("failed approve changed the record:\nbefore %+v\nafter  %+v", before, after)
	}
	if got := len(f.notifications(t, user1.ID)); got != notesBefore {
		t.Fatalf("failed approve emitted a notification")
	}

	var payload model.QuestionRejectedPayload
	for _, n := range f.notifications(t, user1.ID) {
		if p, ok := n.Payload.(model.QuestionRejectedPayload); ok {
			payload = p
		}
	}
	if payload.RejectionReason != "too vague" {
		t.Fatalf("rejection notification lacks the reason: %+v", payload)
	}
}

func TestTerminalStatesRejectEveryTransition(t *testing.T) {
	for _, decide := range []string{"approve", "reject"} {
		for _, attempt := range []string{"approve", "reject", "reject with blank reason"} {
			t.Run(decide+" then "+attempt, func(t *testing.T) {
				f := newForum(t)
				q := f.submit(t, user1)
				ctx := context.Background()
				if decide == "approve" {
					_, _ = f.workflow.Approve(ctx, admin, q.ID)
				} else {
					_, _ = f.workflow.Reject(ctx, admin, q.ID, "no")
				}
				before, _ := f.store.GetQuestion(ctx, q.ID)

				var err error
				switch attempt {
				case "approve":
					_, err = f.workflow.Approve(ctx, admin, q.ID)
				case "reject":
					_, err = f.workflow.Reject(ctx, admin, q.ID, "again")
				default:
					_, err = f.workflow.Reject(ctx, admin, q.ID, "   ")
				}
				assertCode(t, err, pkgerrors.InvalidTransition)

				after, _ := f.store.GetQuestion(ctx, q.ID)
				if !reflect.DeepEqual(before, after) {
					t.Fatalf("record changed after invalid transition")
				}
				if !after.Consistent() {
					t.Fatalf("record inconsistent: %+v", after)
				}
			})
		}
	}
}

func TestRejectUnknownQuestionBeforeReason(t *testing.T) {
	f := newForum(t)
	for _, reason := range []string{"", "  ", "spam"} {
		_, err := f.workflow.Reject(context.Background(), admin, "q_missing", reason)
		assertCode(t, err, pkgerrors.QuestionNotFound)
	}
	if got := f.publisher.types(); len(got) != 0 {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestModerationRequiresAdmin(t *testing.T) {
	tests := []struct {
		name  string
		actor model.Actor
		code  pkgerrors.ErrorCode
	}{
		{name: "guest", actor: guest, code: pkgerrors.Unauthorized},
		{name: "author", actor: user1, code: pkgerrors.PermissionDenied},
		{name: "other user", actor: user2, code: pkgerrors.PermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newForum(t)
			q := f.submit(t, user1)
			ctx := context.Background()

			_, err := f.workflow.Approve(ctx, tt.actor, q.ID)
			if !pkgerrors.IsUnauthorized(err) {
				t.Fatalf("approve: expected unauthorized, got %v", err)
			}
			assertCode(t, err, tt.code)

			_, err = f.workflow.Reject(ctx, tt.actor, q.ID, "reason")
			if !pkgerrors.IsUnauthorized(err) {
				t.Fatalf("reject: expected unauthorized, got %v", err)
			}

			stored, _ := f.store.GetQuestion(ctx, q.ID)
			if stored.Status != model.StatusPending {
				t.Fatalf("status changed to %s", stored.Status)
			}
		})
	}
}

func TestRejectRequiresReason(t *testing.T) {
	f := newForum(t)
	q := f.submit(t, user1)
	_, err := f.workflow.Reject(context.Background(), admin, q.ID, "   ")
	assertValidationField(t, err, "reason")

	stored, _ := f.store.GetQuestion(context.Background(), q.ID)
	if stored.Status != model.StatusPending {
		t.Fatalf("status changed to %s", stored.Status)
	}
}

func TestModerationOfMissingQuestion(t *testing.T) {
	f := newForum(t)
	_, err := f.workflow.Approve(context.Background(), admin, "q_missing")
	assertCode(t, err, pkgerrors.QuestionNotFound)
	_, err = f.workflow.Reject(context.Background(), admin, "q_missing", "reason")
	assertCode(t, err, pkgerrors.QuestionNotFound)
}

// racingGateway lets another moderator win between the read and the write.
type racingGateway struct {
	*repository.MemoryGateway
}

func (g racingGateway) TransitionQuestion(ctx context.Context, q *model.Question, expected model.QuestionStatus, note *model.Notification, activity *model.Activity) error {
	winner := q.Clone()
	winner.Status = model.StatusRejected
	winner.ApprovedBy, winner.ApprovedAt = "", nil
	winner.RejectedBy, winner.RejectedAt, winner.RejectionReason = "admin_2", &q.UpdatedAt, "duplicate"
	if err := g.MemoryGateway.TransitionQuestion(ctx, winner, expected, nil, nil); err != nil {
		return err
	}
	return g.MemoryGateway.TransitionQuestion(ctx, q, expected, note, activity)
}

func TestApproveLosesCompareAndSet(t *testing.T) {
	f := newForum(t)
	q := f.submit(t, user1)
	workflow := service.NewWorkflow(racingGateway{f.store}, service.WorkflowConfig{})

	_, err := workflow.Approve(context.Background(), admin, q.ID)
	assertCode(t, err, pkgerrors.TransitionConflict)

	stored, _ := f.store.GetQuestion(context.Background(), q.ID)
	if stored.Status != model.StatusRejected || stored.ApprovedBy != "" || !stored.Consistent() {
		t.Fatalf("losing approve leaked into the record: %+v", stored)
	}
	for _, n := range f.notifications(t, user1.ID) {
		if n.Type() == model.NotificationQuestionApproved {
			t.Fatalf("losing approve stored a notification")
		}
	}
}

func TestCancelledSubmitLeavesNothing(t *testing.T) {
	f := newForum(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.workflow.Submit(ctx, user1, validDraft())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
	page, _ := f.store.ListQuestions(context.Background(), model.QuestionFilter{}, repository.PageRequest{Page: 1, PageSize: 10})
	if page.Total != 0 {
		t.Fatalf("cancelled submit stored a question")
	}
}

func TestPublisherFailureDoesNotFailTransition(t *testing.T) {
	f := newForum(t)
	q := f.submit(t, user1)
	f.publisher.err = errBroker

	approved, err := f.workflow.Approve(context.Background(), admin, q.ID)
	if err != nil {
		t.Fatalf("approve should ignore publisher failures, got %v", err)
	}
	if approved.Status != model.StatusApproved {
		t.Fatalf("unexpected status %s", approved.Status)
	}
}

func TestAcceptAnswer(t *testing.T) {
	f := newForum(t)
	ctx := context.Background()
	q := f.approved(t, user1)

	first, err := f.workflow.PostAnswer(ctx, user2, q.ID, "Use sync.Once.")
	if err != nil {
		t.Fatalf("post answer: %v", err)
	}
	second, err := f.workflow.PostAnswer(ctx, admin, q.ID, "Only the sender closes.")
	if err != nil {
		t.Fatalf("post answer: %v", err)
	}

	if _, err := f.workflow.AcceptAnswer(ctx, user2, first.ID); !pkgerrors.IsUnauthorized(err) {
		t.Fatalf("non-author accept: expected unauthorized, got %v", err)
	}
	if _, err := f.workflow.AcceptAnswer(ctx, admin, first.ID); !pkgerrors.IsUnauthorized(err) {
		t.Fatalf("admin accept: expected unauthorized, got %v", err)
	}
	if _, err := f.workflow.AcceptAnswer(ctx, guest, first.ID); !pkgerrors.Is(err, pkgerrors.Unauthorized) {
		t.Fatalf("guest accept: expected unauthorized, got %v", err)
	}
	if _, err := f.workflow.AcceptAnswer(ctx, user1, "ans_missing"); !pkgerrors.Is(err, pkgerrors.AnswerNotFound) {
		t.Fatalf("missing answer: expected not found, got %v", err)
	}

	if _, err := f.workflow.AcceptAnswer(ctx, user1, first.ID); err != nil {
		t.Fatalf("accept first: %v", err)
	}
	if _, err := f.workflow.AcceptAnswer(ctx, user1, second.ID); err != nil {
		t.Fatalf("accept second: %v", err)
	}

	answers, _ := f.store.ListAnswersByQuestion(ctx, q.ID)
	accepted := 0
	for _, a := range answers {
		if a.Accepted {
			accepted++
			if a.ID != second.ID {
				t.Fatalf("wrong answer accepted: %s", a.ID)
			}
		}
	}
	if accepted != 1 {
		t.Fatalf("expected exactly one accepted answer, got %d", accepted)
	}
}

func TestPostAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("notifies the question author", func(t *testing.T) {
		f := newForum(t)
		q := f.approved(t, user1)
		a, err := f.workflow.PostAnswer(ctx, user2, q.ID, "  answer  ")
		if err != nil {
			t.Fatalf("post answer: %v", err)
		}
		if a.Body != "answer" || a.AuthorName != "Linus" {
			t.Fatalf("unexpected answer: %+v", a)
		}
		var payload model.NewAnswerPayload
		for _, n := range f.notifications(t, user1.ID) {
			if p, ok := n.Payload.(model.NewAnswerPayload); ok {
				payload = p
			}
		}
		if payload.AnswerID != a.ID || payload.AnswerAuthor != "Linus" {
			t.Fatalf("missing new_answer notification: %+v", payload)
		}
	})

	t.Run("own answer does not notify", func(t *testing.T) {
		f := newForum(t)
		q := f.approved(t, user1)
		before := len(f.notifications(t, user1.ID))
		if _, err := f.workflow.PostAnswer(ctx, user1, q.ID, "self answer"); err != nil {
			t.Fatalf("post answer: %v", err)
		}
		if got := len(f.notifications(t, user1.ID)); got != before {
			t.Fatalf("self answer notified the author")
		}
	})

	t.Run("hidden pending question", func(t *testing.T) {
		f := newForum(t)
		q := f.submit(t, user1)
		_, err := f.workflow.PostAnswer(ctx, user2, q.ID, "answer")
		assertCode(t, err, pkgerrors.QuestionNotFound)
	})

	t.Run("author answering own pending question", func(t *testing.T) {
		f := newForum(t)
		q := f.submit(t, user1)
		_, err := f.workflow.PostAnswer(ctx, user1, q.ID, "answer")
		assertCode(t, err, pkgerrors.InvalidTransition)
	})

	t.Run("empty body", func(t *testing.T) {
		f := newForum(t)
		q := f.approved(t, user1)
		_, err := f.workflow.PostAnswer(ctx, user2, q.ID, " ")
		assertValidationField(t, err, "body")
	})

	t.Run("guest", func(t *testing.T) {
		f := newForum(t)
		q := f.approved(t, user1)
		_, err := f.workflow.PostAnswer(ctx, guest, q.ID, "answer")
		if !pkgerrors.IsUnauthorized(err) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})
}

func TestVotes(t *testing.T) {
	f := newForum(t)
	ctx := context.Background()
	q := f.approved(t, user1)
	a, err := f.workflow.PostAnswer(ctx, user2, q.ID, "answer")
	if err != nil {
		t.Fatalf("post answer: %v", err)
	}

	if votes, err := f.workflow.VoteQuestion(ctx, user2, q.ID, model.VoteUp); err != nil || votes != 1 {
		t.Fatalf("vote up: votes=%d err=%v", votes, err)
	}
	if votes, err := f.workflow.VoteQuestion(ctx, admin, q.ID, model.VoteDown); err != nil || votes != 0 {
		t.Fatalf("vote down: votes=%d err=%v", votes, err)
	}
	if votes, err := f.workflow.VoteAnswer(ctx, user1, a.ID, model.VoteUp); err != nil || votes != 1 {
		t.Fatalf("vote answer: votes=%d err=%v", votes, err)
	}
	if _, err := f.workflow.VoteAnswer(ctx, guest, a.ID, model.VoteUp); !pkgerrors.IsUnauthorized(err) {
		t.Fatalf("guest vote: expected unauthorized, got %v", err)
	}

	pending := f.submit(t, user1)
	if _, err := f.workflow.VoteQuestion(ctx, user2, pending.ID, model.VoteUp); !pkgerrors.Is(err, pkgerrors.QuestionNotFound) {
		t.Fatalf("vote on hidden question: expected not found, got %v", err)
	}
}
