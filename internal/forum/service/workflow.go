package service

import (
	"context"
	stderrors "errors"
	"time"

	"stackit/internal/forum/model"
	"stackit/internal/forum/repository"
	pkgerrors "stackit/pkg/errors"
	"stackit/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WorkflowConfig holds configuration for Workflow.
type WorkflowConfig struct {
	// NotifyOnSubmit stores a question_pending notification for the author on submit.
	NotifyOnSubmit bool

	Now   func() time.Time
	NewID func(prefix string) string
}

// Workflow is the moderation state machine. Questions start pending and move once,
// to approved or rejected. All state changes go through the gateway.
type Workflow struct {
	store  repository.Gateway
	events EventPublisher
	sink   NotificationSink
	config WorkflowConfig
}

// NewWorkflow creates a Workflow over store.
func NewWorkflow(store repository.Gateway, cfg WorkflowConfig) *Workflow {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.NewID == nil {
		cfg.NewID = NewID
	}
	return &Workflow{store: store, config: cfg}
}

// WithEvents publishes committed transitions to p.
func (w *Workflow) WithEvents(p EventPublisher) *Workflow {
	w.events = p
	return w
}

// WithNotificationSink pushes stored notifications to s.
func (w *Workflow) WithNotificationSink(s NotificationSink) *Workflow {
	w.sink = s
	return w
}

// NewID returns prefix_<uuid>.
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// Submit validates draft and stores it as a pending question authored by actor.
func (w *Workflow) Submit(ctx context.Context, actor model.Actor, draft model.QuestionDraft) (*model.Question, error) {
	if err := requireContributor(actor); err != nil {
		return nil, err
	}
	clean, err := normalizeDraft(draft)
	if err != nil {
		return nil, err
	}
	author, err := w.author(ctx, actor)
	if err != nil {
		return nil, err
	}

	now := w.config.Now()
	q := &model.Question{
		ID:         w.config.NewID("q"),
		Title:      clean.Title,
		Body:       clean.Body,
		Tags:       clean.Tags,
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Status:     model.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var note *model.Notification
	if w.config.NotifyOnSubmit {
		n := model.NewQuestionPendingNotification(w.config.NewID("ntf"), q, now)
		note = &n
	}
	activity := w.activity(model.ActivityQuestionSubmitted, actor.ID, q, "", "Question submitted", author.Name+" submitted \""+q.Title+"\"", now)

	if err := w.store.CreateQuestion(ctx, q, note, activity); err != nil {
		if stderrors.Is(err, repository.ErrAlreadyExists) {
			return nil, pkgerrors.Wrap(err, pkgerrors.QuestionCreateFailed)
		}
		return nil, storeError(err, pkgerrors.QuestionNotFound, "create question")
	}

	logger.Info(ctx, "question submitted", zap.String("question_id", q.ID), zap.String("author_id", q.AuthorID))
	w.afterCommit(ctx, note, model.ModerationEvent{
		EventID:       activity.ID,
		Type:          model.ActivityQuestionSubmitted,
		QuestionID:    q.ID,
		QuestionTitle: q.Title,
		AuthorID:      q.AuthorID,
		ActorID:       actor.ID,
		OccurredAt:    now,
	})
	return q, nil
}

// Approve moves a pending question to approved and notifies its author.
func (w *Workflow) Approve(ctx context.Context, actor model.Actor, questionID string) (*model.Question, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	q, err := w.pendingQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}

	now := w.config.Now()
	next := q.Clone()
	next.Status = model.StatusApproved
	next.ApprovedBy = actor.ID
	next.ApprovedAt = &now
	next.UpdatedAt = now

	note := model.NewQuestionApprovedNotification(w.config.NewID("ntf"), next, now)
	activity := w.activity(model.ActivityQuestionApproved, actor.ID, next, "", "Question approved", "\""+next.Title+"\" was approved", now)
	if err := w.transition(ctx, next, &note, activity); err != nil {
		return nil, err
	}

	logger.Info(ctx, "question approved", zap.String("question_id", next.ID), zap.String("admin_id", actor.ID))
	w.afterCommit(ctx, &note, model.ModerationEvent{
		EventID:       activity.ID,
		Type:          model.ActivityQuestionApproved,
		QuestionID:    next.ID,
		QuestionTitle: next.Title,
		AuthorID:      next.AuthorID,
		ActorID:       actor.ID,
		OccurredAt:    now,
	})
	return next, nil
}

// Reject moves a pending question to rejected with reason and notifies its author.
func (w *Workflow) Reject(ctx context.Context, actor model.Actor, questionID, reason string) (*model.Question, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	q, err := w.pendingQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	reason, err = normalizeReason(reason)
	if err != nil {
		return nil, err
	}

	now := w.config.Now()
	next := q.Clone()
	next.Status = model.StatusRejected
	next.RejectedBy = actor.ID
	next.RejectedAt = &now
	next.RejectionReason = reason
	next.UpdatedAt = now

	note := model.NewQuestionRejectedNotification(w.config.NewID("ntf"), next, now)
	activity := w.activity(model.ActivityQuestionRejected, actor.ID, next, "", "Question rejected", "\""+next.Title+"\" was rejected: "+reason, now)
	if err := w.transition(ctx, next, &note, activity); err != nil {
		return nil, err
	}

	logger.Info(ctx, "question rejected", zap.String("question_id", next.ID), zap.String("admin_id", actor.ID))
	w.afterCommit(ctx, &note, model.ModerationEvent{
		EventID:       activity.ID,
		Type:          model.ActivityQuestionRejected,
		QuestionID:    next.ID,
		QuestionTitle: next.Title,
		AuthorID:      next.AuthorID,
		ActorID:       actor.ID,
		Reason:        reason,
		OccurredAt:    now,
	})
	return next, nil
}

func (w *Workflow) pendingQuestion(ctx context.Context, id string) (*model.Question, error) {
	q, err := w.store.GetQuestion(ctx, id)
	if err != nil {
		return nil, storeError(err, pkgerrors.QuestionNotFound, "get question")
	}
	if q.Status != model.StatusPending {
		return nil, pkgerrors.TransitionError(q.ID, string(model.StatusPending), string(q.Status))
	}
	return q, nil
}

func (w *Workflow) transition(ctx context.Context, next *model.Question, note *model.Notification, activity *model.Activity) error {
	err := w.store.TransitionQuestion(ctx, next, model.StatusPending, note, activity)
	if err == nil {
		return nil
	}
	if stderrors.Is(err, repository.ErrConflict) {
		logger.Warn(ctx, "moderation lost compare-and-set", zap.String("question_id", next.ID))
		return pkgerrors.ConflictError("question", next.ID)
	}
	return storeError(err, pkgerrors.QuestionNotFound, "moderate question")
}

// AcceptAnswer marks answerID as the accepted answer of its question. Only the
// question's author may accept; any previously accepted answer is cleared.
func (w *Workflow) AcceptAnswer(ctx context.Context, actor model.Actor, answerID string) (*model.Answer, error) {
	if !actor.IsAuthenticated() {
		return nil, pkgerrors.UnauthorizedError("sign in to accept an answer")
	}
	a, err := w.store.GetAnswer(ctx, answerID)
	if err != nil {
		return nil, storeError(err, pkgerrors.AnswerNotFound, "get answer")
	}
	q, err := w.store.GetQuestion(ctx, a.QuestionID)
	if err != nil {
		return nil, storeError(err, pkgerrors.QuestionNotFound, "get question")
	}
	if !actor.Owns(q.AuthorID) {
		return nil, pkgerrors.New(pkgerrors.PermissionDenied).WithMessage("only the question author can accept an answer")
	}

	now := w.config.Now()
	activity := w.activity(model.ActivityAnswerAccepted, actor.ID, q, a.ID, "Answer accepted", "An answer to \""+q.Title+"\" was accepted", now)
	if err := w.store.AcceptAnswer(ctx, q.ID, a.ID, activity); err != nil {
		return nil, storeError(err, pkgerrors.AnswerNotFound, "accept answer")
	}
	a.Accepted = true

	logger.Info(ctx, "answer accepted", zap.String("question_id", q.ID), zap.String("answer_id", a.ID))
	w.afterCommit(ctx, nil, model.ModerationEvent{
		EventID:       activity.ID,
		Type:          model.ActivityAnswerAccepted,
		QuestionID:    q.ID,
		QuestionTitle: q.Title,
		AuthorID:      a.AuthorID,
		ActorID:       actor.ID,
		AnswerID:      a.ID,
		OccurredAt:    now,
	})
	return a, nil
}

// PostAnswer adds an answer to an approved question and notifies the question's
// author when someone else answered.
func (w *Workflow) PostAnswer(ctx context.Context, actor model.Actor, questionID, body string) (*model.Answer, error) {
	if err := requireContributor(actor); err != nil {
		return nil, err
	}
	body, err := normalizeAnswerBody(body)
	if err != nil {
		return nil, err
	}
	q, err := w.store.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, storeError(err, pkgerrors.QuestionNotFound, "get question")
	}
	if !canView(actor, q) {
		return nil, pkgerrors.New(pkgerrors.QuestionNotFound)
	}
	if q.Status != model.StatusApproved {
		return nil, pkgerrors.TransitionError(q.ID, string(model.StatusApproved), string(q.Status))
	}
	author, err := w.author(ctx, actor)
	if err != nil {
		return nil, err
	}

	now := w.config.Now()
	a := &model.Answer{
		ID:         w.config.NewID("ans"),
		QuestionID: q.ID,
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Body:       body,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	var note *model.Notification
	if q.AuthorID != author.ID {
		n := model.NewAnswerNotification(w.config.NewID("ntf"), q, a, now)
		note = &n
	}
	activity := w.activity(model.ActivityAnswerPosted, actor.ID, q, a.ID, "Answer posted", author.Name+" answered \""+q.Title+"\"", now)

	if err := w.store.CreateAnswer(ctx, a, note, activity); err != nil {
		if stderrors.Is(err, repository.ErrAlreadyExists) {
			return nil, pkgerrors.Wrap(err, pkgerrors.AnswerCreateFailed)
		}
		return nil, storeError(err, pkgerrors.QuestionNotFound, "create answer")
	}

	logger.Info(ctx, "answer posted", zap.String("question_id", q.ID), zap.String("answer_id", a.ID))
	w.afterCommit(ctx, note, model.ModerationEvent{
		EventID:       activity.ID,
		Type:          model.ActivityAnswerPosted,
		QuestionID:    q.ID,
		QuestionTitle: q.Title,
		AuthorID:      q.AuthorID,
		ActorID:       actor.ID,
		AnswerID:      a.ID,
		OccurredAt:    now,
	})
	return a, nil
}

// VoteQuestion adds one vote in direction to an approved question and returns the new total.
func (w *Workflow) VoteQuestion(ctx context.Context, actor model.Actor, questionID string, direction model.VoteDirection) (int64, error) {
	if err := requireContributor(actor); err != nil {
		return 0, err
	}
	if _, err := w.votableQuestion(ctx, actor, questionID); err != nil {
		return 0, err
	}
	votes, err := w.store.AdjustQuestionVotes(ctx, questionID, int64(direction))
	if err != nil {
		return 0, storeError(err, pkgerrors.QuestionNotFound, "vote question")
	}
	return votes, nil
}

// VoteAnswer adds one vote in direction to an answer of an approved question.
func (w *Workflow) VoteAnswer(ctx context.Context, actor model.Actor, answerID string, direction model.VoteDirection) (int64, error) {
	if err := requireContributor(actor); err != nil {
		return 0, err
	}
	a, err := w.store.GetAnswer(ctx, answerID)
	if err != nil {
		return 0, storeError(err, pkgerrors.AnswerNotFound, "get answer")
	}
	if _, err := w.votableQuestion(ctx, actor, a.QuestionID); err != nil {
		return 0, err
	}
	votes, err := w.store.AdjustAnswerVotes(ctx, a.ID, int64(direction))
	if err != nil {
		return 0, storeError(err, pkgerrors.AnswerNotFound, "vote answer")
	}
	return votes, nil
}

func (w *Workflow) votableQuestion(ctx context.Context, actor model.Actor, id string) (*model.Question, error) {
	q, err := w.store.GetQuestion(ctx, id)
	if err != nil {
		return nil, storeError(err, pkgerrors.QuestionNotFound, "get question")
	}
	if !canView(actor, q) {
		return nil, pkgerrors.New(pkgerrors.QuestionNotFound)
	}
	if q.Status != model.StatusApproved {
		return nil, pkgerrors.TransitionError(q.ID, string(model.StatusApproved), string(q.Status))
	}
	return q, nil
}

func (w *Workflow) author(ctx context.Context, actor model.Actor) (*model.User, error) {
	u, err := w.store.GetUser(ctx, actor.ID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, pkgerrors.UnauthorizedError("account no longer exists")
		}
		return nil, storeError(err, pkgerrors.UserNotFound, "get user")
	}
	return u, nil
}

func (w *Workflow) activity(t model.ActivityType, actorID string, q *model.Question, answerID, title, description string, at time.Time) *model.Activity {
	return &model.Activity{
		ID:          w.config.NewID("act"),
		Type:        t,
		ActorID:     actorID,
		QuestionID:  q.ID,
		AnswerID:    answerID,
		Title:       title,
		Description: description,
		CreatedAt:   at,
	}
}

// afterCommit runs best-effort side effects of a committed change. Failures are
// logged and never reach the caller.
func (w *Workflow) afterCommit(ctx context.Context, note *model.Notification, event model.ModerationEvent) {
	if note != nil && w.sink != nil {
		if err := w.sink.Deliver(ctx, *note); err != nil {
			logger.Warn(ctx, "push notification failed", zap.String("notification_id", note.ID), zap.Error(err))
		}
	}
	if w.events != nil {
		if err := w.events.PublishModerationEvent(ctx, event); err != nil {
			logger.Warn(ctx, "publish moderation event failed", zap.String("event_id", event.EventID), zap.Error(err))
		}
	}
}
