package service

import (
	"context"
	"strings"

	"stackit/internal/forum/model"
	"stackit/internal/forum/repository"
	pkgerrors "stackit/pkg/errors"
	pkgrepo "stackit/pkg/repository"

	"github.com/zeromicro/go-zero/core/mr"
)

// QuestionQuery selects a page of questions. An empty Status means approved.
// Tags entries may hold comma separated lists; a question matches any of them.
type QuestionQuery struct {
	Status   model.QuestionStatus
	Query    string
	Tags     []string
	Page     int
	PageSize int
}

// ContentService is the read and create surface of the forum. Visibility rules live
// here; writes that move a question through moderation are delegated to Workflow.
type ContentService struct {
	store    repository.Gateway
	workflow *Workflow
}

// NewContentService creates a ContentService.
func NewContentService(store repository.Gateway, workflow *Workflow) *ContentService {
	return &ContentService{store: store, workflow: workflow}
}

// ListQuestions returns a page of questions newest first. Anonymous and regular
// callers only ever see approved questions; other statuses require an admin.
func (s *ContentService) ListQuestions(ctx context.Context, actor model.Actor, query QuestionQuery) (repository.QuestionPage, error) {
	status := query.Status
	if status == "" {
		status = model.StatusApproved
	}
	if !status.Valid() {
		return repository.QuestionPage{}, pkgerrors.ValidationError("status", "must be pending, approved or rejected")
	}
	if status != model.StatusApproved {
		if err := requireAdmin(actor); err != nil {
			return repository.QuestionPage{}, err
		}
	}
	page, err := pageRequest(query.Page, query.PageSize)
	if err != nil {
		return repository.QuestionPage{}, err
	}
	tags, err := normalizeTagFilter(query.Tags)
	if err != nil {
		return repository.QuestionPage{}, err
	}

	filter := model.QuestionFilter{
		Status: status,
		Tags:   tags,
		Query:  strings.TrimSpace(query.Query),
	}
	result, err := s.store.ListQuestions(ctx, filter, page)
	if err != nil {
		return repository.QuestionPage{}, storeError(err, pkgerrors.QuestionNotFound, "list questions")
	}
	return result, nil
}

// GetQuestion returns a visible question with its answers oldest first and counts one view.
// Questions the actor may not see are reported as not found.
func (s *ContentService) GetQuestion(ctx context.Context, actor model.Actor, id string) (*model.Question, error) {
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return nil, storeError(err, pkgerrors.QuestionNotFound, "get question")
	}
	if !canView(actor, q) {
		return nil, pkgerrors.New(pkgerrors.QuestionNotFound)
	}

	answers, err := s.store.ListAnswersByQuestion(ctx, q.ID)
	if err != nil {
		return nil, storeError(err, pkgerrors.QuestionNotFound, "list answers")
	}
	if answers == nil {
		answers = []model.Answer{}
	}

	// The view is counted last so a failed read leaves the counter untouched.
	views, err := s.store.IncrementQuestionViews(ctx, q.ID)
	if err != nil {
		return nil, storeError(err, pkgerrors.QuestionNotFound, "count view")
	}
	q.Views = views
	q.Answers = answers
	return q, nil
}

// CreateQuestion submits draft through the moderation workflow.
func (s *ContentService) CreateQuestion(ctx context.Context, actor model.Actor, draft model.QuestionDraft) (*model.Question, error) {
	return s.workflow.Submit(ctx, actor, draft)
}

// ListUserQuestions lists every question of userID. Only the user and admins may list.
func (s *ContentService) ListUserQuestions(ctx context.Context, actor model.Actor, userID string, pageNum, pageSize int) (repository.QuestionPage, error) {
	page, err := s.ownedListing(ctx, actor, userID, pageNum, pageSize)
	if err != nil {
		return repository.QuestionPage{}, err
	}
	result, err := s.store.ListQuestions(ctx, model.QuestionFilter{AuthorID: userID}, page)
	if err != nil {
		return repository.QuestionPage{}, storeError(err, pkgerrors.QuestionNotFound, "list user questions")
	}
	return result, nil
}

// ListUserAnswers lists every answer of userID newest first.
func (s *ContentService) ListUserAnswers(ctx context.Context, actor model.Actor, userID string, pageNum, pageSize int) (repository.AnswerPage, error) {
	page, err := s.ownedListing(ctx, actor, userID, pageNum, pageSize)
	if err != nil {
		return repository.AnswerPage{}, err
	}
	result, err := s.store.ListAnswersByAuthor(ctx, userID, page)
	if err != nil {
		return repository.AnswerPage{}, storeError(err, pkgerrors.AnswerNotFound, "list user answers")
	}
	return result, nil
}

// ListUserNotifications lists the notifications addressed to userID. Only the
// recipient may read them.
func (s *ContentService) ListUserNotifications(ctx context.Context, actor model.Actor, userID string, unreadOnly bool, pageNum, pageSize int) (repository.NotificationPage, error) {
	if !actor.IsAuthenticated() {
		return repository.NotificationPage{}, pkgerrors.UnauthorizedError("sign in to read notifications")
	}
	if !actor.Owns(userID) {
		return repository.NotificationPage{}, pkgerrors.New(pkgerrors.PermissionDenied).WithMessage("notifications are private")
	}
	page, err := pageRequest(pageNum, pageSize)
	if err != nil {
		return repository.NotificationPage{}, err
	}
	result, err := s.store.ListNotifications(ctx, userID, unreadOnly, page)
	if err != nil {
		return repository.NotificationPage{}, storeError(err, pkgerrors.NotificationNotFound, "list notifications")
	}
	return result, nil
}

func (s *ContentService) ownedListing(ctx context.Context, actor model.Actor, userID string, pageNum, pageSize int) (repository.PageRequest, error) {
	if !actor.IsAuthenticated() {
		return repository.PageRequest{}, pkgerrors.UnauthorizedError("sign in to continue")
	}
	if !actor.Owns(userID) && !actor.Role.IsAdmin() {
		return repository.PageRequest{}, pkgerrors.New(pkgerrors.PermissionDenied)
	}
	page, err := pageRequest(pageNum, pageSize)
	if err != nil {
		return repository.PageRequest{}, err
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return repository.PageRequest{}, storeError(err, pkgerrors.UserNotFound, "get user")
	}
	return page, nil
}

// GetUserStats aggregates the current questions and answers of userID.
func (s *ContentService) GetUserStats(ctx context.Context, userID string) (model.UserStats, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return model.UserStats{}, storeError(err, pkgerrors.UserNotFound, "get user")
	}

	var (
		questions model.QuestionCounts
		answers   model.AnswerCounts
	)
	err := mr.Finish(func() error {
		var err error
		questions, err = s.store.QuestionStats(ctx, userID)
		return err
	}, func() error {
		var err error
		answers, err = s.store.AnswerStats(ctx, userID)
		return err
	})
	if err != nil {
		return model.UserStats{}, storeError(err, pkgerrors.UserNotFound, "user stats")
	}

	return model.UserStats{
		QuestionsAsked:    questions.Total,
		QuestionsPending:  questions.Pending,
		QuestionsApproved: questions.Approved,
		QuestionsRejected: questions.Rejected,
		AnswersGiven:      answers.Total,
		AcceptedAnswers:   answers.Accepted,
		TotalViews:        questions.Views,
		TotalVotes:        questions.Votes + answers.Votes,
	}, nil
}

// MarkNotificationRead sets the read flag of one of the actor's notifications.
func (s *ContentService) MarkNotificationRead(ctx context.Context, actor model.Actor, id string, read bool) (*model.Notification, error) {
	if !actor.IsAuthenticated() {
		return nil, pkgerrors.UnauthorizedError("sign in to update notifications")
	}
	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return nil, storeError(err, pkgerrors.NotificationNotFound, "get notification")
	}
	if !actor.Owns(n.UserID) {
		return nil, pkgerrors.New(pkgerrors.NotificationNotFound)
	}
	if err := s.store.SetNotificationRead(ctx, id, read); err != nil {
		return nil, storeError(err, pkgerrors.NotificationNotFound, "update notification")
	}
	n.Read = read
	return n, nil
}

// MarkAllNotificationsRead marks every unread notification of the actor as read and
// returns how many changed.
func (s *ContentService) MarkAllNotificationsRead(ctx context.Context, actor model.Actor) (int64, error) {
	if !actor.IsAuthenticated() {
		return 0, pkgerrors.UnauthorizedError("sign in to update notifications")
	}
	n, err := s.store.MarkAllNotificationsRead(ctx, actor.ID)
	if err != nil {
		return 0, storeError(err, pkgerrors.NotificationNotFound, "mark notifications read")
	}
	return n, nil
}

// UnreadNotifications counts the actor's unread notifications.
func (s *ContentService) UnreadNotifications(ctx context.Context, actor model.Actor) (int64, error) {
	if !actor.IsAuthenticated() {
		return 0, pkgerrors.UnauthorizedError("sign in to read notifications")
	}
	n, err := s.store.CountUnreadNotifications(ctx, actor.ID)
	if err != nil {
		return 0, storeError(err, pkgerrors.NotificationNotFound, "count notifications")
	}
	return n, nil
}

// GetAdminStats summarizes the whole forum.
func (s *ContentService) GetAdminStats(ctx context.Context, actor model.Actor) (model.AdminStats, error) {
	if err := requireAdmin(actor); err != nil {
		return model.AdminStats{}, err
	}
	var (
		byStatus map[model.QuestionStatus]int64
		answers  int64
		users    int64
	)
	err := mr.Finish(func() error {
		var err error
		byStatus, err = s.store.CountQuestionsByStatus(ctx)
		return err
	}, func() error {
		var err error
		answers, err = s.store.CountAnswers(ctx)
		return err
	}, func() error {
		var err error
		users, err = s.store.CountUsers(ctx)
		return err
	})
	if err != nil {
		return model.AdminStats{}, storeError(err, pkgerrors.NotFound, "admin stats")
	}

	stats := model.AdminStats{
		PendingQuestions:  byStatus[model.StatusPending],
		ApprovedQuestions: byStatus[model.StatusApproved],
		RejectedQuestions: byStatus[model.StatusRejected],
		TotalAnswers:      answers,
		TotalUsers:        users,
	}
	stats.TotalQuestions = stats.PendingQuestions + stats.ApprovedQuestions + stats.RejectedQuestions
	return stats, nil
}

// ListActivity returns the admin audit feed newest first.
func (s *ContentService) ListActivity(ctx context.Context, actor model.Actor, pageNum, pageSize int) (repository.ActivityPage, error) {
	if err := requireAdmin(actor); err != nil {
		return repository.ActivityPage{}, err
	}
	page, err := pageRequest(pageNum, pageSize)
	if err != nil {
		return repository.ActivityPage{}, err
	}
	result, err := s.store.ListActivity(ctx, page)
	if err != nil {
		return repository.ActivityPage{}, storeError(err, pkgerrors.NotFound, "list activity")
	}
	return result, nil
}

// ListUsers returns registered users newest first.
func (s *ContentService) ListUsers(ctx context.Context, actor model.Actor, pageNum, pageSize int) (repository.UserPage, error) {
	if err := requireAdmin(actor); err != nil {
		return repository.UserPage{}, err
	}
	page, err := pageRequest(pageNum, pageSize)
	if err != nil {
		return repository.UserPage{}, err
	}
	result, err := s.store.ListUsers(ctx, page)
	if err != nil {
		return repository.UserPage{}, storeError(err, pkgerrors.UserNotFound, "list users")
	}
	return result, nil
}

// ListTags counts approved questions per tag, most used first.
func (s *ContentService) ListTags(ctx context.Context) ([]model.TagCount, error) {
	tags, err := s.store.TagCounts(ctx, model.StatusApproved)
	if err != nil {
		return nil, storeError(err, pkgerrors.NotFound, "list tags")
	}
	return tags, nil
}

func pageRequest(page, pageSize int) (repository.PageRequest, error) {
	if page < 1 {
		return repository.PageRequest{}, pkgerrors.ValidationError("page", "must be at least 1")
	}
	if pageSize < 1 || pageSize > pkgrepo.MaxPageSize {
		return repository.PageRequest{}, pkgerrors.ValidationError("page_size", "must be between 1 and 100")
	}
	return repository.PageRequest{Page: page, PageSize: pageSize}, nil
}
