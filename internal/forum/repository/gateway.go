package repository

import (
	"context"

	"stackit/internal/forum/model"
	pkgrepo "stackit/pkg/repository"
)

// Re-exported sentinels so callers depend on one package.
var (
	ErrNotFound      = pkgrepo.ErrNotFound
	ErrAlreadyExists = pkgrepo.ErrAlreadyExists
	ErrConflict      = pkgrepo.ErrConflict
)

type (
	PageRequest      = pkgrepo.PageRequest
	QuestionPage     = pkgrepo.PaginationResult[model.Question]
	AnswerPage       = pkgrepo.PaginationResult[model.Answer]
	NotificationPage = pkgrepo.PaginationResult[model.Notification]
	ActivityPage     = pkgrepo.PaginationResult[model.Activity]
	UserPage         = pkgrepo.PaginationResult[model.User]
)

// Gateway is the storage contract behind the forum. Every method honours ctx: a call
// whose context is done before it commits leaves no trace. Writes that carry a
// notification or activity persist them atomically with the primary change.
type Gateway interface {
	UserStore
	QuestionStore
	AnswerStore
	NotificationStore
	ActivityStore
	Close() error
}

type UserStore interface {
	// CreateUser returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, user *model.User, activity *model.Activity) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context, page PageRequest) (UserPage, error)
	CountUsers(ctx context.Context) (int64, error)
}

type QuestionStore interface {
	CreateQuestion(ctx context.Context, q *model.Question, note *model.Notification, activity *model.Activity) error

	// GetQuestion returns the question without answers attached.
	GetQuestion(ctx context.Context, id string) (*model.Question, error)

	// ListQuestions returns matches newest first.
	ListQuestions(ctx context.Context, filter model.QuestionFilter, page PageRequest) (QuestionPage, error)

	IncrementQuestionViews(ctx context.Context, id string) (int64, error)
	AdjustQuestionVotes(ctx context.Context, id string, delta int64) (int64, error)

	// TransitionQuestion stores the moderation fields of q if the stored status still
	// equals expected, otherwise it returns ErrConflict and changes nothing.
	TransitionQuestion(ctx context.Context, q *model.Question, expected model.QuestionStatus, note *model.Notification, activity *model.Activity) error

	CountQuestionsByStatus(ctx context.Context) (map[model.QuestionStatus]int64, error)
	QuestionStats(ctx context.Context, authorID string) (model.QuestionCounts, error)

	// TagCounts counts questions per tag among those with the given status,
	// ordered by count descending then tag.
	TagCounts(ctx context.Context, status model.QuestionStatus) ([]model.TagCount, error)
}

type AnswerStore interface {
	CreateAnswer(ctx context.Context, a *model.Answer, note *model.Notification, activity *model.Activity) error
	GetAnswer(ctx context.Context, id string) (*model.Answer, error)

	// ListAnswersByQuestion returns answers oldest first.
	ListAnswersByQuestion(ctx context.Context, questionID string) ([]model.Answer, error)

	// ListAnswersByAuthor returns answers newest first.
	ListAnswersByAuthor(ctx context.Context, authorID string, page PageRequest) (AnswerPage, error)

	// AcceptAnswer marks answerID accepted and clears the flag on every other answer of the question.
	AcceptAnswer(ctx context.Context, questionID, answerID string, activity *model.Activity) error

	AdjustAnswerVotes(ctx context.Context, id string, delta int64) (int64, error)
	CountAnswers(ctx context.Context) (int64, error)
	AnswerStats(ctx context.Context, authorID string) (model.AnswerCounts, error)
}

type NotificationStore interface {
	// ListNotifications returns the user's notifications newest first.
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, page PageRequest) (NotificationPage, error)
	GetNotification(ctx context.Context, id string) (*model.Notification, error)
	SetNotificationRead(ctx context.Context, id string, read bool) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int64, error)
}

type ActivityStore interface {
	// ListActivity returns the audit feed newest first.
	ListActivity(ctx context.Context, page PageRequest) (ActivityPage, error)
}

var (
	_ Gateway = (*MemoryGateway)(nil)
	_ Gateway = (*MySQLGateway)(nil)
)
