package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"stackit/internal/forum/model"
	pkgrepo "stackit/pkg/repository"
)

// MemoryGateway keeps every record in process memory behind one lock. It backs
// fixture-driven development and tests, and mirrors the MySQL gateway's semantics.
type MemoryGateway struct {
	mu sync.RWMutex

	seq           int64
	users         map[string]*memUser
	emails        map[string]string
	questions     map[string]*memQuestion
	answers       map[string]*memAnswer
	notifications map[string]*memNotification
	activity      []memActivity
}

type memUser struct {
	seq  int64
	user model.User
}

type memQuestion struct {
	seq int64
	q   *model.Question
}

type memAnswer struct {
	seq int64
	a   model.Answer
}

type memNotification struct {
	seq int64
	n   model.Notification
}

type memActivity struct {
	seq int64
	a   model.Activity
}

// NewMemoryGateway returns an empty gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		users:         make(map[string]*memUser),
		emails:        make(map[string]string),
		questions:     make(map[string]*memQuestion),
		answers:       make(map[string]*memAnswer),
		notifications: make(map[string]*memNotification),
	}
}

func (g *MemoryGateway) Close() error { return nil }

func (g *MemoryGateway) next() int64 {
	g.seq++
	return g.seq
}

// appendSideEffects must be called with the write lock held.
func (g *MemoryGateway) appendSideEffects(note *model.Notification, activity *model.Activity) {
	if note != nil {
		g.notifications[note.ID] = &memNotification{seq: g.next(), n: *note}
	}
	if activity != nil {
		g.activity = append(g.activity, memActivity{seq: g.next(), a: *activity})
	}
}

func (g *MemoryGateway) CreateUser(ctx context.Context, user *model.User, activity *model.Activity) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	email := normalizeEmail(user.Email)
	if _, ok := g.emails[email]; ok {
		return ErrAlreadyExists
	}
	if _, ok := g.users[user.ID]; ok {
		return ErrAlreadyExists
	}
	g.users[user.ID] = &memUser{seq: g.next(), user: *user}
	g.emails[email] = user.ID
	g.appendSideEffects(nil, activity)
	return nil
}

func (g *MemoryGateway) GetUser(ctx context.Context, id string) (*model.User, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, ok := g.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := u.user
	return &out, nil
}

func (g *MemoryGateway) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, ok := g.emails[normalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	out := g.users[id].user
	return &out, nil
}

func (g *MemoryGateway) ListUsers(ctx context.Context, page PageRequest) (UserPage, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return UserPage{}, err
	}
	rows := make([]*memUser, 0, len(g.users))
	for _, u := range g.users {
		rows = append(rows, u)
	}
	sort.Slice(rows, func(i, j int) bool { return newer(rows[i].user.CreatedAt, rows[i].seq, rows[j].user.CreatedAt, rows[j].seq) })
	users := make([]model.User, len(rows))
	for i, u := range rows {
		users[i] = u.user
	}
	return pkgrepo.Paginate(users, page), nil
}

func (g *MemoryGateway) CountUsers(ctx context.Context) (int64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(len(g.users)), nil
}

func (g *MemoryGateway) CreateQuestion(ctx context.Context, q *model.Question, note *model.Notification, activity *model.Activity) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := g.questions[q.ID]; ok {
		return ErrAlreadyExists
	}
	stored := q.Clone()
	stored.Answers = nil
	g.questions[q.ID] = &memQuestion{seq: g.next(), q: stored}
	g.appendSideEffects(note, activity)
	return nil
}

func (g *MemoryGateway) GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q, ok := g.questions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return q.q.Clone(), nil
}

func (g *MemoryGateway) ListQuestions(ctx context.Context, filter model.QuestionFilter, page PageRequest) (QuestionPage, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return QuestionPage{}, err
	}
	rows := make([]*memQuestion, 0, len(g.questions))
	for _, q := range g.questions {
		if matchQuestion(q.q, filter) {
			rows = append(rows, q)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return newer(rows[i].q.CreatedAt, rows[i].seq, rows[j].q.CreatedAt, rows[j].seq) })
	out := make([]model.Question, len(rows))
	for i, q := range rows {
		out[i] = *q.q.Clone()
	}
	return pkgrepo.Paginate(out, page), nil
}

func hasAnyTag(tags, wanted []string) bool {
	for _, t := range tags {
		for _, w := range wanted {
			if t == w {
				return true
			}
		}
	}
	return false
}

func matchQuestion(q *model.Question, f model.QuestionFilter) bool {
	if f.Status != "" && q.Status != f.Status {
		return false
	}
	if f.AuthorID != "" && q.AuthorID != f.AuthorID {
		return false
	}
	if len(f.Tags) > 0 && !hasAnyTag(q.Tags, f.Tags) {
		return false
	}
	if f.Query != "" {
		needle := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(q.Title), needle) && !strings.Contains(strings.ToLower(q.Body), needle) {
			return false
		}
	}
	return true
}

func (g *MemoryGateway) IncrementQuestionViews(ctx context.Context, id string) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	q, ok := g.questions[id]
	if !ok {
		return 0, ErrNotFound
	}
	q.q.Views++
	return q.q.Views, nil
}

func (g *MemoryGateway) AdjustQuestionVotes(ctx context.Context, id string, delta int64) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	q, ok := g.questions[id]
	if !ok {
		return 0, ErrNotFound
	}
	q.q.Votes += delta
	return q.q.Votes, nil
}

func (g *MemoryGateway) TransitionQuestion(ctx context.Context, q *model.Question, expected model.QuestionStatus, note *model.Notification, activity *model.Activity) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	stored, ok := g.questions[q.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.q.Status != expected {
		return ErrConflict
	}
	next := stored.q.Clone()
	next.Status = q.Status
	next.UpdatedAt = q.UpdatedAt
	moderated := q.Clone()
	next.ApprovedBy = moderated.ApprovedBy
	next.ApprovedAt = moderated.ApprovedAt
	next.RejectedBy = moderated.RejectedBy
	next.RejectedAt = moderated.RejectedAt
	next.RejectionReason = moderated.RejectionReason
	stored.q = next
	g.appendSideEffects(note, activity)
	return nil
}

func (g *MemoryGateway) CountQuestionsByStatus(ctx context.Context) (map[model.QuestionStatus]int64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts := map[model.QuestionStatus]int64{}
	for _, q := range g.questions {
		counts[q.q.Status]++
	}
	return counts, nil
}

func (g *MemoryGateway) QuestionStats(ctx context.Context, authorID string) (model.QuestionCounts, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return model.QuestionCounts{}, err
	}
	var c model.QuestionCounts
	for _, q := range g.questions {
		if q.q.AuthorID != authorID {
			continue
		}
		c.Total++
		c.Views += q.q.Views
		c.Votes += q.q.Votes
		switch q.q.Status {
		case model.StatusPending:
			c.Pending++
		case model.StatusApproved:
			c.Approved++
		case model.StatusRejected:
			c.Rejected++
		}
	}
	return c, nil
}

func (g *MemoryGateway) TagCounts(ctx context.Context, status model.QuestionStatus) ([]model.TagCount, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts := map[string]int64{}
	for _, q := range g.questions {
		if status != "" && q.q.Status != status {
			continue
		}
		for _, t := range q.q.Tags {
			counts[t]++
		}
	}
	out := make([]model.TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, model.TagCount{Tag: tag, Count: n})
	}
	sortTagCounts(out)
	return out, nil
}

func sortTagCounts(tags []model.TagCount) {
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Tag < tags[j].Tag
	})
}

func (g *MemoryGateway) CreateAnswer(ctx context.Context, a *model.Answer, note *model.Notification, activity *model.Activity) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := g.questions[a.QuestionID]; !ok {
		return ErrNotFound
	}
	if _, ok := g.answers[a.ID]; ok {
		return ErrAlreadyExists
	}
	g.answers[a.ID] = &memAnswer{seq: g.next(), a: *a}
	g.appendSideEffects(note, activity)
	return nil
}

func (g *MemoryGateway) GetAnswer(ctx context.Context, id string) (*model.Answer, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a, ok := g.answers[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := a.a
	return &out, nil
}

func (g *MemoryGateway) ListAnswersByQuestion(ctx context.Context, questionID string) ([]model.Answer, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows := make([]*memAnswer, 0)
	for _, a := range g.answers {
		if a.a.QuestionID == questionID {
			rows = append(rows, a)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return newer(rows[j].a.CreatedAt, rows[j].seq, rows[i].a.CreatedAt, rows[i].seq) })
	out := make([]model.Answer, len(rows))
	for i, a := range rows {
		out[i] = a.a
	}
	return out, nil
}

func (g *MemoryGateway) ListAnswersByAuthor(ctx context.Context, authorID string, page PageRequest) (AnswerPage, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return AnswerPage{}, err
	}
	rows := make([]*memAnswer, 0)
	for _, a := range g.answers {
		if a.a.AuthorID == authorID {
			rows = append(rows, a)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return newer(rows[i].a.CreatedAt, rows[i].seq, rows[j].a.CreatedAt, rows[j].seq) })
	out := make([]model.Answer, len(rows))
	for i, a := range rows {
		out[i] = a.a
	}
	return pkgrepo.Paginate(out, page), nil
}

func (g *MemoryGateway) AcceptAnswer(ctx context.Context, questionID, answerID string, activity *model.Activity) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	target, ok := g.answers[answerID]
	if !ok || target.a.QuestionID != questionID {
		return ErrNotFound
	}
	for _, a := range g.answers {
		if a.a.QuestionID == questionID {
			a.a.Accepted = a.a.ID == answerID
		}
	}
	g.appendSideEffects(nil, activity)
	return nil
}

func (g *MemoryGateway) AdjustAnswerVotes(ctx context.Context, id string, delta int64) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	a, ok := g.answers[id]
	if !ok {
		return 0, ErrNotFound
	}
	a.a.Votes += delta
	return a.a.Votes, nil
}

func (g *MemoryGateway) CountAnswers(ctx context.Context) (int64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(len(g.answers)), nil
}

func (g *MemoryGateway) AnswerStats(ctx context.Context, authorID string) (model.AnswerCounts, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return model.AnswerCounts{}, err
	}
	var c model.AnswerCounts
	for _, a := range g.answers {
		if a.a.AuthorID != authorID {
			continue
		}
		c.Total++
		c.Votes += a.a.Votes
		if a.a.Accepted {
			c.Accepted++
		}
	}
	return c, nil
}

func (g *MemoryGateway) ListNotifications(ctx context.Context, userID string, unreadOnly bool, page PageRequest) (NotificationPage, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return NotificationPage{}, err
	}
	rows := make([]*memNotification, 0)
	for _, n := range g.notifications {
		if n.n.UserID != userID || (unreadOnly && n.n.Read) {
			continue
		}
		rows = append(rows, n)
	}
	sort.Slice(rows, func(i, j int) bool { return newer(rows[i].n.CreatedAt, rows[i].seq, rows[j].n.CreatedAt, rows[j].seq) })
	out := make([]model.Notification, len(rows))
	for i, n := range rows {
		out[i] = n.n
	}
	return pkgrepo.Paginate(out, page), nil
}

func (g *MemoryGateway) GetNotification(ctx context.Context, id string) (*model.Notification, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, ok := g.notifications[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := n.n
	return &out, nil
}

func (g *MemoryGateway) SetNotificationRead(ctx context.Context, id string, read bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	n, ok := g.notifications[id]
	if !ok {
		return ErrNotFound
	}
	n.n.Read = read
	return nil
}

func (g *MemoryGateway) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var changed int64
	for _, n := range g.notifications {
		if n.n.UserID == userID && !n.n.Read {
			n.n.Read = true
			changed++
		}
	}
	return changed, nil
}

func (g *MemoryGateway) CountUnreadNotifications(ctx context.Context, userID string) (int64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	for _, note := range g.notifications {
		if note.n.UserID == userID && !note.n.Read {
			n++
		}
	}
	return n, nil
}

func (g *MemoryGateway) ListActivity(ctx context.Context, page PageRequest) (ActivityPage, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return ActivityPage{}, err
	}
	out := make([]model.Activity, 0, len(g.activity))
	rows := append([]memActivity(nil), g.activity...)
	sort.Slice(rows, func(i, j int) bool { return newer(rows[i].a.CreatedAt, rows[i].seq, rows[j].a.CreatedAt, rows[j].seq) })
	for _, a := range rows {
		out = append(out, a.a)
	}
	return pkgrepo.Paginate(out, page), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// newer orders by timestamp descending, falling back to insertion order for ties.
func newer(at time.Time, seq int64, otherAt time.Time, otherSeq int64) bool {
	if !at.Equal(otherAt) {
		return at.After(otherAt)
	}
	return seq > otherSeq
}
