package repository

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"stackit/internal/forum/model"

	"gopkg.in/yaml.v3"
)

// Fixtures is the seed data format accepted by the memory gateway.
type Fixtures struct {
	Users     []FixtureUser     `yaml:"users"`
	Questions []FixtureQuestion `yaml:"questions"`
	Answers   []FixtureAnswer   `yaml:"answers"`
}

type FixtureUser struct {
	ID        string     `yaml:"id"`
	Name      string     `yaml:"name"`
	Email     string     `yaml:"email"`
	Password  string     `yaml:"password"`
	Role      model.Role `yaml:"role"`
	CreatedAt time.Time  `yaml:"createdAt"`
}

type FixtureQuestion struct {
	ID              string               `yaml:"id"`
	Title           string               `yaml:"title"`
	Body            string               `yaml:"body"`
	Tags            []string             `yaml:"tags"`
	AuthorID        string               `yaml:"authorId"`
	Status          model.QuestionStatus `yaml:"status"`
	CreatedAt       time.Time            `yaml:"createdAt"`
	Views           int64                `yaml:"views"`
	Votes           int64                `yaml:"votes"`
	ModeratedBy     string               `yaml:"moderatedBy"`
	ModeratedAt     *time.Time           `yaml:"moderatedAt"`
	RejectionReason string               `yaml:"rejectionReason"`
}

type FixtureAnswer struct {
	ID         string    `yaml:"id"`
	QuestionID string    `yaml:"questionId"`
	AuthorID   string    `yaml:"authorId"`
	Body       string    `yaml:"body"`
	Votes      int64     `yaml:"votes"`
	Accepted   bool      `yaml:"accepted"`
	CreatedAt  time.Time `yaml:"createdAt"`
}

// LoadFixtures reads a YAML seed file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures failed: %w", err)
	}
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixtures failed: %w", err)
	}
	return &fx, nil
}

// Seed loads fixtures into the gateway. Plain-text passwords are passed through hash.
// Seeding validates references and moderation fields and stops at the first bad record.
func (g *MemoryGateway) Seed(ctx context.Context, fx *Fixtures, hash func(string) (string, error)) error {
	if fx == nil {
		return nil
	}
	names := make(map[string]string, len(fx.Users))
	for _, u := range fx.Users {
		role := u.Role
		if role == "" {
			role = model.RoleUser
		}
		passwordHash := ""
		if u.Password != "" {
			var err error
			if passwordHash, err = hash(u.Password); err != nil {
				return fmt.Errorf("hash password for %s: %w", u.ID, err)
			}
		}
		user := &model.User{
			ID:           u.ID,
			Name:         u.Name,
			Email:        u.Email,
			PasswordHash: passwordHash,
			Role:         role,
			CreatedAt:    u.CreatedAt,
		}
		if err := g.CreateUser(ctx, user, nil); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
		names[u.ID] = u.Name
	}

	for _, fq := range fx.Questions {
		author, ok := names[fq.AuthorID]
		if !ok {
			return fmt.Errorf("seed question %s: unknown author %s", fq.ID, fq.AuthorID)
		}
		tags, err := normalizeFixtureTags(fq.Tags)
		if err != nil {
			return fmt.Errorf("seed question %s: %w", fq.ID, err)
		}
		q := &model.Question{
			ID:         fq.ID,
			Title:      fq.Title,
			Body:       fq.Body,
			Tags:       tags,
			AuthorID:   fq.AuthorID,
			AuthorName: author,
			Status:     fq.Status,
			CreatedAt:  fq.CreatedAt,
			UpdatedAt:  fq.CreatedAt,
			Views:      fq.Views,
			Votes:      fq.Votes,
		}
		if q.Status == "" {
			q.Status = model.StatusPending
		}
		switch q.Status {
		case model.StatusApproved:
			q.ApprovedBy = fq.ModeratedBy
			q.ApprovedAt = fq.ModeratedAt
		case model.StatusRejected:
			q.RejectedBy = fq.ModeratedBy
			q.RejectedAt = fq.ModeratedAt
			q.RejectionReason = strings.TrimSpace(fq.RejectionReason)
		}
		if q.ApprovedAt != nil || q.RejectedAt != nil {
			q.UpdatedAt = *firstNonNil(q.ApprovedAt, q.RejectedAt)
		}
		if !q.Consistent() {
			return fmt.Errorf("seed question %s: moderation fields do not match status %s", fq.ID, q.Status)
		}
		if err := g.CreateQuestion(ctx, q, nil, nil); err != nil {
			return fmt.Errorf("seed question %s: %w", fq.ID, err)
		}
	}

	accepted := make(map[string]string)
	for _, fa := range fx.Answers {
		author, ok := names[fa.AuthorID]
		if !ok {
			return fmt.Errorf("seed answer %s: unknown author %s", fa.ID, fa.AuthorID)
		}
		a := &model.Answer{
			ID:         fa.ID,
			QuestionID: fa.QuestionID,
			AuthorID:   fa.AuthorID,
			AuthorName: author,
			Body:       fa.Body,
			Votes:      fa.Votes,
			CreatedAt:  fa.CreatedAt,
			UpdatedAt:  fa.CreatedAt,
		}
		if err := g.CreateAnswer(ctx, a, nil, nil); err != nil {
			return fmt.Errorf("seed answer %s: %w", fa.ID, err)
		}
		if fa.Accepted {
			if prev, dup := accepted[fa.QuestionID]; dup {
				return fmt.Errorf("seed answer %s: question %s already has accepted answer %s", fa.ID, fa.QuestionID, prev)
			}
			accepted[fa.QuestionID] = fa.ID
			if err := g.AcceptAnswer(ctx, fa.QuestionID, fa.ID, nil); err != nil {
				return fmt.Errorf("seed answer %s: %w", fa.ID, err)
			}
		}
	}
	return nil
}

// normalizeFixtureTags lower-cases tags and holds them to the same rules as a
// submitted question.
func normalizeFixtureTags(tags []string) ([]string, error) {
	if len(tags) < model.MinTags || len(tags) > model.MaxTags {
		return nil, fmt.Errorf("has %d tags, want %d to %d", len(tags), model.MinTags, model.MaxTags)
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		tag := strings.ToLower(strings.TrimSpace(t))
		if tag == "" {
			return nil, fmt.Errorf("has an empty tag")
		}
		if utf8.RuneCountInString(tag) > model.MaxTagLength {
			return nil, fmt.Errorf("tag %q is longer than %d characters", tag, model.MaxTagLength)
		}
		if _, dup := seen[tag]; dup {
			return nil, fmt.Errorf("duplicate tag %q", tag)
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out, nil
}

func firstNonNil(ts ...*time.Time) *time.Time {
	for _, t := range ts {
		if t != nil {
			return t
		}
	}
	return nil
}
