package repository_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stackit/internal/forum/model"
	"stackit/internal/forum/repository"
)

const seedYAML = `
users:
  - id: u-admin
    name: Admin
    email: admin@example.com
    password: secret
    role: admin
    createdAt: 2024-01-01T00:00:00Z
  - id: u-ada
    name: Ada
    email: ada@example.com
    password: secret
    createdAt: 2024-01-02T00:00:00Z
questions:
  - id: q-1
    title: How do channels close?
    body: Details.
    tags: [Go, Channels]
    authorId: u-ada
    status: approved
    createdAt: 2024-01-03T00:00:00Z
    moderatedBy: u-admin
    moderatedAt: 2024-01-03T01:00:00Z
  - id: q-2
    title: Spam
    body: Buy now.
    tags: [spam]
    authorId: u-ada
    status: rejected
    createdAt: 2024-01-04T00:00:00Z
    moderatedBy: u-admin
    moderatedAt: 2024-01-04T01:00:00Z
    rejectionReason: Off topic
answers:
  - id: a-1
    questionId: q-1
    authorId: u-admin
    body: Use close(ch).
    accepted: true
    createdAt: 2024-01-03T02:00:00Z
`

func writeFixtures(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixtures: %v", err)
	}
	return path
}

func plainHash(p string) (string, error) { return "hashed:" + p, nil }

func TestSeedLoadsFixtures(t *testing.T) {
	ctx := context.Background()
	fx, err := repository.LoadFixtures(writeFixtures(t, seedYAML))
	if err != nil {
		t.Fatalf("load fixtures: %v", err)
	}
	g := repository.NewMemoryGateway()
	if err := g.Seed(ctx, fx, plainHash); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ada, err := g.GetUser(ctx, "u-ada")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if ada.Role != model.RoleUser || ada.PasswordHash != "hashed:secret" {
		t.Fatalf("unexpected user: %+v", ada)
	}

	q, err := g.GetQuestion(ctx, "q-1")
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if q.ApprovedBy != "u-admin" || q.ApprovedAt == nil || q.AuthorName != "Ada" {
		t.Fatalf("unexpected approved question: %+v", q)
	}
	if strings.Join(q.Tags, ",") != "go,channels" {
		t.Fatalf("tags not normalized: %v", q.Tags)
	}

	rejected, _ := g.GetQuestion(ctx, "q-2")
	if rejected.RejectionReason != "Off topic" || rejected.RejectedBy != "u-admin" {
		t.Fatalf("unexpected rejected question: %+v", rejected)
	}

	a, _ := g.GetAnswer(ctx, "a-1")
	if !a.Accepted {
		t.Fatalf("answer should be accepted")
	}
}

func TestSeedRejectsInconsistentFixtures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "unknown author",
			content: `
questions:
  - id: q-1
    title: t
    body: b
    tags: [go]
    authorId: ghost
`,
			wantErr: "unknown author",
		},
		{
			name: "rejected without reason",
			content: `
users:
  - id: u-1
    name: U
    email: u@example.com
questions:
  - id: q-1
    title: t
    body: b
    tags: [go]
    authorId: u-1
    status: rejected
    moderatedBy: u-1
    moderatedAt: 2024-01-01T00:00:00Z
`,
			wantErr: "do not match status",
		},
		{
			name: "no tags",
			content: `
users:
  - id: u-1
    name: U
    email: u@example.com
questions:
  - id: q-1
    title: t
    body: b
    tags: []
    authorId: u-1
`,
			wantErr: "has 0 tags",
		},
		{
			name: "six tags",
			content: `
users:
  - id: u-1
    name: U
    email: u@example.com
questions:
  - id: q-1
    title: t
    body: b
    tags: [a, b, c, d, e, f]
    authorId: u-1
`,
			wantErr: "has 6 tags",
		},
		{
			name: "blank tag",
			content: `
users:
  - id: u-1
    name: U
    email: u@example.com
questions:
  - id: q-1
    title: t
    body: b
    tags: [go, "  "]
    authorId: u-1
`,
			wantErr: "empty tag",
		},
		{
			name: "duplicate tag after lower-casing",
			content: `
users:
  - id: u-1
    name: U
    email: u@example.com
questions:
  - id: q-1
    title: t
    body: b
    tags: [Go, go]
    authorId: u-1
`,
			wantErr: "duplicate tag \"go\"",
		},
		{
			name: "two accepted answers",
			content: `
users:
  - id: u-1
    name: U
    email: u@example.com
questions:
  - id: q-1
    title: t
    body: b
    tags: [go]
    authorId: u-1
answers:
  - id: a-1
    questionId: q-1
    authorId: u-1
    body: x
    accepted: true
  - id: a-2
    questionId: q-1
    authorId: u-1
    body: y
    accepted: true
`,
			wantErr: "already has accepted answer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx, err := repository.LoadFixtures(writeFixtures(t, tt.content))
			if err != nil {
				t.Fatalf("load fixtures: %v", err)
			}
			err = repository.NewMemoryGateway().Seed(context.Background(), fx, plainHash)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
