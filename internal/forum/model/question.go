package model

import "time"

type QuestionStatus string

const (
	StatusPending  QuestionStatus = "pending"
	StatusApproved QuestionStatus = "approved"
	StatusRejected QuestionStatus = "rejected"
)

func (s QuestionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no moderation transition leaves the status.
func (s QuestionStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

const (
	MaxTitleLength = 200
	MinTags        = 1
	MaxTags        = 5
	MaxTagLength   = 32
)

type Question struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Body            string         `json:"body"`
	Tags            []string       `json:"tags"`
	AuthorID        string         `json:"author_id"`
	AuthorName      string         `json:"author_name"`
	Status          QuestionStatus `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	Views           int64          `json:"views"`
	Votes           int64          `json:"votes"`
	ApprovedBy      string         `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time     `json:"approved_at,omitempty"`
	RejectedBy      string         `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time     `json:"rejected_at,omitempty"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	Answers         []Answer       `json:"answers,omitempty"`
}

// Clone returns a deep copy so stored records never alias caller values.
func (q *Question) Clone() *Question {
	if q == nil {
		return nil
	}
	c := *q
	c.Tags = append([]string(nil), q.Tags...)
	if q.ApprovedAt != nil {
		t := *q.ApprovedAt
		c.ApprovedAt = &t
	}
	if q.RejectedAt != nil {
		t := *q.RejectedAt
		c.RejectedAt = &t
	}
	if q.Answers != nil {
		c.Answers = append([]Answer(nil), q.Answers...)
	}
	return &c
}

// Consistent checks that moderation fields agree with the status: a rejection reason
// exists only on rejected questions and approver data only on approved ones.
func (q *Question) Consistent() bool {
	if !q.Status.Valid() {
		return false
	}
	approved := q.ApprovedBy != "" && q.ApprovedAt != nil
	anyApproved := q.ApprovedBy != "" || q.ApprovedAt != nil
	rejected := q.RejectionReason != "" && q.RejectedBy != "" && q.RejectedAt != nil
	anyRejected := q.RejectionReason != "" || q.RejectedBy != "" || q.RejectedAt != nil
	switch q.Status {
	case StatusPending:
		return !anyApproved && !anyRejected
	case StatusApproved:
		return approved && !anyRejected
	default:
		return rejected && !anyApproved
	}
}

// QuestionDraft is the caller-supplied part of a new question.
type QuestionDraft struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

// QuestionFilter narrows a question listing. Zero fields match everything.
// A question matches Tags when it carries at least one of them.
type QuestionFilter struct {
	Status   QuestionStatus
	AuthorID string
	Tags     []string
	Query    string
}
