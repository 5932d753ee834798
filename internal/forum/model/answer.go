package model

import "time"

type Answer struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"question_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"body"`
	Votes      int64     `json:"votes"`
	Accepted   bool      `json:"accepted"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// VoteDirection is +1 or -1.
type VoteDirection int

const (
	VoteUp   VoteDirection = 1
	VoteDown VoteDirection = -1
)

// ParseVoteDirection accepts "up" and "down".
func ParseVoteDirection(raw string) (VoteDirection, bool) {
	switch raw {
	case "up":
		return VoteUp, true
	case "down":
		return VoteDown, true
	}
	return 0, false
}
