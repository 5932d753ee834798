package model

import "time"

type ActivityType string

const (
	ActivityQuestionSubmitted ActivityType = "question_submitted"
	ActivityQuestionApproved  ActivityType = "question_approved"
	ActivityQuestionRejected  ActivityType = "question_rejected"
	ActivityAnswerPosted      ActivityType = "answer_posted"
	ActivityAnswerAccepted    ActivityType = "answer_accepted"
	ActivityUserJoined        ActivityType = "user_joined"
)

// Activity is an append-only audit record shown on the admin feed.
type Activity struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	ActorID     string       `json:"actor_id"`
	QuestionID  string       `json:"question_id,omitempty"`
	AnswerID    string       `json:"answer_id,omitempty"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ModerationEvent is published to the message queue after a workflow change commits.
type ModerationEvent struct {
	EventID       string       `json:"event_id"`
	Type          ActivityType `json:"type"`
	QuestionID    string       `json:"question_id"`
	QuestionTitle string       `json:"question_title"`
	AuthorID      string       `json:"author_id"`
	ActorID       string       `json:"actor_id"`
	AnswerID      string       `json:"answer_id,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	OccurredAt    time.Time    `json:"occurred_at"`
}
