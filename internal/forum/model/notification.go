package model

import (
	"encoding/json"
	"fmt"
	"time"
)

type NotificationType string

const (
	NotificationQuestionApproved NotificationType = "question_approved"
	NotificationQuestionRejected NotificationType = "question_rejected"
	NotificationNewAnswer        NotificationType = "new_answer"
	NotificationQuestionPending  NotificationType = "question_pending"
)

// NotificationPayload is the variant part of a notification. Each kind carries only
// the fields meaningful to it.
type NotificationPayload interface {
	Type() NotificationType
	Question() string
}

type QuestionApprovedPayload struct {
	QuestionID    string `json:"question_id"`
	QuestionTitle string `json:"question_title"`
	ApprovedBy    string `json:"approved_by"`
}

func (QuestionApprovedPayload) Type() NotificationType { return NotificationQuestionApproved }
func (p QuestionApprovedPayload) Question() string    { return p.QuestionID }

type QuestionRejectedPayload struct {
	QuestionID      string `json:"question_id"`
	QuestionTitle   string `json:"question_title"`
	RejectedBy      string `json:"rejected_by"`
	RejectionReason string `json:"rejection_reason"`
}

func (QuestionRejectedPayload) Type() NotificationType { return NotificationQuestionRejected }
func (p QuestionRejectedPayload) Question() string    { return p.QuestionID }

type NewAnswerPayload struct {
	QuestionID    string `json:"question_id"`
	QuestionTitle string `json:"question_title"`
	AnswerID      string `json:"answer_id"`
	AnswerAuthor  string `json:"answer_author"`
}

func (NewAnswerPayload) Type() NotificationType { return NotificationNewAnswer }
func (p NewAnswerPayload) Question() string    { return p.QuestionID }

type QuestionPendingPayload struct {
	QuestionID    string `json:"question_id"`
	QuestionTitle string `json:"question_title"`
}

func (QuestionPendingPayload) Type() NotificationType { return NotificationQuestionPending }
func (p QuestionPendingPayload) Question() string    { return p.QuestionID }

// Notification is created only as a side effect of workflow transitions. The only
// mutation afterwards is the owner toggling Read.
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Read      bool
	CreatedAt time.Time
	Payload   NotificationPayload
}

func (n Notification) Type() NotificationType {
	if n.Payload == nil {
		return ""
	}
	return n.Payload.Type()
}

type notificationJSON struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
	Payload   json.RawMessage  `json:"payload"`
}

func (n Notification) MarshalJSON() ([]byte, error) {
	payload := []byte("null")
	if n.Payload != nil {
		var err error
		if payload, err = json.Marshal(n.Payload); err != nil {
			return nil, err
		}
	}
	return json.Marshal(notificationJSON{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type(),
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
		Payload:   payload,
	})
}

func (n *Notification) UnmarshalJSON(data []byte) error {
	var raw notificationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	payload, err := DecodeNotificationPayload(raw.Type, raw.Payload)
	if err != nil {
		return err
	}
	*n = Notification{
		ID:        raw.ID,
		UserID:    raw.UserID,
		Title:     raw.Title,
		Message:   raw.Message,
		Read:      raw.Read,
		CreatedAt: raw.CreatedAt,
		Payload:   payload,
	}
	return nil
}

// DecodeNotificationPayload rebuilds the variant named by t from its JSON form.
func DecodeNotificationPayload(t NotificationType, data []byte) (NotificationPayload, error) {
	var (
		payload NotificationPayload
		err     error
	)
	switch t {
	case NotificationQuestionApproved:
		var p QuestionApprovedPayload
		err = json.Unmarshal(data, &p)
		payload = p
	case NotificationQuestionRejected:
		var p QuestionRejectedPayload
		err = json.Unmarshal(data, &p)
		payload = p
	case NotificationNewAnswer:
		var p NewAnswerPayload
		err = json.Unmarshal(data, &p)
		payload = p
	case NotificationQuestionPending:
		var p QuestionPendingPayload
		err = json.Unmarshal(data, &p)
		payload = p
	default:
		return nil, fmt.Errorf("unknown notification type %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return payload, nil
}

// NewQuestionApprovedNotification addresses the author of an approved question.
func NewQuestionApprovedNotification(id string, q *Question, at time.Time) Notification {
	return Notification{
		ID:        id,
		UserID:    q.AuthorID,
		Title:     "Question approved",
		Message:   fmt.Sprintf("Your question %q has been approved and is now visible to everyone.", q.Title),
		CreatedAt: at,
		Payload: QuestionApprovedPayload{
			QuestionID:    q.ID,
			QuestionTitle: q.Title,
			ApprovedBy:    q.ApprovedBy,
		},
	}
}

// NewQuestionRejectedNotification addresses the author of a rejected question and carries the reason.
func NewQuestionRejectedNotification(id string, q *Question, at time.Time) Notification {
	return Notification{
		ID:        id,
		UserID:    q.AuthorID,
		Title:     "Question rejected",
		Message:   fmt.Sprintf("Your question %q was rejected: %s", q.Title, q.RejectionReason),
		CreatedAt: at,
		Payload: QuestionRejectedPayload{
			QuestionID:      q.ID,
			QuestionTitle:   q.Title,
			RejectedBy:      q.RejectedBy,
			RejectionReason: q.RejectionReason,
		},
	}
}

// NewAnswerNotification tells a question author that someone answered.
func NewAnswerNotification(id string, q *Question, a *Answer, at time.Time) Notification {
	return Notification{
		ID:        id,
		UserID:    q.AuthorID,
		Title:     "New answer",
		Message:   fmt.Sprintf("%s answered your question %q.", a.AuthorName, q.Title),
		CreatedAt: at,
		Payload: NewAnswerPayload{
			QuestionID:    q.ID,
			QuestionTitle: q.Title,
			AnswerID:      a.ID,
			AnswerAuthor:  a.AuthorName,
		},
	}
}

// NewQuestionPendingNotification confirms to the author that a submission awaits review.
func NewQuestionPendingNotification(id string, q *Question, at time.Time) Notification {
	return Notification{
		ID:        id,
		UserID:    q.AuthorID,
		Title:     "Question submitted",
		Message:   fmt.Sprintf("Your question %q is awaiting moderator review.", q.Title),
		CreatedAt: at,
		Payload: QuestionPendingPayload{
			QuestionID:    q.ID,
			QuestionTitle: q.Title,
		},
	}
}
