package model

// UserStats is derived on every request and never stored.
type UserStats struct {
	QuestionsAsked    int64 `json:"questions_asked"`
	QuestionsPending  int64 `json:"questions_pending"`
	QuestionsApproved int64 `json:"questions_approved"`
	QuestionsRejected int64 `json:"questions_rejected"`
	AnswersGiven      int64 `json:"answers_given"`
	AcceptedAnswers   int64 `json:"accepted_answers"`
	TotalViews        int64 `json:"total_views"`
	TotalVotes        int64 `json:"total_votes"`
}

// QuestionCounts aggregates a user's questions by status.
type QuestionCounts struct {
	Total    int64
	Pending  int64
	Approved int64
	Rejected int64
	Views    int64
	Votes    int64
}

// AnswerCounts aggregates a user's answers.
type AnswerCounts struct {
	Total    int64
	Accepted int64
	Votes    int64
}

type AdminStats struct {
	TotalQuestions    int64 `json:"total_questions"`
	PendingQuestions  int64 `json:"pending_questions"`
	ApprovedQuestions int64 `json:"approved_questions"`
	RejectedQuestions int64 `json:"rejected_questions"`
	TotalAnswers      int64 `json:"total_answers"`
	TotalUsers        int64 `json:"total_users"`
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int64  `json:"count"`
}
