package controller

import (
	"strings"

	"stackit/internal/forum/middleware"
	"stackit/internal/forum/model"
	"stackit/internal/forum/service"
	"stackit/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// QuestionController handles question reads, submission and moderation.
type QuestionController struct {
	content  *service.ContentService
	workflow *service.Workflow
}

// NewQuestionController creates a new QuestionController.
func NewQuestionController(content *service.ContentService, workflow *service.Workflow) *QuestionController {
	return &QuestionController{content: content, workflow: workflow}
}

// List handles GET /questions.
func (h *QuestionController) List(c *gin.Context) {
	page, size, err := pageParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.content.ListQuestions(c.Request.Context(), middleware.ActorFrom(c), service.QuestionQuery{
		Status:   model.QuestionStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
		Query:    c.Query("q"),
		Tags:     c.QueryArray("tag"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination(c, result.Items, result.Total, result.Page, result.PageSize, result.TotalPages)
}

// Get handles GET /questions/:id.
func (h *QuestionController) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	q, err := h.content.GetQuestion(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, q)
}

// Create handles POST /questions.
func (h *QuestionController) Create(c *gin.Context) {
	var req CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	q, err := h.content.CreateQuestion(c.Request.Context(), middleware.ActorFrom(c), model.QuestionDraft{
		Title: req.Title,
		Body:  req.Body,
		Tags:  req.Tags,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, q)
}

// Approve handles POST /questions/:id/approve.
func (h *QuestionController) Approve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	q, err := h.workflow.Approve(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, q)
}

// Reject handles POST /questions/:id/reject.
func (h *QuestionController) Reject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req RejectQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	q, err := h.workflow.Reject(c.Request.Context(), middleware.ActorFrom(c), id, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, q)
}

// Vote handles POST /questions/:id/vote.
func (h *QuestionController) Vote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	direction, ok := bindVote(c)
	if !ok {
		return
	}
	votes, err := h.workflow.VoteQuestion(c.Request.Context(), middleware.ActorFrom(c), id, direction)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, VoteResponse{ID: id, Votes: votes})
}

// PostAnswer handles POST /questions/:id/answers.
func (h *QuestionController) PostAnswer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req PostAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	answer, err := h.workflow.PostAnswer(c.Request.Context(), middleware.ActorFrom(c), id, req.Body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, answer)
}

// Tags handles GET /tags.
func (h *QuestionController) Tags(c *gin.Context) {
	tags, err := h.content.ListTags(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if tags == nil {
		tags = []model.TagCount{}
	}
	response.Success(c, tags)
}

func bindVote(c *gin.Context) (model.VoteDirection, bool) {
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return 0, false
	}
	direction, ok := model.ParseVoteDirection(strings.ToLower(strings.TrimSpace(req.Direction)))
	if !ok {
		response.BadRequest(c, "direction must be up or down")
		return 0, false
	}
	return direction, true
}

// CreateQuestionRequest defines question submission payload.
type CreateQuestionRequest struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

// RejectQuestionRequest defines rejection payload.
type RejectQuestionRequest struct {
	Reason string `json:"reason"`
}

// PostAnswerRequest defines answer payload.
type PostAnswerRequest struct {
	Body string `json:"body"`
}

// VoteRequest defines vote payload.
type VoteRequest struct {
	Direction string `json:"direction" binding:"required"`
}

// VoteResponse carries the new vote total of the voted item.
type VoteResponse struct {
	ID    string `json:"id"`
	Votes int64  `json:"votes"`
}
