package controller

import (
	"stackit/internal/forum/middleware"
	"stackit/internal/forum/service"
	"stackit/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// AnswerController handles answer acceptance and votes.
type AnswerController struct {
	workflow *service.Workflow
}

// NewAnswerController creates a new AnswerController.
func NewAnswerController(workflow *service.Workflow) *AnswerController {
	return &AnswerController{workflow: workflow}
}

// Accept handles POST /answers/:id/accept.
func (h *AnswerController) Accept(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	answer, err := h.workflow.AcceptAnswer(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, answer)
}

// Vote handles POST /answers/:id/vote.
func (h *AnswerController) Vote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	direction, ok := bindVote(c)
	if !ok {
		return
	}
	votes, err := h.workflow.VoteAnswer(c.Request.Context(), middleware.ActorFrom(c), id, direction)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, VoteResponse{ID: id, Votes: votes})
}
