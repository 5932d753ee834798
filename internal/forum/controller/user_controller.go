package controller

import (
	"stackit/internal/forum/middleware"
	"stackit/internal/forum/service"
	"stackit/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// UserController serves per-user listings and stats.
type UserController struct {
	content *service.ContentService
}

func NewUserController(content *service.ContentService) *UserController {
	return &UserController{content: content}
}

// Questions handles GET /users/:id/questions.
func (h *UserController) Questions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, size, err := pageParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.content.ListUserQuestions(c.Request.Context(), middleware.ActorFrom(c), id, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination(c, result.Items, result.Total, result.Page, result.PageSize, result.TotalPages)
}

// Answers handles GET /users/:id/answers.
func (h *UserController) Answers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, size, err := pageParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.content.ListUserAnswers(c.Request.Context(), middleware.ActorFrom(c), id, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination(c, result.Items, result.Total, result.Page, result.PageSize, result.TotalPages)
}

// Stats handles GET /users/:id/stats.
func (h *UserController) Stats(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	stats, err := h.content.GetUserStats(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}
