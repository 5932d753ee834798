package controller

import (
	"stackit/internal/forum/middleware"
	"stackit/internal/forum/service"
	"stackit/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// AdminController serves the moderator dashboard reads.
type AdminController struct {
	content *service.ContentService
}

func NewAdminController(content *service.ContentService) *AdminController {
	return &AdminController{content: content}
}

// Stats handles GET /admin/stats.
func (h *AdminController) Stats(c *gin.Context) {
	stats, err := h.content.GetAdminStats(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

// Activity handles GET /admin/activity.
func (h *AdminController) Activity(c *gin.Context) {
	page, size, err := pageParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.content.ListActivity(c.Request.Context(), middleware.ActorFrom(c), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination(c, result.Items, result.Total, result.Page, result.PageSize, result.TotalPages)
}

// Users handles GET /admin/users.
func (h *AdminController) Users(c *gin.Context) {
	page, size, err := pageParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.content.ListUsers(c.Request.Context(), middleware.ActorFrom(c), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination(c, result.Items, result.Total, result.Page, result.PageSize, result.TotalPages)
}
