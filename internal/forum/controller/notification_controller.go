package controller

import (
	"stackit/internal/forum/middleware"
	"stackit/internal/forum/notify"
	"stackit/internal/forum/service"
	pkgerrors "stackit/pkg/errors"
	"stackit/pkg/utils/logger"
	"stackit/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NotificationController handles the caller's notifications.
type NotificationController struct {
	content *service.ContentService
	hub     *notify.Hub
}

// NewNotificationController creates a new NotificationController. hub may be nil,
// in which case streaming is unavailable.
func NewNotificationController(content *service.ContentService, hub *notify.Hub) *NotificationController {
	return &NotificationController{content: content, hub: hub}
}

// List handles GET /notifications.
func (h *NotificationController) List(c *gin.Context) {
	page, size, err := pageParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	unread, err := boolQuery(c, "unread")
	if err != nil {
		response.Error(c, err)
		return
	}
	actor := middleware.ActorFrom(c)
	result, err := h.content.ListUserNotifications(c.Request.Context(), actor, actor.ID, unread, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination(c, result.Items, result.Total, result.Page, result.PageSize, result.TotalPages)
}

// Update handles PATCH /notifications/:id.
func (h *NotificationController) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Read == nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	n, err := h.content.MarkNotificationRead(c.Request.Context(), middleware.ActorFrom(c), id, *req.Read)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, n)
}

// ReadAll handles POST /notifications/read-all.
func (h *NotificationController) ReadAll(c *gin.Context) {
	updated, err := h.content.MarkAllNotificationsRead(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ReadAllResponse{Updated: updated})
}

// UnreadCount handles GET /notifications/unread-count.
func (h *NotificationController) UnreadCount(c *gin.Context) {
	count, err := h.content.UnreadNotifications(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, UnreadCountResponse{Unread: count})
}

// Stream handles GET /notifications/stream, upgrading to a websocket that receives
// every notification created for the caller from now on.
func (h *NotificationController) Stream(c *gin.Context) {
	if h.hub == nil {
		response.ErrorWithCode(c, pkgerrors.ServiceUnavailable, "notification streaming is disabled")
		return
	}
	actor := middleware.ActorFrom(c)
	if err := h.hub.Serve(c.Writer, c.Request, actor.ID); err != nil {
		logger.Warn(c.Request.Context(), "notification stream rejected", zap.Error(err))
	}
}

// UpdateNotificationRequest defines the notification patch payload.
type UpdateNotificationRequest struct {
	Read *bool `json:"read"`
}

type ReadAllResponse struct {
	Updated int64 `json:"updated"`
}

type UnreadCountResponse struct {
	Unread int64 `json:"unread"`
}
