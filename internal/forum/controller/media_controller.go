package controller

import (
	"stackit/internal/forum/middleware"
	"stackit/internal/forum/service"
	"stackit/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// MediaController hands out presigned upload URLs for embedded images.
type MediaController struct {
	media *service.MediaService
}

// NewMediaController creates a new MediaController.
func NewMediaController(media *service.MediaService) *MediaController {
	return &MediaController{media: media}
}

// RequestUpload handles POST /media/uploads.
func (h *MediaController) RequestUpload(c *gin.Context) {
	var req service.UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	ticket, err := h.media.RequestUpload(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ticket)
}

// Confirm handles POST /media/uploads/confirm.
func (h *MediaController) Confirm(c *gin.Context) {
	var req ConfirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	object, err := h.media.ConfirmUpload(c.Request.Context(), middleware.ActorFrom(c), req.ObjectKey)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, object)
}

// ConfirmUploadRequest names the uploaded object.
type ConfirmUploadRequest struct {
	ObjectKey string `json:"object_key" binding:"required"`
}
