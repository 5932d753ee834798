package response

import (
	"net/http"

	"stackit/pkg/errors"
	"stackit/pkg/utils/contextkey"
	"stackit/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response represents a standard API response
type Response struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Data    interface{}      `json:"data,omitempty"`
	Details interface{}      `json:"details,omitempty"`
	TraceID string           `json:"trace_id,omitempty"`
}

// Success sends a successful response with data
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    errors.Success,
		Message: "Success",
		Data:    data,
		TraceID: getTraceID(c),
	})
}

// Created sends a 201 response with data
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    errors.Success,
		Message: "Created",
		Data:    data,
		TraceID: getTraceID(c),
	})
}

// Error sends an error response derived from the error's code.
// Client errors are logged at warn, server errors at error with the stack.
func Error(c *gin.Context, err error) {
	customErr := errors.GetError(err)
	status := customErr.Code.HTTPStatus()

	fields := []zap.Field{
		zap.Int("code", int(customErr.Code)),
		zap.String("message", customErr.Error()),
	}
	if len(customErr.Details) > 0 {
		fields = append(fields, zap.Any("details", customErr.Details))
	}
	if status >= http.StatusInternalServerError {
		fields = append(fields, zap.String("stack", customErr.Stack))
		logger.Error(c.Request.Context(), "request error", fields...)
	} else {
		logger.Warn(c.Request.Context(), "request rejected", fields...)
	}

	resp := Response{
		Code:    customErr.Code,
		Message: customErr.Error(),
		TraceID: getTraceID(c),
	}
	if len(customErr.Details) > 0 {
		resp.Details = customErr.Details
	}
	c.JSON(status, resp)
}

// ErrorWithCode sends an error response with specific error code
func ErrorWithCode(c *gin.Context, code errors.ErrorCode, message string) {
	if message == "" {
		message = code.Message()
	}
	Error(c, errors.New(code).WithMessage(message))
}

// BadRequest sends a 400 bad request error
func BadRequest(c *gin.Context, message string) {
	ErrorWithCode(c, errors.InvalidParams, message)
}

// Paginated represents a paginated response
type Paginated struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// SuccessWithPagination sends a successful response with pagination metadata
func SuccessWithPagination(c *gin.Context, items interface{}, total int64, page, pageSize, totalPages int) {
	Success(c, Paginated{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

func getTraceID(c *gin.Context) string {
	if traceID, ok := c.Get(contextkey.GinTraceID); ok {
		if s, ok := traceID.(string); ok {
			return s
		}
	}
	return ""
}

// AbortWithError aborts the request and sends error response
func AbortWithError(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

// AbortWithErrorCode aborts the request with error code
func AbortWithErrorCode(c *gin.Context, code errors.ErrorCode, message string) {
	ErrorWithCode(c, code, message)
	c.Abort()
}
