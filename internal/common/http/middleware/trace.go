package middleware

import (
	"context"
	"strings"

	"stackit/pkg/utils/contextkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	traceIDHeader   = "X-Trace-Id"
	requestIDHeader = "X-Request-Id"
)

// TraceContextMiddleware ensures trace and request ids are present in the request context
// and echoed in response headers. Incoming ids are honoured so traces span services.
func TraceContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := headerOrNew(c, traceIDHeader)
		requestID := headerOrNew(c, requestIDHeader)

		c.Set(contextkey.GinTraceID, traceID)
		c.Set(contextkey.GinRequestID, requestID)
		ctx := context.WithValue(c.Request.Context(), contextkey.TraceID, traceID)
		ctx = context.WithValue(ctx, contextkey.RequestID, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Writer.Header().Set(traceIDHeader, traceID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

func headerOrNew(c *gin.Context, name string) string {
	if v := strings.TrimSpace(c.GetHeader(name)); v != "" && len(v) <= 128 {
		return v
	}
	return uuid.NewString()
}
