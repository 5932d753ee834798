package contextkey

// key is a private type to avoid context key collisions across packages.
type key string

const (
	TraceID   key = "trace_id"
	RequestID key = "request_id"
	UserID    key = "user_id"
	UserRole  key = "user_role"
)

// Gin context keys mirror the typed keys for handlers that only see *gin.Context.
const (
	GinTraceID   = "trace_id"
	GinRequestID = "request_id"
	GinActor     = "actor"
)
