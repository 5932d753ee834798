package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Account & Auth errors
// 12000-12999: Question & Moderation errors
// 13000-13999: Answer errors
// 14000-14999: Notification errors
// 15000-15999: Media errors
// 16000-16999: Permission errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008
	Conflict            ErrorCode = 10009

	// Database errors (10100-10199)
	DatabaseError       ErrorCode = 10100
	RecordNotFound      ErrorCode = 10101
	RecordAlreadyExists ErrorCode = 10102
	TransactionFailed   ErrorCode = 10103

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Account & Auth Errors (11000-11999) ==========

	// Authentication (11000-11099)
	InvalidCredentials    ErrorCode = 11000
	TokenExpired          ErrorCode = 11003
	TokenInvalid          ErrorCode = 11004
	TokenGenerationFailed ErrorCode = 11005

	// Registration (11100-11199)
	EmailAlreadyExists ErrorCode = 11101
	InvalidUsername    ErrorCode = 11102
	InvalidEmail       ErrorCode = 11103
	InvalidPassword    ErrorCode = 11104

	// Users (11200-11299)
	UserNotFound ErrorCode = 11200

	// ========== Question & Moderation Errors (12000-12999) ==========

	QuestionNotFound     ErrorCode = 12000
	QuestionCreateFailed ErrorCode = 12001
	InvalidTransition    ErrorCode = 12100
	TransitionConflict   ErrorCode = 12101

	// Tags (12200-12299)
	InvalidTag  ErrorCode = 12201
	TooManyTags ErrorCode = 12202

	// ========== Answer Errors (13000-13999) ==========

	AnswerNotFound     ErrorCode = 13000
	AnswerCreateFailed ErrorCode = 13001

	// ========== Notification Errors (14000-14999) ==========

	NotificationNotFound ErrorCode = 14000

	// ========== Media Errors (15000-15999) ==========

	MediaTooLarge        ErrorCode = 15000
	MediaTypeUnsupported ErrorCode = 15001
	MediaPresignFailed   ErrorCode = 15002

	// ========== Permission Errors (16000-16999) ==========

	PermissionDenied ErrorCode = 16000
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized access",
	Forbidden:           "Access forbidden",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",
	Conflict:            "Resource was modified concurrently",

	// Database
	DatabaseError:       "Database operation failed",
	RecordNotFound:      "Record not found in database",
	RecordAlreadyExists: "Record already exists",
	TransactionFailed:   "Database transaction failed",

	// Cache
	CacheError: "Cache operation failed",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	// Auth
	InvalidCredentials:    "Invalid email or password",
	TokenExpired:          "Token has expired",
	TokenInvalid:          "Invalid token",
	TokenGenerationFailed: "Failed to generate token",

	// Registration
	EmailAlreadyExists: "Email already exists",
	InvalidUsername:    "Invalid username format",
	InvalidEmail:       "Invalid email format",
	InvalidPassword:    "Invalid password format",

	// Users
	UserNotFound: "User not found",

	// Questions
	QuestionNotFound:     "Question not found",
	QuestionCreateFailed: "Failed to create question",
	InvalidTransition:    "Question is not in a state that allows this action",
	TransitionConflict:   "Question was moderated concurrently",
	InvalidTag:           "Invalid tag",
	TooManyTags:          "Too many tags",

	// Answers
	AnswerNotFound:     "Answer not found",
	AnswerCreateFailed: "Failed to create answer",

	// Notifications
	NotificationNotFound: "Notification not found",

	// Media
	MediaTooLarge:        "Media file is too large",
	MediaTypeUnsupported: "Media type is not supported",
	MediaPresignFailed:   "Failed to prepare media upload",

	// Permission
	PermissionDenied: "Permission denied",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c >= 11000 && c < 11100: // Authentication errors
		return 401
	case c == Unauthorized:
		return 401
	case c == Forbidden, c >= 16000 && c < 17000:
		return 403
	case c == NotFound, c == RecordNotFound, c == UserNotFound, c == QuestionNotFound,
		c == AnswerNotFound, c == NotificationNotFound:
		return 404
	case c == Conflict, c == InvalidTransition, c == TransitionConflict,
		c == EmailAlreadyExists, c == RecordAlreadyExists:
		return 409
	case c == MediaTooLarge:
		return 413
	case c == TooManyRequests:
		return 429
	case c == ServiceUnavailable:
		return 503
	case c == Timeout:
		return 504
	case c >= 10300 && c < 10400, c >= 11100 && c < 11200, c == InvalidTag, c == TooManyTags,
		c == MediaTypeUnsupported:
		return 400
	case c == InvalidParams:
		return 400
	default:
		return 500
	}
}

// IsUnauthorized reports whether the code denotes a missing identity or an insufficient role.
func (c ErrorCode) IsUnauthorized() bool {
	return c == Unauthorized || c == Forbidden || c == PermissionDenied
}
