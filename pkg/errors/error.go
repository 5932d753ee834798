package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// Error is a coded error carrying optional details and the call stack where it was raised.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Err     error
	Stack   string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code.Message()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error with the given error code
func New(code ErrorCode) *Error {
	return &Error{
		Code:    code,
		Message: code.Message(),
		Details: make(map[string]interface{}),
		Stack:   getStack(2),
	}
}

// Newf creates a new Error with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Stack:   getStack(2),
	}
}

// Wrap wraps an existing error with an error code.
// A coded error is re-coded in place.
func Wrap(err error, code ErrorCode) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		e.Code = code
		return e
	}
	return &Error{
		Code:    code,
		Message: err.Error(),
		Err:     err,
		Details: make(map[string]interface{}),
		Stack:   getStack(2),
	}
}

// Wrapf wraps an error with code and formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
		Details: make(map[string]interface{}),
		Stack:   getStack(2),
	}
}

// WithMessage overrides the message
func (e *Error) WithMessage(msg string) *Error {
	e.Message = msg
	return e
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Detail returns a detail value as a string, or "" when absent.
func (e *Error) Detail(key string) string {
	if e == nil || e.Details == nil {
		return ""
	}
	if v, ok := e.Details[key]; ok {
		return fmt.Sprint(v)
	}
	return ""
}

// GetCode extracts the error code from any error in the chain.
// Errors without a code report InternalServerError.
func GetCode(err error) ErrorCode {
	if err == nil {
		return Success
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return InternalServerError
}

// GetError extracts the coded error from err, wrapping foreign errors as internal.
func GetError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return Wrap(err, InternalServerError)
}

// Is checks if the error chain carries the given error code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsUnauthorized reports whether err is an identity or role failure.
func IsUnauthorized(err error) bool {
	return err != nil && GetCode(err).IsUnauthorized()
}

func getStack(skip int) string {
	const maxDepth = 10
	var pcs [maxDepth]uintptr
	n := runtime.Callers(skip+1, pcs[:])
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])
	var builder strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.Function, "runtime.") {
			builder.WriteString(fmt.Sprintf("\n\t%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}
	return builder.String()
}

// BadRequest creates a bad request error
func BadRequest(msg string) *Error {
	return New(InvalidParams).WithMessage(msg)
}

// UnauthorizedError creates an unauthorized error
func UnauthorizedError(msg string) *Error {
	if msg == "" {
		return New(Unauthorized)
	}
	return New(Unauthorized).WithMessage(msg)
}

// ValidationError creates a validation error naming the offending field
func ValidationError(field, reason string) *Error {
	return Newf(ValidationFailed, "%s: %s", field, reason).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

// TransitionError reports a moderation action attempted from the wrong status.
func TransitionError(id, expected, actual string) *Error {
	return Newf(InvalidTransition, "question %s is %s, expected %s", id, actual, expected).
		WithDetail("id", id).
		WithDetail("expected", expected).
		WithDetail("actual", actual)
}

// ConflictError reports a lost compare-and-set on the named resource.
func ConflictError(resource, id string) *Error {
	return Newf(TransitionConflict, "%s %s was modified concurrently", resource, id).
		WithDetail("id", id)
}
