// Package errors defines the application error taxonomy. AppError carries
// the classification and HTTP mapping the REST layer responds with;
// DomainError sentinels (domain_error_types.go) classify failures inside
// the tree and session logic; ErrorHandler (handler.go) translates both at
// the HTTP boundary.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorType classifies an AppError.
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	ErrorTypeInternal    ErrorType = "INTERNAL"
	ErrorTypeTimeout     ErrorType = "TIMEOUT"
	ErrorTypeRateLimit   ErrorType = "RATE_LIMIT"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"

	// ErrorTypeGeneration marks failures of the scenario or portrait
	// generation pipeline.
	ErrorTypeGeneration ErrorType = "GENERATION"
)

// statusFor maps each type to the HTTP status the REST layer answers with.
var statusFor = map[ErrorType]int{
	ErrorTypeValidation:   http.StatusBadRequest,
	ErrorTypeNotFound:     http.StatusNotFound,
	ErrorTypeConflict:     http.StatusConflict,
	ErrorTypeUnauthorized: http.StatusUnauthorized,
	ErrorTypeInternal:     http.StatusInternalServerError,
	ErrorTypeTimeout:      http.StatusRequestTimeout,
	ErrorTypeRateLimit:    http.StatusTooManyRequests,
	ErrorTypeUnavailable:  http.StatusServiceUnavailable,
	ErrorTypeGeneration:   http.StatusBadGateway,
}

// AppError is the application-level error the HTTP boundary understands.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
	HTTPStatus int                    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode attaches a machine-readable code.
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetails attaches structured detail for the response body.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause records the underlying error.
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

func newError(t ErrorType, message string) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		HTTPStatus: statusFor[t],
		StackTrace: captureStackTrace(),
	}
}

// NewValidationError reports rejected input.
func NewValidationError(message string) *AppError {
	return newError(ErrorTypeValidation, message)
}

// NewNotFoundError reports a missing resource by name.
func NewNotFoundError(resource string) *AppError {
	return newError(ErrorTypeNotFound, resource+" not found")
}

// NewConflictError reports a state conflict, like re-expanding a node.
func NewConflictError(message string) *AppError {
	return newError(ErrorTypeConflict, message)
}

// NewUnauthorizedError reports a failed authentication or authorization.
func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return newError(ErrorTypeUnauthorized, message)
}

// NewInternalError reports an unexpected failure.
func NewInternalError(message string) *AppError {
	return newError(ErrorTypeInternal, message)
}

// NewTimeoutError reports an operation that exceeded its deadline.
func NewTimeoutError(operation string) *AppError {
	return newError(ErrorTypeTimeout, fmt.Sprintf("operation '%s' timed out", operation))
}

// NewRateLimitError reports an exhausted request budget.
func NewRateLimitError(limit int, window string) *AppError {
	return newError(ErrorTypeRateLimit, fmt.Sprintf("rate limit exceeded: %d requests per %s", limit, window))
}

// NewUnavailableError reports an unreachable collaborator service.
func NewUnavailableError(service string) *AppError {
	return newError(ErrorTypeUnavailable, fmt.Sprintf("service '%s' is unavailable", service))
}

// NewGenerationError reports a failed generation stage with its cause.
func NewGenerationError(stage string, err error) *AppError {
	e := newError(ErrorTypeGeneration, fmt.Sprintf("generation stage '%s' failed", stage))
	e.Cause = err
	return e
}

// captureStackTrace records the frames above the constructor. Only the
// debug error handler ever renders it.
func captureStackTrace() string {
	var pcs [32]uintptr
	n := runtime.Callers(4, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for more := true; more; {
		var frame runtime.Frame
		frame, more = frames.Next()
		fmt.Fprintf(&b, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
	}
	return b.String()
}

// IsAppError reports whether err has an AppError in its chain.
func IsAppError(err error) bool {
	return GetAppError(err) != nil
}

// GetAppError returns the first AppError in the chain, or nil.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == t
}

func IsNotFound(err error) bool   { return IsType(err, ErrorTypeNotFound) }
func IsValidation(err error) bool { return IsType(err, ErrorTypeValidation) }
func IsGeneration(err error) bool { return IsType(err, ErrorTypeGeneration) }

// Wrap prefixes an AppError's message in place, or promotes a plain error
// to an internal one. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = message + ": " + appErr.Message
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
