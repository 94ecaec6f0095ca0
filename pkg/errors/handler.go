package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"lifetree-backend/pkg/common"
)

// ErrorResponse is the wire shape for AppError and unclassified failures.
type ErrorResponse struct {
	Error     bool                   `json:"error"`
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Code      string                 `json:"code,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// ErrorHandler translates errors raised by the command, query, and
// simulation layers into HTTP responses.
type ErrorHandler struct {
	logger        *zap.Logger
	debug         bool
	defaultStatus int
}

// NewErrorHandler creates a new error handler. In debug mode raw error
// text and stack traces leak into responses, so it must stay off in
// production.
func NewErrorHandler(logger *zap.Logger, debug bool) *ErrorHandler {
	return &ErrorHandler{
		logger:        logger,
		debug:         debug,
		defaultStatus: http.StatusInternalServerError,
	}
}

// Handle classifies err and writes the matching response. Nil errors write
// nothing, so callers can pass through unconditionally.
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
		return
	case h.writeDomainError(w, r, err):
		return
	case h.writeAppError(w, r, err):
		return
	default:
		h.writeUnclassified(w, r, err)
	}
}

func (h *ErrorHandler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) bool {
	var domErr *DomainError
	if !errors.As(err, &domErr) {
		return false
	}

	status := domErr.StatusCode
	if status == 0 {
		status = h.defaultStatus
	}
	requestID := requestIDFrom(r)

	fields := append(h.requestFields(r, status, requestID),
		zap.String("error_type", string(domErr.Type)),
		zap.String("error_code", domErr.Code),
	)
	h.logger.Warn(domErr.Message, fields...)

	h.sendJSON(w, status, NewDomainErrorResponse(domErr, requestID))
	return true
}

func (h *ErrorHandler) writeAppError(w http.ResponseWriter, r *http.Request, err error) bool {
	appErr := GetAppError(err)
	if appErr == nil {
		return false
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = h.defaultStatus
	}
	requestID := requestIDFrom(r)

	response := ErrorResponse{
		Error:     true,
		Type:      string(appErr.Type),
		Message:   appErr.Message,
		Code:      appErr.Code,
		Details:   appErr.Details,
		RequestID: requestID,
	}
	if h.debug && appErr.StackTrace != "" {
		if response.Details == nil {
			response.Details = make(map[string]interface{})
		}
		response.Details["stack_trace"] = appErr.StackTrace
	}

	fields := append(h.requestFields(r, status, requestID),
		zap.String("error_type", string(appErr.Type)))
	if appErr.Code != "" {
		fields = append(fields, zap.String("error_code", appErr.Code))
	}
	if appErr.Cause != nil {
		fields = append(fields, zap.Error(appErr.Cause))
	}
	if appErr.Details != nil {
		fields = append(fields, zap.Any("details", appErr.Details))
	}
	h.log(status, appErr.Message, fields)

	h.sendJSON(w, status, response)
	return true
}

// writeUnclassified answers for errors no layer classified. The raw error
// text only leaves the process in debug mode.
func (h *ErrorHandler) writeUnclassified(w http.ResponseWriter, r *http.Request, err error) {
	requestID := requestIDFrom(r)

	response := ErrorResponse{
		Error:     true,
		Type:      string(ErrorTypeInternal),
		Message:   "An internal error occurred",
		RequestID: requestID,
	}
	if h.debug {
		response.Message = err.Error()
	}

	fields := append(h.requestFields(r, h.defaultStatus, requestID), zap.Error(err))
	h.logger.Error("Unhandled error", fields...)

	h.sendJSON(w, h.defaultStatus, response)
}

// HandleStatus writes an error response for a bare status code, for
// rejections that never produced an error value.
func (h *ErrorHandler) HandleStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	requestID := requestIDFrom(r)
	response := ErrorResponse{
		Error:     true,
		Type:      typeForStatus(status),
		Message:   message,
		RequestID: requestID,
	}

	fields := append(h.requestFields(r, status, requestID), zap.String("message", message))
	h.logger.Warn("HTTP error", fields...)

	h.sendJSON(w, status, response)
}

// requestFields builds the log fields every error line shares.
func (h *ErrorHandler) requestFields(r *http.Request, status int, requestID string) []zap.Field {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", requestID),
	}
	if sessionID, ok := common.GetSessionID(r.Context()); ok {
		fields = append(fields, zap.String("session_id", sessionID))
	}
	if userID, ok := common.GetUserID(r.Context()); ok {
		fields = append(fields, zap.String("user_id", userID))
	}
	return fields
}

func (h *ErrorHandler) log(status int, msg string, fields []zap.Field) {
	switch {
	case status >= 500:
		h.logger.Error(msg, fields...)
	case status >= 400:
		h.logger.Warn(msg, fields...)
	default:
		h.logger.Info(msg, fields...)
	}
}

func (h *ErrorHandler) sendJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}

// requestIDFrom prefers the ID the logging middleware stored in context,
// falling back to the inbound header.
func requestIDFrom(r *http.Request) string {
	if id, ok := common.GetRequestID(r.Context()); ok {
		return id
	}
	return r.Header.Get("X-Request-ID")
}

var errorTypeByStatus = map[int]ErrorType{
	http.StatusBadRequest:         ErrorTypeValidation,
	http.StatusUnauthorized:       ErrorTypeUnauthorized,
	http.StatusNotFound:           ErrorTypeNotFound,
	http.StatusConflict:           ErrorTypeConflict,
	http.StatusRequestTimeout:     ErrorTypeTimeout,
	http.StatusTooManyRequests:    ErrorTypeRateLimit,
	http.StatusServiceUnavailable: ErrorTypeUnavailable,
	http.StatusBadGateway:         ErrorTypeGeneration,
}

func typeForStatus(status int) string {
	if t, ok := errorTypeByStatus[status]; ok {
		return string(t)
	}
	return string(ErrorTypeInternal)
}

// Middleware converts panics in the handler chain into 500 responses.
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.Handle(w, r, NewInternalError(fmt.Sprintf("panic: %v", rec)))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
