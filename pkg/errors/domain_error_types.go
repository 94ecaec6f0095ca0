package errors

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DomainErrorType categorizes a DomainError.
type DomainErrorType string

const (
	DomainValidationError     DomainErrorType = "VALIDATION_ERROR"
	DomainBusinessRuleError   DomainErrorType = "BUSINESS_RULE_ERROR"
	DomainNotFoundError       DomainErrorType = "NOT_FOUND"
	DomainConflictError       DomainErrorType = "CONFLICT"
	DomainInfrastructureError DomainErrorType = "INFRASTRUCTURE_ERROR"
	DomainAuthorizationError  DomainErrorType = "AUTHORIZATION_ERROR"
	DomainAuthenticationError DomainErrorType = "AUTHENTICATION_ERROR"
	DomainRateLimitError      DomainErrorType = "RATE_LIMIT_ERROR"
	DomainTimeoutError        DomainErrorType = "TIMEOUT_ERROR"
)

var domainStatus = map[DomainErrorType]int{
	DomainValidationError:     400,
	DomainBusinessRuleError:   422,
	DomainNotFoundError:       404,
	DomainConflictError:       409,
	DomainAuthenticationError: 401,
	DomainAuthorizationError:  403,
	DomainRateLimitError:      429,
	DomainTimeoutError:        504,
	DomainInfrastructureError: 500,
}

// DomainError is a coded failure of tree or session logic. The package
// exposes a catalog of sentinel values below; errors.Is matches on type
// and code, so a decorated copy still matches its sentinel.
type DomainError struct {
	Type       DomainErrorType        `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

// NewDomainError creates a domain error with the status its type implies.
func NewDomainError(errorType DomainErrorType, code string, message string) *DomainError {
	status, ok := domainStatus[errorType]
	if !ok {
		status = 500
	}
	return &DomainError{
		Type:       errorType,
		Code:       code,
		Message:    message,
		Details:    make(map[string]interface{}),
		StatusCode: status,
	}
}

func (e *DomainError) Error() string {
	header := fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
	if e.Cause == nil {
		return header
	}
	return header + ": " + e.Cause.Error()
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches by type and code, so decorated copies match their sentinel.
func (e *DomainError) Is(target error) bool {
	other, ok := target.(*DomainError)
	return ok && e.Type == other.Type && e.Code == other.Code
}

// clone backs the With* decorators. They return copies with their own
// details map, keeping the shared sentinels immutable.
func (e *DomainError) clone() *DomainError {
	c := *e
	c.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		c.Details[k] = v
	}
	return &c
}

// WithCause returns a copy carrying the underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithDetail returns a copy with one detail added.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	c := e.clone()
	c.Details[key] = value
	return c
}

// WithDetails returns a copy with all given details merged in.
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	c := e.clone()
	for k, v := range details {
		c.Details[k] = v
	}
	return c
}

// WithRetryable returns a copy with the retryable flag set.
func (e *DomainError) WithRetryable(retryable bool) *DomainError {
	c := e.clone()
	c.Retryable = retryable
	return c
}

// WithStatusCode returns a copy overriding the type's default status.
func (e *DomainError) WithStatusCode(code int) *DomainError {
	c := e.clone()
	c.StatusCode = code
	return c
}

// Sentinel catalog. Handlers and tests compare against these with
// errors.Is; call sites attach context through the With* decorators.
var (
	ErrNodeNotFound = NewDomainError(DomainNotFoundError,
		"NODE_NOT_FOUND", "The requested node does not exist")
	ErrParentNotFound = NewDomainError(DomainNotFoundError,
		"PARENT_NOT_FOUND", "The parent node for this operation does not exist")
	ErrNodeTitleRequired = NewDomainError(DomainValidationError,
		"NODE_TITLE_REQUIRED", "Node title is required")
	ErrNodeTitleTooLong = NewDomainError(DomainValidationError,
		"NODE_TITLE_TOO_LONG", "Node title exceeds maximum length").
		WithDetail("max_length", 255)
	ErrInvalidNodePosition = NewDomainError(DomainValidationError,
		"INVALID_NODE_POSITION", "Node position coordinates are invalid")
	ErrNodeAlreadyExpanded = NewDomainError(DomainConflictError,
		"NODE_ALREADY_EXPANDED", "The node has already been expanded")
	ErrRootNodePinned = NewDomainError(DomainBusinessRuleError,
		"ROOT_NODE_PINNED", "The root node is pinned at the origin and cannot be moved")

	ErrTreeAlreadyInitialized = NewDomainError(DomainConflictError,
		"TREE_ALREADY_INITIALIZED", "The tree has already been seeded with a root node")
	ErrTreeNotInitialized = NewDomainError(DomainBusinessRuleError,
		"TREE_NOT_INITIALIZED", "The tree has no root node yet")
	ErrTreeNodeLimitExceeded = NewDomainError(DomainBusinessRuleError,
		"TREE_NODE_LIMIT_EXCEEDED", "Maximum number of nodes in tree exceeded").
		WithDetail("limit", 10000)
	ErrTreeDepthExceeded = NewDomainError(DomainBusinessRuleError,
		"TREE_DEPTH_EXCEEDED", "Expanding this node would exceed the maximum tree depth")

	ErrScenarioAgeInvalid = NewDomainError(DomainValidationError,
		"SCENARIO_AGE_INVALID", "Scenario age must have non-negative years and weeks in [0,51]")
	ErrScenarioIncomeNegative = NewDomainError(DomainValidationError,
		"SCENARIO_INCOME_NEGATIVE", "Scenario monthly income cannot be negative")

	ErrSessionNotFound = NewDomainError(DomainNotFoundError,
		"SESSION_NOT_FOUND", "The requested simulation session does not exist")
	ErrSessionClosed = NewDomainError(DomainConflictError,
		"SESSION_CLOSED", "The simulation session has been stopped")
	ErrSessionLimitExceeded = NewDomainError(DomainBusinessRuleError,
		"SESSION_LIMIT_EXCEEDED", "Maximum number of concurrent sessions exceeded").
		WithRetryable(true)

	ErrExpansionInFlight = NewDomainError(DomainConflictError,
		"EXPANSION_IN_FLIGHT", "An expansion for this node is already being generated")
	ErrStaleExpansionToken = NewDomainError(DomainConflictError,
		"STALE_EXPANSION_TOKEN", "The expansion batch token no longer matches a live batch")
	ErrGenerationFailed = NewDomainError(DomainInfrastructureError,
		"GENERATION_FAILED", "Scenario generation failed and the expansion was rolled back").
		WithRetryable(true)
	ErrPortraitFailed = NewDomainError(DomainInfrastructureError,
		"PORTRAIT_FAILED", "Portrait generation failed").
		WithRetryable(true)

	ErrUserNotAuthorized = NewDomainError(DomainAuthorizationError,
		"USER_NOT_AUTHORIZED", "User is not authorized to perform this action")
	ErrRateLimitExceeded = NewDomainError(DomainRateLimitError,
		"RATE_LIMIT_EXCEEDED", "Too many requests, please try again later").
		WithRetryable(true)
	ErrGeneratorUnavailable = NewDomainError(DomainInfrastructureError,
		"GENERATOR_UNAVAILABLE", "The scenario generator is unavailable").
		WithRetryable(true)
	ErrEventPublishFailed = NewDomainError(DomainInfrastructureError,
		"EVENT_PUBLISH_FAILED", "Failed to publish domain event").
		WithRetryable(true)
)

// ValidationErrors collects per-field violations so a request can report
// everything wrong with it at once.
type ValidationErrors struct {
	Errors []*DomainError `json:"errors"`
}

// NewValidationErrors returns an empty collection.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Errors: make([]*DomainError, 0)}
}

// Add records a violation against a named field.
func (v *ValidationErrors) Add(field string, message string) {
	v.Errors = append(v.Errors,
		NewDomainError(DomainValidationError, "FIELD_VALIDATION_ERROR", message).
			WithDetail("field", field))
}

// AddError records an existing domain error.
func (v *ValidationErrors) AddError(err *DomainError) {
	v.Errors = append(v.Errors, err)
}

// HasErrors reports whether anything was recorded.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	if !v.HasErrors() {
		return ""
	}
	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Message
	}
	return "Validation failed: " + strings.Join(messages, "; ")
}

// ToMap groups the recorded messages by field name for JSON bodies.
// Violations without a field detail land under "general".
func (v *ValidationErrors) ToMap() map[string][]string {
	byField := make(map[string][]string)
	for _, err := range v.Errors {
		field, ok := err.Details["field"].(string)
		if !ok {
			field = "general"
		}
		byField[field] = append(byField[field], err.Message)
	}
	return byField
}

// DomainErrorResponse is the wire shape for DomainError failures.
type DomainErrorResponse struct {
	Error     bool                   `json:"error"`
	Type      DomainErrorType        `json:"type"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// NewDomainErrorResponse builds the response body for err.
func NewDomainErrorResponse(err *DomainError, requestID string) *DomainErrorResponse {
	return &DomainErrorResponse{
		Error:     true,
		Type:      err.Type,
		Code:      err.Code,
		Message:   err.Message,
		Details:   err.Details,
		Retryable: err.Retryable,
		RequestID: requestID,
		Timestamp: strconv.FormatInt(time.Now().Unix(), 10),
	}
}
