package errors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "lifetree-backend/pkg/errors"
)

func TestAppError_Constructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *pkgerrors.AppError
		wantType   pkgerrors.ErrorType
		wantStatus int
	}{
		{"validation", pkgerrors.NewValidationError("bad seed"), pkgerrors.ErrorTypeValidation, http.StatusBadRequest},
		{"not found", pkgerrors.NewNotFoundError("session"), pkgerrors.ErrorTypeNotFound, http.StatusNotFound},
		{"conflict", pkgerrors.NewConflictError("already expanded"), pkgerrors.ErrorTypeConflict, http.StatusConflict},
		{"unauthorized", pkgerrors.NewUnauthorizedError(""), pkgerrors.ErrorTypeUnauthorized, http.StatusUnauthorized},
		{"internal", pkgerrors.NewInternalError("boom"), pkgerrors.ErrorTypeInternal, http.StatusInternalServerError},
		{"timeout", pkgerrors.NewTimeoutError("expand"), pkgerrors.ErrorTypeTimeout, http.StatusRequestTimeout},
		{"rate limit", pkgerrors.NewRateLimitError(30, "minute"), pkgerrors.ErrorTypeRateLimit, http.StatusTooManyRequests},
		{"unavailable", pkgerrors.NewUnavailableError("generator"), pkgerrors.ErrorTypeUnavailable, http.StatusServiceUnavailable},
		{"generation", pkgerrors.NewGenerationError("scenario", errors.New("timeout")), pkgerrors.ErrorTypeGeneration, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantStatus, tt.err.HTTPStatus)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestAppError_MessageFormat(t *testing.T) {
	err := pkgerrors.NewNotFoundError("node")
	assert.Equal(t, "NOT_FOUND: node not found", err.Error())

	assert.Equal(t, "unauthorized", pkgerrors.NewUnauthorizedError("").Message)
	assert.Equal(t, "operation 'expand' timed out", pkgerrors.NewTimeoutError("expand").Message)
}

func TestAppError_CauseChain(t *testing.T) {
	cause := errors.New("connection refused")
	err := pkgerrors.NewUnavailableError("generator").WithCause(cause)

	assert.Contains(t, err.Error(), "caused by: connection refused")
	assert.ErrorIs(t, err, cause)
}

func TestAppError_Predicates(t *testing.T) {
	notFound := pkgerrors.NewNotFoundError("session")
	wrapped := fmt.Errorf("loading state: %w", notFound)

	assert.True(t, pkgerrors.IsAppError(wrapped))
	assert.Same(t, notFound, pkgerrors.GetAppError(wrapped))
	assert.True(t, pkgerrors.IsNotFound(wrapped))
	assert.False(t, pkgerrors.IsValidation(wrapped))
	assert.False(t, pkgerrors.IsGeneration(wrapped))

	plain := errors.New("plain")
	assert.False(t, pkgerrors.IsAppError(plain))
	assert.Nil(t, pkgerrors.GetAppError(plain))
	assert.False(t, pkgerrors.IsNotFound(nil))
}

func TestAppError_Decorators(t *testing.T) {
	err := pkgerrors.NewValidationError("age out of range").
		WithCode("SEED_AGE").
		WithDetails(map[string]interface{}{"field": "age_years"})

	assert.Equal(t, "SEED_AGE", err.Code)
	assert.Equal(t, "age_years", err.Details["field"])
}

func TestWrap(t *testing.T) {
	assert.NoError(t, pkgerrors.Wrap(nil, "ignored"))

	t.Run("app error keeps identity", func(t *testing.T) {
		inner := pkgerrors.NewNotFoundError("node")
		wrapped := pkgerrors.Wrap(inner, "expanding")

		appErr := pkgerrors.GetAppError(wrapped)
		require.NotNil(t, appErr)
		assert.Same(t, inner, appErr)
		assert.Equal(t, "expanding: node not found", appErr.Message)
		assert.True(t, pkgerrors.IsNotFound(wrapped), "wrapping must not change the error type")
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		cause := errors.New("disk full")
		wrapped := pkgerrors.Wrapf(cause, "persisting session %s", "abc")

		appErr := pkgerrors.GetAppError(wrapped)
		require.NotNil(t, appErr)
		assert.Equal(t, pkgerrors.ErrorTypeInternal, appErr.Type)
		assert.Equal(t, "persisting session abc", appErr.Message)
		assert.ErrorIs(t, wrapped, cause)
	})
}
