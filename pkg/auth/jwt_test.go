package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifetree-backend/pkg/auth"
)

const testSecret = "unit-test-secret-key-0123456789ab"

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := auth.NewTokenIssuer(testSecret, "lifetree-backend", time.Hour)
	require.NoError(t, err)
	validator, err := auth.NewTokenValidator(testSecret, "lifetree-backend")
	require.NoError(t, err)

	token, err := issuer.Issue("user-7", "u7@example.com")
	require.NoError(t, err)

	claims, err := validator.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", claims.UserID)
	assert.Equal(t, "u7@example.com", claims.Email)
	assert.Equal(t, "lifetree-backend", claims.Issuer)
}

func TestTokenValidator_StripsBearerPrefix(t *testing.T) {
	issuer, err := auth.NewTokenIssuer(testSecret, "", time.Hour)
	require.NoError(t, err)
	validator, err := auth.NewTokenValidator(testSecret, "")
	require.NoError(t, err)

	token, err := issuer.Issue("user-7", "")
	require.NoError(t, err)

	claims, err := validator.Validate("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", claims.UserID)
}

func TestTokenValidator_MissingToken(t *testing.T) {
	validator, err := auth.NewTokenValidator(testSecret, "")
	require.NoError(t, err)

	_, err = validator.Validate("")
	assert.ErrorIs(t, err, auth.ErrMissingToken)

	_, err = validator.Validate("Bearer ")
	assert.ErrorIs(t, err, auth.ErrMissingToken)
}

func TestTokenValidator_RejectsExpired(t *testing.T) {
	issuer, err := auth.NewTokenIssuer(testSecret, "", -time.Minute)
	require.NoError(t, err)
	validator, err := auth.NewTokenValidator(testSecret, "")
	require.NoError(t, err)

	token, err := issuer.Issue("user-7", "")
	require.NoError(t, err)

	_, err = validator.Validate(token)
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestTokenValidator_RejectsWrongSecret(t *testing.T) {
	issuer, err := auth.NewTokenIssuer(testSecret, "", time.Hour)
	require.NoError(t, err)
	validator, err := auth.NewTokenValidator("another-secret-key-0123456789abcd", "")
	require.NoError(t, err)

	token, err := issuer.Issue("user-7", "")
	require.NoError(t, err)

	_, err = validator.Validate(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenValidator_RejectsWrongIssuer(t *testing.T) {
	issuer, err := auth.NewTokenIssuer(testSecret, "someone-else", time.Hour)
	require.NoError(t, err)
	validator, err := auth.NewTokenValidator(testSecret, "lifetree-backend")
	require.NoError(t, err)

	token, err := issuer.Issue("user-7", "")
	require.NoError(t, err)

	_, err = validator.Validate(token)
	assert.ErrorIs(t, err, auth.ErrInvalidClaims)
}

func TestTokenValidator_RejectsMissingSubject(t *testing.T) {
	issuer, err := auth.NewTokenIssuer(testSecret, "", time.Hour)
	require.NoError(t, err)
	validator, err := auth.NewTokenValidator(testSecret, "")
	require.NoError(t, err)

	token, err := issuer.Issue("", "")
	require.NoError(t, err)

	_, err = validator.Validate(token)
	assert.ErrorIs(t, err, auth.ErrInvalidClaims)
}

func TestTokenValidator_RejectsGarbage(t *testing.T) {
	validator, err := auth.NewTokenValidator(testSecret, "")
	require.NoError(t, err)

	_, err = validator.Validate("not.a.token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestNewTokenValidator_RequiresSecret(t *testing.T) {
	_, err := auth.NewTokenValidator("", "")
	assert.Error(t, err)

	_, err = auth.NewTokenIssuer("", "", time.Hour)
	assert.Error(t, err)
}

func TestUserContextRoundTrip(t *testing.T) {
	assert.Nil(t, auth.UserFrom(context.Background()), "anonymous context carries no claims")

	claims := &auth.Claims{UserID: "user-7"}
	ctx := auth.SetUser(context.Background(), claims)
	assert.Same(t, claims, auth.UserFrom(ctx))
}
