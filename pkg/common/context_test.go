package common_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"lifetree-backend/pkg/common"
)

func TestContextRoundTrips(t *testing.T) {
	ctx := context.Background()

	_, ok := common.GetUserID(ctx)
	assert.False(t, ok)
	_, ok = common.GetRequestID(ctx)
	assert.False(t, ok)
	_, ok = common.GetSessionID(ctx)
	assert.False(t, ok)

	ctx = common.WithUserID(ctx, "user-7")
	ctx = common.WithRequestID(ctx, "req-9")
	ctx = common.WithSessionID(ctx, "sess-abc")

	userID, ok := common.GetUserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-7", userID)

	requestID, ok := common.GetRequestID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-9", requestID)

	sessionID, ok := common.GetSessionID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "sess-abc", sessionID)
}

func TestContextValuesDoNotLeakAcrossKeys(t *testing.T) {
	ctx := common.WithSessionID(context.Background(), "sess-abc")

	_, ok := common.GetUserID(ctx)
	assert.False(t, ok)
	_, ok = common.GetRequestID(ctx)
	assert.False(t, ok)
}
