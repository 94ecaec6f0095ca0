package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifetree-backend/pkg/utils"
)

func TestRFC3339RoundTrip(t *testing.T) {
	now := utils.NowRFC3339()
	parsed, err := utils.ParseRFC3339(now)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), parsed, 5*time.Second)
}

func TestParseRFC3339_Invalid(t *testing.T) {
	_, err := utils.ParseRFC3339("2026-13-45")
	assert.Error(t, err)
}
