//go:build integration

package ratelimit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "basera/pkg/domain"
	"basera/pkg/testutil/containers"
)

func TestRedisLimiter_EnforcesLimit(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	limiter := NewRedisLimiter(rc.Client, 2, time.Hour, slog.New(slog.DiscardHandler))

	userID := id.UserID(uuid.New())
	ctx := context.Background()

	for i := range 2 {
		allowed, err := limiter.Allow(ctx, userID)
		require.NoError(t, err)
		assert.True(t, allowed, "attempt %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, userID)
	require.NoError(t, err)
	assert.False(t, allowed)

	// A different user is unaffected.
	allowed, err = limiter.Allow(ctx, id.UserID(uuid.New()))
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisLimiter_CounterExpires(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	limiter := NewRedisLimiter(rc.Client, 1, time.Second, slog.New(slog.DiscardHandler))

	userID := id.UserID(uuid.New())
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, userID)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, userID)
	require.NoError(t, err)
	assert.False(t, allowed)

	time.Sleep(1500 * time.Millisecond)

	allowed, err = limiter.Allow(ctx, userID)
	require.NoError(t, err)
	assert.True(t, allowed, "counter should reset after the window expires")
}
