package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		interval  time.Duration
		burst     int
		unlimited bool
	}{
		{name: "unlimited", interval: 0, burst: 0, unlimited: true},
		{name: "negative interval", interval: -time.Second, burst: 1, unlimited: true},
		{name: "one per second", interval: time.Second, burst: 1},
		{name: "burst raised to one", interval: time.Minute, burst: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := New(tt.interval, tt.burst)
			require.NotNil(t, limiter)
			assert.Equal(t, tt.unlimited, limiter.Unlimited())
			assert.True(t, limiter.Allow(), "first call must pass")
		})
	}
}

func TestAllow_ExhaustsBurst(t *testing.T) {
	limiter := New(time.Hour, 3)

	for i := 0; i < 3; i++ {
		require.True(t, limiter.Allow(), "call %d should be within burst", i)
	}
	assert.False(t, limiter.Allow(), "bucket should be empty")
	assert.Greater(t, limiter.Delay(), 50*time.Minute)
}

func TestUnlimited_NeverThrottles(t *testing.T) {
	limiter := New(0, 1)

	for i := 0; i < 1000; i++ {
		require.True(t, limiter.Allow())
	}
	assert.Zero(t, limiter.Delay())
}

func TestWait(t *testing.T) {
	limiter := New(50*time.Millisecond, 1)
	ctx := context.Background()

	require.NoError(t, limiter.Wait(ctx))

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 25*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestWait_ContextCancelled(t *testing.T) {
	limiter := New(time.Hour, 1)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.Error(t, limiter.Wait(ctx))
}

func TestDelay_DoesNotConsume(t *testing.T) {
	limiter := New(time.Hour, 1)

	assert.Zero(t, limiter.Delay())
	assert.Zero(t, limiter.Delay())
	assert.True(t, limiter.Allow(), "Delay must not consume the token")
}
