package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketPacer_Wait(t *testing.T) {
	interval := 50 * time.Millisecond
	pacer := NewTokenBucketPacer(interval, 1, 0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, pacer.Wait(ctx))
	}
	elapsed := time.Since(start)

	// the first token is available immediately, the next two wait one interval each
	assert.GreaterOrEqual(t, elapsed, 2*interval-10*time.Millisecond)
	assert.Equal(t, int64(3), pacer.Stats().ItemWaits)
}

func TestTokenBucketPacer_ZeroIntervalNeverBlocks(t *testing.T) {
	pacer := NewTokenBucketPacer(0, 0, 0)

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, pacer.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestTokenBucketPacer_WaitCancelled(t *testing.T) {
	pacer := NewTokenBucketPacer(time.Hour, 1, 0)
	require.NoError(t, pacer.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, pacer.Wait(ctx))
}

func TestTokenBucketPacer_PageCooldown(t *testing.T) {
	pacer := NewTokenBucketPacer(0, 1, time.Minute)
	var slept []time.Duration
	pacer.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	require.NoError(t, pacer.PageCooldown(context.Background()))
	require.NoError(t, pacer.PageCooldown(context.Background()))

	assert.Equal(t, []time.Duration{time.Minute, time.Minute}, slept)
	assert.Equal(t, int64(2), pacer.Stats().Cooldowns)
}

func TestTokenBucketPacer_PageCooldownCancelled(t *testing.T) {
	pacer := NewTokenBucketPacer(0, 1, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, pacer.PageCooldown(ctx), context.Canceled)
	assert.Equal(t, int64(0), pacer.Stats().Cooldowns)
}

func TestTokenBucketPacer_DisabledCooldown(t *testing.T) {
	pacer := NewTokenBucketPacer(0, 1, 0)
	assert.NoError(t, pacer.PageCooldown(context.Background()))
}

func TestNoopPacer(t *testing.T) {
	var p NoopPacer
	assert.NoError(t, p.Wait(context.Background()))
	assert.NoError(t, p.PageCooldown(context.Background()))
}
