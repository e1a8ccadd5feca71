package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogsync/backend/internal/infrastructure/config"
)

func TestInMemoryItemLocker_AcquireRelease(t *testing.T) {
	locker := NewInMemoryItemLocker()
	defer locker.Close()
	ctx := context.Background()

	token, ok, err := locker.Acquire(ctx, "gid://shopify/Product/1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = locker.Acquire(ctx, "gid://shopify/Product/1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while held")

	// a stale token cannot release someone else's lock
	require.NoError(t, locker.Release(ctx, "gid://shopify/Product/1", "stale"))
	assert.Equal(t, 1, locker.Size())

	require.NoError(t, locker.Release(ctx, "gid://shopify/Product/1", token))
	assert.Equal(t, 0, locker.Size())

	_, ok, err = locker.Acquire(ctx, "gid://shopify/Product/1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInMemoryItemLocker_Expiry(t *testing.T) {
	locker := NewInMemoryItemLocker()
	defer locker.Close()
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	locker.now = func() time.Time { return now }

	_, ok, _ := locker.Acquire(ctx, "a", time.Second)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, _ = locker.Acquire(ctx, "a", time.Second)
	assert.True(t, ok, "expired lock can be re-acquired")

	now = now.Add(2 * time.Second)
	locker.cleanup()
	assert.Equal(t, 0, locker.Size())
}

func TestInMemoryItemLocker_Concurrent(t *testing.T) {
	locker := NewInMemoryItemLocker()
	defer locker.Close()

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := locker.Acquire(context.Background(), "same", time.Minute); ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestInMemoryItemLocker_CloseIdempotent(t *testing.T) {
	locker := NewInMemoryItemLocker()
	assert.NoError(t, locker.Close())
	assert.NoError(t, locker.Close())
}

func TestRedisItemLocker_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	locker := NewRedisItemLockerWithClient(client, "")
	defer locker.Close()
	assert.Equal(t, defaultItemLockPrefix, locker.keyPrefix)

	_, ok, err := locker.Acquire(context.Background(), "a", time.Minute)
	assert.False(t, ok)
	assert.ErrorContains(t, err, "failed to acquire item lock")

	err = locker.Release(context.Background(), "a", "token")
	assert.ErrorContains(t, err, "failed to release item lock")
}

func TestItemLockerFactory(t *testing.T) {
	failing := func(config.RedisConfig) (ClosableItemLocker, error) {
		return nil, errors.New("dial tcp: connection refused")
	}

	t.Run("falls back to in-memory", func(t *testing.T) {
		f := NewItemLockerFactory(config.RedisConfig{Host: "localhost", Port: 6379})
		f.connect = failing

		locker, err := f.CreateLocker()
		require.NoError(t, err)
		defer locker.Close()
		assert.IsType(t, &InMemoryItemLocker{}, locker)
	})

	t.Run("fallback disabled", func(t *testing.T) {
		f := NewItemLockerFactory(config.RedisConfig{}, WithInMemoryFallback(false))
		f.connect = failing

		_, err := f.CreateLocker()
		assert.ErrorContains(t, err, "redis required")
	})

	t.Run("uses connected locker", func(t *testing.T) {
		want := NewInMemoryItemLocker()
		defer want.Close()
		f := NewItemLockerFactory(config.RedisConfig{})
		f.connect = func(config.RedisConfig) (ClosableItemLocker, error) { return want, nil }

		got, err := f.CreateLocker()
		require.NoError(t, err)
		assert.Same(t, want, got)
	})
}
