package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/config"
)

const defaultItemLockPrefix = "catalogsync:item-lock:"

// releaseScript deletes the lock only while it still holds the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisItemLocker implements ItemLocker using Redis.
// Suitable when several sync processes share one source catalog.
type RedisItemLocker struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisItemLocker connects to Redis and returns a locker
func NewRedisItemLocker(cfg config.RedisConfig) (*RedisItemLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisItemLockerWithClient(client, ""), nil
}

// NewRedisItemLockerWithClient creates a locker with an existing Redis client
func NewRedisItemLockerWithClient(client *redis.Client, keyPrefix string) *RedisItemLocker {
	if keyPrefix == "" {
		keyPrefix = defaultItemLockPrefix
	}
	return &RedisItemLocker{client: client, keyPrefix: keyPrefix}
}

// Acquire claims the item for ttl using SET NX PX.
// ok is false when another holder owns the lock.
func (l *RedisItemLocker) Acquire(ctx context.Context, sourceID string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.keyPrefix+sourceID, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire item lock: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release drops the lock if token still owns it
func (l *RedisItemLocker) Release(ctx context.Context, sourceID, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.keyPrefix + sourceID}, token).Err(); err != nil {
		return fmt.Errorf("failed to release item lock: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable
func (l *RedisItemLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (l *RedisItemLocker) Close() error {
	return l.client.Close()
}

var _ integration.ItemLocker = (*RedisItemLocker)(nil)
