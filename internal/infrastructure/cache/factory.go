package cache

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/config"
)

// ClosableItemLocker is an ItemLocker that owns resources
type ClosableItemLocker interface {
	integration.ItemLocker
	io.Closer
}

// ItemLockerFactory creates item lockers based on configuration
type ItemLockerFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	connect               func(config.RedisConfig) (ClosableItemLocker, error)
}

// ItemLockerFactoryOption is a functional option for configuring the factory
type ItemLockerFactoryOption func(*ItemLockerFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ItemLockerFactoryOption {
	return func(f *ItemLockerFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory locker when Redis is unavailable.
// Default is true.
func WithInMemoryFallback(allow bool) ItemLockerFactoryOption {
	return func(f *ItemLockerFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewItemLockerFactory creates a new factory
func NewItemLockerFactory(cfg config.RedisConfig, opts ...ItemLockerFactoryOption) *ItemLockerFactory {
	f := &ItemLockerFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
		connect: func(c config.RedisConfig) (ClosableItemLocker, error) {
			return NewRedisItemLocker(c)
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateLocker returns a Redis locker, falling back to in-memory when
// Redis is unreachable and fallback is allowed.
// In-memory locks are not shared between processes.
func (f *ItemLockerFactory) CreateLocker() (ClosableItemLocker, error) {
	locker, err := f.connect(f.redisConfig)
	if err == nil {
		f.logger.Info("using Redis item locker", zap.String("addr", f.redisConfig.Addr()))
		return locker, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for item locking but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory item locker",
		zap.Error(err),
	)
	return NewInMemoryItemLocker(), nil
}
