package cache

import (
	"context"
	"fmt"

	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// IdempotencyStoreFactory picks the gateway reference store from configuration
type IdempotencyStoreFactory struct {
	redisConfig           config.RedisConfig
	client                redis.UniversalClient
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// IdempotencyStoreFactoryOption configures the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) { f.logger = logger }
}

// WithRedisClient reuses an already connected client instead of dialing
func WithRedisClient(client redis.UniversalClient) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) { f.client = client }
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// in-process store. Defaults to true.
func WithInMemoryFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) { f.allowInMemoryFallback = allow }
}

// NewIdempotencyStoreFactory creates a new factory
func NewIdempotencyStoreFactory(cfg config.RedisConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns a Redis store when Redis is enabled and reachable,
// otherwise the in-memory store if fallback is allowed.
func (f *IdempotencyStoreFactory) CreateStore(ctx context.Context) (shared.IdempotencyStore, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("redis disabled, using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	}

	if f.client != nil {
		err := f.client.Ping(ctx).Err()
		if err == nil {
			f.logger.Info("using redis idempotency store", zap.String("addr", f.redisConfig.Addr()))
			return NewRedisIdempotencyStore(f.client, DefaultKeyPrefix), nil
		}
		return f.fallback(err)
	}

	store, err := DialRedisIdempotencyStore(ctx, &redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return f.fallback(err)
	}
	f.logger.Info("using redis idempotency store", zap.String("addr", f.redisConfig.Addr()))
	return store, nil
}

func (f *IdempotencyStoreFactory) fallback(err error) (shared.IdempotencyStore, error) {
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}
	f.logger.Warn("redis unavailable, using in-memory idempotency store; "+
		"replays reaching different instances are only caught by the database",
		zap.Error(err))
	return NewInMemoryIdempotencyStore(), nil
}
