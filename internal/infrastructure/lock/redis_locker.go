package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	appshared "github.com/minhtran291/PMS-Backend-sub002/internal/application/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	defaultLockTTL           = 30 * time.Second
	defaultLockRetryInterval = 50 * time.Millisecond
	defaultKeyPrefix         = "pms:lock:"
)

// RedisLockerConfig holds distributed lock settings
type RedisLockerConfig struct {
	// TTL bounds how long a crashed holder can block a key; it also bounds the wait to obtain it
	TTL           time.Duration
	RetryInterval time.Duration
	// RefreshInterval is how often a held lock's TTL is extended. Defaults to TTL/3.
	RefreshInterval time.Duration
	KeyPrefix       string
}

// RedisLocker is a Locker shared by every instance of the service
type RedisLocker struct {
	client *redislock.Client
	config RedisLockerConfig
	logger *zap.Logger
}

// NewRedisLocker creates a RedisLocker over an existing Redis client
func NewRedisLocker(rdb redislock.RedisClient, cfg RedisLockerConfig, logger *zap.Logger) *RedisLocker {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultLockTTL
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultLockRetryInterval
	}
	if cfg.RefreshInterval <= 0 || cfg.RefreshInterval >= cfg.TTL {
		cfg.RefreshInterval = cfg.TTL / 3
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{
		client: redislock.New(rdb),
		config: cfg,
		logger: logger,
	}
}

// Lock obtains the key, retrying until ctx is done or the TTL elapses.
// A key still held by someone else is reported as a concurrency conflict.
// The TTL is extended in the background until unlock, so a critical section
// may outlast it.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := l.config.KeyPrefix + key
	lock, err := l.client.Obtain(ctx, lockKey, l.config.TTL, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.config.RetryInterval),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, shared.NewConcurrencyConflictError("resource is locked by another operation").
			WithDetail("lock_key", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		l.keepAlive(lock, lockKey, stop)
	}()

	return func() {
		close(stop)
		<-stopped
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("Failed to release lock",
				zap.String("lock_key", lockKey),
				zap.Error(err))
		}
	}, nil
}

// lease is the part of a held redislock.Lock that keepAlive needs
type lease interface {
	Refresh(ctx context.Context, ttl time.Duration, opt *redislock.Options) error
}

// keepAlive extends the lease every RefreshInterval until stop is closed.
// It gives up once the key is no longer held; failed calls are retried on the next tick.
func (l *RedisLocker) keepAlive(held lease, lockKey string, stop <-chan struct{}) {
	ticker := time.NewTicker(l.config.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), l.config.RefreshInterval)
		err := held.Refresh(ctx, l.config.TTL, nil)
		cancel()
		switch {
		case err == nil:
		case errors.Is(err, redislock.ErrNotObtained):
			l.logger.Error("Lock lease lost before release", zap.String("lock_key", lockKey))
			return
		default:
			l.logger.Warn("Failed to refresh lock", zap.String("lock_key", lockKey), zap.Error(err))
		}
	}
}

var _ appshared.Locker = (*RedisLocker)(nil)
