package lock

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bsm/redislock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeLease struct {
	calls   atomic.Int32
	refresh func(call int32) error
}

func (f *fakeLease) Refresh(_ context.Context, _ time.Duration, _ *redislock.Options) error {
	n := f.calls.Add(1)
	if f.refresh == nil {
		return nil
	}
	return f.refresh(n)
}

func newTestLocker(logger *zap.Logger) *RedisLocker {
	return NewRedisLocker(nil, RedisLockerConfig{TTL: 30 * time.Millisecond, RefreshInterval: 5 * time.Millisecond}, logger)
}

// runKeepAlive starts keepAlive and returns a channel closed when it returns
func runKeepAlive(l *RedisLocker, held lease, stop chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.keepAlive(held, "pms:lock:sales-order:1", stop)
	}()
	return done
}

func TestNewRedisLocker_RefreshInterval(t *testing.T) {
	tests := []struct {
		name string
		cfg  RedisLockerConfig
		want time.Duration
	}{
		{"defaults to a third of the TTL", RedisLockerConfig{TTL: 30 * time.Second}, 10 * time.Second},
		{"default TTL", RedisLockerConfig{}, defaultLockTTL / 3},
		{"interval not shorter than TTL", RedisLockerConfig{TTL: time.Second, RefreshInterval: 2 * time.Second}, time.Second / 3},
		{"explicit interval", RedisLockerConfig{TTL: time.Second, RefreshInterval: 100 * time.Millisecond}, 100 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewRedisLocker(nil, tt.cfg, nil).config.RefreshInterval)
		})
	}
}

func TestRedisLocker_KeepAlive(t *testing.T) {
	t.Run("extends the lease until released", func(t *testing.T) {
		held := &fakeLease{}
		stop := make(chan struct{})
		done := runKeepAlive(newTestLocker(zap.NewNop()), held, stop)

		require.Eventually(t, func() bool { return held.calls.Load() >= 3 }, time.Second, time.Millisecond)
		close(stop)
		<-done

		calls := held.calls.Load()
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, calls, held.calls.Load(), "no refresh after release")
	})

	t.Run("stops once the lease is lost", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		held := &fakeLease{refresh: func(int32) error { return redislock.ErrNotObtained }}
		stop := make(chan struct{})
		defer close(stop)
		done := runKeepAlive(newTestLocker(zap.New(core)), held, stop)

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("keepAlive kept running after the lease was lost")
		}
		assert.Equal(t, int32(1), held.calls.Load())
		assert.Equal(t, 1, logs.FilterMessage("Lock lease lost before release").Len())
	})

	t.Run("retries after a failed refresh", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		held := &fakeLease{refresh: func(call int32) error {
			if call == 1 {
				return errors.New("i/o timeout")
			}
			return nil
		}}
		stop := make(chan struct{})
		done := runKeepAlive(newTestLocker(zap.New(core)), held, stop)

		require.Eventually(t, func() bool { return held.calls.Load() >= 3 }, time.Second, time.Millisecond)
		close(stop)
		<-done
		assert.Equal(t, 1, logs.FilterMessage("Failed to refresh lock").Len())
	})
}
