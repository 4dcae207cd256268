package shared

import (
	"context"

	"github.com/google/uuid"
)

// Locker serialises read-decide-write sequences on one aggregate.
// Lock blocks until the key is held or ctx is done; the returned func releases it.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// SEOLockKey returns the lock key of a stock export order
func SEOLockKey(id uuid.UUID) string {
	return "seo:" + id.String()
}

// SalesOrderLockKey returns the lock key of a sales order. It guards the
// export index sequence, the invoice and the debt of the order.
func SalesOrderLockKey(id uuid.UUID) string {
	return "sales-order:" + id.String()
}

// PaymentLockKey returns the lock key of a gateway reference
func PaymentLockKey(gatewayRef string) string {
	return "payment:" + gatewayRef
}

// WithLocks acquires the keys in order, runs fn and releases them in reverse order.
// Callers pass keys in a fixed order (order, then sales order) to avoid lock cycles.
func WithLocks(ctx context.Context, locker Locker, keys []string, fn func() error) error {
	unlocks := make([]func(), 0, len(keys))
	defer func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}()
	for _, key := range keys {
		unlock, err := locker.Lock(ctx, key)
		if err != nil {
			return err
		}
		unlocks = append(unlocks, unlock)
	}
	return fn()
}
