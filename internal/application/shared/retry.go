package shared

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
)

const (
	// DefaultMaxRetries is the default number of retries after a concurrency conflict
	DefaultMaxRetries = 3
	// DefaultRetryBackoff is the default initial wait between retries
	DefaultRetryBackoff = 20 * time.Millisecond
)

// RetryPolicy bounds the retries of an operation that lost an optimistic race
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
}

// DefaultRetryPolicy returns the default retry policy
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     DefaultMaxRetries,
		InitialBackoff: DefaultRetryBackoff,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialBackoff
	if exp.InitialInterval <= 0 {
		exp.InitialInterval = DefaultRetryBackoff
	}
	exp.MaxInterval = 20 * exp.InitialInterval
	exp.MaxElapsedTime = 0
	exp.Reset()

	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), ctx)
}

// RetryOnConflict runs op and re-runs it after a concurrency conflict, up to
// policy.MaxRetries more times. Any other error stops immediately and is returned as is.
// The last conflict is returned once retries are exhausted.
func RetryOnConflict(ctx context.Context, policy RetryPolicy, op func(attempt int) error) error {
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op(attempt)
		if err == nil {
			return nil
		}
		if shared.IsKind(err, shared.KindConcurrencyConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, policy.backOff(ctx))
}
