package scheduler

import (
	"context"
	"errors"

	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/inventory"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/event"
	"go.uber.org/zap"
)

// BackorderJobName names the backorder re-check job in logs
const BackorderJobName = "backorder_recheck"

// BackorderRechecker re-runs the availability check of AWAIT orders
type BackorderRechecker interface {
	RecheckAwaiting(ctx context.Context, limit int) (int, error)
}

// NewBackorderRecheckJob creates the job that promotes AWAIT orders to
// READY_TO_EXPORT once stock has arrived.
func NewBackorderRecheckJob(rechecker BackorderRechecker, config JobConfig, batch int, logger *zap.Logger) *PeriodicJob {
	return NewPeriodicJob(BackorderJobName, config, func(ctx context.Context) (int, error) {
		return rechecker.RecheckAwaiting(ctx, batch)
	}, logger)
}

// NewRestockTrigger returns an event handler that triggers job whenever a lot
// is received. A stopped job is not an error for the publisher.
func NewRestockTrigger(job *PeriodicJob) *event.HandlerFunc {
	return event.NewHandlerFunc(func(_ context.Context, _ shared.DomainEvent) error {
		if err := job.TriggerNow(); err != nil && !errors.Is(err, ErrSchedulerNotRunning) {
			return err
		}
		return nil
	}, inventory.EventTypeLotReceived)
}
