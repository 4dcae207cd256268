package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	appshared "github.com/minhtran291/PMS-Backend-sub002/internal/application/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/inventory"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// AllocatorConfig holds allocation settings
type AllocatorConfig struct {
	Retry appshared.RetryPolicy
	// ExcludeExpired skips lots that expire before the allocation time
	ExcludeExpired bool
}

// DefaultAllocatorConfig returns the default allocation settings
func DefaultAllocatorConfig() AllocatorConfig {
	return AllocatorConfig{
		Retry:          appshared.DefaultRetryPolicy(),
		ExcludeExpired: true,
	}
}

// AllocatorService plans and commits FEFO lot allocations
type AllocatorService struct {
	txScope   appshared.TransactionScope
	config    AllocatorConfig
	publisher shared.EventPublisher
	metrics   appshared.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewAllocatorService creates a new AllocatorService
func NewAllocatorService(txScope appshared.TransactionScope, config AllocatorConfig, logger *zap.Logger) *AllocatorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocatorService{
		txScope: txScope,
		config:  config,
		metrics: appshared.NopMetrics{},
		logger:  logger,
		now:     time.Now,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *AllocatorService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetMetrics sets the business metrics sink
func (s *AllocatorService) SetMetrics(metrics appshared.Metrics) {
	if metrics != nil {
		s.metrics = metrics
	}
}

// SetClock replaces the time source used to skip expired lots
func (s *AllocatorService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RetryPolicy returns the retry policy used for allocation commits
func (s *AllocatorService) RetryPolicy() appshared.RetryPolicy {
	return s.config.Retry
}

func (s *AllocatorService) prepare(req inventory.AllocationRequest) inventory.AllocationRequest {
	if s.config.ExcludeExpired && req.NotExpiredAt.IsZero() {
		req.NotExpiredAt = s.now()
	}
	return req
}

// AllocateLots returns the FEFO plan for a request without changing any lot.
// A plan that cannot cover the request is returned together with an
// InsufficientStock error carrying the shortfall.
func (s *AllocatorService) AllocateLots(ctx context.Context, req inventory.AllocationRequest) (*inventory.AllocationPlan, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocator", "allocate_lots")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrProductID, req.ProductID.String(),
		telemetry.SpanAttrQuantity, req.Quantity,
	)

	var plan *inventory.AllocationPlan
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		plan, err = s.Plan(ctx, repos.Lots(), req)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !plan.IsSatisfied() {
		return plan, plan.InsufficientStockError()
	}
	return plan, nil
}

// Plan reads the available lots of the product and plans a FEFO allocation over them
func (s *AllocatorService) Plan(ctx context.Context, lots inventory.LotRepository, req inventory.AllocationRequest) (*inventory.AllocationPlan, error) {
	req = s.prepare(req)
	if err := req.Validate(); err != nil {
		return nil, err
	}
	candidates, err := lots.FindAvailableByProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	return inventory.PlanFEFO(req, candidates)
}

// CommitPlan decrements every planned line with a compare-and-set.
// It stops at the first line whose lot no longer holds the planned quantity
// and returns the lines committed so far with a ConcurrencyConflict error.
// The caller undoes committed lines with Release or by rolling back its transaction.
func (s *AllocatorService) CommitPlan(ctx context.Context, lots inventory.LotRepository, plan *inventory.AllocationPlan) ([]inventory.AllocationLine, error) {
	committed := make([]inventory.AllocationLine, 0, len(plan.Lines))
	for _, line := range plan.Lines {
		ok, err := lots.DeductIfAvailable(ctx, line.LotID, line.Quantity)
		if err != nil {
			return committed, err
		}
		if !ok {
			s.metrics.AllocationConflict(ctx, line.ProductID)
			s.logger.Info("Lot changed since planning",
				zap.String("lot_id", line.LotID.String()),
				zap.String("lot_number", line.LotNumber),
				zap.Int64("planned", line.Quantity),
				zap.Int64("observed_remaining", line.ObservedRemaining))
			return committed, shared.NewConcurrencyConflictError("lot " + line.LotNumber + " no longer holds the planned quantity").
				WithDetail("lot_id", line.LotID.String())
		}
		committed = append(committed, line)
	}
	return committed, nil
}

// CommitAllocation plans and commits a request in one transaction, re-planning
// from a fresh read after a conflict up to the configured retry bound.
// Nothing is deducted unless the whole request can be covered.
func (s *AllocatorService) CommitAllocation(ctx context.Context, req inventory.AllocationRequest) (*inventory.AllocationPlan, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocator", "commit_allocation")
	defer span.End()

	var plan *inventory.AllocationPlan
	err := appshared.RetryOnConflict(ctx, s.config.Retry, func(attempt int) error {
		return s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
			var err error
			plan, err = s.Plan(ctx, repos.Lots(), req)
			if err != nil {
				return err
			}
			if !plan.IsSatisfied() {
				return plan.InsufficientStockError()
			}
			_, err = s.CommitPlan(ctx, repos.Lots(), plan)
			if err != nil && attempt > 1 {
				s.logger.Debug("Allocation retry failed", zap.Int("attempt", attempt), zap.Error(err))
			}
			return err
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return plan, err
	}
	return plan, nil
}

// Release puts committed quantities back on their lots
func (s *AllocatorService) Release(ctx context.Context, lots inventory.LotRepository, lotID uuid.UUID, quantity int64) error {
	ok, err := lots.Restore(ctx, lotID, quantity)
	if err != nil {
		return err
	}
	if !ok {
		return shared.NewDomainError(shared.KindStateConflict, "RESTORE_EXCEEDS_INITIAL",
			"restoring the quantity would exceed the lot's initial quantity").
			WithDetail("lot_id", lotID.String())
	}
	return nil
}

// ReceiveLot stores a new lot. The LotReceived event lets waiting orders re-check availability.
func (s *AllocatorService) ReceiveLot(ctx context.Context, params inventory.NewLotParams) (*inventory.Lot, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocator", "receive_lot")
	defer span.End()

	lot, err := inventory.NewLot(params)
	if err != nil {
		return nil, err
	}
	err = s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		return repos.Lots().Save(ctx, lot)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Lot received",
		zap.String("lot_id", lot.ID.String()),
		zap.String("lot_number", lot.LotNumber),
		zap.String("product_id", lot.ProductID.String()),
		zap.Int64("quantity", lot.InitialQuantity))
	appshared.PublishEvents(ctx, s.publisher, s.logger, appshared.CollectEvents(lot))
	return lot, nil
}

// GetLot returns a lot by ID
func (s *AllocatorService) GetLot(ctx context.Context, id uuid.UUID) (*inventory.Lot, error) {
	var lot *inventory.Lot
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		lot, err = repos.Lots().FindByID(ctx, id)
		return err
	})
	return lot, err
}

// ListLots returns every lot of a product, FEFO ordered
func (s *AllocatorService) ListLots(ctx context.Context, productID uuid.UUID) ([]inventory.Lot, error) {
	var lots []inventory.Lot
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		lots, err = repos.Lots().FindByProduct(ctx, productID)
		return err
	})
	return lots, err
}
