package scheduler

import (
	"context"

	"go.uber.org/zap"
)

// DebtJobName names the debt re-evaluation job in logs
const DebtJobName = "debt_reevaluation"

// DebtEvaluator re-evaluates open customer debts
type DebtEvaluator interface {
	EvaluateOpenDebts(ctx context.Context, limit int) (int, error)
}

// NewDebtReevaluationJob creates the job that moves debts to OVER_TIME and
// BAD_DEBT as time passes without any payment arriving.
func NewDebtReevaluationJob(evaluator DebtEvaluator, config JobConfig, batch int, logger *zap.Logger) *PeriodicJob {
	return NewPeriodicJob(DebtJobName, config, func(ctx context.Context) (int, error) {
		return evaluator.EvaluateOpenDebts(ctx, batch)
	}, logger)
}
