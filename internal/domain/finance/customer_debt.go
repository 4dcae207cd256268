package finance

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DebtStatus classifies the health of an order's outstanding balance
type DebtStatus string

const (
	DebtStatusUnPaid   DebtStatus = "UN_PAID"
	DebtStatusApart    DebtStatus = "APART"
	DebtStatusNoDebt   DebtStatus = "NO_DEBT"
	DebtStatusOverTime DebtStatus = "OVER_TIME"
	DebtStatusBadDebt  DebtStatus = "BAD_DEBT"
	DebtStatusDisable  DebtStatus = "DISABLE"
)

var debtTransitions = map[DebtStatus][]DebtStatus{
	DebtStatusUnPaid:   {DebtStatusApart, DebtStatusNoDebt, DebtStatusOverTime, DebtStatusDisable},
	DebtStatusApart:    {DebtStatusNoDebt, DebtStatusOverTime, DebtStatusDisable},
	DebtStatusOverTime: {DebtStatusApart, DebtStatusNoDebt, DebtStatusBadDebt, DebtStatusDisable},
	DebtStatusBadDebt:  {DebtStatusNoDebt, DebtStatusDisable},
	DebtStatusNoDebt:   {},
	DebtStatusDisable:  {},
}

// IsValid checks if the status is a valid DebtStatus
func (s DebtStatus) IsValid() bool {
	_, ok := debtTransitions[s]
	return ok
}

// String returns the string representation of DebtStatus
func (s DebtStatus) String() string {
	return string(s)
}

// IsTerminal returns true for NO_DEBT and DISABLE
func (s DebtStatus) IsTerminal() bool {
	return s == DebtStatusNoDebt || s == DebtStatusDisable
}

// CanTransitionTo checks if the status can transition to the target status
func (s DebtStatus) CanTransitionTo(target DebtStatus) bool {
	for _, next := range debtTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// DebtPolicy carries the externally configured thresholds of debt evaluation.
// Without a configured grace period an overdue debt is never escalated to BAD_DEBT.
type DebtPolicy struct {
	BadDebtGracePeriod time.Duration
	BadDebtEnabled     bool
}

// CustomerDebt is the per-order debt record
type CustomerDebt struct {
	shared.BaseAggregateRoot
	SalesOrderID   uuid.UUID
	Status         DebtStatus
	TotalAmount    decimal.Decimal
	TotalPaid      decimal.Decimal
	DebtAmount     decimal.Decimal
	DueDate        time.Time
	OverdueSince   *time.Time
	BadDebtAt      *time.Time
	SettledAt      *time.Time
	DisabledAt     *time.Time
	DisabledReason string
}

// NewCustomerDebt opens an UN_PAID debt for a delivered order with an outstanding balance.
// Payments already made are picked up by the first Recompute.
func NewCustomerDebt(salesOrderID uuid.UUID, totalAmount decimal.Decimal, dueDate time.Time) (*CustomerDebt, error) {
	if salesOrderID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_SALES_ORDER", "sales order ID cannot be empty")
	}
	if !totalAmount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "debt requires an outstanding balance")
	}
	if dueDate.IsZero() {
		return nil, shared.NewValidationError("INVALID_DUE_DATE", "due date is required")
	}
	return &CustomerDebt{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SalesOrderID:      salesOrderID,
		Status:            DebtStatusUnPaid,
		TotalAmount:       totalAmount,
		TotalPaid:         decimal.Zero,
		DebtAmount:        totalAmount,
		DueDate:           dueDate,
	}, nil
}

func (d *CustomerDebt) transition(target DebtStatus, at time.Time) error {
	if !d.Status.CanTransitionTo(target) {
		return shared.NewStateConflictError("customer debt", d.Status, target)
	}
	from := d.Status
	d.Status = target
	d.Touch()
	d.AddDomainEvent(NewDebtStatusChangedEvent(d, from, at))
	return nil
}

// Recompute refreshes the balance from invoice totals and applies the transitions it implies.
// A payment that reduced the balance takes precedence over time-driven escalation.
// Terminal debts are left untouched. Returns true if the status changed.
func (d *CustomerDebt) Recompute(totalAmount, totalPaid decimal.Decimal, now time.Time, policy DebtPolicy) (bool, error) {
	if d.Status.IsTerminal() {
		return false, nil
	}
	if totalAmount.IsNegative() || totalPaid.IsNegative() {
		return false, shared.NewValidationError("INVALID_AMOUNT", "debt totals cannot be negative")
	}

	previousPaid := d.TotalPaid
	previousStatus := d.Status
	d.TotalAmount = totalAmount
	d.TotalPaid = totalPaid
	d.DebtAmount = decimal.Max(decimal.Zero, totalAmount.Sub(totalPaid))
	d.Touch()

	if d.DebtAmount.IsZero() {
		if err := d.transition(DebtStatusNoDebt, now); err != nil {
			return false, err
		}
		d.SettledAt = &now
		return true, nil
	}

	paidMore := totalPaid.GreaterThan(previousPaid)
	if paidMore && (d.Status == DebtStatusUnPaid || d.Status == DebtStatusOverTime) {
		if err := d.transition(DebtStatusApart, now); err != nil {
			return false, err
		}
		return true, nil
	}

	if now.After(d.DueDate) && (d.Status == DebtStatusUnPaid || d.Status == DebtStatusApart) {
		if err := d.transition(DebtStatusOverTime, now); err != nil {
			return false, err
		}
		d.OverdueSince = &now
	}

	if d.Status == DebtStatusOverTime && policy.BadDebtEnabled && now.After(d.DueDate.Add(policy.BadDebtGracePeriod)) {
		if err := d.transition(DebtStatusBadDebt, now); err != nil {
			return false, err
		}
		d.BadDebtAt = &now
	}

	return d.Status != previousStatus, nil
}

// OwesAgain reports whether a settled debt's order carries a balance again,
// after a later shipment was invoiced or a payment was refunded. The settled
// record stays NO_DEBT as history and a new debt tracks the balance.
func (d *CustomerDebt) OwesAgain(totalRemain decimal.Decimal) bool {
	return d.Status == DebtStatusNoDebt && totalRemain.IsPositive()
}

// Disable retires the debt because its sales order was rejected or cancelled.
// The record is kept for audit.
func (d *CustomerDebt) Disable(reason string) error {
	if reason == "" {
		return shared.NewValidationError("INVALID_REASON", "disable reason is required")
	}
	now := time.Now()
	if err := d.transition(DebtStatusDisable, now); err != nil {
		return err
	}
	d.DisabledAt = &now
	d.DisabledReason = reason
	return nil
}

// IsOverdue returns true if the balance is unpaid past the due date
func (d *CustomerDebt) IsOverdue(now time.Time) bool {
	return d.DebtAmount.IsPositive() && now.After(d.DueDate)
}

// DaysOverdue returns whole days past the due date, zero when not overdue
func (d *CustomerDebt) DaysOverdue(now time.Time) int {
	if !d.IsOverdue(now) {
		return 0
	}
	return int(now.Sub(d.DueDate).Hours() / 24)
}

// String returns a short description for logs
func (d *CustomerDebt) String() string {
	return fmt.Sprintf("debt(order=%s status=%s amount=%s)", d.SalesOrderID, d.Status, d.DebtAmount)
}
