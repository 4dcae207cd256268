package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
)

// AggregateModel holds the columns every aggregate table carries. Version is
// the compare-and-swap token repositories match on when updating a row.
type AggregateModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Version   int       `gorm:"not null;default:1"`
}

// root rebuilds the domain root; loaded aggregates carry no pending events.
func (m *AggregateModel) root() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{
		BaseEntity: shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Version:    m.Version,
	}
}

func (m *AggregateModel) setRoot(a shared.BaseAggregateRoot) {
	*m = AggregateModel{ID: a.ID, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt, Version: a.Version}
}

// All lists every model the service persists, in dependency order
func All() []any {
	return []any{
		&LotModel{},
		&StockExportOrderModel{},
		&GoodsIssueNoteModel{},
		&InvoiceModel{},
		&PaymentRecordModel{},
		&CustomerDebtModel{},
	}
}
