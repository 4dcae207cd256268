package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// LotModel is the persistence model for the Lot aggregate root.
type LotModel struct {
	AggregateModel
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;index:idx_lot_product_expiry,priority:1"`
	SupplierID        uuid.UUID       `gorm:"type:uuid;index"`
	LotNumber         string          `gorm:"type:varchar(50);not null;index"`
	ExpiryDate        time.Time       `gorm:"not null;index:idx_lot_product_expiry,priority:2"`
	InputDate         time.Time       `gorm:"not null"`
	UnitInputPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitSalePrice     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	InitialQuantity   int64           `gorm:"not null;check:chk_lot_initial_positive,initial_quantity > 0"`
	RemainingQuantity int64           `gorm:"not null;check:chk_lot_remaining_range,remaining_quantity >= 0 AND remaining_quantity <= initial_quantity"`
}

// TableName returns the table name for GORM
func (LotModel) TableName() string {
	return "lots"
}

// ToDomain converts the persistence model to a domain Lot
func (m *LotModel) ToDomain() *inventory.Lot {
	return &inventory.Lot{
		BaseAggregateRoot: m.root(),
		ProductID:         m.ProductID,
		SupplierID:        m.SupplierID,
		LotNumber:         m.LotNumber,
		ExpiryDate:        m.ExpiryDate,
		InputDate:         m.InputDate,
		UnitInputPrice:    m.UnitInputPrice,
		UnitSalePrice:     m.UnitSalePrice,
		InitialQuantity:   m.InitialQuantity,
		RemainingQuantity: m.RemainingQuantity,
	}
}

// FromDomain populates the persistence model from a domain Lot
func (m *LotModel) FromDomain(l *inventory.Lot) {
	m.setRoot(l.BaseAggregateRoot)
	m.ProductID = l.ProductID
	m.SupplierID = l.SupplierID
	m.LotNumber = l.LotNumber
	m.ExpiryDate = l.ExpiryDate
	m.InputDate = l.InputDate
	m.UnitInputPrice = l.UnitInputPrice
	m.UnitSalePrice = l.UnitSalePrice
	m.InitialQuantity = l.InitialQuantity
	m.RemainingQuantity = l.RemainingQuantity
}

// LotModelFromDomain creates a new persistence model from a domain Lot
func LotModelFromDomain(l *inventory.Lot) *LotModel {
	m := &LotModel{}
	m.FromDomain(l)
	return m
}
