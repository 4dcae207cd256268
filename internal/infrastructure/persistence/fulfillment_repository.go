package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/fulfillment"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStockExportOrderRepository implements StockExportOrderRepository using GORM
type GormStockExportOrderRepository struct {
	db *gorm.DB
}

// NewGormStockExportOrderRepository creates a new GormStockExportOrderRepository
func NewGormStockExportOrderRepository(db *gorm.DB) *GormStockExportOrderRepository {
	return &GormStockExportOrderRepository{db: db}
}

// FindByID finds a stock export order by its ID
func (r *GormStockExportOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfillment.StockExportOrder, error) {
	var model models.StockExportOrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("stock export order", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds a stock export order by its code
func (r *GormStockExportOrderRepository) FindByCode(ctx context.Context, code string) (*fulfillment.StockExportOrder, error) {
	var model models.StockExportOrderModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("stock export order", code)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByStatus lists orders in a status, oldest first
func (r *GormStockExportOrderRepository) FindByStatus(ctx context.Context, status fulfillment.SEOStatus, limit int) ([]fulfillment.StockExportOrder, error) {
	query := r.db.WithContext(ctx).Where("status = ?", string(status)).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	return r.find(query)
}

// FindBySalesOrder lists every order of a sales order, oldest first
func (r *GormStockExportOrderRepository) FindBySalesOrder(ctx context.Context, salesOrderID uuid.UUID) ([]fulfillment.StockExportOrder, error) {
	return r.find(r.db.WithContext(ctx).Where("sales_order_id = ?", salesOrderID).Order("created_at ASC"))
}

func (r *GormStockExportOrderRepository) find(query *gorm.DB) ([]fulfillment.StockExportOrder, error) {
	var orderModels []models.StockExportOrderModel
	if err := query.Find(&orderModels).Error; err != nil {
		return nil, err
	}
	orders := make([]fulfillment.StockExportOrder, len(orderModels))
	for i := range orderModels {
		orders[i] = *orderModels[i].ToDomain()
	}
	return orders, nil
}

// Create inserts a new order. A reused code is a state conflict.
func (r *GormStockExportOrderRepository) Create(ctx context.Context, order *fulfillment.StockExportOrder) error {
	model := models.StockExportOrderModelFromDomain(order)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError(shared.KindStateConflict, "DUPLICATE_CODE",
				"stock export order code already used: "+order.Code)
		}
		return err
	}
	return nil
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormStockExportOrderRepository) SaveWithLock(ctx context.Context, order *fulfillment.StockExportOrder) error {
	model := models.StockExportOrderModelFromDomain(order)
	model.Version = order.Version + 1
	if err := updateWithVersion(ctx, r.db, model, order.Version, "stock export order"); err != nil {
		return err
	}
	order.Version = model.Version
	return nil
}

// GormGoodsIssueNoteRepository implements GoodsIssueNoteRepository using GORM.
// Notes are insert-only.
type GormGoodsIssueNoteRepository struct {
	db *gorm.DB
}

// NewGormGoodsIssueNoteRepository creates a new GormGoodsIssueNoteRepository
func NewGormGoodsIssueNoteRepository(db *gorm.DB) *GormGoodsIssueNoteRepository {
	return &GormGoodsIssueNoteRepository{db: db}
}

// FindByID finds a goods issue note by its ID
func (r *GormGoodsIssueNoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfillment.GoodsIssueNote, error) {
	var model models.GoodsIssueNoteModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("goods issue note", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds a goods issue note by its code
func (r *GormGoodsIssueNoteRepository) FindByCode(ctx context.Context, code string) (*fulfillment.GoodsIssueNote, error) {
	var model models.GoodsIssueNoteModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("goods issue note", code)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCodes returns the notes with the given codes ordered by export index
func (r *GormGoodsIssueNoteRepository) FindByCodes(ctx context.Context, codes []string) ([]*fulfillment.GoodsIssueNote, error) {
	if len(codes) == 0 {
		return []*fulfillment.GoodsIssueNote{}, nil
	}
	return r.find(r.db.WithContext(ctx).Where("code IN ?", codes))
}

// FindBySalesOrder returns all notes of a sales order ordered by export index
func (r *GormGoodsIssueNoteRepository) FindBySalesOrder(ctx context.Context, salesOrderID uuid.UUID) ([]*fulfillment.GoodsIssueNote, error) {
	return r.find(r.db.WithContext(ctx).Where("sales_order_id = ?", salesOrderID))
}

func (r *GormGoodsIssueNoteRepository) find(query *gorm.DB) ([]*fulfillment.GoodsIssueNote, error) {
	var noteModels []models.GoodsIssueNoteModel
	if err := query.
		Order("sales_order_id ASC").
		Order("export_index ASC").
		Find(&noteModels).Error; err != nil {
		return nil, err
	}
	notes := make([]*fulfillment.GoodsIssueNote, len(noteModels))
	for i := range noteModels {
		notes[i] = noteModels[i].ToDomain()
	}
	return notes, nil
}

// NextExportIndex returns one more than the highest export index of the sales order
func (r *GormGoodsIssueNoteRepository) NextExportIndex(ctx context.Context, salesOrderID uuid.UUID) (int, error) {
	var highest int
	if err := r.db.WithContext(ctx).
		Model(&models.GoodsIssueNoteModel{}).
		Where("sales_order_id = ?", salesOrderID).
		Select("COALESCE(MAX(export_index), 0)").
		Scan(&highest).Error; err != nil {
		return 0, err
	}
	return highest + 1, nil
}

// Create inserts a note. The (sales_order_id, export_index) unique index turns a
// concurrent export that read the same next index into a concurrency conflict.
func (r *GormGoodsIssueNoteRepository) Create(ctx context.Context, note *fulfillment.GoodsIssueNote) error {
	model := models.GoodsIssueNoteModelFromDomain(note)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewConcurrencyConflictError("export index already taken for the sales order").
				WithDetail("export_index", note.ExportIndex()).
				WithCause(err)
		}
		return err
	}
	return nil
}

var (
	_ fulfillment.StockExportOrderRepository = (*GormStockExportOrderRepository)(nil)
	_ fulfillment.GoodsIssueNoteRepository   = (*GormGoodsIssueNoteRepository)(nil)
)
