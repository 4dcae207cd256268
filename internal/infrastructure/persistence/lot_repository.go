package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/inventory"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormLotRepository implements LotRepository using GORM
type GormLotRepository struct {
	db *gorm.DB
}

// NewGormLotRepository creates a new GormLotRepository
func NewGormLotRepository(db *gorm.DB) *GormLotRepository {
	return &GormLotRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormLotRepository) WithTx(tx *gorm.DB) *GormLotRepository {
	return &GormLotRepository{db: tx}
}

// FindByID finds a lot by its ID
func (r *GormLotRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Lot, error) {
	var model models.LotModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("lot", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAvailableByProduct returns lots of a product that still hold stock, FEFO ordered
func (r *GormLotRepository) FindAvailableByProduct(ctx context.Context, productID uuid.UUID) ([]inventory.Lot, error) {
	return r.find(ctx, r.db.WithContext(ctx).
		Where("product_id = ? AND remaining_quantity > 0", productID))
}

// FindByProduct returns every lot of a product, FEFO ordered
func (r *GormLotRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]inventory.Lot, error) {
	return r.find(ctx, r.db.WithContext(ctx).Where("product_id = ?", productID))
}

func (r *GormLotRepository) find(_ context.Context, query *gorm.DB) ([]inventory.Lot, error) {
	var lotModels []models.LotModel
	if err := query.
		Order("expiry_date ASC").
		Order("id ASC").
		Find(&lotModels).Error; err != nil {
		return nil, err
	}
	lots := make([]inventory.Lot, len(lotModels))
	for i := range lotModels {
		lots[i] = *lotModels[i].ToDomain()
	}
	return lots, nil
}

// Save creates or updates a lot
func (r *GormLotRepository) Save(ctx context.Context, lot *inventory.Lot) error {
	model := models.LotModelFromDomain(lot)
	return r.db.WithContext(ctx).Save(model).Error
}

// DeductIfAvailable subtracts quantity in a single guarded UPDATE.
// The row is only touched while remaining_quantity still covers the request.
func (r *GormLotRepository) DeductIfAvailable(ctx context.Context, lotID uuid.UUID, quantity int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.LotModel{}).
		Where("id = ? AND remaining_quantity >= ?", lotID, quantity).
		Updates(map[string]any{
			"remaining_quantity": gorm.Expr("remaining_quantity - ?", quantity),
			"version":            gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, r.ensureExists(ctx, lotID)
	}
	return true, nil
}

// Restore adds quantity back, never beyond the initial quantity
func (r *GormLotRepository) Restore(ctx context.Context, lotID uuid.UUID, quantity int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.LotModel{}).
		Where("id = ? AND remaining_quantity + ? <= initial_quantity", lotID, quantity).
		Updates(map[string]any{
			"remaining_quantity": gorm.Expr("remaining_quantity + ?", quantity),
			"version":            gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, r.ensureExists(ctx, lotID)
	}
	return true, nil
}

// ensureExists separates a missing lot from a failed guard after an UPDATE touched no row
func (r *GormLotRepository) ensureExists(ctx context.Context, lotID uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.LotModel{}).
		Where("id = ?", lotID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return shared.NewNotFoundError("lot", lotID)
	}
	return nil
}

// Ensure GormLotRepository implements LotRepository
var _ inventory.LotRepository = (*GormLotRepository)(nil)
