package persistence

import (
	"context"

	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"gorm.io/gorm"
)

// updateWithVersion writes every column of model when the stored row still carries
// the expected version. The caller sets model's version to expected+1 beforehand.
func updateWithVersion(ctx context.Context, db *gorm.DB, model any, expected int, entity string) error {
	result := db.WithContext(ctx).
		Model(model).
		Where("version = ?", expected).
		Select("*").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewConcurrencyConflictError(entity+" was modified by another transaction").
			WithDetail("expected_version", expected)
	}
	return nil
}
