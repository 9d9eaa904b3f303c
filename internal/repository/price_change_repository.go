package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dkuzmin/repricer-worker/internal/models"
)

// PriceChangeRepository persists the outcome of one accepted price change.
type PriceChangeRepository struct {
	db *gorm.DB
}

func NewPriceChangeRepository(db *gorm.DB) *PriceChangeRepository {
	return &PriceChangeRepository{db: db}
}

// Apply records an accepted price change in a single transaction: the audit
// row, the new item price and the pool check stamp land together or not at
// all.
func (r *PriceChangeRepository) Apply(ctx context.Context, record *models.PriceHistory) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		result := tx.Model(&models.ShopItem{}).
			Where("id = ?", record.ShopItemID).
			Updates(map[string]interface{}{
				"price":      record.NewPrice,
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		result = tx.Model(&models.PoolItem{}).
			Where("shop_item_id = ?", record.ShopItemID).
			Updates(map[string]interface{}{
				"last_check_at": now,
				"updated_at":    now,
			})
		return result.Error
	})
	if err != nil {
		return fmt.Errorf("failed to apply price change: %w", err)
	}
	return nil
}
