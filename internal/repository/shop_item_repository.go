package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dkuzmin/repricer-worker/internal/models"
)

type ShopItemRepository struct {
	db *gorm.DB
}

func NewShopItemRepository(db *gorm.DB) *ShopItemRepository {
	return &ShopItemRepository{db: db}
}

// GetByID retrieves one shop item
func (r *ShopItemRepository) GetByID(ctx context.Context, itemID string) (*models.ShopItem, error) {
	var item models.ShopItem
	result := r.db.WithContext(ctx).First(&item, "id = ?", itemID)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get shop item: %w", result.Error)
	}
	return &item, nil
}

// UpsertBatch writes one sync page of items, refreshing mutable fields for
// rows that already exist
func (r *ShopItemRepository) UpsertBatch(ctx context.Context, items []models.ShopItem) error {
	if len(items) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "shop_id"}, {Name: "product_id"}, {Name: "sku_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"category_id", "name", "price", "purchase_price", "available_amount",
			"barcode", "product_sku", "sku_title", "characteristics",
			"last_update_at", "updated_at",
		}),
	}).Create(&items)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert shop items: %w", result.Error)
	}
	return nil
}

// DeleteStale removes items of a shop not touched since the sync started,
// which is how delisted products disappear locally. Returns the number of
// deleted rows.
func (r *ShopItemRepository) DeleteStale(ctx context.Context, shopID string, syncStart time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("shop_id = ? AND last_update_at < ?", shopID, syncStart).
		Delete(&models.ShopItem{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete stale shop items: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// UpdatePrice stores the applied price on the item row
func (r *ShopItemRepository) UpdatePrice(ctx context.Context, itemID string, price int64) error {
	result := r.db.WithContext(ctx).Model(&models.ShopItem{}).
		Where("id = ?", itemID).
		Updates(map[string]interface{}{
			"price":      price,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update item price: %w", result.Error)
	}
	return nil
}
