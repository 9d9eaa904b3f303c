package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dkuzmin/repricer-worker/internal/models"
)

// PoolFilledItem is a pool row joined with the item and shop fields the price
// executor needs in one pass.
type PoolFilledItem struct {
	ShopItemID       string              `gorm:"column:shop_item_id"`
	AccountID        string              `gorm:"column:account_id"`
	ExternalShopID   int64               `gorm:"column:external_shop_id"`
	ProductID        int64               `gorm:"column:product_id"`
	SkuID            int64               `gorm:"column:sku_id"`
	Price            int64               `gorm:"column:price"`
	Barcode          *string             `gorm:"column:barcode"`
	ProductSku       *string             `gorm:"column:product_sku"`
	SkuTitle         *string             `gorm:"column:sku_title"`
	Characteristics  models.JSONB        `gorm:"column:characteristics"`
	StrategyType     models.StrategyType `gorm:"column:strategy_type"`
	Step             *int64              `gorm:"column:step"`
	MinimumThreshold *int64              `gorm:"column:minimum_threshold"`
	MaximumThreshold *int64              `gorm:"column:maximum_threshold"`
	Discount         *int64              `gorm:"column:discount"`
}

type PoolRepository struct {
	db *gorm.DB
}

func NewPoolRepository(db *gorm.DB) *PoolRepository {
	return &PoolRepository{db: db}
}

// FindFilledByAccount returns every pool item of an account with its current
// item state and strategy settings
func (r *PoolRepository) FindFilledByAccount(ctx context.Context, accountID string) ([]PoolFilledItem, error) {
	var items []PoolFilledItem
	result := r.db.WithContext(ctx).
		Table("shop_item_pool").
		Select(`shop_item_pool.shop_item_id, shop_item.account_id, shop.external_shop_id,
			shop_item.product_id, shop_item.sku_id, shop_item.price, shop_item.barcode,
			shop_item.product_sku, shop_item.sku_title, shop_item.characteristics,
			shop_item_pool.strategy_type, shop_item_pool.step,
			shop_item_pool.minimum_threshold, shop_item_pool.maximum_threshold,
			shop_item_pool.discount`).
		Joins("JOIN shop_item ON shop_item.id = shop_item_pool.shop_item_id").
		Joins("JOIN shop ON shop.id = shop_item.shop_id").
		Where("shop_item.account_id = ?", accountID).
		Scan(&items)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query pool items: %w", result.Error)
	}
	return items, nil
}

// Add puts an item into the repricing pool
func (r *PoolRepository) Add(ctx context.Context, item *models.PoolItem) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "shop_item_id"}},
		DoNothing: true,
	}).Create(item)
	if result.Error != nil {
		return fmt.Errorf("failed to add pool item: %w", result.Error)
	}
	return nil
}

// Remove takes an item out of the pool
func (r *PoolRepository) Remove(ctx context.Context, shopItemID string) error {
	result := r.db.WithContext(ctx).
		Where("shop_item_id = ?", shopItemID).
		Delete(&models.PoolItem{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove pool item: %w", result.Error)
	}
	return nil
}

// UpdateLastCheck stamps the pool row after a successful price application
func (r *PoolRepository) UpdateLastCheck(ctx context.Context, shopItemID string, lastCheck time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.PoolItem{}).
		Where("shop_item_id = ?", shopItemID).
		Updates(map[string]interface{}{
			"last_check_at": lastCheck,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update pool last check: %w", result.Error)
	}
	return nil
}
