package models

import "time"

// Competitor links a pool item to a rival listing tracked in the catalog.
type Competitor struct {
	ID         string    `gorm:"column:id;primaryKey"`
	ShopItemID string    `gorm:"column:shop_item_id;index"`
	ProductID  int64     `gorm:"column:product_id"`
	SkuID      int64     `gorm:"column:sku_id"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (Competitor) TableName() string {
	return "shop_item_competitor"
}

// CatalogEntry is the crawler-maintained view of an external listing. Rows are
// written by the catalog component; this worker only reads them.
type CatalogEntry struct {
	ProductID       int64     `gorm:"column:product_id;primaryKey"`
	SkuID           int64     `gorm:"column:sku_id;primaryKey"`
	Name            *string   `gorm:"column:name"`
	Price           int64     `gorm:"column:price"`
	AvailableAmount int64     `gorm:"column:available_amount"`
	LastSeenAt      time.Time `gorm:"column:last_seen_at"`
}

func (CatalogEntry) TableName() string {
	return "catalog_entry"
}
