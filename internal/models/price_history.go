package models

import "time"

// PriceHistory is an append-only audit record of one applied price change.
// Rows are never updated or deleted.
type PriceHistory struct {
	ID           string    `gorm:"column:id;primaryKey"`
	ShopItemID   string    `gorm:"column:shop_item_id;index"`
	CompetitorID string    `gorm:"column:competitor_id"`
	OldPrice     int64     `gorm:"column:old_price"`
	NewPrice     int64     `gorm:"column:new_price"`
	ChangedAt    time.Time `gorm:"column:changed_at"`
}

func (PriceHistory) TableName() string {
	return "shop_item_price_history"
}
