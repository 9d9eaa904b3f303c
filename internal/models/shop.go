package models

import "time"

// Shop is one storefront shop belonging to a monitored account.
type Shop struct {
	ID             string    `gorm:"column:id;primaryKey"`
	AccountID      string    `gorm:"column:account_id;index"`
	ExternalShopID int64     `gorm:"column:external_shop_id"`
	Name           string    `gorm:"column:name"`
	SkuTitle       *string   `gorm:"column:sku_title"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (Shop) TableName() string {
	return "shop"
}
