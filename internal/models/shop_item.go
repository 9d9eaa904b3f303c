package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONB type for GORM to handle PostgreSQL JSONB columns
type JSONB map[string]interface{}

// Value implements driver.Valuer for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner for JSONB
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, j)
}

// ShopItem is one sku of one product in a shop. Prices are integer minor
// currency units.
type ShopItem struct {
	ID              string    `gorm:"column:id;primaryKey"`
	AccountID       string    `gorm:"column:account_id;index"`
	ShopID          string    `gorm:"column:shop_id;index"`
	CategoryID      *int64    `gorm:"column:category_id"`
	ProductID       int64     `gorm:"column:product_id"`
	SkuID           int64     `gorm:"column:sku_id"`
	Name            string    `gorm:"column:name"`
	Price           int64     `gorm:"column:price"`
	PurchasePrice   *int64    `gorm:"column:purchase_price"`
	AvailableAmount int64     `gorm:"column:available_amount"`
	Barcode         *string   `gorm:"column:barcode"`
	ProductSku      *string   `gorm:"column:product_sku"`
	SkuTitle        *string   `gorm:"column:sku_title"`
	Characteristics JSONB     `gorm:"column:characteristics;type:jsonb"`
	LastUpdateAt    time.Time `gorm:"column:last_update_at;index"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (ShopItem) TableName() string {
	return "shop_item"
}
