package models

import "time"

type StrategyType string

const (
	StrategyCloseToMinimal    StrategyType = "close_to_minimal"
	StrategyEqual             StrategyType = "equal"
	StrategyQuantityDependent StrategyType = "quantity_dependent" // declared extension point, no calculator registered
)

// PoolItem marks a shop item as actively repriced and carries its strategy
// settings. Thresholds and discountless prices are minor units, step is
// dimensionless.
type PoolItem struct {
	ShopItemID       string       `gorm:"column:shop_item_id;primaryKey"`
	StrategyType     StrategyType `gorm:"column:strategy_type"`
	Step             *int64       `gorm:"column:step"`
	MinimumThreshold *int64       `gorm:"column:minimum_threshold"`
	MaximumThreshold *int64       `gorm:"column:maximum_threshold"`
	Discount         *int64       `gorm:"column:discount"` // percent
	LastCheckAt      *time.Time   `gorm:"column:last_check_at"`
	CreatedAt        time.Time    `gorm:"column:created_at"`
	UpdatedAt        time.Time    `gorm:"column:updated_at"`
}

func (PoolItem) TableName() string {
	return "shop_item_pool"
}
