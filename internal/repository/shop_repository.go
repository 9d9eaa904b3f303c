package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dkuzmin/repricer-worker/internal/models"
)

type ShopRepository struct {
	db *gorm.DB
}

func NewShopRepository(db *gorm.DB) *ShopRepository {
	return &ShopRepository{db: db}
}

// GetByAccount lists all stored shops for an account
func (r *ShopRepository) GetByAccount(ctx context.Context, accountID string) ([]models.Shop, error) {
	var shops []models.Shop
	result := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Find(&shops)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query shops: %w", result.Error)
	}
	return shops, nil
}

// GetByExternalID finds one shop by its external marketplace id
func (r *ShopRepository) GetByExternalID(ctx context.Context, accountID string, externalShopID int64) (*models.Shop, error) {
	var shop models.Shop
	result := r.db.WithContext(ctx).
		First(&shop, "account_id = ? AND external_shop_id = ?", accountID, externalShopID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get shop: %w", result.Error)
	}
	return &shop, nil
}

// Upsert creates the shop or refreshes its mutable fields on conflict
func (r *ShopRepository) Upsert(ctx context.Context, shop *models.Shop) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "external_shop_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "sku_title", "updated_at"}),
	}).Create(shop)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert shop: %w", result.Error)
	}
	return nil
}

// DeleteByExternalIDs removes shops no longer present remotely
func (r *ShopRepository) DeleteByExternalIDs(ctx context.Context, accountID string, externalShopIDs []int64) error {
	if len(externalShopIDs) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Where("account_id = ? AND external_shop_id IN ?", accountID, externalShopIDs).
		Delete(&models.Shop{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete shops: %w", result.Error)
	}
	return nil
}
