package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/dkuzmin/repricer-worker/internal/models"
)

var ErrCatalogEntryNotFound = errors.New("catalog entry not found")

type CompetitorRepository struct {
	db *gorm.DB
}

func NewCompetitorRepository(db *gorm.DB) *CompetitorRepository {
	return &CompetitorRepository{db: db}
}

// FindByShopItem lists the tracked rival listings of one pool item
func (r *CompetitorRepository) FindByShopItem(ctx context.Context, shopItemID string) ([]models.Competitor, error) {
	var competitors []models.Competitor
	result := r.db.WithContext(ctx).
		Where("shop_item_id = ?", shopItemID).
		Find(&competitors)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query competitors: %w", result.Error)
	}
	return competitors, nil
}

// Create links a rival listing to a shop item
func (r *CompetitorRepository) Create(ctx context.Context, competitor *models.Competitor) error {
	if err := r.db.WithContext(ctx).Create(competitor).Error; err != nil {
		return fmt.Errorf("failed to create competitor: %w", err)
	}
	return nil
}

// Delete unlinks a rival listing
func (r *CompetitorRepository) Delete(ctx context.Context, competitorID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", competitorID).
		Delete(&models.Competitor{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete competitor: %w", result.Error)
	}
	return nil
}

// CatalogRepository reads the crawler-maintained catalog_entry table. This
// worker never writes it.
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindEntry resolves an external (product, sku) pair to its tracked price and
// availability
func (r *CatalogRepository) FindEntry(ctx context.Context, productID, skuID int64) (*models.CatalogEntry, error) {
	var entry models.CatalogEntry
	result := r.db.WithContext(ctx).
		First(&entry, "product_id = ? AND sku_id = ?", productID, skuID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrCatalogEntryNotFound
		}
		return nil, fmt.Errorf("failed to get catalog entry: %w", result.Error)
	}
	return &entry, nil
}
