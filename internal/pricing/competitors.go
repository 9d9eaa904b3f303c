package pricing

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dkuzmin/repricer-worker/internal/models"
	"github.com/dkuzmin/repricer-worker/internal/repository"
)

// CompetitorStore lists the rival listings tracked for a pool item.
type CompetitorStore interface {
	FindByShopItem(ctx context.Context, shopItemID string) ([]models.Competitor, error)
}

// CatalogStore resolves an external (product, sku) pair to its tracked price
// and availability.
type CatalogStore interface {
	FindEntry(ctx context.Context, productID, skuID int64) (*models.CatalogEntry, error)
}

// CompetitorPrice is the cheapest in-stock rival listing of a pool item.
// CompetitorID is the id of the tracked competitor link, which is what the
// price history references.
type CompetitorPrice struct {
	CompetitorID string
	ProductID    int64
	SkuID        int64
	Price        int64
}

// CompetitorSelector picks the reference competitor both strategies price
// against.
type CompetitorSelector struct {
	competitors CompetitorStore
	catalog     CatalogStore
	logger      *zap.Logger
}

func NewCompetitorSelector(competitors CompetitorStore, catalog CatalogStore, logger *zap.Logger) *CompetitorSelector {
	return &CompetitorSelector{
		competitors: competitors,
		catalog:     catalog,
		logger:      logger,
	}
}

// SelectMinimal returns the lowest-priced rival listing with stock, or nil
// when every tracked competitor is missing from the catalog or sold out.
// Sold-out listings are skipped even when their last seen price is the
// lowest: an unavailable offer exerts no price pressure.
func (s *CompetitorSelector) SelectMinimal(ctx context.Context, shopItemID string) (*CompetitorPrice, error) {
	competitors, err := s.competitors.FindByShopItem(ctx, shopItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load competitors: %w", err)
	}

	var best *CompetitorPrice
	for _, competitor := range competitors {
		entry, err := s.catalog.FindEntry(ctx, competitor.ProductID, competitor.SkuID)
		if err != nil {
			if errors.Is(err, repository.ErrCatalogEntryNotFound) {
				s.logger.Debug("competitor missing from catalog",
					zap.String("shop_item_id", shopItemID),
					zap.Int64("product_id", competitor.ProductID),
					zap.Int64("sku_id", competitor.SkuID))
				continue
			}
			return nil, err
		}
		if entry.AvailableAmount == 0 {
			continue
		}
		if best == nil || entry.Price < best.Price {
			best = &CompetitorPrice{
				CompetitorID: competitor.ID,
				ProductID:    entry.ProductID,
				SkuID:        entry.SkuID,
				Price:        entry.Price,
			}
		}
	}
	return best, nil
}
