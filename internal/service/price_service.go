package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dkuzmin/repricer-worker/internal/marketplace"
	"github.com/dkuzmin/repricer-worker/internal/models"
	"github.com/dkuzmin/repricer-worker/internal/pricing"
	"github.com/dkuzmin/repricer-worker/internal/repository"
)

type PoolStore interface {
	FindFilledByAccount(ctx context.Context, accountID string) ([]repository.PoolFilledItem, error)
}

// PriceApplier persists one accepted price change atomically.
type PriceApplier interface {
	Apply(ctx context.Context, record *models.PriceHistory) error
}

// StrategyRegistry resolves a pool item's strategy type to its calculator.
type StrategyRegistry interface {
	Get(strategyType models.StrategyType) (pricing.Strategy, error)
}

// PriceService walks an account's repricing pool, runs each item's strategy
// and pushes accepted changes to the marketplace.
type PriceService struct {
	pool       PoolStore
	applier    PriceApplier
	strategies StrategyRegistry
	session    SessionManager
	api        MarketplaceAPI
	logger     *zap.Logger
}

func NewPriceService(pool PoolStore, applier PriceApplier, strategies StrategyRegistry, session SessionManager, api MarketplaceAPI, logger *zap.Logger) *PriceService {
	return &PriceService{
		pool:       pool,
		applier:    applier,
		strategies: strategies,
		session:    session,
		api:        api,
		logger:     logger,
	}
}

// RecalculatePrices runs one repricing pass over the account's pool. Items
// fail independently: a rejected or errored item is logged and skipped, and
// its local state stays exactly as it was.
func (s *PriceService) RecalculatePrices(ctx context.Context, userID, accountID string) error {
	token, err := s.session.AuthUser(ctx, userID, accountID)
	if err != nil {
		return err
	}

	items, err := s.pool.FindFilledByAccount(ctx, accountID)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := s.repriceItem(ctx, userID, token, item); err != nil {
			s.logger.Error("failed to reprice pool item",
				zap.String("shop_item_id", item.ShopItemID),
				zap.Error(err))
		}
	}
	return nil
}

func (s *PriceService) repriceItem(ctx context.Context, userID, token string, item repository.PoolFilledItem) error {
	strategy, err := s.strategies.Get(item.StrategyType)
	if err != nil {
		return err
	}

	opts := pricing.Options{
		MinimumThreshold: item.MinimumThreshold,
		MaximumThreshold: item.MaximumThreshold,
		Discount:         item.Discount,
	}
	if item.Step != nil {
		opts.Step = *item.Step
	}

	result, err := strategy.Calculate(ctx, item.ShopItemID, item.Price, opts)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	payload, err := s.buildPayload(ctx, userID, token, item, result.NewPrice)
	if err != nil {
		return err
	}

	if err := s.api.ChangePrice(ctx, userID, token, item.ExternalShopID, *payload); err != nil {
		if marketplace.IsClientError(err) {
			// The marketplace refused the change; nothing was applied
			// remotely, so nothing is recorded locally either.
			s.logger.Warn("price change rejected by marketplace",
				zap.String("shop_item_id", item.ShopItemID),
				zap.Int64("new_price", result.NewPrice),
				zap.Error(err))
			return nil
		}
		return err
	}

	record := &models.PriceHistory{
		ID:           uuid.NewString(),
		ShopItemID:   item.ShopItemID,
		CompetitorID: result.CompetitorID,
		OldPrice:     item.Price,
		NewPrice:     result.NewPrice,
		ChangedAt:    time.Now(),
	}
	if err := s.applier.Apply(ctx, record); err != nil {
		return err
	}

	s.logger.Info("price changed",
		zap.String("shop_item_id", item.ShopItemID),
		zap.Int64("old_price", item.Price),
		zap.Int64("new_price", result.NewPrice))
	return nil
}

// buildPayload assembles the full sendSkuData body: the marketplace requires
// every sku of the product, so unchanged skus are echoed back as-is.
func (s *PriceService) buildPayload(ctx context.Context, userID, token string, item repository.PoolFilledItem, newPrice int64) (*marketplace.PriceChangePayload, error) {
	info, err := s.api.GetProductInfo(ctx, userID, token, item.ExternalShopID, item.ProductID)
	if err != nil {
		return nil, err
	}

	skuList := make([]marketplace.PriceChangeSku, 0, len(info.SkuList))
	for _, sku := range info.SkuList {
		entry := marketplace.PriceChangeSku{
			ID:        sku.ID,
			FullPrice: sku.FullPrice,
			SellPrice: sku.SellPrice,
			SkuTitle:  sku.SkuTitle,
			Barcode:   sku.Barcode,
		}
		if sku.ID == item.SkuID {
			entry.FullPrice = newPrice
			entry.SellPrice = sellPrice(newPrice, item.Discount, item.MinimumThreshold)
		}
		skuList = append(skuList, entry)
	}

	payload := &marketplace.PriceChangePayload{
		ProductID:       item.ProductID,
		SkuList:         skuList,
		Characteristics: map[string]interface{}(item.Characteristics),
	}
	if item.ProductSku != nil {
		payload.SkuForProduct = *item.ProductSku
	}
	return payload, nil
}

// sellPrice applies the configured discount percent to the full price. A
// discounted price that would undercut the minimum threshold falls back to
// the undiscounted one.
func sellPrice(fullPrice int64, discount, minimumThreshold *int64) int64 {
	if discount == nil || *discount <= 0 {
		return fullPrice
	}
	discounted := decimal.NewFromInt(fullPrice).
		Mul(decimal.NewFromInt(100 - *discount)).
		Div(decimal.NewFromInt(100)).
		Floor().
		IntPart()
	if minimumThreshold != nil && discounted < *minimumThreshold {
		return fullPrice
	}
	return discounted
}
