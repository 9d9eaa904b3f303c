package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dkuzmin/repricer-worker/internal/marketplace"
	"github.com/dkuzmin/repricer-worker/internal/models"
)

// SessionManager hands out valid access tokens per (user, account).
type SessionManager interface {
	AuthUser(ctx context.Context, userID, accountID string) (string, error)
}

// MarketplaceAPI is the remote seller API surface used during sync and
// repricing.
type MarketplaceAPI interface {
	CheckToken(ctx context.Context, userID, accessToken string) (*marketplace.CheckTokenResponse, error)
	GetShops(ctx context.Context, userID, accessToken string) ([]marketplace.Shop, error)
	GetShopItems(ctx context.Context, userID, accessToken string, shopID int64, page, size int) ([]marketplace.ShopItem, error)
	GetProductInfo(ctx context.Context, userID, accessToken string, shopID, productID int64) (*marketplace.ProductInfo, error)
	ChangePrice(ctx context.Context, userID, accessToken string, shopID int64, payload marketplace.PriceChangePayload) error
}

type SyncAccountStore interface {
	ChangeUpdateState(ctx context.Context, accountID string, state models.SyncState, lastSync *time.Time) error
	UpdateAccountInfo(ctx context.Context, accountID string, externalAccountID int64, name, email string) error
}

type ShopStore interface {
	GetByAccount(ctx context.Context, accountID string) ([]models.Shop, error)
	GetByExternalID(ctx context.Context, accountID string, externalShopID int64) (*models.Shop, error)
	Upsert(ctx context.Context, shop *models.Shop) error
	DeleteByExternalIDs(ctx context.Context, accountID string, externalShopIDs []int64) error
}

type ShopItemStore interface {
	UpsertBatch(ctx context.Context, items []models.ShopItem) error
	DeleteStale(ctx context.Context, shopID string, syncStart time.Time) (int64, error)
}

// SyncService mirrors an account's remote storefront into the local tables.
type SyncService struct {
	accounts SyncAccountStore
	shops    ShopStore
	items    ShopItemStore
	session  SessionManager
	api      MarketplaceAPI
	pageSize int
	workers  int
	logger   *zap.Logger
}

func NewSyncService(accounts SyncAccountStore, shops ShopStore, items ShopItemStore, session SessionManager, api MarketplaceAPI, pageSize, workers int, logger *zap.Logger) *SyncService {
	return &SyncService{
		accounts: accounts,
		shops:    shops,
		items:    items,
		session:  session,
		api:      api,
		pageSize: pageSize,
		workers:  workers,
		logger:   logger,
	}
}

// SyncAccount refreshes the account's shops and items from the marketplace.
// Any failure marks the whole run as error: a half-applied sync must never
// look finished, since lastSync drives scheduling.
func (s *SyncService) SyncAccount(ctx context.Context, userID, accountID string) error {
	if err := s.accounts.ChangeUpdateState(ctx, accountID, models.SyncInProgress, nil); err != nil {
		return err
	}

	start := time.Now()
	if err := s.doSync(ctx, userID, accountID, start); err != nil {
		s.logger.Error("account sync failed",
			zap.String("user_id", userID),
			zap.String("account_id", accountID),
			zap.Error(err))
		if stateErr := s.accounts.ChangeUpdateState(ctx, accountID, models.SyncError, nil); stateErr != nil {
			s.logger.Error("failed to record sync error state",
				zap.String("account_id", accountID),
				zap.Error(stateErr))
		}
		return err
	}

	now := time.Now()
	if err := s.accounts.ChangeUpdateState(ctx, accountID, models.SyncFinished, &now); err != nil {
		return err
	}
	s.logger.Info("account sync finished",
		zap.String("account_id", accountID),
		zap.Duration("took", time.Since(start)))
	return nil
}

func (s *SyncService) doSync(ctx context.Context, userID, accountID string, syncStart time.Time) error {
	token, err := s.session.AuthUser(ctx, userID, accountID)
	if err != nil {
		return err
	}

	identity, err := s.api.CheckToken(ctx, userID, token)
	if err != nil {
		return fmt.Errorf("failed to resolve account identity: %w", err)
	}
	if err := s.accounts.UpdateAccountInfo(ctx, accountID, identity.AccountID, identity.FirstName, identity.Email); err != nil {
		return err
	}

	remoteShops, err := s.api.GetShops(ctx, userID, token)
	if err != nil {
		return fmt.Errorf("failed to list shops: %w", err)
	}

	localShops, err := s.reconcileShops(ctx, accountID, remoteShops)
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.workers)
	for _, shop := range localShops {
		shop := shop
		group.Go(func() error {
			return s.syncShop(groupCtx, userID, token, accountID, shop, syncStart)
		})
	}
	return group.Wait()
}

// reconcileShops deletes shops gone from the remote listing and upserts the
// rest, returning the local rows to sync items for.
func (s *SyncService) reconcileShops(ctx context.Context, accountID string, remoteShops []marketplace.Shop) ([]models.Shop, error) {
	existing, err := s.shops.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	remoteIDs := make(map[int64]struct{}, len(remoteShops))
	for _, shop := range remoteShops {
		remoteIDs[shop.ID] = struct{}{}
	}
	var gone []int64
	for _, shop := range existing {
		if _, ok := remoteIDs[shop.ExternalShopID]; !ok {
			gone = append(gone, shop.ExternalShopID)
		}
	}
	if err := s.shops.DeleteByExternalIDs(ctx, accountID, gone); err != nil {
		return nil, err
	}

	now := time.Now()
	locals := make([]models.Shop, 0, len(remoteShops))
	for _, remote := range remoteShops {
		skuTitle := remote.SkuTitle
		shop := &models.Shop{
			ID:             uuid.NewString(),
			AccountID:      accountID,
			ExternalShopID: remote.ID,
			Name:           remote.Title,
			SkuTitle:       &skuTitle,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.shops.Upsert(ctx, shop); err != nil {
			return nil, err
		}
		// Re-read to pick up the surviving id when the upsert hit an
		// existing row.
		stored, err := s.shops.GetByExternalID(ctx, accountID, remote.ID)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, fmt.Errorf("shop %d vanished after upsert", remote.ID)
		}
		locals = append(locals, *stored)
	}
	return locals, nil
}

// syncShop pages through the shop's active products, enriches each with its
// product info and upserts every sku, then drops items the listing no longer
// contains.
func (s *SyncService) syncShop(ctx context.Context, userID, token, accountID string, shop models.Shop, syncStart time.Time) error {
	for page := 0; ; page++ {
		products, err := s.api.GetShopItems(ctx, userID, token, shop.ExternalShopID, page, s.pageSize)
		if err != nil {
			return fmt.Errorf("failed to list items of shop %d page %d: %w", shop.ExternalShopID, page, err)
		}
		if len(products) == 0 {
			break
		}

		var batch []models.ShopItem
		for _, product := range products {
			info, err := s.api.GetProductInfo(ctx, userID, token, shop.ExternalShopID, product.ProductID)
			if err != nil {
				return fmt.Errorf("failed to load product %d info: %w", product.ProductID, err)
			}
			batch = append(batch, s.buildItems(accountID, shop, product, info)...)
		}
		if err := s.items.UpsertBatch(ctx, batch); err != nil {
			return err
		}
	}

	deleted, err := s.items.DeleteStale(ctx, shop.ID, syncStart)
	if err != nil {
		return err
	}
	if deleted > 0 {
		s.logger.Info("removed delisted items",
			zap.String("shop_id", shop.ID),
			zap.Int64("count", deleted))
	}
	return nil
}

func (s *SyncService) buildItems(accountID string, shop models.Shop, product marketplace.ShopItem, info *marketplace.ProductInfo) []models.ShopItem {
	now := time.Now()
	categoryID := info.Category.ID
	items := make([]models.ShopItem, 0, len(product.SkuList))
	for _, sku := range product.SkuList {
		sku := sku
		skuTitle := product.SkuTitle
		items = append(items, models.ShopItem{
			ID:              uuid.NewString(),
			AccountID:       accountID,
			ShopID:          shop.ID,
			CategoryID:      &categoryID,
			ProductID:       product.ProductID,
			SkuID:           sku.SkuID,
			Name:            sku.ProductTitle,
			Price:           sku.Price,
			PurchasePrice:   sku.PurchasePrice,
			AvailableAmount: sku.QuantityActive + sku.QuantityAdditional,
			Barcode:         &sku.Barcode,
			ProductSku:      &sku.SkuFullTitle,
			SkuTitle:        &skuTitle,
			Characteristics: models.JSONB(info.Characteristics),
			LastUpdateAt:    now,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	return items
}
