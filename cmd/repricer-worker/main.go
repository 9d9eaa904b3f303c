package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dkuzmin/repricer-worker/internal/config"
	"github.com/dkuzmin/repricer-worker/internal/crypto"
	"github.com/dkuzmin/repricer-worker/internal/database"
	"github.com/dkuzmin/repricer-worker/internal/logger"
	"github.com/dkuzmin/repricer-worker/internal/marketplace"
	"github.com/dkuzmin/repricer-worker/internal/pricing"
	"github.com/dkuzmin/repricer-worker/internal/repository"
	"github.com/dkuzmin/repricer-worker/internal/scheduler"
	"github.com/dkuzmin/repricer-worker/internal/service"
	"github.com/dkuzmin/repricer-worker/internal/session"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer zlog.Sync() //nolint:errcheck

	// Connect to database
	db, err := database.Open(cfg.DatabaseURL, zlog)
	if err != nil {
		return err
	}
	defer database.Close(db) //nolint:errcheck
	zlog.Info("database connected")

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		return err
	}
	zlog.Info("migrations completed")

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(db)
	shopRepo := repository.NewShopRepository(db)
	itemRepo := repository.NewShopItemRepository(db)
	poolRepo := repository.NewPoolRepository(db)
	competitorRepo := repository.NewCompetitorRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	priceChangeRepo := repository.NewPriceChangeRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	codec, err := crypto.NewAESCodec(cfg.CredentialKey)
	if err != nil {
		return err
	}

	// Marketplace client and session layer
	client := marketplace.NewClient(cfg.MarketplaceBaseURL, cfg.MarketplaceClientID,
		cfg.MarketplaceClientSecret, cfg.AuthRetryAttempts, cfg.AuthRetryBackoff, zlog)
	sessions := session.NewManager(client, accountRepo, tokenRepo, codec, cfg.TokenCacheTTL, zlog)

	// Pricing strategies
	selector := pricing.NewCompetitorSelector(competitorRepo, catalogRepo, zlog)
	strategies := pricing.NewRegistry(selector)

	// Scheduler and services
	sched := scheduler.New(cfg.WorkerCount, zlog)
	syncService := service.NewSyncService(accountRepo, shopRepo, itemRepo, sessions, client,
		cfg.PageSize, cfg.ShopSyncWorkers, zlog)
	initService := service.NewInitializeService(accountRepo, client, codec, sched, syncService, zlog)
	priceService := service.NewPriceService(poolRepo, priceChangeRepo, strategies, sessions, client, zlog)

	master := scheduler.NewMaster(accountRepo, syncService, initService, priceService, sched,
		scheduler.MasterConfig{
			PollInterval:         cfg.PollInterval,
			UpdateInterval:       cfg.UpdateInterval,
			RepairTimeout:        cfg.RepairTimeout,
			MaxConcurrentUpdates: cfg.MaxConcurrentUpdates,
		}, zlog)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sched.Start(ctx)
	done := make(chan struct{})
	go func() {
		master.Run(ctx)
		close(done)
	}()

	<-sigChan
	zlog.Info("shutdown signal received")
	cancel()
	<-done

	stopped := make(chan struct{})
	go func() {
		sched.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		zlog.Info("application stopped")
	case <-time.After(cfg.ShutdownTimeout):
		zlog.Warn("shutdown timeout exceeded", zap.Duration("timeout", cfg.ShutdownTimeout))
	}
	return nil
}
