package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL             string
	MarketplaceBaseURL      string
	MarketplaceClientID     string
	MarketplaceClientSecret string
	CredentialKey           string
	LogLevel                string

	PollInterval         time.Duration // master discovery tick
	UpdateInterval       time.Duration // minimum age of lastSync before an account is re-synced
	RecentUpdateWindow   time.Duration // reject manual update jobs submitted sooner than this
	RepairTimeout        time.Duration // in_progress older than this is forced to error
	TokenCacheTTL        time.Duration
	AuthRetryBackoff     time.Duration
	ShutdownTimeout      time.Duration
	AuthRetryAttempts    int
	MaxConcurrentUpdates int
	ShopSyncWorkers      int
	PageSize             int
	WorkerCount          int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error in production)
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	baseURL := os.Getenv("MARKETPLACE_BASE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("MARKETPLACE_BASE_URL is required")
	}

	credentialKey := os.Getenv("CREDENTIAL_KEY")
	if credentialKey == "" {
		return nil, fmt.Errorf("CREDENTIAL_KEY is required")
	}

	clientID := os.Getenv("MARKETPLACE_CLIENT_ID")
	clientSecret := os.Getenv("MARKETPLACE_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		fmt.Println("Warning: MARKETPLACE_CLIENT_ID or MARKETPLACE_CLIENT_SECRET not set, token grants will not work")
	}

	return &Config{
		DatabaseURL:             dbURL,
		MarketplaceBaseURL:      baseURL,
		MarketplaceClientID:     clientID,
		MarketplaceClientSecret: clientSecret,
		CredentialKey:           credentialKey,
		LogLevel:                envString("LOG_LEVEL", "info"),

		PollInterval:         envDuration("POLL_INTERVAL", 10*time.Second),
		UpdateInterval:       envDuration("UPDATE_INTERVAL", 6*time.Hour),
		RecentUpdateWindow:   envDuration("RECENT_UPDATE_WINDOW", 10*time.Minute),
		RepairTimeout:        envDuration("REPAIR_TIMEOUT", 60*time.Minute),
		TokenCacheTTL:        envDuration("TOKEN_CACHE_TTL", 3*time.Hour),
		AuthRetryBackoff:     envDuration("AUTH_RETRY_BACKOFF", 30*time.Second),
		ShutdownTimeout:      envDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		AuthRetryAttempts:    envInt("AUTH_RETRY_ATTEMPTS", 5),
		MaxConcurrentUpdates: envInt("MAX_CONCURRENT_UPDATES", 3),
		ShopSyncWorkers:      envInt("SHOP_SYNC_WORKERS", 4),
		PageSize:             envInt("PAGE_SIZE", 99),
		WorkerCount:          envInt("WORKER_COUNT", 8),
	}, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
