package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dkuzmin/repricer-worker/internal/crypto"
	"github.com/dkuzmin/repricer-worker/internal/marketplace"
	"github.com/dkuzmin/repricer-worker/internal/models"
)

// ErrAuthentication means no credential path produced a usable token.
var ErrAuthentication = errors.New("authentication failed")

// MarketplaceClient is the slice of the marketplace API the manager needs.
type MarketplaceClient interface {
	Auth(ctx context.Context, userID, login, password string) (*marketplace.TokenPair, error)
	RefreshAuth(ctx context.Context, userID, refreshToken string) (*marketplace.TokenPair, error)
	CheckToken(ctx context.Context, userID, accessToken string) (*marketplace.CheckTokenResponse, error)
}

// AccountStore resolves the stored credential for an account.
type AccountStore interface {
	GetByUserAndID(ctx context.Context, userID, accountID string) (*models.MonitoredAccount, error)
}

// TokenCache is the session token store. Get returns nil for absent or
// expired entries.
type TokenCache interface {
	Get(ctx context.Context, key string) (*models.SessionToken, error)
	Put(ctx context.Context, token *models.SessionToken) error
}

// Manager maintains valid marketplace authentication per (user, account).
type Manager struct {
	client   MarketplaceClient
	accounts AccountStore
	cache    TokenCache
	codec    crypto.Codec
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewManager(client MarketplaceClient, accounts AccountStore, cache TokenCache, codec crypto.Codec, cacheTTL time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		client:   client,
		accounts: accounts,
		cache:    cache,
		codec:    codec,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// AuthUser returns a valid access token for the account, trying in order:
// cached token (validated remotely), refresh grant, full password grant.
// Only a 4xx from a step advances to the next one; other failures propagate.
// Whichever step succeeds, the pair is re-cached with a fresh TTL.
func (m *Manager) AuthUser(ctx context.Context, userID, accountID string) (string, error) {
	key := cacheKey(userID, accountID)

	cached, err := m.cache.Get(ctx, key)
	if err != nil {
		m.logger.Warn("token cache read failed, falling back to full auth",
			zap.String("user_id", userID),
			zap.String("account_id", accountID),
			zap.Error(err))
		cached = nil
	}

	var pair *marketplace.TokenPair
	if cached != nil {
		pair, err = m.revalidate(ctx, userID, accountID, cached)
	} else {
		pair, err = m.fullAuth(ctx, userID, accountID)
	}
	if err != nil {
		return "", err
	}

	if err := m.cache.Put(ctx, &models.SessionToken{
		Key:          key,
		UserID:       userID,
		AccountID:    accountID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    time.Now().Add(m.cacheTTL),
		UpdatedAt:    time.Now(),
	}); err != nil {
		// The token itself is valid; a failed cache write only costs a
		// re-validation on the next call.
		m.logger.Warn("failed to cache session token",
			zap.String("user_id", userID),
			zap.String("account_id", accountID),
			zap.Error(err))
	}

	return pair.AccessToken, nil
}

func (m *Manager) revalidate(ctx context.Context, userID, accountID string, cached *models.SessionToken) (*marketplace.TokenPair, error) {
	_, err := m.client.CheckToken(ctx, userID, cached.AccessToken)
	if err == nil {
		return &marketplace.TokenPair{
			AccessToken:  cached.AccessToken,
			RefreshToken: cached.RefreshToken,
		}, nil
	}
	if !marketplace.IsClientError(err) {
		return nil, err
	}

	m.logger.Debug("cached access token rejected, trying refresh grant",
		zap.String("user_id", userID),
		zap.String("account_id", accountID))
	pair, err := m.client.RefreshAuth(ctx, userID, cached.RefreshToken)
	if err == nil {
		return pair, nil
	}
	if !marketplace.IsClientError(err) {
		return nil, err
	}

	m.logger.Debug("refresh grant rejected, falling back to password grant",
		zap.String("user_id", userID),
		zap.String("account_id", accountID))
	return m.fullAuth(ctx, userID, accountID)
}

// cacheKey joins the pair with a delimiter so ("u1", "2a") and ("u12", "a")
// cannot share an entry.
func cacheKey(userID, accountID string) string {
	return userID + ":" + accountID
}

// fullAuth is the last resort: decrypt the stored credential and run a
// password grant. Any failure here fails the whole call.
func (m *Manager) fullAuth(ctx context.Context, userID, accountID string) (*marketplace.TokenPair, error) {
	account, err := m.accounts.GetByUserAndID(ctx, userID, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: account lookup: %v", ErrAuthentication, err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(account.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed stored credential: %v", ErrAuthentication, err)
	}
	password, err := m.codec.Decrypt(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: credential decrypt: %v", ErrAuthentication, err)
	}

	pair, err := m.client.Auth(ctx, userID, account.Login, password)
	if err != nil {
		return nil, fmt.Errorf("%w: password grant: %v", ErrAuthentication, err)
	}
	return pair, nil
}
