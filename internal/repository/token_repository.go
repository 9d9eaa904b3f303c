package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dkuzmin/repricer-worker/internal/models"
)

type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Get returns the cached token pair for a key, or nil when absent or past its
// cache TTL. Expired rows are treated as absent so the session manager
// re-validates against the marketplace.
func (r *TokenRepository) Get(ctx context.Context, key string) (*models.SessionToken, error) {
	var token models.SessionToken
	result := r.db.WithContext(ctx).First(&token, "key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session token: %w", result.Error)
	}
	if time.Now().After(token.ExpiresAt) {
		return nil, nil
	}
	return &token, nil
}

// Put overwrites the cached pair for a key
func (r *TokenRepository) Put(ctx context.Context, token *models.SessionToken) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(token)
	if result.Error != nil {
		return fmt.Errorf("failed to put session token: %w", result.Error)
	}
	return nil
}

// Delete drops the cached pair for a key
func (r *TokenRepository) Delete(ctx context.Context, key string) error {
	result := r.db.WithContext(ctx).Where("key = ?", key).Delete(&models.SessionToken{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete session token: %w", result.Error)
	}
	return nil
}
