package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dkuzmin/repricer-worker/internal/models"
)

var ErrAccountNotFound = errors.New("account not found")

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetByID retrieves a monitored account by ID
func (r *AccountRepository) GetByID(ctx context.Context, accountID string) (*models.MonitoredAccount, error) {
	var account models.MonitoredAccount
	result := r.db.WithContext(ctx).First(&account, "id = ?", accountID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", result.Error)
	}
	return &account, nil
}

// GetByUserAndID retrieves a monitored account scoped to its owning user
func (r *AccountRepository) GetByUserAndID(ctx context.Context, userID, accountID string) (*models.MonitoredAccount, error) {
	var account models.MonitoredAccount
	result := r.db.WithContext(ctx).First(&account, "id = ? AND user_id = ?", accountID, userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", result.Error)
	}
	return &account, nil
}

// Create inserts a new monitored account
func (r *AccountRepository) Create(ctx context.Context, account *models.MonitoredAccount) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// Delete removes an account; shops, items and history cascade at the schema level
func (r *AccountRepository) Delete(ctx context.Context, userID, accountID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", accountID, userID).
		Delete(&models.MonitoredAccount{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// UpdateAccountInfo stores the account identity reported by check_token
func (r *AccountRepository) UpdateAccountInfo(ctx context.Context, accountID string, externalAccountID int64, name, email string) error {
	result := r.db.WithContext(ctx).Model(&models.MonitoredAccount{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"external_account_id": externalAccountID,
			"name":                name,
			"email":               email,
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update account info: %w", result.Error)
	}
	return nil
}

// UpdateCredential replaces login and the encrypted password
func (r *AccountRepository) UpdateCredential(ctx context.Context, accountID, login, password string) error {
	result := r.db.WithContext(ctx).Model(&models.MonitoredAccount{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"login":      login,
			"password":   password,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update credential: %w", result.Error)
	}
	return nil
}

// ChangeUpdateState transitions the update dimension and stamps the transition
// time. A non-nil lastSync also advances last_sync_at.
func (r *AccountRepository) ChangeUpdateState(ctx context.Context, accountID string, state models.SyncState, lastSync *time.Time) error {
	now := time.Now()
	updates := map[string]interface{}{
		"update_state":    state,
		"update_state_at": now,
		"updated_at":      now,
	}
	if lastSync != nil {
		updates["last_sync_at"] = *lastSync
	}
	result := r.db.WithContext(ctx).Model(&models.MonitoredAccount{}).
		Where("id = ?", accountID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to change update state: %w", result.Error)
	}
	return nil
}

// ChangeInitializeState transitions the initialize dimension
func (r *AccountRepository) ChangeInitializeState(ctx context.Context, accountID string, state models.SyncState) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.MonitoredAccount{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"initialize_state":    state,
			"initialize_state_at": now,
			"updated_at":          now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to change initialize state: %w", result.Error)
	}
	return nil
}

// ChangeMonitorState switches repricing on or off for an account
func (r *AccountRepository) ChangeMonitorState(ctx context.Context, userID, accountID string, state models.MonitorState) error {
	result := r.db.WithContext(ctx).Model(&models.MonitoredAccount{}).
		Where("id = ? AND user_id = ?", accountID, userID).
		Updates(map[string]interface{}{
			"monitor_state": state,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to change monitor state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// CountUpdateInProgress returns the number of accounts with an update in flight
func (r *AccountRepository) CountUpdateInProgress(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.MonitoredAccount{}).
		Where("update_state = ?", models.SyncInProgress).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count in-progress updates: %w", result.Error)
	}
	return count, nil
}

// FindUpdateEligible selects accounts whose update is not running and whose
// last sync predates olderThan (never-synced accounts qualify)
func (r *AccountRepository) FindUpdateEligible(ctx context.Context, olderThan time.Time, limit int) ([]models.MonitoredAccount, error) {
	var accounts []models.MonitoredAccount
	result := r.db.WithContext(ctx).
		Where("update_state <> ?", models.SyncInProgress).
		Where("initialize_state = ?", models.SyncFinished).
		Where("last_sync_at IS NULL OR last_sync_at < ?", olderThan).
		Order("last_sync_at ASC NULLS FIRST").
		Limit(limit).
		Find(&accounts)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query update-eligible accounts: %w", result.Error)
	}
	return accounts, nil
}

// FindNotInitialized selects accounts that never started initialization
func (r *AccountRepository) FindNotInitialized(ctx context.Context) ([]models.MonitoredAccount, error) {
	var accounts []models.MonitoredAccount
	result := r.db.WithContext(ctx).
		Where("initialize_state = ?", models.SyncNotStarted).
		Order("created_at ASC").
		Find(&accounts)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query not-initialized accounts: %w", result.Error)
	}
	return accounts, nil
}

// FindMonitorActive selects initialized accounts with monitoring enabled and a
// currently valid owner subscription
func (r *AccountRepository) FindMonitorActive(ctx context.Context) ([]models.MonitoredAccount, error) {
	var accounts []models.MonitoredAccount
	result := r.db.WithContext(ctx).
		Joins("JOIN app_user ON app_user.id = monitored_account.user_id").
		Where("monitored_account.monitor_state = ?", models.MonitorActive).
		Where("monitored_account.initialize_state = ?", models.SyncFinished).
		Where("app_user.subscription_valid_until > ?", time.Now()).
		Find(&accounts)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query monitor-active accounts: %w", result.Error)
	}
	return accounts, nil
}

// FindUpdateStuck selects accounts stuck in an update since before the cutoff
func (r *AccountRepository) FindUpdateStuck(ctx context.Context, before time.Time) ([]models.MonitoredAccount, error) {
	var accounts []models.MonitoredAccount
	result := r.db.WithContext(ctx).
		Where("update_state = ? AND update_state_at < ?", models.SyncInProgress, before).
		Find(&accounts)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query stuck updates: %w", result.Error)
	}
	return accounts, nil
}

// FindInitializeStuck selects accounts stuck in initialization since before the cutoff
func (r *AccountRepository) FindInitializeStuck(ctx context.Context, before time.Time) ([]models.MonitoredAccount, error) {
	var accounts []models.MonitoredAccount
	result := r.db.WithContext(ctx).
		Where("initialize_state = ? AND initialize_state_at < ?", models.SyncInProgress, before).
		Find(&accounts)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query stuck initializations: %w", result.Error)
	}
	return accounts, nil
}
