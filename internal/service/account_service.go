package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dkuzmin/repricer-worker/internal/crypto"
	"github.com/dkuzmin/repricer-worker/internal/models"
	"github.com/dkuzmin/repricer-worker/internal/scheduler"
)

// AccountStore is the slice of the account repository the account service
// uses.
type AccountStore interface {
	GetByUserAndID(ctx context.Context, userID, accountID string) (*models.MonitoredAccount, error)
	Create(ctx context.Context, account *models.MonitoredAccount) error
	Delete(ctx context.Context, userID, accountID string) error
	ChangeMonitorState(ctx context.Context, userID, accountID string, state models.MonitorState) error
}

// JobSubmitter is the scheduler surface the services submit keyed jobs to.
type JobSubmitter interface {
	Submit(id string, fn func(ctx context.Context) error) error
}

// AccountService manages monitored accounts and turns user actions into
// scheduler jobs.
type AccountService struct {
	accounts           AccountStore
	codec              crypto.Codec
	jobs               JobSubmitter
	sync               SyncRunner
	initializer        InitializeRunner
	recentUpdateWindow time.Duration
	logger             *zap.Logger
}

type SyncRunner interface {
	SyncAccount(ctx context.Context, userID, accountID string) error
}

type InitializeRunner interface {
	Initialize(ctx context.Context, userID, accountID string) error
}

func NewAccountService(accounts AccountStore, codec crypto.Codec, jobs JobSubmitter, sync SyncRunner, initializer InitializeRunner, recentUpdateWindow time.Duration, logger *zap.Logger) *AccountService {
	return &AccountService{
		accounts:           accounts,
		codec:              codec,
		jobs:               jobs,
		sync:               sync,
		initializer:        initializer,
		recentUpdateWindow: recentUpdateWindow,
		logger:             logger,
	}
}

// AddAccount stores a new monitored account with an encrypted credential.
// Monitoring starts suspended; initialization picks the account up from the
// not_started state.
func (s *AccountService) AddAccount(ctx context.Context, userID, login, password string) (*models.MonitoredAccount, error) {
	encrypted, err := s.codec.Encrypt(password)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt credential: %w", err)
	}

	now := time.Now()
	account := &models.MonitoredAccount{
		ID:                uuid.NewString(),
		UserID:            userID,
		Login:             login,
		Password:          base64.StdEncoding.EncodeToString(encrypted),
		MonitorState:      models.MonitorSuspended,
		InitializeState:   models.SyncNotStarted,
		InitializeStateAt: now,
		UpdateState:       models.SyncNotStarted,
		UpdateStateAt:     now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account added",
		zap.String("user_id", userID),
		zap.String("account_id", account.ID))
	return account, nil
}

func (s *AccountService) RemoveAccount(ctx context.Context, userID, accountID string) error {
	return s.accounts.Delete(ctx, userID, accountID)
}

func (s *AccountService) SuspendMonitoring(ctx context.Context, userID, accountID string) error {
	return s.accounts.ChangeMonitorState(ctx, userID, accountID, models.MonitorSuspended)
}

func (s *AccountService) ResumeMonitoring(ctx context.Context, userID, accountID string) error {
	return s.accounts.ChangeMonitorState(ctx, userID, accountID, models.MonitorActive)
}

// ExecuteUpdateJob submits an on-demand sync for the account. Returns false
// without error when the request is redundant: a sync is already running,
// one finished within the recent-update window, or an identical job is
// queued.
func (s *AccountService) ExecuteUpdateJob(ctx context.Context, userID, accountID string) (bool, error) {
	account, err := s.accounts.GetByUserAndID(ctx, userID, accountID)
	if err != nil {
		return false, err
	}
	if account.UpdateState == models.SyncInProgress {
		return false, nil
	}
	if account.LastSyncAt != nil && time.Since(*account.LastSyncAt) < s.recentUpdateWindow {
		s.logger.Debug("update skipped, synced recently",
			zap.String("account_id", accountID),
			zap.Timep("last_sync_at", account.LastSyncAt))
		return false, nil
	}

	err = s.jobs.Submit(scheduler.UpdateJobID(accountID), func(jobCtx context.Context) error {
		return s.sync.SyncAccount(jobCtx, userID, accountID)
	})
	if errors.Is(err, scheduler.ErrDuplicateJob) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InitializeAccount submits a first-time initialization for the account.
// Returns false when the account is past not_started or the job is already
// queued.
func (s *AccountService) InitializeAccount(ctx context.Context, userID, accountID string) (bool, error) {
	account, err := s.accounts.GetByUserAndID(ctx, userID, accountID)
	if err != nil {
		return false, err
	}
	if account.InitializeState != models.SyncNotStarted && account.InitializeState != models.SyncError {
		return false, nil
	}

	err = s.jobs.Submit(scheduler.InitializeJobID(accountID), func(jobCtx context.Context) error {
		return s.initializer.Initialize(jobCtx, userID, accountID)
	})
	if errors.Is(err, scheduler.ErrDuplicateJob) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
