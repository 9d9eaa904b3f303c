package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dkuzmin/repricer-worker/internal/crypto"
	"github.com/dkuzmin/repricer-worker/internal/marketplace"
	"github.com/dkuzmin/repricer-worker/internal/models"
	"github.com/dkuzmin/repricer-worker/internal/scheduler"
)

type InitializeAccountStore interface {
	GetByUserAndID(ctx context.Context, userID, accountID string) (*models.MonitoredAccount, error)
	ChangeInitializeState(ctx context.Context, accountID string, state models.SyncState) error
	UpdateAccountInfo(ctx context.Context, accountID string, externalAccountID int64, name, email string) error
}

type AuthClient interface {
	Auth(ctx context.Context, userID, login, password string) (*marketplace.TokenPair, error)
	CheckToken(ctx context.Context, userID, accessToken string) (*marketplace.CheckTokenResponse, error)
}

// InitializeService runs the first-contact flow for a freshly added account:
// prove the stored credential works, capture the remote identity, and kick
// off the first sync.
type InitializeService struct {
	accounts InitializeAccountStore
	client   AuthClient
	codec    crypto.Codec
	jobs     JobSubmitter
	sync     SyncRunner
	logger   *zap.Logger
}

func NewInitializeService(accounts InitializeAccountStore, client AuthClient, codec crypto.Codec, jobs JobSubmitter, sync SyncRunner, logger *zap.Logger) *InitializeService {
	return &InitializeService{
		accounts: accounts,
		client:   client,
		codec:    codec,
		jobs:     jobs,
		sync:     sync,
		logger:   logger,
	}
}

func (s *InitializeService) Initialize(ctx context.Context, userID, accountID string) error {
	if err := s.accounts.ChangeInitializeState(ctx, accountID, models.SyncInProgress); err != nil {
		return err
	}

	if err := s.doInitialize(ctx, userID, accountID); err != nil {
		s.logger.Error("account initialization failed",
			zap.String("user_id", userID),
			zap.String("account_id", accountID),
			zap.Error(err))
		if stateErr := s.accounts.ChangeInitializeState(ctx, accountID, models.SyncError); stateErr != nil {
			s.logger.Error("failed to record initialize error state",
				zap.String("account_id", accountID),
				zap.Error(stateErr))
		}
		return err
	}

	if err := s.accounts.ChangeInitializeState(ctx, accountID, models.SyncFinished); err != nil {
		return err
	}
	s.logger.Info("account initialized", zap.String("account_id", accountID))

	// The first sync follows immediately so the account has data before the
	// regular update interval elapses.
	err := s.jobs.Submit(scheduler.UpdateJobID(accountID), func(jobCtx context.Context) error {
		return s.sync.SyncAccount(jobCtx, userID, accountID)
	})
	if err != nil && !errors.Is(err, scheduler.ErrDuplicateJob) {
		s.logger.Warn("failed to schedule initial sync",
			zap.String("account_id", accountID),
			zap.Error(err))
	}
	return nil
}

func (s *InitializeService) doInitialize(ctx context.Context, userID, accountID string) error {
	account, err := s.accounts.GetByUserAndID(ctx, userID, accountID)
	if err != nil {
		return err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(account.Password)
	if err != nil {
		return fmt.Errorf("malformed stored credential: %w", err)
	}
	password, err := s.codec.Decrypt(ciphertext)
	if err != nil {
		return fmt.Errorf("failed to decrypt credential: %w", err)
	}

	pair, err := s.client.Auth(ctx, userID, account.Login, password)
	if err != nil {
		return fmt.Errorf("credential check failed: %w", err)
	}
	identity, err := s.client.CheckToken(ctx, userID, pair.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to resolve account identity: %w", err)
	}

	return s.accounts.UpdateAccountInfo(ctx, accountID, identity.AccountID, identity.FirstName, identity.Email)
}
