package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dkuzmin/repricer-worker/internal/models"
)

// AccountStore is the discovery and repair surface of the account repository.
type AccountStore interface {
	CountUpdateInProgress(ctx context.Context) (int64, error)
	FindUpdateEligible(ctx context.Context, olderThan time.Time, limit int) ([]models.MonitoredAccount, error)
	FindNotInitialized(ctx context.Context) ([]models.MonitoredAccount, error)
	FindMonitorActive(ctx context.Context) ([]models.MonitoredAccount, error)
	FindUpdateStuck(ctx context.Context, before time.Time) ([]models.MonitoredAccount, error)
	FindInitializeStuck(ctx context.Context, before time.Time) ([]models.MonitoredAccount, error)
	ChangeUpdateState(ctx context.Context, accountID string, state models.SyncState, lastSync *time.Time) error
	ChangeInitializeState(ctx context.Context, accountID string, state models.SyncState) error
}

type SyncRunner interface {
	SyncAccount(ctx context.Context, userID, accountID string) error
}

type InitializeRunner interface {
	Initialize(ctx context.Context, userID, accountID string) error
}

type PriceRunner interface {
	RecalculatePrices(ctx context.Context, userID, accountID string) error
}

// MasterConfig tunes the discovery loops.
type MasterConfig struct {
	PollInterval         time.Duration
	UpdateInterval       time.Duration
	RepairTimeout        time.Duration
	MaxConcurrentUpdates int
}

// Master periodically scans account state and feeds due work to the
// scheduler. Each sweep is independent; a failing sweep logs and waits for
// the next tick.
type Master struct {
	accounts    AccountStore
	sync        SyncRunner
	initializer InitializeRunner
	pricer      PriceRunner
	scheduler   *Scheduler
	cfg         MasterConfig
	logger      *zap.Logger
}

func NewMaster(accounts AccountStore, sync SyncRunner, initializer InitializeRunner, pricer PriceRunner, sched *Scheduler, cfg MasterConfig, logger *zap.Logger) *Master {
	return &Master{
		accounts:    accounts,
		sync:        sync,
		initializer: initializer,
		pricer:      pricer,
		scheduler:   sched,
		cfg:         cfg,
		logger:      logger,
	}
}

// Run drives the discovery loops until ctx is cancelled.
func (m *Master) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	m.logger.Info("master loops started",
		zap.Duration("poll_interval", m.cfg.PollInterval),
		zap.Duration("update_interval", m.cfg.UpdateInterval),
		zap.Duration("repair_timeout", m.cfg.RepairTimeout))

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("master loops stopped")
			return
		case <-ticker.C:
			m.sweepRepair(ctx)
			m.sweepInitialize(ctx)
			m.sweepUpdates(ctx)
			m.sweepPrices(ctx)
		}
	}
}

// sweepUpdates submits sync jobs for accounts whose last sync is older than
// UpdateInterval, up to the concurrency cap.
func (m *Master) sweepUpdates(ctx context.Context) {
	inProgress, err := m.accounts.CountUpdateInProgress(ctx)
	if err != nil {
		m.logger.Error("failed to count in-progress updates", zap.Error(err))
		return
	}
	slots := m.cfg.MaxConcurrentUpdates - int(inProgress)
	if slots <= 0 {
		return
	}

	olderThan := time.Now().Add(-m.cfg.UpdateInterval)
	accounts, err := m.accounts.FindUpdateEligible(ctx, olderThan, slots)
	if err != nil {
		m.logger.Error("failed to find update-eligible accounts", zap.Error(err))
		return
	}
	for _, account := range accounts {
		account := account
		m.submit(UpdateJobID(account.ID), func(jobCtx context.Context) error {
			return m.sync.SyncAccount(jobCtx, account.UserID, account.ID)
		})
	}
}

func (m *Master) sweepInitialize(ctx context.Context) {
	accounts, err := m.accounts.FindNotInitialized(ctx)
	if err != nil {
		m.logger.Error("failed to find uninitialized accounts", zap.Error(err))
		return
	}
	for _, account := range accounts {
		account := account
		m.submit(InitializeJobID(account.ID), func(jobCtx context.Context) error {
			return m.initializer.Initialize(jobCtx, account.UserID, account.ID)
		})
	}
}

func (m *Master) sweepPrices(ctx context.Context) {
	accounts, err := m.accounts.FindMonitorActive(ctx)
	if err != nil {
		m.logger.Error("failed to find actively monitored accounts", zap.Error(err))
		return
	}
	for _, account := range accounts {
		account := account
		m.submit(PriceJobID(account.ID), func(jobCtx context.Context) error {
			return m.pricer.RecalculatePrices(jobCtx, account.UserID, account.ID)
		})
	}
}

// sweepRepair forces in_progress states that stopped moving back to error so
// the account becomes schedulable again. A crash mid-sync would otherwise
// pin the account forever.
func (m *Master) sweepRepair(ctx context.Context) {
	before := time.Now().Add(-m.cfg.RepairTimeout)

	stuck, err := m.accounts.FindUpdateStuck(ctx, before)
	if err != nil {
		m.logger.Error("failed to find stuck updates", zap.Error(err))
	} else {
		for _, account := range stuck {
			m.logger.Warn("repairing stuck update",
				zap.String("account_id", account.ID),
				zap.Time("stuck_since", account.UpdateStateAt))
			if err := m.accounts.ChangeUpdateState(ctx, account.ID, models.SyncError, nil); err != nil {
				m.logger.Error("failed to repair update state",
					zap.String("account_id", account.ID),
					zap.Error(err))
			}
		}
	}

	stuck, err = m.accounts.FindInitializeStuck(ctx, before)
	if err != nil {
		m.logger.Error("failed to find stuck initializations", zap.Error(err))
		return
	}
	for _, account := range stuck {
		m.logger.Warn("repairing stuck initialization",
			zap.String("account_id", account.ID),
			zap.Time("stuck_since", account.InitializeStateAt))
		if err := m.accounts.ChangeInitializeState(ctx, account.ID, models.SyncError); err != nil {
			m.logger.Error("failed to repair initialize state",
				zap.String("account_id", account.ID),
				zap.Error(err))
		}
	}
}

func (m *Master) submit(id string, fn func(ctx context.Context) error) {
	err := m.scheduler.Submit(id, fn)
	switch {
	case err == nil:
		m.logger.Debug("job submitted", zap.String("job_id", id))
	case errors.Is(err, ErrDuplicateJob):
		m.logger.Debug("job already in flight", zap.String("job_id", id))
	default:
		m.logger.Warn("job submission failed", zap.String("job_id", id), zap.Error(err))
	}
}
