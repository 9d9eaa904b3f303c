package models

import "time"

type MonitorState string

const (
	MonitorActive    MonitorState = "active"
	MonitorSuspended MonitorState = "suspended"
)

// SyncState is shared by the initialize and update dimensions of an account.
type SyncState string

const (
	SyncNotStarted SyncState = "not_started"
	SyncInProgress SyncState = "in_progress"
	SyncFinished   SyncState = "finished"
	SyncError      SyncState = "error"
)

// User is the owning user of one or more monitored accounts. Subscription
// fields gate price recalculation discovery.
type User struct {
	ID                     string     `gorm:"column:id;primaryKey"`
	SubscriptionPlan       *string    `gorm:"column:subscription_plan"`
	SubscriptionValidUntil *time.Time `gorm:"column:subscription_valid_until"`
	CreatedAt              time.Time  `gorm:"column:created_at"`
	UpdatedAt              time.Time  `gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "app_user"
}

// MonitoredAccount is a seller storefront under automated repricing.
// Password holds the base64 of the encrypted credential.
type MonitoredAccount struct {
	ID                string       `gorm:"column:id;primaryKey"`
	UserID            string       `gorm:"column:user_id;index"`
	ExternalAccountID *int64       `gorm:"column:external_account_id"`
	Login             string       `gorm:"column:login"`
	Password          string       `gorm:"column:password"`
	Name              *string      `gorm:"column:name"`
	Email             *string      `gorm:"column:email"`
	MonitorState      MonitorState `gorm:"column:monitor_state"`
	InitializeState   SyncState    `gorm:"column:initialize_state"`
	InitializeStateAt time.Time    `gorm:"column:initialize_state_at"`
	UpdateState       SyncState    `gorm:"column:update_state"`
	UpdateStateAt     time.Time    `gorm:"column:update_state_at"`
	LastSyncAt        *time.Time   `gorm:"column:last_sync_at"`
	CreatedAt         time.Time    `gorm:"column:created_at"`
	UpdatedAt         time.Time    `gorm:"column:updated_at"`
}

func (MonitoredAccount) TableName() string {
	return "monitored_account"
}
