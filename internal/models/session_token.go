package models

import "time"

// SessionToken caches a remote token pair per (user, account). ExpiresAt is
// the cache TTL, not the remote token lifetime: expiry forces re-validation
// against the marketplace even when the remote token would still be accepted.
type SessionToken struct {
	Key          string    `gorm:"column:key;primaryKey"` // userID + accountID
	UserID       string    `gorm:"column:user_id"`
	AccountID    string    `gorm:"column:account_id"`
	AccessToken  string    `gorm:"column:access_token"`
	RefreshToken string    `gorm:"column:refresh_token"`
	ExpiresAt    time.Time `gorm:"column:expires_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (SessionToken) TableName() string {
	return "session_token"
}
