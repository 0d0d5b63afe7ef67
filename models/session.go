package models

import "time"

// GuestSessionLifetime is the fixed lifetime of an anonymous session token.
const GuestSessionLifetime = 30 * 24 * time.Hour

// GuestSession identifies an anonymous participant. Once merged into an
// account it stays marked merged forever so a retried merge is a no-op and the
// token keeps resolving to the account.
type GuestSession struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Token           string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"token"`
	ExpiresAt       time.Time `gorm:"not null;index" json:"expires_at"`
	Merged          bool      `gorm:"not null;default:false" json:"merged"`
	MergedAccountID *uint     `json:"merged_account_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"-"`
}

func (GuestSession) TableName() string {
	return "guest_sessions"
}

func (s *GuestSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
