package engine

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Expected, user-facing outcomes. Controllers map these to HTTP statuses; only
// storage failures propagate as anything else.
var (
	ErrCampaignUnavailable = errors.New("campaign is not available")
	ErrLimitExceeded       = errors.New("draw limit exceeded")
	ErrDepleted            = errors.New("prize stock depleted")
	ErrInsufficientBalance = errors.New("insufficient point balance")
	ErrMissionUnavailable  = errors.New("mission is not available")
	ErrMissionNotCompleted = errors.New("mission is not completed")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionMerged       = errors.New("session already merged into another account")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidEvent        = errors.New("event name is required")
)

// isDuplicateKey reports whether err is a unique-index violation. GORM's
// TranslateError covers MySQL and SQLite; the string checks keep older driver
// versions working.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
