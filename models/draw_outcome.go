package models

import "time"

// Participant kinds. Every participant-owned row carries the pair
// (participant_kind, participant_ref): either ("account", account id) or
// ("session", guest session token).
const (
	ParticipantAccount = "account"
	ParticipantSession = "session"
)

// DrawOutcome is the immutable record of one draw. The idempotency key is
// unique so a retried request replays the stored outcome instead of drawing
// again.
type DrawOutcome struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CampaignID      uint      `gorm:"not null;index:idx_outcomes_participant" json:"campaign_id"`
	ParticipantKind string    `gorm:"type:varchar(10);not null;index:idx_outcomes_participant" json:"participant_kind"`
	ParticipantRef  string    `gorm:"type:varchar(64);not null;index:idx_outcomes_participant" json:"participant_ref"`
	PrizeID         *uint     `json:"prize_id"` // nil = no prize (empty pool or losing row)
	IsWinning       bool      `gorm:"not null" json:"is_winning"`
	IdempotencyKey  string    `gorm:"type:varchar(191);uniqueIndex;not null" json:"idempotency_key"`
	DrawnAt         time.Time `gorm:"not null" json:"drawn_at"`
}

func (DrawOutcome) TableName() string {
	return "draw_outcomes"
}
