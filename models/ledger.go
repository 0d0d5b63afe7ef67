package models

import "time"

// Reason codes for ledger entries. Grants with a source event id are idempotent
// on (reason_code, source_event_id).
const (
	ReasonMissionReward = "mission_reward"
	ReasonDrawReward    = "draw_reward"
	ReasonStampBonus    = "stamp_bonus"
	ReasonSpend         = "spend"
	ReasonAdjustment    = "adjustment"
)

// PointLedgerEntry is append-only; the log is the authoritative balance source.
// SourceEventID is a pointer so spend entries (no source) do not collide on the
// unique index.
type PointLedgerEntry struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ParticipantKind string    `gorm:"type:varchar(10);not null;index:idx_ledger_participant" json:"participant_kind"`
	ParticipantRef  string    `gorm:"type:varchar(64);not null;index:idx_ledger_participant" json:"participant_ref"`
	Delta           int64     `gorm:"not null" json:"delta"`
	ReasonCode      string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_ledger_source" json:"reason_code"`
	SourceEventID   *string   `gorm:"type:varchar(191);uniqueIndex:uk_ledger_source" json:"source_event_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func (PointLedgerEntry) TableName() string {
	return "point_ledger_entries"
}

// ParticipantBalance is the materialized counter in front of the ledger. It is
// adjusted in the same transaction as every ledger append and can always be
// rebuilt from the log (engine/ledger.go RebuildBalances).
type ParticipantBalance struct {
	ParticipantKind string    `gorm:"primaryKey;type:varchar(10)" json:"participant_kind"`
	ParticipantRef  string    `gorm:"primaryKey;type:varchar(64)" json:"participant_ref"`
	Balance         int64     `gorm:"not null;default:0" json:"balance"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (ParticipantBalance) TableName() string {
	return "participant_balances"
}
