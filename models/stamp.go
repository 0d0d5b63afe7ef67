package models

import "time"

// CampaignStamp defines one stamp of a stamp-rally campaign and the behavioral
// event that collects it.
type CampaignStamp struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CampaignID   uint      `gorm:"not null;uniqueIndex:uk_campaign_stamp" json:"campaign_id"`
	StampCode    string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_campaign_stamp" json:"stamp_code"`
	TriggerEvent string    `gorm:"type:varchar(64);not null;index" json:"trigger_event"`
	Required     bool      `gorm:"not null;default:true" json:"required"`
	CreatedAt    time.Time `json:"-"`
}

func (CampaignStamp) TableName() string {
	return "campaign_stamps"
}

// StampProgress holds one collected stamp per row; the unique index gives the
// collection set semantics (collecting the same stamp twice is a no-op).
// Rally completion is always derived from these rows, never stored.
type StampProgress struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CampaignID      uint      `gorm:"not null;uniqueIndex:uk_stamp_once" json:"campaign_id"`
	ParticipantKind string    `gorm:"type:varchar(10);not null;uniqueIndex:uk_stamp_once" json:"participant_kind"`
	ParticipantRef  string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_stamp_once" json:"participant_ref"`
	StampCode       string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_stamp_once" json:"stamp_code"`
	CollectedAt     time.Time `gorm:"not null" json:"collected_at"`
}

func (StampProgress) TableName() string {
	return "stamp_progresses"
}
