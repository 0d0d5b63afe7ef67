package models

import "time"

// Mission periods. Daily missions reset at the UTC date boundary; historical
// completions stay in the point ledger.
const (
	MissionPeriodNone  = "none"
	MissionPeriodDaily = "daily"
)

// Mission progress states. Transitions only move forward except the periodic
// reset edge (see engine/missions.go).
const (
	MissionNotStarted = "not_started"
	MissionInProgress = "in_progress"
	MissionCompleted  = "completed"
	MissionClaimed    = "claimed"
)

type Mission struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"type:varchar(191);not null" json:"name"`
	TriggerEvent string `gorm:"type:varchar(64);not null;index" json:"trigger_event"`
	Threshold    int    `gorm:"not null;default:1" json:"threshold"`
	RewardPoints int64  `gorm:"not null;default:0" json:"reward_points"`
	Period       string `gorm:"type:enum('none','daily');not null;default:'none'" json:"period"`
	// RequiresClaim missions grant their reward on the explicit claim action
	// instead of on completion.
	RequiresClaim bool      `gorm:"not null;default:false" json:"requires_claim"`
	Status        string    `gorm:"type:enum('Active','Inactive');not null;default:'Active'" json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Mission) TableName() string {
	return "missions"
}

// MissionProgress tracks one (participant, mission) pair. PeriodKey is the UTC
// date the row currently tracks for daily missions ("" for one-shot missions).
type MissionProgress struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	MissionID       uint      `gorm:"not null;uniqueIndex:uk_mission_participant" json:"mission_id"`
	ParticipantKind string    `gorm:"type:varchar(10);not null;uniqueIndex:uk_mission_participant" json:"participant_kind"`
	ParticipantRef  string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_mission_participant" json:"participant_ref"`
	State           string    `gorm:"type:enum('not_started','in_progress','completed','claimed');not null;default:'not_started'" json:"state"`
	ProgressCounter int       `gorm:"not null;default:0" json:"progress_counter"`
	PeriodKey       string    `gorm:"type:varchar(16);not null;default:''" json:"period_key"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (MissionProgress) TableName() string {
	return "mission_progresses"
}
