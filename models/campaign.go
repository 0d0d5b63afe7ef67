package models

import "time"

// Campaign types. stamp_rally and login_bonus campaigns are driven by dispatched
// events; the rest are played through the draw endpoint.
const (
	CampaignGacha      = "gacha"
	CampaignScratch    = "scratch"
	CampaignSlot       = "slot"
	CampaignLuckyDraw  = "lucky_draw"
	CampaignStampRally = "stamp_rally"
	CampaignLoginBonus = "login_bonus"
	CampaignPointQuiz  = "point_quiz"
)

const (
	CampaignStatusDraft  = "draft"
	CampaignStatusActive = "active"
	CampaignStatusEnded  = "ended"
)

// Draw-limit windows. "daily" counts outcomes since midnight UTC, "total"
// counts over the campaign lifetime, "none" means unlimited.
const (
	LimitWindowNone  = "none"
	LimitWindowDaily = "daily"
	LimitWindowTotal = "total"
)

type Campaign struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"type:varchar(191);not null" json:"title"`
	Type            string    `gorm:"type:enum('gacha','scratch','slot','lucky_draw','stamp_rally','login_bonus','point_quiz');not null" json:"type"`
	Status          string    `gorm:"type:enum('draft','active','ended');not null;default:'draft'" json:"status"`
	StartsAt        time.Time `gorm:"not null" json:"starts_at"`
	EndsAt          time.Time `gorm:"not null" json:"ends_at"`
	DrawLimit       int       `gorm:"not null;default:0" json:"draw_limit"` // 0 = unlimited
	DrawLimitWindow string    `gorm:"type:enum('none','daily','total');not null;default:'none'" json:"draw_limit_window"`
	// Points granted once when a stamp rally is completed. Unused for other types.
	CompletionPoints int64     `gorm:"not null;default:0" json:"completion_points"`
	CreatedAt        time.Time `json:"-"`
	UpdatedAt        time.Time `json:"-"`

	// Associations
	Prizes []Prize `gorm:"foreignKey:CampaignID" json:"prizes,omitempty"`
}

func (Campaign) TableName() string {
	return "campaigns"
}
