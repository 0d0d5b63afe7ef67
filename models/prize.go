package models

import "time"

// Prize belongs to exactly one campaign. Stock == nil means unlimited; a finite
// stock is only ever decremented through the conditional reserve in engine/stock.go
// and only ever incremented by an operator top-up.
type Prize struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CampaignID uint      `gorm:"not null;index" json:"campaign_id"`
	Name       string    `gorm:"type:varchar(191);not null" json:"name"`
	Weight     int       `gorm:"not null" json:"weight"` // probability numerator; 0 = never selectable
	IsWinning  bool      `gorm:"not null;default:true" json:"is_winning"`
	Points     int64     `gorm:"not null;default:0" json:"points"` // granted to the ledger when won
	Stock      *int      `json:"stock"`                            // nil = unlimited
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}

func (Prize) TableName() string {
	return "prizes"
}

// Depleted reports whether a finite-stock prize has run out. It never reverses
// without an operator top-up.
func (p *Prize) Depleted() bool {
	return p.Stock != nil && *p.Stock <= 0
}
