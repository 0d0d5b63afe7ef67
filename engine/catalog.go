package engine

import (
	"errors"
	"time"

	"github.com/sactech816/integration-app-sub010/models"

	"gorm.io/gorm"
)

// Catalog is the read side of campaign definitions: schedule/status checks and
// the per-participant draw-limit policy.
type Catalog struct {
	db *gorm.DB
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// GetActiveCampaign returns the campaign when it is playable right now.
// A campaign whose schedule has passed is transitioned to ended on read, so
// operators don't need a sweeper for the common case.
func (c *Catalog) GetActiveCampaign(id uint) (*models.Campaign, error) {
	var camp models.Campaign
	if err := c.db.First(&camp, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignUnavailable
		}
		return nil, err
	}

	now := time.Now()
	if camp.Status == models.CampaignStatusActive && now.After(camp.EndsAt) {
		if err := c.db.Model(&models.Campaign{}).
			Where("id = ? AND status = ?", camp.ID, models.CampaignStatusActive).
			UpdateColumn("status", models.CampaignStatusEnded).Error; err != nil {
			return nil, err
		}
		camp.Status = models.CampaignStatusEnded
	}

	if camp.Status != models.CampaignStatusActive || now.Before(camp.StartsAt) {
		return nil, ErrCampaignUnavailable
	}
	return &camp, nil
}

// GetPrizeTable returns the campaign's prizes in ascending id order. The order
// is what makes a draw reproducible for a fixed random value.
func (c *Catalog) GetPrizeTable(campaignID uint) ([]models.Prize, error) {
	var prizes []models.Prize
	if err := c.db.Where("campaign_id = ?", campaignID).Order("id ASC").Find(&prizes).Error; err != nil {
		return nil, err
	}
	return prizes, nil
}

// CheckDrawLimit returns ErrLimitExceeded when the participant has used up the
// campaign's draw allowance for the current window.
func (c *Catalog) CheckDrawLimit(camp *models.Campaign, pk ParticipantKey) error {
	used, err := c.drawsUsed(camp, pk)
	if err != nil {
		return err
	}
	if used < 0 {
		return nil // unlimited
	}
	if used >= int64(camp.DrawLimit) {
		return ErrLimitExceeded
	}
	return nil
}

// DrawsRemaining returns the participant's remaining draws, -1 for unlimited.
func (c *Catalog) DrawsRemaining(camp *models.Campaign, pk ParticipantKey) (int64, error) {
	used, err := c.drawsUsed(camp, pk)
	if err != nil {
		return 0, err
	}
	if used < 0 {
		return -1, nil
	}
	remaining := int64(camp.DrawLimit) - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// drawsUsed counts the participant's outcomes inside the limit window; -1 means
// no limit applies.
func (c *Catalog) drawsUsed(camp *models.Campaign, pk ParticipantKey) (int64, error) {
	if camp.DrawLimit <= 0 || camp.DrawLimitWindow == models.LimitWindowNone {
		return -1, nil
	}
	cond, args := participantWhere(pk)
	q := c.db.Model(&models.DrawOutcome{}).
		Where("campaign_id = ?", camp.ID).
		Where(cond, args...)
	if camp.DrawLimitWindow == models.LimitWindowDaily {
		q = q.Where("drawn_at >= ?", startOfDayUTC(time.Now()))
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func startOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
