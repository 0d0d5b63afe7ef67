package engine

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/sactech816/integration-app-sub010/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StampResult describes one stamp an event collected.
type StampResult struct {
	CampaignID     uint   `json:"campaign_id"`
	StampCode      string `json:"stamp_code"`
	RallyCompleted bool   `json:"rally_completed"`
	PointsGranted  int64  `json:"points_granted"`
}

// RallyProgress is the read-side view of one participant's stamp sheet.
type RallyProgress struct {
	CampaignID uint                   `json:"campaign_id"`
	Collected  []models.StampProgress `json:"collected"`
	Required   int                    `json:"required"`
	Completed  bool                   `json:"completed"`
}

// StampBook collects stamps for stamp-rally campaigns. Collection is a
// dup-tolerant insert against the unique stamp index; rally completion is
// derived from the collected rows, so the completion bonus grants exactly once
// no matter how the stamps arrive.
type StampBook struct {
	db      *gorm.DB
	log     *logrus.Logger
	catalog *Catalog
	ledger  *Ledger
}

func NewStampBook(db *gorm.DB, log *logrus.Logger, catalog *Catalog, ledger *Ledger) *StampBook {
	return &StampBook{db: db, log: log, catalog: catalog, ledger: ledger}
}

// OnEvent collects every stamp listening for the event across currently active
// stamp rallies. The payload is carried opaquely for consumers that need it;
// stamp collection itself only keys on the event name. A failure on one stamp
// does not stop the others.
func (b *StampBook) OnEvent(pk ParticipantKey, eventName string, payload json.RawMessage, now time.Time) ([]StampResult, []error) {
	var stamps []models.CampaignStamp
	err := b.db.
		Joins("JOIN campaigns ON campaigns.id = campaign_stamps.campaign_id").
		Where("campaign_stamps.trigger_event = ?", eventName).
		Where("campaigns.type = ? AND campaigns.status = ?", models.CampaignStampRally, models.CampaignStatusActive).
		Where("campaigns.starts_at <= ? AND campaigns.ends_at >= ?", now, now).
		Order("campaign_stamps.id ASC").
		Find(&stamps).Error
	if err != nil {
		return nil, []error{err}
	}

	var results []StampResult
	var errs []error
	for _, s := range stamps {
		res, cerr := b.collect(pk, s, now)
		if cerr != nil {
			b.log.WithError(cerr).WithFields(logrus.Fields{
				"campaign_id": s.CampaignID,
				"stamp_code":  s.StampCode,
				"participant": pk.String(),
			}).Error("stamp collection failed")
			errs = append(errs, cerr)
			continue
		}
		if res != nil {
			results = append(results, *res)
		}
	}
	return results, errs
}

// Progress returns the participant's sheet for one stamp-rally campaign.
func (b *StampBook) Progress(campaignID uint, pk ParticipantKey) (*RallyProgress, error) {
	camp, err := b.catalog.GetActiveCampaign(campaignID)
	if err != nil {
		return nil, err
	}
	if camp.Type != models.CampaignStampRally {
		return nil, ErrCampaignUnavailable
	}

	required, err := b.requiredCount(b.db, campaignID)
	if err != nil {
		return nil, err
	}
	collected, err := b.collectedRows(b.db, campaignID, pk)
	if err != nil {
		return nil, err
	}

	done, err := b.rallyComplete(b.db, campaignID, pk)
	if err != nil {
		return nil, err
	}
	return &RallyProgress{
		CampaignID: campaignID,
		Collected:  collected,
		Required:   int(required),
		Completed:  done,
	}, nil
}

// collect inserts one stamp row and grants the campaign's completion bonus in
// the same transaction once the required set is held. A re-delivered event
// takes the duplicate branch but still re-derives completion: two overlapping
// collections of distinct final stamps can each commit seeing an incomplete
// sheet, and the next delivery heals the missed bonus. The grant stays
// idempotent on its source id either way.
func (b *StampBook) collect(pk ParticipantKey, s models.CampaignStamp, now time.Time) (*StampResult, error) {
	var result *StampResult
	err := b.db.Transaction(func(tx *gorm.DB) error {
		row := models.StampProgress{
			CampaignID:      s.CampaignID,
			ParticipantKind: pk.Kind,
			ParticipantRef:  pk.Ref,
			StampCode:       s.StampCode,
			CollectedAt:     now,
		}
		created := true
		if err := tx.Create(&row).Error; err != nil {
			if !isDuplicateKey(err) {
				return err
			}
			created = false
		}

		done, err := b.rallyComplete(tx, s.CampaignID, pk)
		if err != nil {
			return err
		}
		if !done {
			if created {
				result = &StampResult{CampaignID: s.CampaignID, StampCode: s.StampCode}
			}
			return nil
		}

		granted, err := b.grantCompletionBonus(tx, s.CampaignID, pk)
		if err != nil {
			return err
		}
		if created || granted > 0 {
			result = &StampResult{
				CampaignID:     s.CampaignID,
				StampCode:      s.StampCode,
				RallyCompleted: true,
				PointsGranted:  granted,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result != nil && result.PointsGranted > 0 {
		b.ledger.invalidate(pk)
	}
	return result, nil
}

// grantCompletionBonus grants the campaign's completion points unless an
// earlier collection already did. Returns the newly granted amount, 0 when the
// bonus was already on the ledger or the campaign pays nothing.
func (b *StampBook) grantCompletionBonus(tx *gorm.DB, campaignID uint, pk ParticipantKey) (int64, error) {
	var camp models.Campaign
	if err := tx.First(&camp, campaignID).Error; err != nil {
		return 0, err
	}
	if camp.CompletionPoints <= 0 {
		return 0, nil
	}

	src := sourceID("stamp_rally", pk, strconv.FormatUint(uint64(campaignID), 10))
	cond, args := participantWhere(pk)
	var prior int64
	err := tx.Model(&models.PointLedgerEntry{}).
		Where("reason_code = ? AND source_event_id = ?", models.ReasonStampBonus, src).
		Where(cond, args...).
		Count(&prior).Error
	if err != nil {
		return 0, err
	}
	if prior > 0 {
		return 0, nil
	}

	entry, err := b.ledger.GrantTx(tx, pk, camp.CompletionPoints, models.ReasonStampBonus, src)
	if err != nil {
		return 0, err
	}
	return entry.Delta, nil
}

// rallyComplete reports whether every required stamp of the campaign has been
// collected by the participant.
func (b *StampBook) rallyComplete(tx *gorm.DB, campaignID uint, pk ParticipantKey) (bool, error) {
	required, err := b.requiredCount(tx, campaignID)
	if err != nil {
		return false, err
	}
	if required == 0 {
		return false, nil
	}

	cond, args := participantWhere(pk)
	var have int64
	err = tx.Model(&models.StampProgress{}).
		Joins("JOIN campaign_stamps ON campaign_stamps.campaign_id = stamp_progresses.campaign_id AND campaign_stamps.stamp_code = stamp_progresses.stamp_code").
		Where("stamp_progresses.campaign_id = ? AND campaign_stamps.required = ?", campaignID, true).
		Where(cond, args...).
		Count(&have).Error
	if err != nil {
		return false, err
	}
	return have >= required, nil
}

func (b *StampBook) requiredCount(tx *gorm.DB, campaignID uint) (int64, error) {
	var n int64
	err := tx.Model(&models.CampaignStamp{}).
		Where("campaign_id = ? AND required = ?", campaignID, true).
		Count(&n).Error
	return n, err
}

func (b *StampBook) collectedRows(tx *gorm.DB, campaignID uint, pk ParticipantKey) ([]models.StampProgress, error) {
	cond, args := participantWhere(pk)
	var rows []models.StampProgress
	err := tx.Where("campaign_id = ?", campaignID).
		Where(cond, args...).
		Order("collected_at ASC").
		Find(&rows).Error
	return rows, err
}
