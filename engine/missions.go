package engine

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/sactech816/integration-app-sub010/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MissionResult describes what one event did to one mission.
type MissionResult struct {
	MissionID     uint   `json:"mission_id"`
	Name          string `json:"name"`
	State         string `json:"state"`
	Progress      int    `json:"progress"`
	Threshold     int    `json:"threshold"`
	Completed     bool   `json:"completed"`
	PointsGranted int64  `json:"points_granted"`
}

// MissionState is the read-side view of one mission for a participant.
type MissionState struct {
	Mission  models.Mission `json:"mission"`
	State    string         `json:"state"`
	Progress int            `json:"progress"`
}

// Evaluator advances mission state machines. Every transition is a guarded
// conditional UPDATE keyed on the state the transition leaves, so two
// concurrent events cannot both own a completion and the reward grants exactly
// once per (mission, participant, period).
type Evaluator struct {
	db     *gorm.DB
	log    *logrus.Logger
	ledger *Ledger
}

func NewEvaluator(db *gorm.DB, log *logrus.Logger, ledger *Ledger) *Evaluator {
	return &Evaluator{db: db, log: log, ledger: ledger}
}

// OnEvent applies one behavioral event to every active mission listening for
// it. The payload is carried opaquely for consumers that need it; mission
// counting itself only keys on the event name. A failure on one mission does
// not stop the others.
func (e *Evaluator) OnEvent(pk ParticipantKey, eventName string, payload json.RawMessage, now time.Time) ([]MissionResult, []error) {
	var missions []models.Mission
	if err := e.db.Where("trigger_event = ? AND status = ?", eventName, "Active").
		Order("id ASC").Find(&missions).Error; err != nil {
		return nil, []error{err}
	}

	var results []MissionResult
	var errs []error
	for _, m := range missions {
		res, err := e.ApplyEvent(pk, m, now)
		if err != nil {
			e.log.WithError(err).WithFields(logrus.Fields{
				"mission_id":  m.ID,
				"participant": pk.String(),
			}).Error("mission evaluation failed")
			errs = append(errs, err)
			continue
		}
		if res != nil {
			results = append(results, *res)
		}
	}
	return results, errs
}

// ApplyEvent increments one mission's counter and, when the threshold is hit,
// transitions it to completed. Returns nil when the mission is already past
// the counting states for the current period.
func (e *Evaluator) ApplyEvent(pk ParticipantKey, m models.Mission, now time.Time) (*MissionResult, error) {
	key := periodKey(m, now)
	var result *MissionResult
	err := e.db.Transaction(func(tx *gorm.DB) error {
		row, err := e.ensureProgress(tx, pk, m, key)
		if err != nil {
			return err
		}

		// Count the event. The guard keeps completed/claimed rows untouched and
		// pins the period so a reset racing in between invalidates the update.
		res := tx.Model(&models.MissionProgress{}).
			Where("id = ? AND period_key = ? AND state IN ?", row.ID, key,
				[]string{models.MissionNotStarted, models.MissionInProgress}).
			Updates(map[string]interface{}{
				"state":            models.MissionInProgress,
				"progress_counter": gorm.Expr("progress_counter + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if err := tx.First(row, row.ID).Error; err != nil {
			return err
		}
		result = &MissionResult{
			MissionID: m.ID,
			Name:      m.Name,
			State:     row.State,
			Progress:  row.ProgressCounter,
			Threshold: m.Threshold,
		}
		if row.ProgressCounter < m.Threshold {
			return nil
		}

		// Threshold reached. Only the transaction whose UPDATE flips the row
		// owns the completion and may grant the reward.
		res = tx.Model(&models.MissionProgress{}).
			Where("id = ? AND period_key = ? AND state = ?", row.ID, key, models.MissionInProgress).
			UpdateColumn("state", models.MissionCompleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		result.State = models.MissionCompleted
		result.Completed = true

		if !m.RequiresClaim && m.RewardPoints > 0 {
			entry, err := e.ledger.GrantTx(tx, pk, m.RewardPoints, models.ReasonMissionReward, missionSourceID(m, pk, key))
			if err != nil {
				return err
			}
			result.PointsGranted = entry.Delta
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result != nil && result.PointsGranted > 0 {
		e.ledger.invalidate(pk)
	}
	return result, nil
}

// Claim hands over the reward of a claim-gated mission. The completed->claimed
// transition is the guard: a double claim loses the UPDATE and gets
// ErrMissionNotCompleted.
func (e *Evaluator) Claim(pk ParticipantKey, missionID uint) (*MissionResult, error) {
	var m models.Mission
	if err := e.db.First(&m, missionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMissionUnavailable
		}
		return nil, err
	}
	if m.Status != "Active" || !m.RequiresClaim {
		return nil, ErrMissionUnavailable
	}

	var result *MissionResult
	err := e.db.Transaction(func(tx *gorm.DB) error {
		cond, args := participantWhere(pk)
		var row models.MissionProgress
		err := tx.Where("mission_id = ?", m.ID).Where(cond, args...).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMissionNotCompleted
		}
		if err != nil {
			return err
		}

		res := tx.Model(&models.MissionProgress{}).
			Where("id = ? AND period_key = ? AND state = ?", row.ID, row.PeriodKey, models.MissionCompleted).
			UpdateColumn("state", models.MissionClaimed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrMissionNotCompleted
		}

		result = &MissionResult{
			MissionID: m.ID,
			Name:      m.Name,
			State:     models.MissionClaimed,
			Progress:  row.ProgressCounter,
			Threshold: m.Threshold,
			Completed: true,
		}
		if m.RewardPoints > 0 {
			entry, err := e.ledger.GrantTx(tx, pk, m.RewardPoints, models.ReasonMissionReward, missionSourceID(m, pk, row.PeriodKey))
			if err != nil {
				return err
			}
			result.PointsGranted = entry.Delta
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.ledger.invalidate(pk)
	return result, nil
}

// States lists every active mission with the participant's progress. Daily
// rows from a previous period are reported as not started; the stored row is
// reset lazily by the next event, not here.
func (e *Evaluator) States(pk ParticipantKey) ([]MissionState, error) {
	var missions []models.Mission
	if err := e.db.Where("status = ?", "Active").Order("id ASC").Find(&missions).Error; err != nil {
		return nil, err
	}

	cond, args := participantWhere(pk)
	var rows []models.MissionProgress
	if err := e.db.Where(cond, args...).Find(&rows).Error; err != nil {
		return nil, err
	}
	byMission := make(map[uint]models.MissionProgress, len(rows))
	for _, r := range rows {
		byMission[r.MissionID] = r
	}

	now := time.Now()
	states := make([]MissionState, 0, len(missions))
	for _, m := range missions {
		st := MissionState{Mission: m, State: models.MissionNotStarted}
		if row, ok := byMission[m.ID]; ok && row.PeriodKey == periodKey(m, now) {
			st.State = row.State
			st.Progress = row.ProgressCounter
		}
		states = append(states, st)
	}
	return states, nil
}

// ensureProgress returns the progress row for the current period, creating or
// resetting it as needed. The reset is guarded on the stale period key so
// concurrent events reset at most once.
func (e *Evaluator) ensureProgress(tx *gorm.DB, pk ParticipantKey, m models.Mission, key string) (*models.MissionProgress, error) {
	cond, args := participantWhere(pk)
	var row models.MissionProgress
	err := tx.Where("mission_id = ?", m.ID).Where(cond, args...).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = models.MissionProgress{
			MissionID:       m.ID,
			ParticipantKind: pk.Kind,
			ParticipantRef:  pk.Ref,
			State:           models.MissionNotStarted,
			PeriodKey:       key,
		}
		if cerr := tx.Create(&row).Error; cerr != nil {
			if !isDuplicateKey(cerr) {
				return nil, cerr
			}
			if ferr := tx.Where("mission_id = ?", m.ID).Where(cond, args...).First(&row).Error; ferr != nil {
				return nil, ferr
			}
		}
	} else if err != nil {
		return nil, err
	}

	if row.PeriodKey != key {
		res := tx.Model(&models.MissionProgress{}).
			Where("id = ? AND period_key = ?", row.ID, row.PeriodKey).
			Updates(map[string]interface{}{
				"state":            models.MissionNotStarted,
				"progress_counter": 0,
				"period_key":       key,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if err := tx.First(&row, row.ID).Error; err != nil {
			return nil, err
		}
	}
	return &row, nil
}

// periodKey identifies the counting window: the UTC date for daily missions,
// empty for one-shot missions.
func periodKey(m models.Mission, now time.Time) string {
	if m.Period == models.MissionPeriodDaily {
		return now.UTC().Format("2006-01-02")
	}
	return ""
}

// missionSourceID is the idempotency key of a mission reward: one grant per
// (mission, participant, period).
func missionSourceID(m models.Mission, pk ParticipantKey, key string) string {
	epoch := key
	if epoch == "" {
		epoch = "once"
	}
	return sourceID("mission", pk, strconv.FormatUint(uint64(m.ID), 10), epoch)
}
