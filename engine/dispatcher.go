package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sactech816/integration-app-sub010/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EventLogin is the behavioral event that triggers login-bonus campaigns.
const EventLogin = "login"

// DispatchResult aggregates everything one behavioral event produced.
type DispatchResult struct {
	Event        string               `json:"event"`
	Missions     []MissionResult      `json:"missions,omitempty"`
	Stamps       []StampResult        `json:"stamps,omitempty"`
	LoginBonuses []models.DrawOutcome `json:"login_bonuses,omitempty"`
	PointsEarned int64                `json:"points_earned"`
	Errors       []string             `json:"errors,omitempty"`
}

// Dispatcher fans one behavioral event out to every consumer: missions, stamp
// rallies, and (for login events) login-bonus campaigns. Consumers are
// isolated from each other; a failing one is reported in the result while the
// rest still run. Dispatching an event with no consumers is a valid no-op.
type Dispatcher struct {
	db       *gorm.DB
	log      *logrus.Logger
	missions *Evaluator
	stamps   *StampBook
	draws    *DrawEngine
}

func NewDispatcher(db *gorm.DB, log *logrus.Logger, missions *Evaluator, stamps *StampBook, draws *DrawEngine) *Dispatcher {
	return &Dispatcher{db: db, log: log, missions: missions, stamps: stamps, draws: draws}
}

// Dispatch routes one event for one participant. The payload travels with the
// event as-is; consumers that don't need it ignore it.
func (d *Dispatcher) Dispatch(pk ParticipantKey, eventName string, payload json.RawMessage) (*DispatchResult, error) {
	if pk.IsZero() || eventName == "" {
		return nil, ErrInvalidEvent
	}
	now := time.Now()
	result := &DispatchResult{Event: eventName}

	missionResults, missionErrs := d.missions.OnEvent(pk, eventName, payload, now)
	result.Missions = missionResults
	for _, r := range missionResults {
		result.PointsEarned += r.PointsGranted
	}
	for _, err := range missionErrs {
		result.Errors = append(result.Errors, err.Error())
	}

	stampResults, stampErrs := d.stamps.OnEvent(pk, eventName, payload, now)
	result.Stamps = stampResults
	for _, r := range stampResults {
		result.PointsEarned += r.PointsGranted
	}
	for _, err := range stampErrs {
		result.Errors = append(result.Errors, err.Error())
	}

	if eventName == EventLogin {
		bonuses, bonusErrs := d.loginBonuses(pk, now)
		result.LoginBonuses = bonuses
		for _, err := range bonusErrs {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	d.log.WithFields(logrus.Fields{
		"event":       eventName,
		"participant": pk.String(),
		"missions":    len(result.Missions),
		"stamps":      len(result.Stamps),
		"points":      result.PointsEarned,
		"errors":      len(result.Errors),
	}).Info("event dispatched")
	return result, nil
}

// loginBonuses runs one draw per active login-bonus campaign. The idempotency
// key pins the draw to the UTC date, so repeated logins on the same day replay
// the first outcome instead of drawing again.
func (d *Dispatcher) loginBonuses(pk ParticipantKey, now time.Time) ([]models.DrawOutcome, []error) {
	var campaigns []models.Campaign
	err := d.db.Where("type = ? AND status = ?", models.CampaignLoginBonus, models.CampaignStatusActive).
		Where("starts_at <= ? AND ends_at >= ?", now, now).
		Order("id ASC").Find(&campaigns).Error
	if err != nil {
		return nil, []error{err}
	}

	var outcomes []models.DrawOutcome
	var errs []error
	for _, camp := range campaigns {
		key := fmt.Sprintf("login:%d:%s:%s:%s", camp.ID, pk.Kind, pk.Ref, now.UTC().Format("2006-01-02"))
		outcome, derr := d.draws.Draw(camp.ID, pk, key)
		if derr != nil {
			d.log.WithError(derr).WithFields(logrus.Fields{
				"campaign_id": camp.ID,
				"participant": pk.String(),
			}).Error("login bonus draw failed")
			errs = append(errs, derr)
			continue
		}
		outcomes = append(outcomes, *outcome)
	}
	return outcomes, errs
}
