package engine

import (
	"errors"
	"time"

	"github.com/sactech816/integration-app-sub010/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Resolution is the participant identity resolved for one request.
type Resolution struct {
	Key          ParticipantKey `json:"key"`
	SessionToken string         `json:"session_token,omitempty"`
	Minted       bool           `json:"minted"`
}

// MergeReport summarizes what a session merge moved into the account.
type MergeReport struct {
	AlreadyMerged bool  `json:"already_merged"`
	LedgerEntries int64 `json:"ledger_entries"`
	DrawOutcomes  int64 `json:"draw_outcomes"`
	Missions      int64 `json:"missions"`
	Stamps        int64 `json:"stamps"`
	FoldedPoints  int64 `json:"folded_points"`
}

// Resolver turns request credentials into a ParticipantKey and owns the guest
// session lifecycle: minting, expiry, and the one-way merge into an account.
type Resolver struct {
	db     *gorm.DB
	log    *logrus.Logger
	ledger *Ledger
}

func NewResolver(db *gorm.DB, log *logrus.Logger, ledger *Ledger) *Resolver {
	return &Resolver{db: db, log: log, ledger: ledger}
}

// Resolve maps credentials to a participant. An authenticated account always
// wins; otherwise a valid session token resolves to its session (or, after a
// merge, to the absorbing account), and anything else mints a fresh session.
func (r *Resolver) Resolve(accountID uint, sessionToken string) (*Resolution, error) {
	if accountID > 0 {
		return &Resolution{Key: AccountKey(accountID)}, nil
	}

	if sessionToken != "" {
		var sess models.GuestSession
		err := r.db.Where("token = ?", sessionToken).First(&sess).Error
		switch {
		case err == nil && sess.Merged && sess.MergedAccountID != nil:
			// Merged tokens keep working; they just point at the account now.
			return &Resolution{Key: AccountKey(*sess.MergedAccountID), SessionToken: sessionToken}, nil
		case err == nil && !sess.Expired(time.Now()):
			return &Resolution{Key: SessionKey(sess.Token), SessionToken: sess.Token}, nil
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
		// Unknown or expired token falls through to minting.
	}

	sess, err := r.mint()
	if err != nil {
		return nil, err
	}
	return &Resolution{Key: SessionKey(sess.Token), SessionToken: sess.Token, Minted: true}, nil
}

func (r *Resolver) mint() (*models.GuestSession, error) {
	sess := &models.GuestSession{
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(models.GuestSessionLifetime),
	}
	if err := r.db.Create(sess).Error; err != nil {
		return nil, err
	}
	return sess, nil
}

// Merge moves everything the session owns into the account and marks the
// session merged. Retrying a finished merge is a no-op; merging a session
// that already belongs to a different account is rejected.
func (r *Resolver) Merge(sessionToken string, accountID uint) (*MergeReport, error) {
	if sessionToken == "" || accountID == 0 {
		return nil, ErrSessionNotFound
	}

	var sess models.GuestSession
	if err := r.db.Where("token = ?", sessionToken).First(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if sess.Merged {
		if sess.MergedAccountID != nil && *sess.MergedAccountID == accountID {
			return &MergeReport{AlreadyMerged: true}, nil
		}
		return nil, ErrSessionMerged
	}

	from := SessionKey(sessionToken)
	to := AccountKey(accountID)
	report := &MergeReport{}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		// Claiming the merged flag is the mutual exclusion: only the
		// transaction that flips it performs the move.
		res := tx.Model(&models.GuestSession{}).
			Where("id = ? AND merged = ?", sess.ID, false).
			Updates(map[string]interface{}{"merged": true, "merged_account_id": accountID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			report.AlreadyMerged = true
			return nil
		}

		var err error
		if report.FoldedPoints, err = r.foldBalance(tx, from, to); err != nil {
			return err
		}
		if report.LedgerEntries, err = retagRows(tx, &models.PointLedgerEntry{}, from, to); err != nil {
			return err
		}
		if report.DrawOutcomes, err = retagRows(tx, &models.DrawOutcome{}, from, to); err != nil {
			return err
		}
		if report.Missions, err = r.mergeMissions(tx, from, to); err != nil {
			return err
		}
		if report.Stamps, err = r.mergeStamps(tx, from, to); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if report.AlreadyMerged {
		// Lost the race to a concurrent merge of the same token; report what
		// that merge decided.
		if err := r.db.Where("token = ?", sessionToken).First(&sess).Error; err == nil &&
			sess.MergedAccountID != nil && *sess.MergedAccountID != accountID {
			return nil, ErrSessionMerged
		}
		return report, nil
	}

	r.ledger.invalidate(from)
	r.ledger.invalidate(to)
	r.log.WithFields(logrus.Fields{
		"session":        sessionToken,
		"account_id":     accountID,
		"ledger_entries": report.LedgerEntries,
		"folded_points":  report.FoldedPoints,
	}).Info("session merged into account")
	return report, nil
}

// SweepExpiredSessions purges expired, never-merged sessions and everything
// they own. Merged sessions are kept so their tokens keep resolving.
func (r *Resolver) SweepExpiredSessions(now time.Time) (int64, error) {
	var swept int64
	for {
		var batch []models.GuestSession
		err := r.db.Where("merged = ? AND expires_at < ?", false, now).
			Limit(200).Find(&batch).Error
		if err != nil {
			return swept, err
		}
		if len(batch) == 0 {
			return swept, nil
		}
		for _, sess := range batch {
			if err := r.purgeSession(sess); err != nil {
				return swept, err
			}
			swept++
		}
	}
}

func (r *Resolver) purgeSession(sess models.GuestSession) error {
	pk := SessionKey(sess.Token)
	cond, args := participantWhere(pk)
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.PointLedgerEntry{},
			&models.ParticipantBalance{},
			&models.DrawOutcome{},
			&models.MissionProgress{},
			&models.StampProgress{},
		} {
			if err := tx.Where(cond, args...).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.GuestSession{}, sess.ID).Error
	})
}

// foldBalance adds the session's counter into the account's and removes the
// session row.
func (r *Resolver) foldBalance(tx *gorm.DB, from, to ParticipantKey) (int64, error) {
	fromCond, fromArgs := participantWhere(from)
	var row models.ParticipantBalance
	err := tx.Where(fromCond, fromArgs...).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	if row.Balance != 0 {
		if err := applyBalanceDelta(tx, to, row.Balance); err != nil {
			return 0, err
		}
	}
	if err := tx.Where(fromCond, fromArgs...).Delete(&models.ParticipantBalance{}).Error; err != nil {
		return 0, err
	}
	return row.Balance, nil
}

// mergeMissions moves progress rows, keeping the account's row wherever both
// sides track the same mission.
func (r *Resolver) mergeMissions(tx *gorm.DB, from, to ParticipantKey) (int64, error) {
	toCond, toArgs := participantWhere(to)
	var taken []uint
	err := tx.Model(&models.MissionProgress{}).
		Where(toCond, toArgs...).
		Pluck("mission_id", &taken).Error
	if err != nil {
		return 0, err
	}

	fromCond, fromArgs := participantWhere(from)
	q := tx.Model(&models.MissionProgress{}).Where(fromCond, fromArgs...)
	if len(taken) > 0 {
		q = q.Where("mission_id NOT IN ?", taken)
	}
	res := q.Updates(map[string]interface{}{
		"participant_kind": to.Kind,
		"participant_ref":  to.Ref,
	})
	if res.Error != nil {
		return 0, res.Error
	}

	// Whatever is left collided with an account row; the account's wins.
	if err := tx.Where(fromCond, fromArgs...).Delete(&models.MissionProgress{}).Error; err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// mergeStamps moves stamp rows, dropping any stamp the account already holds.
func (r *Resolver) mergeStamps(tx *gorm.DB, from, to ParticipantKey) (int64, error) {
	toCond, toArgs := participantWhere(to)
	var existing []models.StampProgress
	if err := tx.Where(toCond, toArgs...).Find(&existing).Error; err != nil {
		return 0, err
	}
	held := make(map[[2]interface{}]bool, len(existing))
	for _, s := range existing {
		held[[2]interface{}{s.CampaignID, s.StampCode}] = true
	}

	fromCond, fromArgs := participantWhere(from)
	var rows []models.StampProgress
	if err := tx.Where(fromCond, fromArgs...).Find(&rows).Error; err != nil {
		return 0, err
	}

	var moved int64
	for _, row := range rows {
		if held[[2]interface{}{row.CampaignID, row.StampCode}] {
			if err := tx.Delete(&models.StampProgress{}, row.ID).Error; err != nil {
				return 0, err
			}
			continue
		}
		err := tx.Model(&models.StampProgress{}).
			Where("id = ?", row.ID).
			Updates(map[string]interface{}{
				"participant_kind": to.Kind,
				"participant_ref":  to.Ref,
			}).Error
		if err != nil {
			return 0, err
		}
		moved++
	}
	return moved, nil
}

// retagRows rewrites the participant columns of every row the session owns.
// Ledger entries and draw outcomes carry their own idempotency identity, so a
// straight bulk update cannot collide.
func retagRows(tx *gorm.DB, model interface{}, from, to ParticipantKey) (int64, error) {
	cond, args := participantWhere(from)
	res := tx.Model(model).Where(cond, args...).Updates(map[string]interface{}{
		"participant_kind": to.Kind,
		"participant_ref":  to.Ref,
	})
	return res.RowsAffected, res.Error
}
