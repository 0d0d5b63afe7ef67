package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sactech816/integration-app-sub010/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const balanceCacheTTL = time.Minute

// Ledger is the sole writer of point ledger entries. The append-only log is
// authoritative; the participant_balances counter row is adjusted in the same
// transaction as every append (it is what makes Spend an atomic conditional
// decrement) and can be rebuilt from the log at any time. Redis, when
// configured, is a second disposable read cache in front of the counter.
type Ledger struct {
	db    *gorm.DB
	log   *logrus.Logger
	cache *redis.Client // nil when REDIS_ADDR is not configured
}

func NewLedger(db *gorm.DB, log *logrus.Logger, cache *redis.Client) *Ledger {
	return &Ledger{db: db, log: log, cache: cache}
}

// Grant appends a positive delta. When sourceEventID is non-empty the call is
// idempotent on (reasonCode, sourceEventID): a duplicate appends nothing and
// returns the prior entry.
func (l *Ledger) Grant(pk ParticipantKey, amount int64, reasonCode, sourceEventID string) (*models.PointLedgerEntry, error) {
	var entry *models.PointLedgerEntry
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		entry, txErr = l.GrantTx(tx, pk, amount, reasonCode, sourceEventID)
		return txErr
	})
	if err != nil {
		if isDuplicateKey(err) && sourceEventID != "" {
			return l.findBySource(reasonCode, sourceEventID)
		}
		return nil, err
	}
	l.invalidate(pk)
	return entry, nil
}

// GrantTx is Grant inside an existing transaction; used by the draw engine and
// mission evaluator so reward and outcome commit as one unit. The caller is
// responsible for cache invalidation after commit.
func (l *Ledger) GrantTx(tx *gorm.DB, pk ParticipantKey, amount int64, reasonCode, sourceEventID string) (*models.PointLedgerEntry, error) {
	if amount < 0 {
		return nil, ErrInvalidAmount
	}
	if sourceEventID != "" {
		cond, args := participantWhere(pk)
		var prior models.PointLedgerEntry
		err := tx.Where("reason_code = ? AND source_event_id = ?", reasonCode, sourceEventID).
			Where(cond, args...).First(&prior).Error
		if err == nil {
			return &prior, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	entry := &models.PointLedgerEntry{
		ParticipantKind: pk.Kind,
		ParticipantRef:  pk.Ref,
		Delta:           amount,
		ReasonCode:      reasonCode,
	}
	if sourceEventID != "" {
		entry.SourceEventID = &sourceEventID
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}
	if err := applyBalanceDelta(tx, pk, amount); err != nil {
		return nil, err
	}
	return entry, nil
}

// Spend appends a negative delta after an atomic balance check: the counter
// decrement only succeeds when balance >= amount, so concurrent spends cannot
// take the balance below zero. Nothing is appended on failure.
func (l *Ledger) Spend(pk ParticipantKey, amount int64, reasonCode string) (*models.PointLedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	var entry *models.PointLedgerEntry
	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := ensureBalanceRow(tx, pk); err != nil {
			return err
		}
		cond, args := participantWhere(pk)
		res := tx.Model(&models.ParticipantBalance{}).
			Where(cond, args...).
			Where("balance >= ?", amount).
			UpdateColumn("balance", gorm.Expr("balance - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientBalance
		}

		entry = &models.PointLedgerEntry{
			ParticipantKind: pk.Kind,
			ParticipantRef:  pk.Ref,
			Delta:           -amount,
			ReasonCode:      reasonCode,
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	l.invalidate(pk)
	return entry, nil
}

// Balance reads the participant's current balance: Redis cache first, counter
// row second, ledger sum as the fallback for participants with entries but no
// counter yet.
func (l *Ledger) Balance(pk ParticipantKey) (int64, error) {
	if l.cache != nil {
		if v, err := l.cache.Get(context.Background(), balanceCacheKey(pk)).Result(); err == nil {
			if n, perr := strconv.ParseInt(v, 10, 64); perr == nil {
				return n, nil
			}
		}
	}

	cond, args := participantWhere(pk)
	var row models.ParticipantBalance
	err := l.db.Where(cond, args...).First(&row).Error
	balance := row.Balance
	if errors.Is(err, gorm.ErrRecordNotFound) {
		balance, err = l.sumFromLog(pk)
	}
	if err != nil {
		return 0, err
	}

	if l.cache != nil {
		if cerr := l.cache.Set(context.Background(), balanceCacheKey(pk), strconv.FormatInt(balance, 10), balanceCacheTTL).Err(); cerr != nil {
			l.log.WithError(cerr).Warn("balance cache set failed")
		}
	}
	return balance, nil
}

// History returns the participant's most recent ledger entries.
func (l *Ledger) History(pk ParticipantKey, limit int) ([]models.PointLedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	cond, args := participantWhere(pk)
	var entries []models.PointLedgerEntry
	err := l.db.Where(cond, args...).Order("id DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

// RebuildBalances re-derives every counter row from the log. Used by the
// reconciliation endpoint; the log always wins.
func (l *Ledger) RebuildBalances() (int64, error) {
	type row struct {
		ParticipantKind string
		ParticipantRef  string
		Total           int64
	}
	var rows []row
	err := l.db.Model(&models.PointLedgerEntry{}).
		Select("participant_kind, participant_ref, COALESCE(SUM(delta), 0) AS total").
		Group("participant_kind, participant_ref").
		Scan(&rows).Error
	if err != nil {
		return 0, err
	}

	err = l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.ParticipantBalance{}).Error; err != nil {
			return err
		}
		for _, r := range rows {
			bal := models.ParticipantBalance{
				ParticipantKind: r.ParticipantKind,
				ParticipantRef:  r.ParticipantRef,
				Balance:         r.Total,
			}
			if err := tx.Create(&bal).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if l.cache != nil {
		for _, r := range rows {
			pk := ParticipantKey{Kind: r.ParticipantKind, Ref: r.ParticipantRef}
			l.invalidate(pk)
		}
	}
	l.log.WithField("participants", len(rows)).Info("rebuilt point balances from ledger")
	return int64(len(rows)), nil
}

func (l *Ledger) sumFromLog(pk ParticipantKey) (int64, error) {
	cond, args := participantWhere(pk)
	var total *int64
	err := l.db.Model(&models.PointLedgerEntry{}).
		Select("SUM(delta)").
		Where(cond, args...).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (l *Ledger) findBySource(reasonCode, sourceEventID string) (*models.PointLedgerEntry, error) {
	var entry models.PointLedgerEntry
	err := l.db.Where("reason_code = ? AND source_event_id = ?", reasonCode, sourceEventID).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// invalidate drops the cached balance; the next read repopulates it.
func (l *Ledger) invalidate(pk ParticipantKey) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Del(context.Background(), balanceCacheKey(pk)).Err(); err != nil {
		l.log.WithError(err).Warn("balance cache invalidation failed")
	}
}

func balanceCacheKey(pk ParticipantKey) string {
	return fmt.Sprintf("points:balance:%s:%s", pk.Kind, pk.Ref)
}

// applyBalanceDelta adjusts the materialized counter inside tx, creating the
// row on first touch.
func applyBalanceDelta(tx *gorm.DB, pk ParticipantKey, delta int64) error {
	if err := ensureBalanceRow(tx, pk); err != nil {
		return err
	}
	cond, args := participantWhere(pk)
	return tx.Model(&models.ParticipantBalance{}).
		Where(cond, args...).
		UpdateColumn("balance", gorm.Expr("balance + ?", delta)).Error
}

// ensureBalanceRow creates the counter row if missing; a lost creation race is
// fine, the row exists either way.
func ensureBalanceRow(tx *gorm.DB, pk ParticipantKey) error {
	row := models.ParticipantBalance{ParticipantKind: pk.Kind, ParticipantRef: pk.Ref}
	err := tx.Create(&row).Error
	if err != nil && !isDuplicateKey(err) {
		return err
	}
	return nil
}
