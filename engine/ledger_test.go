package engine

import (
	"fmt"
	"testing"

	"github.com/sactech816/integration-app-sub010/models"

	"github.com/stretchr/testify/require"
)

func TestGrantIdempotentOnSource(t *testing.T) {
	eng, db := newTestEngine(t)
	pk := SessionKey("grant-session")

	first, err := eng.Ledger.Grant(pk, 100, models.ReasonMissionReward, "mission:1:once:session:grant-session")
	require.NoError(t, err)

	second, err := eng.Ledger.Grant(pk, 100, models.ReasonMissionReward, "mission:1:once:session:grant-session")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	balance, err := eng.Ledger.Balance(pk)
	require.NoError(t, err)
	require.EqualValues(t, 100, balance)

	var entries int64
	require.NoError(t, db.Model(&models.PointLedgerEntry{}).Count(&entries).Error)
	require.EqualValues(t, 1, entries)
}

func TestGrantWithoutSourceAlwaysAppends(t *testing.T) {
	eng, _ := newTestEngine(t)
	pk := SessionKey("free-grant")

	for i := 0; i < 3; i++ {
		_, err := eng.Ledger.Grant(pk, 10, models.ReasonAdjustment, "")
		require.NoError(t, err)
	}
	balance, err := eng.Ledger.Balance(pk)
	require.NoError(t, err)
	require.EqualValues(t, 30, balance)
}

func TestGrantRejectsNegativeAmount(t *testing.T) {
	eng, _ := newTestEngine(t)
	_, err := eng.Ledger.Grant(SessionKey("s"), -5, models.ReasonAdjustment, "")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestSpendDecrementsAndAppends(t *testing.T) {
	eng, db := newTestEngine(t)
	pk := SessionKey("spender")

	_, err := eng.Ledger.Grant(pk, 200, models.ReasonAdjustment, "")
	require.NoError(t, err)

	entry, err := eng.Ledger.Spend(pk, 80, models.ReasonSpend)
	require.NoError(t, err)
	require.EqualValues(t, -80, entry.Delta)

	balance, err := eng.Ledger.Balance(pk)
	require.NoError(t, err)
	require.EqualValues(t, 120, balance)

	var entries int64
	require.NoError(t, db.Model(&models.PointLedgerEntry{}).Count(&entries).Error)
	require.EqualValues(t, 2, entries)
}

func TestSpendInsufficientAppendsNothing(t *testing.T) {
	eng, db := newTestEngine(t)
	pk := SessionKey("broke")

	_, err := eng.Ledger.Grant(pk, 50, models.ReasonAdjustment, "")
	require.NoError(t, err)

	_, err = eng.Ledger.Spend(pk, 51, models.ReasonSpend)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	balance, err := eng.Ledger.Balance(pk)
	require.NoError(t, err)
	require.EqualValues(t, 50, balance)

	var entries int64
	require.NoError(t, db.Model(&models.PointLedgerEntry{}).Count(&entries).Error)
	require.EqualValues(t, 1, entries, "failed spend must not reach the log")
}

func TestSpendValidation(t *testing.T) {
	eng, _ := newTestEngine(t)
	_, err := eng.Ledger.Spend(SessionKey("s"), 0, models.ReasonSpend)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = eng.Ledger.Spend(SessionKey("s"), -10, models.ReasonSpend)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestConcurrentSpendNeverGoesNegative(t *testing.T) {
	eng, _ := newTestEngine(t)
	pk := SessionKey("racer")

	_, err := eng.Ledger.Grant(pk, 100, models.ReasonAdjustment, "")
	require.NoError(t, err)

	const workers = 10
	done := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := eng.Ledger.Spend(pk, 30, models.ReasonSpend)
			done <- err
		}()
	}
	var ok int
	for i := 0; i < workers; i++ {
		if err := <-done; err == nil {
			ok++
		} else {
			require.ErrorIs(t, err, ErrInsufficientBalance)
		}
	}
	require.Equal(t, 3, ok, "only three 30-point spends fit into 100")

	balance, err := eng.Ledger.Balance(pk)
	require.NoError(t, err)
	require.EqualValues(t, 10, balance)
}

func TestHistoryOrderAndLimit(t *testing.T) {
	eng, _ := newTestEngine(t)
	pk := SessionKey("historian")

	for i := 0; i < 5; i++ {
		_, err := eng.Ledger.Grant(pk, int64(i+1), models.ReasonAdjustment, "")
		require.NoError(t, err)
	}

	entries, err := eng.Ledger.History(pk, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.EqualValues(t, 5, entries[0].Delta, "newest entry first")

	all, err := eng.Ledger.History(pk, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
}

func TestRebuildBalancesFromLog(t *testing.T) {
	eng, db := newTestEngine(t)

	for i := 0; i < 3; i++ {
		pk := SessionKey(fmt.Sprintf("rebuild-%d", i))
		_, err := eng.Ledger.Grant(pk, int64(100*(i+1)), models.ReasonAdjustment, "")
		require.NoError(t, err)
	}

	// Corrupt one counter row; the log must win.
	require.NoError(t, db.Model(&models.ParticipantBalance{}).
		Where("participant_ref = ?", "rebuild-0").
		UpdateColumn("balance", 999999).Error)

	participants, err := eng.Ledger.RebuildBalances()
	require.NoError(t, err)
	require.EqualValues(t, 3, participants)

	balance, err := eng.Ledger.Balance(SessionKey("rebuild-0"))
	require.NoError(t, err)
	require.EqualValues(t, 100, balance)
}

func TestBalanceFallsBackToLogSum(t *testing.T) {
	eng, db := newTestEngine(t)
	pk := SessionKey("no-counter")

	_, err := eng.Ledger.Grant(pk, 70, models.ReasonAdjustment, "")
	require.NoError(t, err)

	// Drop the counter row; Balance must derive from the log.
	cond, args := participantWhere(pk)
	require.NoError(t, db.Where(cond, args...).Delete(&models.ParticipantBalance{}).Error)

	balance, err := eng.Ledger.Balance(pk)
	require.NoError(t, err)
	require.EqualValues(t, 70, balance)
}
