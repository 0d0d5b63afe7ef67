package engine

import (
	"testing"
	"time"

	"github.com/sactech816/integration-app-sub010/models"

	"github.com/stretchr/testify/require"
)

func mintSession(t *testing.T, eng *Engine) (ParticipantKey, string) {
	t.Helper()
	res, err := eng.Identity.Resolve(0, "")
	require.NoError(t, err)
	require.True(t, res.Minted)
	return res.Key, res.SessionToken
}

func TestResolveAccountAlwaysWins(t *testing.T) {
	eng, _ := newTestEngine(t)

	res, err := eng.Identity.Resolve(42, "some-session-token")
	require.NoError(t, err)
	require.Equal(t, AccountKey(42), res.Key)
	require.False(t, res.Minted)
}

func TestResolveMintsAndReusesSessions(t *testing.T) {
	eng, _ := newTestEngine(t)

	first, err := eng.Identity.Resolve(0, "")
	require.NoError(t, err)
	require.True(t, first.Minted)
	require.NotEmpty(t, first.SessionToken)

	second, err := eng.Identity.Resolve(0, first.SessionToken)
	require.NoError(t, err)
	require.False(t, second.Minted)
	require.Equal(t, first.Key, second.Key)

	// An unknown token is replaced, not trusted.
	third, err := eng.Identity.Resolve(0, "no-such-token")
	require.NoError(t, err)
	require.True(t, third.Minted)
	require.NotEqual(t, "no-such-token", third.SessionToken)
}

func TestResolveExpiredTokenMintsFresh(t *testing.T) {
	eng, db := newTestEngine(t)

	stale := &models.GuestSession{Token: "stale-token", ExpiresAt: time.Now().Add(-time.Minute)}
	require.NoError(t, db.Create(stale).Error)

	res, err := eng.Identity.Resolve(0, "stale-token")
	require.NoError(t, err)
	require.True(t, res.Minted)
	require.NotEqual(t, "stale-token", res.SessionToken)
}

func TestMergeMovesWinningsExactlyOnce(t *testing.T) {
	eng, db := newTestEngine(t)
	from, token := mintSession(t, eng)

	camp := activeCampaign(t, db, models.CampaignGacha)
	addPrize(t, db, camp.ID, "sure thing", 100, true, 50, intPtr(5))
	_, err := eng.Draws.Draw(camp.ID, from, "merge-draw")
	require.NoError(t, err)
	_, err = eng.Ledger.Grant(from, 30, models.ReasonAdjustment, "")
	require.NoError(t, err)

	m := createMission(t, eng, models.Mission{Name: "Walk", TriggerEvent: "step", Threshold: 2})
	_, err = eng.Missions.ApplyEvent(from, *m, time.Now())
	require.NoError(t, err)

	rally := activeCampaign(t, db, models.CampaignStampRally)
	addStamp(t, eng, rally.ID, "s1", "ev1", true)
	addStamp(t, eng, rally.ID, "s2", "ev2", true)
	_, errs := eng.Stamps.OnEvent(from, "ev1", nil, time.Now())
	require.Empty(t, errs)

	report, err := eng.Identity.Merge(token, 7)
	require.NoError(t, err)
	require.False(t, report.AlreadyMerged)
	require.EqualValues(t, 80, report.FoldedPoints)
	require.EqualValues(t, 2, report.LedgerEntries)
	require.EqualValues(t, 1, report.DrawOutcomes)
	require.EqualValues(t, 1, report.Missions)
	require.EqualValues(t, 1, report.Stamps)

	to := AccountKey(7)
	balance, err := eng.Ledger.Balance(to)
	require.NoError(t, err)
	require.EqualValues(t, 80, balance)

	sessionBalance, err := eng.Ledger.Balance(from)
	require.NoError(t, err)
	require.Zero(t, sessionBalance, "session keeps nothing after the merge")

	// Retrying the same merge is a no-op.
	report, err = eng.Identity.Merge(token, 7)
	require.NoError(t, err)
	require.True(t, report.AlreadyMerged)

	balance, err = eng.Ledger.Balance(to)
	require.NoError(t, err)
	require.EqualValues(t, 80, balance, "retried merge must not double the winnings")

	// The token now belongs to account 7; nobody else can take it.
	_, err = eng.Identity.Merge(token, 8)
	require.ErrorIs(t, err, ErrSessionMerged)

	res, err := eng.Identity.Resolve(0, token)
	require.NoError(t, err)
	require.Equal(t, to, res.Key)
}

func TestMergeConflictsKeepAccountRows(t *testing.T) {
	eng, db := newTestEngine(t)
	from, token := mintSession(t, eng)
	to := AccountKey(9)

	m := createMission(t, eng, models.Mission{Name: "Walk", TriggerEvent: "step", Threshold: 5})
	_, err := eng.Missions.ApplyEvent(from, *m, time.Now())
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = eng.Missions.ApplyEvent(to, *m, time.Now())
		require.NoError(t, err)
	}

	rally := activeCampaign(t, db, models.CampaignStampRally)
	addStamp(t, eng, rally.ID, "shared", "ev", true)
	addStamp(t, eng, rally.ID, "other", "ev_other", true)
	_, errs := eng.Stamps.OnEvent(from, "ev", nil, time.Now())
	require.Empty(t, errs)
	_, errs = eng.Stamps.OnEvent(to, "ev", nil, time.Now())
	require.Empty(t, errs)

	report, err := eng.Identity.Merge(token, 9)
	require.NoError(t, err)
	require.Zero(t, report.Missions, "colliding mission progress stays with the account")
	require.Zero(t, report.Stamps, "held stamps are not moved")

	var progress models.MissionProgress
	cond, args := participantWhere(to)
	require.NoError(t, db.Where("mission_id = ?", m.ID).Where(cond, args...).First(&progress).Error)
	require.Equal(t, 2, progress.ProgressCounter, "account's own counter survives the merge")

	var missionRows, stampRows int64
	require.NoError(t, db.Model(&models.MissionProgress{}).Where("mission_id = ?", m.ID).Count(&missionRows).Error)
	require.EqualValues(t, 1, missionRows)
	require.NoError(t, db.Model(&models.StampProgress{}).Where("campaign_id = ?", rally.ID).Count(&stampRows).Error)
	require.EqualValues(t, 1, stampRows)
}

func TestMergeUnknownSession(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Identity.Merge("ghost-token", 1)
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = eng.Identity.Merge("", 1)
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, token := mintSession(t, eng)
	_, err = eng.Identity.Merge(token, 0)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSweepPurgesOnlyExpiredUnmerged(t *testing.T) {
	eng, db := newTestEngine(t)

	expired := &models.GuestSession{Token: "old-token", ExpiresAt: time.Now().Add(-time.Hour)}
	require.NoError(t, db.Create(expired).Error)
	_, err := eng.Ledger.Grant(SessionKey("old-token"), 40, models.ReasonAdjustment, "")
	require.NoError(t, err)

	acct := uint(3)
	merged := &models.GuestSession{
		Token: "merged-token", ExpiresAt: time.Now().Add(-time.Hour),
		Merged: true, MergedAccountID: &acct,
	}
	require.NoError(t, db.Create(merged).Error)

	mintSession(t, eng)

	swept, err := eng.Identity.SweepExpiredSessions(time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 1, swept)

	var remaining []models.GuestSession
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 2)
	for _, s := range remaining {
		require.NotEqual(t, "old-token", s.Token)
	}

	// Everything the purged session owned is gone with it.
	var entries int64
	cond, args := participantWhere(SessionKey("old-token"))
	require.NoError(t, db.Model(&models.PointLedgerEntry{}).Where(cond, args...).Count(&entries).Error)
	require.Zero(t, entries)
}
