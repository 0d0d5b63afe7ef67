package engine

import (
	"testing"
	"time"

	"github.com/sactech816/integration-app-sub010/models"

	"github.com/stretchr/testify/require"
)

func createMission(t *testing.T, eng *Engine, m models.Mission) *models.Mission {
	t.Helper()
	if m.Threshold == 0 {
		m.Threshold = 1
	}
	if m.Status == "" {
		m.Status = "Active"
	}
	if m.Period == "" {
		m.Period = models.MissionPeriodNone
	}
	require.NoError(t, eng.Missions.db.Create(&m).Error)
	return &m
}

func TestMissionThresholdWalk(t *testing.T) {
	eng, _ := newTestEngine(t)
	pk := SessionKey("walker")
	m := createMission(t, eng, models.Mission{
		Name: "Share three times", TriggerEvent: "share", Threshold: 3, RewardPoints: 50,
	})

	now := time.Now()

	res, err := eng.Missions.ApplyEvent(pk, *m, now)
	require.NoError(t, err)
	require.Equal(t, models.MissionInProgress, res.State)
	require.Equal(t, 1, res.Progress)
	require.False(t, res.Completed)

	res, err = eng.Missions.ApplyEvent(pk, *m, now)
	require.NoError(t, err)
	require.Equal(t, 2, res.Progress)

	res, err = eng.Missions.ApplyEvent(pk, *m, now)
	require.NoError(t, err)
	require.Equal(t, models.MissionCompleted, res.State)
	require.True(t, res.Completed)
	require.EqualValues(t, 50, res.PointsGranted)

	// Events after completion change nothing and grant nothing.
	res, err = eng.Missions.ApplyEvent(pk, *m, now)
	require.NoError(t, err)
	require.Nil(t, res)

	balance, err := eng.Ledger.Balance(pk)
	require.NoError(t, err)
	require.EqualValues(t, 50, balance)
}

func TestMissionRewardGrantsOnce(t *testing.T) {
	eng, db := newTestEngine(t)
	pk := SessionKey("once")
	m := createMission(t, eng, models.Mission{
		Name: "Login once", TriggerEvent: "login", Threshold: 1, RewardPoints: 25,
	})

	now := time.Now()
	for i := 0; i < 5; i++ {
		_, err := eng.Missions.ApplyEvent(pk, *m, now)
		require.NoError(t, err)
	}

	var entries int64
	require.NoError(t, db.Model(&models.PointLedgerEntry{}).
		Where("reason_code = ?", models.ReasonMissionReward).Count(&entries).Error)
	require.EqualValues(t, 1, entries)
}

func TestMissionClaimGate(t *testing.T) {
	eng, _ := newTestEngine(t)
	pk := SessionKey("claimer")
	m := createMission(t, eng, models.Mission{
		Name: "Claimable", TriggerEvent: "visit", Threshold: 1, RewardPoints: 40, RequiresClaim: true,
	})

	// Claim before completion is rejected.
	_, err := eng.Missions.Claim(pk, m.ID)
	require.ErrorIs(t, err, ErrMissionNotCompleted)

	res, err := eng.Missions.ApplyEvent(pk, *m, time.Now())
	require.NoError(t, err)
	require.True(t, res.Completed)
	require.Zero(t, res.PointsGranted, "claim-gated mission pays on claim, not completion")

	balance, err := eng.Ledger.Balance(pk)
	require.NoError(t, err)
	require.Zero(t, balance)

	claim, err := eng.Missions.Claim(pk, m.ID)
	require.NoError(t, err)
	require.Equal(t, models.MissionClaimed, claim.State)
	require.EqualValues(t, 40, claim.PointsGranted)

	// Second claim loses the guarded transition.
	_, err = eng.Missions.Claim(pk, m.ID)
	require.ErrorIs(t, err, ErrMissionNotCompleted)

	balance, err = eng.Ledger.Balance(pk)
	require.NoError(t, err)
	require.EqualValues(t, 40, balance)
}

func TestMissionClaimUnavailable(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Missions.Claim(SessionKey("s"), 424242)
	require.ErrorIs(t, err, ErrMissionUnavailable)

	auto := createMission(t, eng, models.Mission{
		Name: "Auto reward", TriggerEvent: "visit", RewardPoints: 5,
	})
	_, err = eng.Missions.Claim(SessionKey("s"), auto.ID)
	require.ErrorIs(t, err, ErrMissionUnavailable, "missions without a claim gate cannot be claimed")
}

func TestDailyMissionResets(t *testing.T) {
	eng, db := newTestEngine(t)
	pk := SessionKey("daily")
	m := createMission(t, eng, models.Mission{
		Name: "Daily login", TriggerEvent: "login", Threshold: 1, RewardPoints: 10,
		Period: models.MissionPeriodDaily,
	})

	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	res, err := eng.Missions.ApplyEvent(pk, *m, yesterday)
	require.NoError(t, err)
	require.True(t, res.Completed)

	// Stale period shows as not started before any new event arrives.
	states, err := eng.Missions.States(pk)
	require.NoError(t, err)
	require.Len(t, states, 1)
	require.Equal(t, models.MissionNotStarted, states[0].State)

	// A new event re-counts from zero and completes again for today.
	today := time.Now()
	res, err = eng.Missions.ApplyEvent(pk, *m, today)
	require.NoError(t, err)
	require.True(t, res.Completed)
	require.Equal(t, 1, res.Progress)

	// One reward per period.
	var entries int64
	require.NoError(t, db.Model(&models.PointLedgerEntry{}).
		Where("reason_code = ?", models.ReasonMissionReward).Count(&entries).Error)
	require.EqualValues(t, 2, entries)

	balance, err := eng.Ledger.Balance(pk)
	require.NoError(t, err)
	require.EqualValues(t, 20, balance)
}

func TestOnEventTouchesOnlyListeningMissions(t *testing.T) {
	eng, _ := newTestEngine(t)
	pk := SessionKey("listener")

	share := createMission(t, eng, models.Mission{Name: "Share", TriggerEvent: "share", RewardPoints: 5})
	createMission(t, eng, models.Mission{Name: "Buy", TriggerEvent: "purchase", RewardPoints: 5})
	inactive := models.Mission{Name: "Off", TriggerEvent: "share", RewardPoints: 5, Status: "Inactive", Threshold: 1, Period: models.MissionPeriodNone}
	require.NoError(t, eng.Missions.db.Create(&inactive).Error)

	results, errs := eng.Missions.OnEvent(pk, "share", nil, time.Now())
	require.Empty(t, errs)
	require.Len(t, results, 1)
	require.Equal(t, share.ID, results[0].MissionID)
}

func TestStatesListsProgress(t *testing.T) {
	eng, _ := newTestEngine(t)
	pk := SessionKey("viewer")

	m := createMission(t, eng, models.Mission{Name: "Walk", TriggerEvent: "step", Threshold: 5})
	_, err := eng.Missions.ApplyEvent(pk, *m, time.Now())
	require.NoError(t, err)
	_, err = eng.Missions.ApplyEvent(pk, *m, time.Now())
	require.NoError(t, err)

	states, err := eng.Missions.States(pk)
	require.NoError(t, err)
	require.Len(t, states, 1)
	require.Equal(t, models.MissionInProgress, states[0].State)
	require.Equal(t, 2, states[0].Progress)

	// A fresh participant sees everything as not started.
	states, err = eng.Missions.States(SessionKey("fresh"))
	require.NoError(t, err)
	require.Equal(t, models.MissionNotStarted, states[0].State)
	require.Zero(t, states[0].Progress)
}
