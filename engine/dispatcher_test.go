package engine

import (
	"encoding/json"
	"testing"

	"github.com/sactech816/integration-app-sub010/models"

	"github.com/stretchr/testify/require"
)

func TestDispatchValidation(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Dispatcher.Dispatch(SessionKey("s"), "", nil)
	require.ErrorIs(t, err, ErrInvalidEvent)

	_, err = eng.Dispatcher.Dispatch(ParticipantKey{}, "login", nil)
	require.ErrorIs(t, err, ErrInvalidEvent)
}

func TestDispatchWithNoConsumersIsNoOp(t *testing.T) {
	eng, _ := newTestEngine(t)

	result, err := eng.Dispatcher.Dispatch(SessionKey("quiet"), "page_view", json.RawMessage(`{"page":"/top"}`))
	require.NoError(t, err)
	require.Equal(t, "page_view", result.Event)
	require.Empty(t, result.Missions)
	require.Empty(t, result.Stamps)
	require.Empty(t, result.LoginBonuses)
	require.Empty(t, result.Errors)
	require.Zero(t, result.PointsEarned)
}

func TestDispatchFansOutToEveryConsumer(t *testing.T) {
	eng, db := newTestEngine(t)
	pk := SessionKey("fan-out")

	createMission(t, eng, models.Mission{
		Name: "First login", TriggerEvent: "login", Threshold: 1, RewardPoints: 5,
	})

	rally := activeCampaign(t, db, models.CampaignStampRally)
	rally.CompletionPoints = 20
	require.NoError(t, db.Save(rally).Error)
	addStamp(t, eng, rally.ID, "login_stamp", "login", true)

	bonus := activeCampaign(t, db, models.CampaignLoginBonus)
	addPrize(t, db, bonus.ID, "daily bonus", 100, true, 10, nil)

	result, err := eng.Dispatcher.Dispatch(pk, "login", json.RawMessage(`{"channel":"mobile"}`))
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.Len(t, result.Missions, 1)
	require.Len(t, result.Stamps, 1)
	require.Len(t, result.LoginBonuses, 1)
	require.EqualValues(t, 25, result.PointsEarned, "mission reward plus rally bonus")

	// Every consumer's grant reached the ledger.
	balance, err := eng.Ledger.Balance(pk)
	require.NoError(t, err)
	require.EqualValues(t, 35, balance)
}

func TestLoginBonusDrawsOncePerDay(t *testing.T) {
	eng, db := newTestEngine(t)
	pk := SessionKey("daily-login")

	bonus := activeCampaign(t, db, models.CampaignLoginBonus)
	addPrize(t, db, bonus.ID, "bonus", 100, true, 10, nil)

	first, err := eng.Dispatcher.Dispatch(pk, EventLogin, nil)
	require.NoError(t, err)
	require.Len(t, first.LoginBonuses, 1)

	second, err := eng.Dispatcher.Dispatch(pk, EventLogin, nil)
	require.NoError(t, err)
	require.Len(t, second.LoginBonuses, 1)
	require.Equal(t, first.LoginBonuses[0].ID, second.LoginBonuses[0].ID, "same day replays the first outcome")

	var outcomes int64
	require.NoError(t, db.Model(&models.DrawOutcome{}).Where("campaign_id = ?", bonus.ID).Count(&outcomes).Error)
	require.EqualValues(t, 1, outcomes)

	balance, err := eng.Ledger.Balance(pk)
	require.NoError(t, err)
	require.EqualValues(t, 10, balance, "bonus points granted once")
}

func TestLoginEventSkipsEndedBonusCampaigns(t *testing.T) {
	eng, db := newTestEngine(t)
	pk := SessionKey("late-login")

	bonus := activeCampaign(t, db, models.CampaignLoginBonus)
	addPrize(t, db, bonus.ID, "bonus", 100, true, 10, nil)
	require.NoError(t, db.Model(bonus).UpdateColumn("status", models.CampaignStatusEnded).Error)

	result, err := eng.Dispatcher.Dispatch(pk, EventLogin, nil)
	require.NoError(t, err)
	require.Empty(t, result.LoginBonuses)
	require.Empty(t, result.Errors)
}
