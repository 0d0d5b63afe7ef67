package engine

import (
	"fmt"
	"testing"

	"github.com/sactech816/integration-app-sub010/models"

	"github.com/stretchr/testify/require"
)

func TestDrawRenormalizesAfterDepletion(t *testing.T) {
	eng, db := newTestEngine(t)
	pk := SessionKey("renorm-session")

	camp := activeCampaign(t, db, models.CampaignGacha)
	// 70% winner with one unit, 30% consolation with unlimited stock. Once the
	// winner's unit is gone every later draw must land on the consolation.
	winner := addPrize(t, db, camp.ID, "grand", 70, true, 100, intPtr(1))
	addPrize(t, db, camp.ID, "consolation", 30, false, 0, nil)

	for i := 0; i < 50; i++ {
		outcome, err := eng.Draws.Draw(camp.ID, pk, fmt.Sprintf("renorm-%d", i))
		require.NoError(t, err)
		require.NotNil(t, outcome.PrizeID)
	}

	var winnerCount int64
	require.NoError(t, db.Model(&models.DrawOutcome{}).Where("prize_id = ?", winner.ID).Count(&winnerCount).Error)
	require.EqualValues(t, 1, winnerCount, "single-unit prize must be awarded exactly once")

	var total int64
	require.NoError(t, db.Model(&models.DrawOutcome{}).Where("campaign_id = ?", camp.ID).Count(&total).Error)
	require.EqualValues(t, 50, total)

	var got models.Prize
	require.NoError(t, db.First(&got, winner.ID).Error)
	require.Equal(t, 0, *got.Stock)

	// The one win granted its points exactly once.
	balance, err := eng.Ledger.Balance(pk)
	require.NoError(t, err)
	require.EqualValues(t, 100, balance)
}

func TestDrawIdempotentReplay(t *testing.T) {
	eng, db := newTestEngine(t)
	pk := SessionKey("replay-session")

	camp := activeCampaign(t, db, models.CampaignGacha)
	prize := addPrize(t, db, camp.ID, "only", 100, true, 50, intPtr(10))

	first, err := eng.Draws.Draw(camp.ID, pk, "replay-key")
	require.NoError(t, err)

	second, err := eng.Draws.Draw(camp.ID, pk, "replay-key")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var got models.Prize
	require.NoError(t, db.First(&got, prize.ID).Error)
	require.Equal(t, 9, *got.Stock, "replay must not decrement stock again")

	balance, err := eng.Ledger.Balance(pk)
	require.NoError(t, err)
	require.EqualValues(t, 50, balance, "replay must not grant points again")

	var outcomes int64
	require.NoError(t, db.Model(&models.DrawOutcome{}).Where("campaign_id = ?", camp.ID).Count(&outcomes).Error)
	require.EqualValues(t, 1, outcomes)
}

func TestDrawEmptyPoolProducesLosingOutcome(t *testing.T) {
	eng, db := newTestEngine(t)
	pk := SessionKey("empty-session")

	camp := activeCampaign(t, db, models.CampaignScratch)

	outcome, err := eng.Draws.Draw(camp.ID, pk, "")
	require.NoError(t, err)
	require.False(t, outcome.IsWinning)
	require.Nil(t, outcome.PrizeID)
	require.NotEmpty(t, outcome.IdempotencyKey, "engine mints a key when the client sends none")
}

func TestDrawZeroWeightNeverSelected(t *testing.T) {
	eng, db := newTestEngine(t)
	pk := SessionKey("zero-session")

	camp := activeCampaign(t, db, models.CampaignGacha)
	hidden := addPrize(t, db, camp.ID, "hidden", 0, true, 500, nil)
	addPrize(t, db, camp.ID, "normal", 10, false, 0, nil)

	for i := 0; i < 30; i++ {
		outcome, err := eng.Draws.Draw(camp.ID, pk, fmt.Sprintf("zero-%d", i))
		require.NoError(t, err)
		if outcome.PrizeID != nil {
			require.NotEqual(t, hidden.ID, *outcome.PrizeID)
		}
	}
}

func TestDrawRespectsLimit(t *testing.T) {
	eng, db := newTestEngine(t)
	pk := SessionKey("limited-session")

	camp := activeCampaign(t, db, models.CampaignGacha)
	camp.DrawLimit = 1
	camp.DrawLimitWindow = models.LimitWindowTotal
	require.NoError(t, db.Save(camp).Error)
	addPrize(t, db, camp.ID, "p", 10, false, 0, nil)

	_, err := eng.Draws.Draw(camp.ID, pk, "one")
	require.NoError(t, err)

	_, err = eng.Draws.Draw(camp.ID, pk, "two")
	require.ErrorIs(t, err, ErrLimitExceeded)

	// Replaying the first draw still works even at the limit.
	outcome, err := eng.Draws.Draw(camp.ID, pk, "one")
	require.NoError(t, err)
	require.Equal(t, "one", outcome.IdempotencyKey)
}

func TestDrawUnavailableCampaign(t *testing.T) {
	eng, db := newTestEngine(t)

	camp := activeCampaign(t, db, models.CampaignGacha)
	require.NoError(t, db.Model(camp).UpdateColumn("status", models.CampaignStatusEnded).Error)

	_, err := eng.Draws.Draw(camp.ID, SessionKey("s"), "")
	require.ErrorIs(t, err, ErrCampaignUnavailable)
}

func TestDrawConcurrentLastUnit(t *testing.T) {
	eng, db := newTestEngine(t)

	camp := activeCampaign(t, db, models.CampaignGacha)
	winner := addPrize(t, db, camp.ID, "last", 100, true, 10, intPtr(1))
	addPrize(t, db, camp.ID, "blank", 1, false, 0, nil)

	const workers = 10
	done := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func(n int) {
			_, err := eng.Draws.Draw(camp.ID, SessionKey(fmt.Sprintf("racer-%d", n)), "")
			done <- err
		}(i)
	}
	for i := 0; i < workers; i++ {
		require.NoError(t, <-done)
	}

	var winnerCount int64
	require.NoError(t, db.Model(&models.DrawOutcome{}).Where("prize_id = ?", winner.ID).Count(&winnerCount).Error)
	require.LessOrEqual(t, winnerCount, int64(1))

	var got models.Prize
	require.NoError(t, db.First(&got, winner.ID).Error)
	require.GreaterOrEqual(t, *got.Stock, 0)
}
