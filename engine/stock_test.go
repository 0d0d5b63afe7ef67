package engine

import (
	"errors"
	"sync"
	"testing"

	"github.com/sactech816/integration-app-sub010/models"

	"github.com/stretchr/testify/require"
)

func TestReserveDecrementsStock(t *testing.T) {
	eng, db := newTestEngine(t)
	camp := activeCampaign(t, db, models.CampaignGacha)
	prize := addPrize(t, db, camp.ID, "mug", 10, true, 0, intPtr(2))

	require.NoError(t, eng.Stock.Reserve(nil, prize.ID))
	require.NoError(t, eng.Stock.Reserve(nil, prize.ID))
	require.ErrorIs(t, eng.Stock.Reserve(nil, prize.ID), ErrDepleted)

	var got models.Prize
	require.NoError(t, db.First(&got, prize.ID).Error)
	require.Equal(t, 0, *got.Stock)
}

func TestReserveUnlimited(t *testing.T) {
	eng, db := newTestEngine(t)
	camp := activeCampaign(t, db, models.CampaignGacha)
	prize := addPrize(t, db, camp.ID, "sticker", 10, true, 0, nil)

	for i := 0; i < 25; i++ {
		require.NoError(t, eng.Stock.Reserve(nil, prize.ID))
	}

	var got models.Prize
	require.NoError(t, db.First(&got, prize.ID).Error)
	require.Nil(t, got.Stock)
}

func TestReserveConcurrentNeverOversells(t *testing.T) {
	eng, db := newTestEngine(t)
	camp := activeCampaign(t, db, models.CampaignGacha)
	prize := addPrize(t, db, camp.ID, "headset", 10, true, 0, intPtr(5))

	const workers = 20
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- eng.Stock.Reserve(nil, prize.ID)
		}()
	}
	wg.Wait()
	close(results)

	var reserved, depleted int
	for err := range results {
		switch {
		case err == nil:
			reserved++
		case errors.Is(err, ErrDepleted):
			depleted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 5, reserved)
	require.Equal(t, workers-5, depleted)

	var got models.Prize
	require.NoError(t, db.First(&got, prize.ID).Error)
	require.Equal(t, 0, *got.Stock)
}

func TestTopUpRevivesDepletedPrize(t *testing.T) {
	eng, db := newTestEngine(t)
	camp := activeCampaign(t, db, models.CampaignGacha)
	prize := addPrize(t, db, camp.ID, "voucher", 10, true, 0, intPtr(1))

	require.NoError(t, eng.Stock.Reserve(nil, prize.ID))
	require.ErrorIs(t, eng.Stock.Reserve(nil, prize.ID), ErrDepleted)

	require.NoError(t, eng.Stock.TopUp(prize.ID, 3))
	var got models.Prize
	require.NoError(t, db.First(&got, prize.ID).Error)
	require.Equal(t, 3, *got.Stock)

	require.NoError(t, eng.Stock.Reserve(nil, prize.ID))
}

func TestRefundReturnsReservedUnit(t *testing.T) {
	eng, db := newTestEngine(t)
	camp := activeCampaign(t, db, models.CampaignGacha)
	limited := addPrize(t, db, camp.ID, "plush", 10, true, 0, intPtr(1))
	unlimited := addPrize(t, db, camp.ID, "wallpaper", 10, true, 0, nil)

	require.NoError(t, eng.Stock.Reserve(nil, limited.ID))
	require.ErrorIs(t, eng.Stock.Reserve(nil, limited.ID), ErrDepleted)

	require.NoError(t, eng.Stock.Refund(limited.ID))
	var got models.Prize
	require.NoError(t, db.First(&got, limited.ID).Error)
	require.Equal(t, 1, *got.Stock)

	require.NoError(t, eng.Stock.Refund(unlimited.ID))
	require.NoError(t, db.First(&got, unlimited.ID).Error)
	require.Nil(t, got.Stock)
}

func TestTopUpValidation(t *testing.T) {
	eng, db := newTestEngine(t)
	camp := activeCampaign(t, db, models.CampaignGacha)
	limited := addPrize(t, db, camp.ID, "limited", 10, true, 0, intPtr(1))
	unlimited := addPrize(t, db, camp.ID, "unlimited", 10, true, 0, nil)

	require.ErrorIs(t, eng.Stock.TopUp(limited.ID, 0), ErrInvalidAmount)
	require.ErrorIs(t, eng.Stock.TopUp(limited.ID, -5), ErrInvalidAmount)

	// Unlimited prizes ignore top-ups.
	require.NoError(t, eng.Stock.TopUp(unlimited.ID, 10))
	var got models.Prize
	require.NoError(t, db.First(&got, unlimited.ID).Error)
	require.Nil(t, got.Stock)
}
