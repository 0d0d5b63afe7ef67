package engine

import (
	"testing"
	"time"

	"github.com/sactech816/integration-app-sub010/models"

	"github.com/stretchr/testify/require"
)

func TestGetActiveCampaignStates(t *testing.T) {
	eng, db := newTestEngine(t)

	draft := &models.Campaign{
		Title: "draft", Type: models.CampaignGacha, Status: models.CampaignStatusDraft,
		StartsAt: time.Now().Add(-time.Hour), EndsAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, db.Create(draft).Error)
	_, err := eng.Catalog.GetActiveCampaign(draft.ID)
	require.ErrorIs(t, err, ErrCampaignUnavailable)

	future := &models.Campaign{
		Title: "future", Type: models.CampaignGacha, Status: models.CampaignStatusActive,
		StartsAt: time.Now().Add(time.Hour), EndsAt: time.Now().Add(2 * time.Hour),
	}
	require.NoError(t, db.Create(future).Error)
	_, err = eng.Catalog.GetActiveCampaign(future.ID)
	require.ErrorIs(t, err, ErrCampaignUnavailable)

	_, err = eng.Catalog.GetActiveCampaign(99999)
	require.ErrorIs(t, err, ErrCampaignUnavailable)

	live := activeCampaign(t, db, models.CampaignGacha)
	got, err := eng.Catalog.GetActiveCampaign(live.ID)
	require.NoError(t, err)
	require.Equal(t, live.ID, got.ID)
}

func TestGetActiveCampaignAutoEndsExpired(t *testing.T) {
	eng, db := newTestEngine(t)

	expired := &models.Campaign{
		Title: "expired", Type: models.CampaignGacha, Status: models.CampaignStatusActive,
		StartsAt: time.Now().Add(-2 * time.Hour), EndsAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(expired).Error)

	_, err := eng.Catalog.GetActiveCampaign(expired.ID)
	require.ErrorIs(t, err, ErrCampaignUnavailable)

	var got models.Campaign
	require.NoError(t, db.First(&got, expired.ID).Error)
	require.Equal(t, models.CampaignStatusEnded, got.Status)
}

func TestDrawLimits(t *testing.T) {
	eng, db := newTestEngine(t)
	pk := SessionKey("limit-session")

	camp := activeCampaign(t, db, models.CampaignGacha)
	camp.DrawLimit = 2
	camp.DrawLimitWindow = models.LimitWindowDaily
	require.NoError(t, db.Save(camp).Error)

	require.NoError(t, eng.Catalog.CheckDrawLimit(camp, pk))
	remaining, err := eng.Catalog.DrawsRemaining(camp, pk)
	require.NoError(t, err)
	require.EqualValues(t, 2, remaining)

	for i := 0; i < 2; i++ {
		outcome := &models.DrawOutcome{
			CampaignID:      camp.ID,
			ParticipantKind: pk.Kind,
			ParticipantRef:  pk.Ref,
			IdempotencyKey:  "limit-" + string(rune('a'+i)),
			DrawnAt:         time.Now(),
		}
		require.NoError(t, db.Create(outcome).Error)
	}

	require.ErrorIs(t, eng.Catalog.CheckDrawLimit(camp, pk), ErrLimitExceeded)
	remaining, err = eng.Catalog.DrawsRemaining(camp, pk)
	require.NoError(t, err)
	require.EqualValues(t, 0, remaining)

	// A different participant is unaffected.
	require.NoError(t, eng.Catalog.CheckDrawLimit(camp, SessionKey("other-session")))
}

func TestDrawLimitUnlimited(t *testing.T) {
	eng, db := newTestEngine(t)
	camp := activeCampaign(t, db, models.CampaignGacha)

	remaining, err := eng.Catalog.DrawsRemaining(camp, SessionKey("s"))
	require.NoError(t, err)
	require.EqualValues(t, -1, remaining)
	require.NoError(t, eng.Catalog.CheckDrawLimit(camp, SessionKey("s")))
}
