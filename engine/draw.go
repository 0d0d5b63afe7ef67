package engine

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/sactech816/integration-app-sub010/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DrawEngine executes weighted-random prize selection. Outcome persistence and
// the stock decrement that produced it commit as one transaction; a rollback
// restores the reserved unit, so stock is never under-reported.
type DrawEngine struct {
	db      *gorm.DB
	log     *logrus.Logger
	catalog *Catalog
	stock   *StockManager
	ledger  *Ledger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewDrawEngine(db *gorm.DB, log *logrus.Logger, catalog *Catalog, stock *StockManager, ledger *Ledger) *DrawEngine {
	return &DrawEngine{
		db:      db,
		log:     log,
		catalog: catalog,
		stock:   stock,
		ledger:  ledger,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed replaces the random source. Draws become reproducible for a fixed seed
// because prizes are always walked in ascending id order.
func (d *DrawEngine) Seed(seed int64) {
	d.mu.Lock()
	d.rng = rand.New(rand.NewSource(seed))
	d.mu.Unlock()
}

func (d *DrawEngine) intn(n int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Intn(n)
}

// Draw runs one draw for the participant. An empty idempotency key gets an
// engine-generated one; a key that was already used replays the stored outcome
// without touching stock.
func (d *DrawEngine) Draw(campaignID uint, pk ParticipantKey, idempotencyKey string) (*models.DrawOutcome, error) {
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	// Retry replay: same key returns the original outcome.
	var prior models.DrawOutcome
	if err := d.db.Where("idempotency_key = ?", idempotencyKey).First(&prior).Error; err == nil {
		return &prior, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	camp, err := d.catalog.GetActiveCampaign(campaignID)
	if err != nil {
		return nil, err
	}
	if err := d.catalog.CheckDrawLimit(camp, pk); err != nil {
		return nil, err
	}
	prizes, err := d.catalog.GetPrizeTable(campaignID)
	if err != nil {
		return nil, err
	}

	var outcome *models.DrawOutcome
	err = d.db.Transaction(func(tx *gorm.DB) error {
		// Weighted pool: zero-weight prizes exist but are never selectable,
		// depleted finite-stock prizes are excluded.
		pool := make([]models.Prize, 0, len(prizes))
		for _, p := range prizes {
			if p.Weight > 0 && !p.Depleted() {
				pool = append(pool, p)
			}
		}

		for {
			totalWeight := 0
			for _, p := range pool {
				totalWeight += p.Weight
			}
			if totalWeight <= 0 {
				// No prizes configured (or every candidate lost its last unit
				// to a concurrent draw): a valid non-winning outcome, not an
				// error.
				outcome = d.newOutcome(camp.ID, pk, nil, false, idempotencyKey)
				return tx.Create(outcome).Error
			}

			// Walk prizes in ascending id order accumulating weights until the
			// running sum exceeds the drawn value.
			pick := d.intn(totalWeight)
			var candidate models.Prize
			acc := 0
			for _, p := range pool {
				acc += p.Weight
				if pick < acc {
					candidate = p
					break
				}
			}

			rerr := d.stock.Reserve(tx, candidate.ID)
			if errors.Is(rerr, ErrDepleted) {
				// Lost the race for the last unit: drop the prize and re-roll
				// against the remaining pool instead of failing the draw.
				next := pool[:0]
				for _, p := range pool {
					if p.ID != candidate.ID {
						next = append(next, p)
					}
				}
				pool = next
				continue
			}
			if rerr != nil {
				return rerr
			}

			prizeID := candidate.ID
			outcome = d.newOutcome(camp.ID, pk, &prizeID, candidate.IsWinning, idempotencyKey)
			if err := tx.Create(outcome).Error; err != nil {
				return err
			}
			if candidate.IsWinning && candidate.Points > 0 {
				if _, err := d.ledger.GrantTx(tx, pk, candidate.Points, models.ReasonDrawReward, "draw:"+idempotencyKey); err != nil {
					return err
				}
			}
			return nil
		}
	})
	if err != nil {
		if isDuplicateKey(err) {
			// A concurrent request with the same key won the race; its outcome
			// is the one both callers see.
			if ferr := d.db.Where("idempotency_key = ?", idempotencyKey).First(&prior).Error; ferr == nil {
				return &prior, nil
			}
		}
		return nil, err
	}

	d.ledger.invalidate(pk)
	d.log.WithFields(logrus.Fields{
		"campaign_id": camp.ID,
		"participant": pk.String(),
		"is_winning":  outcome.IsWinning,
	}).Info("draw executed")
	return outcome, nil
}

func (d *DrawEngine) newOutcome(campaignID uint, pk ParticipantKey, prizeID *uint, winning bool, key string) *models.DrawOutcome {
	return &models.DrawOutcome{
		CampaignID:      campaignID,
		ParticipantKind: pk.Kind,
		ParticipantRef:  pk.Ref,
		PrizeID:         prizeID,
		IsWinning:       winning,
		IdempotencyKey:  key,
		DrawnAt:         time.Now(),
	}
}
