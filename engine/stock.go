package engine

import (
	"errors"

	"github.com/sactech816/integration-app-sub010/models"

	"gorm.io/gorm"
)

// StockManager owns the stock counter on each prize row. Reserve is the only
// writer of decrements; top-ups are the only writer of increments.
type StockManager struct {
	db *gorm.DB
}

func NewStockManager(db *gorm.DB) *StockManager {
	return &StockManager{db: db}
}

// Reserve claims one unit of the prize inside tx. The decrement is a single
// conditional UPDATE (stock > 0 in the WHERE clause), so two concurrent draws
// racing for the last unit cannot both succeed. Unlimited prizes (stock NULL)
// always reserve. Returns ErrDepleted when no unit is left.
func (s *StockManager) Reserve(tx *gorm.DB, prizeID uint) error {
	if tx == nil {
		tx = s.db
	}

	var prize models.Prize
	if err := tx.Select("id, stock").First(&prize, prizeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDepleted
		}
		return err
	}
	if prize.Stock == nil {
		return nil
	}

	res := tx.Model(&models.Prize{}).
		Where("id = ? AND stock > 0", prizeID).
		UpdateColumn("stock", gorm.Expr("stock - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDepleted
	}
	return nil
}

// Refund returns one reserved unit. Draws roll reservations back with their
// transaction; Refund covers compensation outside a transaction, e.g. when a
// won physical prize cannot be fulfilled. No-op for unlimited prizes.
func (s *StockManager) Refund(prizeID uint) error {
	var prize models.Prize
	if err := s.db.Select("id, stock").First(&prize, prizeID).Error; err != nil {
		return err
	}
	if prize.Stock == nil {
		return nil
	}
	return s.db.Model(&models.Prize{}).
		Where("id = ?", prizeID).
		UpdateColumn("stock", gorm.Expr("stock + 1")).Error
}

// TopUp adds units to a finite-stock prize. This is the only way a depleted
// prize re-enters the weighted pool. Topping up an unlimited prize is a no-op.
func (s *StockManager) TopUp(prizeID uint, units int) error {
	if units <= 0 {
		return ErrInvalidAmount
	}
	var prize models.Prize
	if err := s.db.Select("id, stock").First(&prize, prizeID).Error; err != nil {
		return err
	}
	if prize.Stock == nil {
		return nil
	}
	return s.db.Model(&models.Prize{}).
		Where("id = ?", prizeID).
		UpdateColumn("stock", gorm.Expr("stock + ?", units)).Error
}
