package engine

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Engine bundles the reward components behind one constructor so controllers
// get a single dependency.
type Engine struct {
	Catalog    *Catalog
	Stock      *StockManager
	Ledger     *Ledger
	Draws      *DrawEngine
	Missions   *Evaluator
	Stamps     *StampBook
	Dispatcher *Dispatcher
	Identity   *Resolver
}

// New wires the components against one database handle. cache may be nil; the
// ledger then serves balances straight from storage.
func New(db *gorm.DB, log *logrus.Logger, cache *redis.Client) *Engine {
	catalog := NewCatalog(db)
	stock := NewStockManager(db)
	ledger := NewLedger(db, log, cache)
	draws := NewDrawEngine(db, log, catalog, stock, ledger)
	missions := NewEvaluator(db, log, ledger)
	stamps := NewStampBook(db, log, catalog, ledger)

	return &Engine{
		Catalog:    catalog,
		Stock:      stock,
		Ledger:     ledger,
		Draws:      draws,
		Missions:   missions,
		Stamps:     stamps,
		Dispatcher: NewDispatcher(db, log, missions, stamps, draws),
		Identity:   NewResolver(db, log, ledger),
	}
}
