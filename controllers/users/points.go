package users

import (
	"net/http"
	"strconv"

	"github.com/sactech816/integration-app-sub010/middleware"
	"github.com/sactech816/integration-app-sub010/models"
	"github.com/sactech816/integration-app-sub010/utils"
)

// GET /v1/points/balance
func (c *Controller) GetBalance(w http.ResponseWriter, r *http.Request) {
	pk, ok := c.participant(w, r)
	if !ok {
		return
	}
	balance, err := c.Engine.Ledger.Balance(pk)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Balance retrieved",
		Data:    map[string]interface{}{"balance": balance},
	})
}

// GET /v1/points/history?limit=50
func (c *Controller) GetHistory(w http.ResponseWriter, r *http.Request) {
	pk, ok := c.participant(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := c.Engine.Ledger.History(pk, limit)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "History retrieved",
		Data:    entries,
	})
}

type spendRequest struct {
	Amount int64 `json:"amount"`
}

// POST /v1/points/spend
func (c *Controller) Spend(w http.ResponseWriter, r *http.Request) {
	pk, ok := c.participant(w, r)
	if !ok {
		return
	}

	var req spendRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	entry, err := c.Engine.Ledger.Spend(pk, req.Amount, models.ReasonSpend)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	balance, err := c.Engine.Ledger.Balance(pk)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Points spent",
		Data: map[string]interface{}{
			"entry":   entry,
			"balance": balance,
		},
	})
}
