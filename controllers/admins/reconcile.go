package admins

import (
	"net/http"

	"github.com/sactech816/integration-app-sub010/engine"
	"github.com/sactech816/integration-app-sub010/middleware"
	"github.com/sactech816/integration-app-sub010/models"
	"github.com/sactech816/integration-app-sub010/utils"
)

// POST /v1/admin/reconcile/balances
// Rebuilds every balance counter from the ledger; the log always wins.
func (c *Controller) ReconcileBalances(w http.ResponseWriter, r *http.Request) {
	participants, err := c.Engine.Ledger.RebuildBalances()
	if err != nil {
		respondError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Balances rebuilt from ledger",
		Data:    map[string]interface{}{"participants": participants},
	})
}

type adjustRequest struct {
	ParticipantKind string `json:"participant_kind" validate:"required"`
	ParticipantRef  string `json:"participant_ref" validate:"required"`
	Amount          int64  `json:"amount"`
	SourceEventID   string `json:"source_event_id"`
}

// POST /v1/admin/points/adjust
// Manual grant with an optional source id; passing the same source id twice
// applies the adjustment once.
func (c *Controller) AdjustPoints(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	if req.ParticipantKind != models.ParticipantAccount && req.ParticipantKind != models.ParticipantSession {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Unknown participant kind"})
		return
	}

	pk := engine.ParticipantKey{Kind: req.ParticipantKind, Ref: req.ParticipantRef}
	entry, err := c.Engine.Ledger.Grant(pk, req.Amount, models.ReasonAdjustment, req.SourceEventID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Adjustment applied",
		Data:    entry,
	})
}
