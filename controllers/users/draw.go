package users

import (
	"net/http"

	"github.com/sactech816/integration-app-sub010/utils"
)

// POST /v1/campaigns/{id}/draw
// The idempotency key comes from the X-Idempotency-Key header; clients that
// retry a timed-out draw with the same key get the original outcome back.
func (c *Controller) Draw(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := campaignIDFromPath(r)
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid campaign id"})
		return
	}
	pk, ok := c.participant(w, r)
	if !ok {
		return
	}

	outcome, err := c.Engine.Draws.Draw(campaignID, pk, r.Header.Get("X-Idempotency-Key"))
	if err != nil {
		respondEngineError(w, err)
		return
	}

	message := "Better luck next time"
	if outcome.IsWinning {
		message = "Congratulations, you won a prize!"
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: message,
		Data:    outcome,
	})
}
