package users

import (
	"net/http"
	"os"
	"time"

	"github.com/sactech816/integration-app-sub010/middleware"
	"github.com/sactech816/integration-app-sub010/utils"
)

type mergeRequest struct {
	SessionToken string `json:"session_token" validate:"required"`
}

// POST /v1/session/merge
// Requires an authenticated account: pulls everything the guest session earned
// into the caller's account.
func (c *Controller) MergeSession(w http.ResponseWriter, r *http.Request) {
	accountID, ok := utils.GetUserID(r)
	if !ok || accountID == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	var req mergeRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	report, err := c.Engine.Identity.Merge(req.SessionToken, accountID)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	message := "Session merged"
	if report.AlreadyMerged {
		message = "Session was already merged"
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: message,
		Data:    report,
	})
}

// POST /v1/cron/session-sweep (protected via X-CRON-KEY header)
func (c *Controller) CronSessionSweepHandler(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("X-CRON-KEY")
	if key == "" || key != os.Getenv("CRON_KEY") {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	swept, err := c.Engine.Identity.SweepExpiredSessions(time.Now())
	if err != nil {
		respondEngineError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Cron executed",
		Data:    map[string]interface{}{"swept": swept},
	})
}
