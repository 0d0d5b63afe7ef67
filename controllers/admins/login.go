package admins

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sactech816/integration-app-sub010/middleware"
	"github.com/sactech816/integration-app-sub010/models"
	"github.com/sactech816/integration-app-sub010/utils"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{
			Success: false,
			Message: "Invalid JSON body",
		})
		return
	}

	op, err := models.GetOperatorByUsername(req.Username)
	if err != nil {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{
			Success: false,
			Message: "Invalid username or password",
		})
		return
	}

	if locked, retry := middleware.IsAccountLocked(op.ID); locked {
		utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{
			Success: false,
			Message: fmt.Sprintf("Account locked, try again in %d seconds", int(retry.Seconds())),
		})
		return
	}

	if !op.ValidatePassword(req.Password) {
		middleware.RecordFailedLogin(op.ID)
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{
			Success: false,
			Message: "Invalid username or password",
		})
		return
	}
	middleware.ResetFailedLogin(op.ID)

	token, err := utils.GenerateJWT(op.ID, op.Username, "admin")
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{
			Success: false,
			Message: "Failed to generate token",
		})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Logged in",
		Data: map[string]interface{}{
			"token":    token,
			"operator": op,
		},
	})
}
