package admins

import (
	"errors"
	"log"
	"net/http"

	"github.com/sactech816/integration-app-sub010/engine"
	"github.com/sactech816/integration-app-sub010/utils"

	"gorm.io/gorm"
)

// Controller serves the backoffice endpoints: campaign and mission management,
// stock top-ups and ledger reconciliation.
type Controller struct {
	Engine *engine.Engine
}

func NewController(e *engine.Engine) *Controller {
	return &Controller{Engine: e}
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, engine.ErrCampaignUnavailable),
		errors.Is(err, engine.ErrMissionUnavailable):
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Not found"})
	case errors.Is(err, engine.ErrInvalidAmount):
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: err.Error()})
	default:
		log.Println(err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong, please try again"})
	}
}
