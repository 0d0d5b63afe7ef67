package users

import (
	"errors"
	"log"
	"net/http"

	"github.com/sactech816/integration-app-sub010/engine"
	"github.com/sactech816/integration-app-sub010/middleware"
	"github.com/sactech816/integration-app-sub010/utils"
)

// Controller serves the participant-facing endpoints. Every handler reads the
// participant key resolved by middleware.ParticipantMiddleware.
type Controller struct {
	Engine *engine.Engine
}

func NewController(e *engine.Engine) *Controller {
	return &Controller{Engine: e}
}

func (c *Controller) participant(w http.ResponseWriter, r *http.Request) (engine.ParticipantKey, bool) {
	pk, ok := middleware.GetParticipant(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return engine.ParticipantKey{}, false
	}
	return pk, true
}

// respondEngineError maps engine sentinels to HTTP statuses; anything else is
// a storage failure and returns a generic 500.
func respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrCampaignUnavailable),
		errors.Is(err, engine.ErrMissionUnavailable),
		errors.Is(err, engine.ErrSessionNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: err.Error()})
	case errors.Is(err, engine.ErrLimitExceeded):
		utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{Success: false, Message: err.Error()})
	case errors.Is(err, engine.ErrDepleted),
		errors.Is(err, engine.ErrMissionNotCompleted),
		errors.Is(err, engine.ErrSessionMerged):
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: err.Error()})
	case errors.Is(err, engine.ErrInsufficientBalance),
		errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, engine.ErrInvalidEvent):
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: err.Error()})
	default:
		log.Println(err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Something went wrong, please try again"})
	}
}
