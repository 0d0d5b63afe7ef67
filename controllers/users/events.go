package users

import (
	"encoding/json"
	"net/http"

	"github.com/sactech816/integration-app-sub010/middleware"
	"github.com/sactech816/integration-app-sub010/utils"
)

type eventRequest struct {
	EventName string          `json:"event_name" validate:"required,eventname"`
	Payload   json.RawMessage `json:"payload"`
}

// POST /v1/events
// Reports one behavioral event; the dispatcher fans it out to missions, stamp
// rallies and login bonuses. An event nothing listens for still returns 200.
func (c *Controller) PostEvent(w http.ResponseWriter, r *http.Request) {
	pk, ok := c.participant(w, r)
	if !ok {
		return
	}

	var req eventRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	result, err := c.Engine.Dispatcher.Dispatch(pk, req.EventName, req.Payload)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Event processed",
		Data:    result,
	})
}
