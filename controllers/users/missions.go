package users

import (
	"net/http"
	"strconv"

	"github.com/sactech816/integration-app-sub010/utils"

	"github.com/gorilla/mux"
)

// GET /v1/missions
func (c *Controller) ListMissions(w http.ResponseWriter, r *http.Request) {
	pk, ok := c.participant(w, r)
	if !ok {
		return
	}
	states, err := c.Engine.Missions.States(pk)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Missions retrieved",
		Data:    states,
	})
}

// POST /v1/missions/{id}/claim
func (c *Controller) ClaimMission(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]
	missionID, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || missionID == 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid mission id"})
		return
	}
	pk, ok := c.participant(w, r)
	if !ok {
		return
	}

	result, cerr := c.Engine.Missions.Claim(pk, uint(missionID))
	if cerr != nil {
		respondEngineError(w, cerr)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Mission reward claimed",
		Data:    result,
	})
}
