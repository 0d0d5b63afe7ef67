package users

import (
	"net/http"
	"strconv"

	"github.com/sactech816/integration-app-sub010/utils"

	"github.com/gorilla/mux"
)

func campaignIDFromPath(r *http.Request) (uint, bool) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// GET /v1/campaigns/{id}
func (c *Controller) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := campaignIDFromPath(r)
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid campaign id"})
		return
	}
	pk, ok := c.participant(w, r)
	if !ok {
		return
	}

	camp, err := c.Engine.Catalog.GetActiveCampaign(campaignID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	prizes, err := c.Engine.Catalog.GetPrizeTable(campaignID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	remaining, err := c.Engine.Catalog.DrawsRemaining(camp, pk)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	// Chances are computed from the configured weights; a depleted prize shows
	// its configured chance but is skipped at draw time.
	type PrizeResponse struct {
		ID        uint    `json:"id"`
		Name      string  `json:"name"`
		IsWinning bool    `json:"is_winning"`
		Points    int64   `json:"points"`
		Chance    float64 `json:"chance"`
		Stock     *int    `json:"stock,omitempty"`
	}
	totalWeight := 0
	for _, p := range prizes {
		if p.Weight > 0 {
			totalWeight += p.Weight
		}
	}
	response := make([]PrizeResponse, 0, len(prizes))
	for _, p := range prizes {
		chance := float64(0)
		if totalWeight > 0 && p.Weight > 0 {
			chance = float64(p.Weight) / float64(totalWeight) * 100
		}
		response = append(response, PrizeResponse{
			ID:        p.ID,
			Name:      p.Name,
			IsWinning: p.IsWinning,
			Points:    p.Points,
			Chance:    utils.RoundFloat(chance, 2),
			Stock:     p.Stock,
		})
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Campaign retrieved",
		Data: map[string]interface{}{
			"campaign":        camp,
			"prizes":          response,
			"draws_remaining": remaining,
		},
	})
}

// GET /v1/campaigns/{id}/stamps
func (c *Controller) GetStampProgress(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := campaignIDFromPath(r)
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid campaign id"})
		return
	}
	pk, ok := c.participant(w, r)
	if !ok {
		return
	}

	progress, err := c.Engine.Stamps.Progress(campaignID, pk)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Stamp progress retrieved",
		Data:    progress,
	})
}
