package admins

import (
	"net/http"

	"github.com/sactech816/integration-app-sub010/database"
	"github.com/sactech816/integration-app-sub010/middleware"
	"github.com/sactech816/integration-app-sub010/models"
	"github.com/sactech816/integration-app-sub010/utils"
)

type createMissionRequest struct {
	Name          string `json:"name" validate:"required"`
	TriggerEvent  string `json:"trigger_event" validate:"required,eventname"`
	Threshold     int    `json:"threshold"`
	RewardPoints  int64  `json:"reward_points"`
	Period        string `json:"period"`
	RequiresClaim bool   `json:"requires_claim"`
}

// POST /v1/admin/missions
func (c *Controller) CreateMission(w http.ResponseWriter, r *http.Request) {
	var req createMissionRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	if req.Threshold <= 0 {
		req.Threshold = 1
	}
	period := req.Period
	if period == "" {
		period = models.MissionPeriodNone
	}
	if period != models.MissionPeriodNone && period != models.MissionPeriodDaily {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Unknown mission period"})
		return
	}
	if req.RewardPoints < 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "reward_points must not be negative"})
		return
	}

	mission := models.Mission{
		Name:          req.Name,
		TriggerEvent:  req.TriggerEvent,
		Threshold:     req.Threshold,
		RewardPoints:  req.RewardPoints,
		Period:        period,
		RequiresClaim: req.RequiresClaim,
		Status:        "Active",
	}
	if err := database.DB.Create(&mission).Error; err != nil {
		respondError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Mission created",
		Data:    mission,
	})
}

// GET /v1/admin/missions
func (c *Controller) ListMissions(w http.ResponseWriter, r *http.Request) {
	var missions []models.Mission
	if err := database.DB.Order("id ASC").Find(&missions).Error; err != nil {
		respondError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Missions retrieved",
		Data:    missions,
	})
}

type missionStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// PUT /v1/admin/missions/{id}/status
func (c *Controller) SetMissionStatus(w http.ResponseWriter, r *http.Request) {
	missionID, ok := idFromPath(r, "id")
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid mission id"})
		return
	}

	var req missionStatusRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	if req.Status != "Active" && req.Status != "Inactive" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Status must be Active or Inactive"})
		return
	}

	res := database.DB.Model(&models.Mission{}).
		Where("id = ?", missionID).
		UpdateColumn("status", req.Status)
	if res.Error != nil {
		respondError(w, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Mission not found"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Mission status updated",
	})
}
