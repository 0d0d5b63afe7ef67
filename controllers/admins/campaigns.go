package admins

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sactech816/integration-app-sub010/database"
	"github.com/sactech816/integration-app-sub010/middleware"
	"github.com/sactech816/integration-app-sub010/models"
	"github.com/sactech816/integration-app-sub010/utils"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type prizeInput struct {
	Name      string `json:"name" validate:"required"`
	Weight    int    `json:"weight"`
	IsWinning bool   `json:"is_winning"`
	Points    int64  `json:"points"`
	Stock     *int   `json:"stock"` // null = unlimited
}

type stampInput struct {
	StampCode    string `json:"stamp_code" validate:"required,codeok"`
	TriggerEvent string `json:"trigger_event" validate:"required,eventname"`
	Required     bool   `json:"required"`
}

type createCampaignRequest struct {
	Title            string       `json:"title" validate:"required"`
	Type             string       `json:"type" validate:"required"`
	Status           string       `json:"status"`
	StartsAt         time.Time    `json:"starts_at"`
	EndsAt           time.Time    `json:"ends_at"`
	DrawLimit        int          `json:"draw_limit"`
	DrawLimitWindow  string       `json:"draw_limit_window"`
	CompletionPoints int64        `json:"completion_points"`
	Prizes           []prizeInput `json:"prizes"`
	Stamps           []stampInput `json:"stamps"`
}

// POST /v1/admin/campaigns
func (c *Controller) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	switch req.Type {
	case models.CampaignGacha, models.CampaignScratch, models.CampaignSlot,
		models.CampaignLuckyDraw, models.CampaignStampRally,
		models.CampaignLoginBonus, models.CampaignPointQuiz:
	default:
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Unknown campaign type"})
		return
	}
	if !req.EndsAt.After(req.StartsAt) {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "ends_at must be after starts_at"})
		return
	}
	for _, p := range req.Prizes {
		if p.Weight < 0 || (p.Stock != nil && *p.Stock < 0) {
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Prize weight and stock must not be negative"})
			return
		}
	}

	status := req.Status
	if status == "" {
		status = models.CampaignStatusDraft
	}
	window := req.DrawLimitWindow
	if window == "" {
		window = models.LimitWindowNone
	}
	switch window {
	case models.LimitWindowNone, models.LimitWindowDaily, models.LimitWindowTotal:
	default:
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Unknown draw limit window"})
		return
	}
	if req.DrawLimit < 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "draw_limit must not be negative"})
		return
	}
	// A limit with no window would never be enforced; count it over the
	// campaign lifetime instead.
	if req.DrawLimit > 0 && window == models.LimitWindowNone {
		window = models.LimitWindowTotal
	}

	camp := models.Campaign{
		Title:            req.Title,
		Type:             req.Type,
		Status:           status,
		StartsAt:         req.StartsAt,
		EndsAt:           req.EndsAt,
		DrawLimit:        req.DrawLimit,
		DrawLimitWindow:  window,
		CompletionPoints: req.CompletionPoints,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&camp).Error; err != nil {
			return err
		}
		for _, p := range req.Prizes {
			prize := models.Prize{
				CampaignID: camp.ID,
				Name:       p.Name,
				Weight:     p.Weight,
				IsWinning:  p.IsWinning,
				Points:     p.Points,
				Stock:      p.Stock,
			}
			if err := tx.Create(&prize).Error; err != nil {
				return err
			}
		}
		for _, s := range req.Stamps {
			stamp := models.CampaignStamp{
				CampaignID:   camp.ID,
				StampCode:    s.StampCode,
				TriggerEvent: s.TriggerEvent,
				Required:     s.Required,
			}
			if err := tx.Create(&stamp).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		respondError(w, err)
		return
	}

	var created models.Campaign
	if err := database.DB.Preload("Prizes").First(&created, camp.ID).Error; err != nil {
		respondError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Campaign created",
		Data:    created,
	})
}

// POST /v1/admin/campaigns/{id}/end
func (c *Controller) EndCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := idFromPath(r, "id")
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid campaign id"})
		return
	}

	res := database.DB.Model(&models.Campaign{}).
		Where("id = ? AND status <> ?", campaignID, models.CampaignStatusEnded).
		UpdateColumn("status", models.CampaignStatusEnded)
	if res.Error != nil {
		respondError(w, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		var camp models.Campaign
		if err := database.DB.First(&camp, campaignID).Error; err != nil {
			respondError(w, err)
			return
		}
		// already ended; treat as success so the operation is idempotent
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Campaign ended",
	})
}

// GET /v1/admin/campaigns/{id}/stats
func (c *Controller) CampaignStats(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := idFromPath(r, "id")
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid campaign id"})
		return
	}

	var camp models.Campaign
	if err := database.DB.Preload("Prizes").First(&camp, campaignID).Error; err != nil {
		respondError(w, err)
		return
	}

	db := database.DB
	var totalDraws, wins, participants int64
	if err := db.Model(&models.DrawOutcome{}).Where("campaign_id = ?", campaignID).Count(&totalDraws).Error; err != nil {
		respondError(w, err)
		return
	}
	if err := db.Model(&models.DrawOutcome{}).Where("campaign_id = ? AND is_winning = ?", campaignID, true).Count(&wins).Error; err != nil {
		respondError(w, err)
		return
	}
	if err := db.Model(&models.DrawOutcome{}).Where("campaign_id = ?", campaignID).
		Distinct("participant_kind, participant_ref").Count(&participants).Error; err != nil {
		respondError(w, err)
		return
	}

	winRate := float64(0)
	if totalDraws > 0 {
		winRate = float64(wins) / float64(totalDraws) * 100
	}

	type prizeStat struct {
		PrizeID   uint   `json:"prize_id"`
		Name      string `json:"name"`
		Awarded   int64  `json:"awarded"`
		Remaining *int   `json:"remaining,omitempty"`
	}
	stats := make([]prizeStat, 0, len(camp.Prizes))
	for _, p := range camp.Prizes {
		var awarded int64
		if err := db.Model(&models.DrawOutcome{}).Where("prize_id = ?", p.ID).Count(&awarded).Error; err != nil {
			respondError(w, err)
			return
		}
		stats = append(stats, prizeStat{PrizeID: p.ID, Name: p.Name, Awarded: awarded, Remaining: p.Stock})
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Campaign stats retrieved",
		Data: map[string]interface{}{
			"campaign_id":  camp.ID,
			"status":       camp.Status,
			"total_draws":  totalDraws,
			"wins":         wins,
			"participants": participants,
			"win_rate":     utils.RoundFloat(winRate, 2),
			"prizes":       stats,
		},
	})
}

func idFromPath(r *http.Request, key string) (uint, bool) {
	idStr := mux.Vars(r)[key]
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
