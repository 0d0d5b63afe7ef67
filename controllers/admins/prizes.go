package admins

import (
	"errors"
	"net/http"

	"github.com/sactech816/integration-app-sub010/database"
	"github.com/sactech816/integration-app-sub010/middleware"
	"github.com/sactech816/integration-app-sub010/models"
	"github.com/sactech816/integration-app-sub010/utils"

	"gorm.io/gorm"
)

type topUpRequest struct {
	Units int `json:"units"`
}

// POST /v1/admin/prizes/{id}/topup
// Adds stock to a finite prize; topping up an unlimited prize is a no-op.
func (c *Controller) TopUpPrize(w http.ResponseWriter, r *http.Request) {
	prizeID, ok := idFromPath(r, "id")
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid prize id"})
		return
	}

	var req topUpRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	if err := c.Engine.Stock.TopUp(prizeID, req.Units); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Prize not found"})
			return
		}
		respondError(w, err)
		return
	}

	var prize models.Prize
	if err := database.DB.First(&prize, prizeID).Error; err != nil {
		respondError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Stock topped up",
		Data:    prize,
	})
}

// POST /v1/admin/prizes/{id}/refund
// Returns one reserved unit after a failed fulfillment, e.g. a won physical
// prize that could not be shipped. Refunding an unlimited prize is a no-op.
func (c *Controller) RefundPrize(w http.ResponseWriter, r *http.Request) {
	prizeID, ok := idFromPath(r, "id")
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid prize id"})
		return
	}

	if err := c.Engine.Stock.Refund(prizeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Prize not found"})
			return
		}
		respondError(w, err)
		return
	}

	var prize models.Prize
	if err := database.DB.First(&prize, prizeID).Error; err != nil {
		respondError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Unit returned to stock",
		Data:    prize,
	})
}
