package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"wastepoints/internal/model"
	"wastepoints/internal/service"
)

// RewardHandler serves the rewards catalog.
type RewardHandler struct {
	ledger service.LedgerService
}

// NewRewardHandler creates a new reward handler.
func NewRewardHandler(ledger service.LedgerService) *RewardHandler {
	return &RewardHandler{ledger: ledger}
}

// RewardsResponse lists the redeemable rewards.
type RewardsResponse struct {
	Rewards []model.Reward `json:"rewards"`
}

// ListRewards godoc
// @Summary List redeemable rewards
// @Tags rewards
// @Produce json
// @Success 200 {object} RewardsResponse
// @Router /rewards [get]
func (h *RewardHandler) ListRewards(c echo.Context) error {
	return c.JSON(http.StatusOK, RewardsResponse{Rewards: h.ledger.Rewards()})
}
