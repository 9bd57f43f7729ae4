package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wastepoints/internal/auth"
	apperrors "wastepoints/internal/errors"
	"wastepoints/internal/model"
	"wastepoints/internal/service"
)

// UserHandler exposes balances and the award and redeem operations.
type UserHandler struct {
	ledger service.LedgerService
	logger *zap.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(ledger service.LedgerService, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{ledger: ledger, logger: logger}
}

// AwardRequest represents an award request.
type AwardRequest struct {
	Amount Quantity `json:"amount" swaggertype:"number"`
	Reason string   `json:"reason" validate:"omitempty,max=100"`
	Serial string   `json:"serial" validate:"omitempty,serial"`
}

// RedeemRequest represents a redeem request. Either cost or reward_id is required.
type RedeemRequest struct {
	Cost     Quantity `json:"cost" swaggertype:"number"`
	Name     string   `json:"name" validate:"omitempty,max=255"`
	RewardID int      `json:"reward_id" validate:"omitempty,min=1"`
}

// HistoryResponse is a user's audit log.
type HistoryResponse struct {
	UID  string              `json:"uid"`
	Logs []model.LedgerEntry `json:"logs"`
}

// GetUser godoc
// @Summary Get a user's balance
// @Tags users
// @Produce json
// @Param uid path string true "User uid"
// @Success 200 {object} service.AccountSummary
// @Failure 404 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /users/{uid} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	summary, err := h.ledger.FetchBalance(c.Request().Context(), c.Param("uid"))
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// Award godoc
// @Summary Award points to the caller's account
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uid path string true "User uid"
// @Param request body AwardRequest true "Award data"
// @Success 200 {object} service.Balance
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /users/{uid}/award [post]
func (h *UserHandler) Award(c echo.Context) error {
	return h.award(c, c.Param("uid"))
}

// AwardSelf godoc
// @Summary Award points to the signed-in user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AwardRequest true "Award data"
// @Success 200 {object} service.Balance
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /users/award [post]
func (h *UserHandler) AwardSelf(c echo.Context) error {
	principal, _ := auth.PrincipalFrom(c)
	return h.award(c, principal.UID())
}

func (h *UserHandler) award(c echo.Context, uid string) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return fail(c, h.logger, apperrors.Unauthenticated(apperrors.ReasonNoToken))
	}

	var req AwardRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, h.logger, bindError(err))
	}
	req.Serial = strings.TrimSpace(req.Serial)
	if err := c.Validate(&req); err != nil {
		return fail(c, h.logger, validationError(err))
	}

	balance, err := h.ledger.Award(detach(c), principal, service.AwardCommand{
		UID:    uid,
		Amount: req.Amount.Float64(),
		Reason: req.Reason,
		Serial: req.Serial,
	})
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, balance)
}

// Redeem godoc
// @Summary Redeem points from the caller's account
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uid path string true "User uid"
// @Param request body RedeemRequest true "Redeem data"
// @Success 200 {object} service.Balance
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /users/{uid}/redeem [post]
func (h *UserHandler) Redeem(c echo.Context) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return fail(c, h.logger, apperrors.Unauthenticated(apperrors.ReasonNoToken))
	}

	var req RedeemRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, h.logger, bindError(err))
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, h.logger, validationError(err))
	}

	balance, err := h.ledger.Redeem(detach(c), principal, service.RedeemCommand{
		UID:        c.Param("uid"),
		Cost:       req.Cost.Float64(),
		RewardName: req.Name,
		RewardID:   req.RewardID,
	})
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, balance)
}

// History godoc
// @Summary Get the caller's ledger entries in insertion order
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param uid path string true "User uid"
// @Success 200 {object} HistoryResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{uid}/logs [get]
func (h *UserHandler) History(c echo.Context) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return fail(c, h.logger, apperrors.Unauthenticated(apperrors.ReasonNoToken))
	}

	uid := c.Param("uid")
	entries, err := h.ledger.History(c.Request().Context(), principal, uid)
	if err != nil {
		return fail(c, h.logger, err)
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}
	return c.JSON(http.StatusOK, HistoryResponse{UID: uid, Logs: entries})
}

// detach keeps request values but drops cancellation, so a client that hangs
// up mid-request cannot abort a commit.
func detach(c echo.Context) context.Context {
	return context.WithoutCancel(c.Request().Context())
}
