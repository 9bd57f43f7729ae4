package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wastepoints/internal/auth"
	apperrors "wastepoints/internal/errors"
	"wastepoints/internal/model"
	"wastepoints/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{authService: authService, logger: logger}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required,max=255"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest represents a logout request. The refresh token is optional;
// the presented access token is always revoked.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UserView is the client-facing profile.
type UserView struct {
	UID    string `json:"uid"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Points int64  `json:"points"`
}

// AuthResponse represents an authentication response. Token duplicates
// AccessToken for clients that read the single-token field.
type AuthResponse struct {
	Message      string    `json:"message,omitempty"`
	AccessToken  string    `json:"access_token"`
	Token        string    `json:"token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	User         *UserView `json:"user,omitempty"`
}

// MeResponse wraps the caller's profile.
type MeResponse struct {
	User UserView `json:"user"`
}

func newUserView(u *model.User) *UserView {
	return &UserView{UID: u.UID, Email: u.Email, Name: u.Name, Points: u.Points}
}

func newAuthResponse(message string, s *service.Session) AuthResponse {
	return AuthResponse{
		Message:      message,
		AccessToken:  s.AccessToken,
		Token:        s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
		User:         newUserView(s.User),
	}
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, h.logger, bindError(err))
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, h.logger, validationError(err))
	}

	session, err := h.authService.Register(detach(c), req.Email, req.Password, req.Name)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, newAuthResponse("signup successful", session))
}

// Login godoc
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/signin [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, h.logger, bindError(err))
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, h.logger, validationError(err))
	}

	session, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, newAuthResponse("signin successful", session))
}

// Refresh godoc
// @Summary Refresh access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, h.logger, bindError(err))
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, h.logger, validationError(err))
	}

	accessToken, err := h.authService.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, AuthResponse{AccessToken: accessToken, Token: accessToken})
}

// Logout godoc
// @Summary Logout user
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body LogoutRequest false "Refresh token"
// @Success 200 {object} map[string]string
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return fail(c, h.logger, apperrors.Unauthenticated(apperrors.ReasonNoToken))
	}

	var req LogoutRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, h.logger, bindError(err))
	}

	if err := h.authService.Logout(detach(c), principal, req.RefreshToken); err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// Me godoc
// @Summary Get the signed-in user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MeResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return fail(c, h.logger, apperrors.Unauthenticated(apperrors.ReasonNoToken))
	}

	user, err := h.authService.Me(c.Request().Context(), principal)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, MeResponse{User: *newUserView(user)})
}
