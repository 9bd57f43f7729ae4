package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"wastepoints/internal/logging"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service liveness and the active store.
type HealthHandler struct {
	store     Pinger
	storeName string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store Pinger, storeName string) *HealthHandler {
	return &HealthHandler{store: store, storeName: storeName}
}

// HealthResponse is the health payload.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Store   string `json:"store"`
}

// Health godoc
// @Summary Service health
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{OK: true, Service: logging.ServiceName, Store: h.storeName}
	if err := h.store.Ping(ctx); err != nil {
		resp.OK = false
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}
