package router

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"wastepoints/internal/auth"
	"wastepoints/internal/config"
	"wastepoints/internal/handler"
	"wastepoints/internal/logging"
	"wastepoints/internal/metrics"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Auth    *handler.AuthHandler
	Users   *handler.UserHandler
	Rewards *handler.RewardHandler
	Health  *handler.HealthHandler
}

// Dependencies are the shared components middleware needs.
type Dependencies struct {
	Logger   *zap.Logger
	Resolver *auth.Resolver
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, deps Dependencies, h Handlers) {
	e.HideBanner = true
	e.Validator = handler.NewValidator()

	e.Use(middleware.RequestID())
	e.Use(logging.RequestLogger(deps.Logger))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("64K"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.CORSOrigin},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(deps.Metrics.Middleware())

	e.GET("/swagger/*", echoSwagger.WrapHandler)
	if deps.Registry != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(deps.Registry)))
	}

	api := e.Group("/api")
	requireAuth := auth.Middleware(deps.Resolver)

	api.GET("/health", h.Health.Health)
	api.GET("/rewards", h.Rewards.ListRewards)

	// Public auth routes; register/login are aliases kept for older clients
	api.POST("/auth/signup", h.Auth.Register)
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/signin", h.Auth.Login)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)
	api.POST("/auth/logout", h.Auth.Logout, requireAuth)
	api.GET("/auth/me", h.Auth.Me, requireAuth)

	users := api.Group("/users")
	users.GET("/:uid", h.Users.GetUser)

	// Secured routes (require a resolvable bearer token)
	users.POST("/award", h.Users.AwardSelf, requireAuth)
	users.POST("/:uid/award", h.Users.Award, requireAuth)
	users.POST("/:uid/redeem", h.Users.Redeem, requireAuth)
	users.GET("/:uid/logs", h.Users.History, requireAuth)
}
