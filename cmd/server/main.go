package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wastepoints/docs" // swagger docs
	"wastepoints/internal/auth"
	"wastepoints/internal/cache"
	"wastepoints/internal/config"
	"wastepoints/internal/db"
	"wastepoints/internal/handler"
	"wastepoints/internal/logging"
	"wastepoints/internal/metrics"
	"wastepoints/internal/router"
	"wastepoints/internal/service"
)

// @title Waste Management Rewards API
// @version 1.0
// @description Recycling rewards ledger: award points for recycled devices and redeem them for rewards.
// @host localhost:3001
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.AppEnv, cfg.IsDevelopment())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	store, err := db.OpenStore(openCtx, cfg, logger)
	cancel()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer func() { _ = cacheClient.Close() }()
	if cacheClient.Enabled() {
		if err := cacheClient.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, token revocation degraded", zap.Error(err))
		}
	} else {
		logger.Warn("REDIS_ADDR not set, refresh tokens are not tracked")
	}

	registry := metrics.NewRegistry()
	ledgerMetrics := metrics.New(registry)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	tokenStore := auth.NewTokenStore(cacheClient)
	resolver := auth.NewResolver(jwtService, tokenStore, store.Users, cfg.StorageTimeout)

	// Initialize services
	ledger := service.NewLedgerService(store.Users, logger.Named("ledger"),
		service.WithStorageTimeout(cfg.StorageTimeout),
		service.WithMetrics(ledgerMetrics),
	)
	authService := service.NewAuthService(store.Users, jwtService, tokenStore, logger.Named("auth"))

	e := echo.New()
	router.Register(e, cfg, router.Dependencies{
		Logger:   logger,
		Resolver: resolver,
		Metrics:  ledgerMetrics,
		Registry: registry,
	}, router.Handlers{
		Auth:    handler.NewAuthHandler(authService, logger),
		Users:   handler.NewUserHandler(ledger, logger),
		Rewards: handler.NewRewardHandler(ledger),
		Health:  handler.NewHealthHandler(store.Users, store.Driver),
	})

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
	}
	logger.Info("swagger documentation available", zap.String("url", swaggerURL(cfg)))

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.ServerPort
		logger.Info("server listening", zap.String("addr", addr), zap.String("store", store.Driver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
