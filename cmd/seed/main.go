package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"wastepoints/internal/auth"
	"wastepoints/internal/cache"
	"wastepoints/internal/config"
	"wastepoints/internal/db"
	apperrors "wastepoints/internal/errors"
	"wastepoints/internal/logging"
	"wastepoints/internal/service"
)

//go:embed users.json
var defaultUsers []byte

// SeedUser is one demo registrant.
type SeedUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Points   int64  `json:"points"`
	Serial   string `json:"serial,omitempty"`
}

func main() {
	file := flag.String("file", "", "JSON file of users to seed (defaults to the bundled demo users)")
	flag.Parse()

	if err := run(*file); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run(file string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.AppEnv, cfg.IsDevelopment())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	users, err := loadUsers(file)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := db.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	if store.Driver == config.StoreMemory {
		logger.Warn("seeding the volatile store; data is lost when this process exits")
	}

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := service.NewAuthService(store.Users, jwtService, auth.NewTokenStore(cache.New("", "", 0)), logger)
	ledger := service.NewLedgerService(store.Users, logger, service.WithStorageTimeout(cfg.StorageTimeout))

	created, skipped, err := seed(ctx, authService, ledger, users, logger)
	if err != nil {
		return err
	}
	logger.Info("seed completed", zap.Int("created", created), zap.Int("skipped", skipped))
	return nil
}

func loadUsers(file string) ([]SeedUser, error) {
	data := defaultUsers
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open seed file: %w", err)
		}
		defer f.Close()
		if data, err = io.ReadAll(f); err != nil {
			return nil, fmt.Errorf("read seed file: %w", err)
		}
	}

	var users []SeedUser
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("decode seed users: %w", err)
	}
	return users, nil
}

// seed registers each user and awards their opening balance through the
// ledger, so the audit log replays to the seeded balance.
func seed(ctx context.Context, authService service.AuthService, ledger service.LedgerService, users []SeedUser, logger *zap.Logger) (created, skipped int, err error) {
	for _, u := range users {
		session, err := authService.Register(ctx, u.Email, u.Password, u.Name)
		if err != nil {
			if errors.Is(err, apperrors.ErrConflict) || errors.Is(err, apperrors.ErrInvalidRequest) {
				logger.Info("skipping seed user", zap.String("email", u.Email), zap.Error(err))
				skipped++
				continue
			}
			return created, skipped, fmt.Errorf("register %s: %w", u.Email, err)
		}

		if u.Points > 0 {
			uid := session.User.UID
			_, err := ledger.Award(ctx, auth.NewPrincipal(uid), service.AwardCommand{
				UID:    uid,
				Amount: float64(u.Points),
				Reason: "seed",
				Serial: u.Serial,
			})
			if err != nil {
				return created, skipped, fmt.Errorf("award opening balance to %s: %w", u.Email, err)
			}
		}
		created++
	}
	return created, skipped, nil
}
