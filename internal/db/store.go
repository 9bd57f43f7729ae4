package db

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"wastepoints/internal/config"
	"wastepoints/internal/repository"
)

// Store is the user store chosen at startup.
type Store struct {
	Users repository.UserRepository
	// Driver is config.StoreMySQL or config.StoreMemory.
	Driver string
	close  func() error
}

// Close releases the store's connections, if any.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStore selects the user store from cfg. In auto mode an unreachable
// database falls back to the volatile store when STORE_FALLBACK allows it.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Store, error) {
	if cfg.EffectiveStoreDriver() == config.StoreMemory {
		logger.Warn("no database configured, using volatile in-memory store")
		return memoryStore(), nil
	}

	gormDB, err := NewMySQL(ctx, cfg.MySQLDSN)
	if err == nil {
		err = Migrate(gormDB)
	}
	if err != nil {
		if cfg.AllowsMemoryFallback() {
			logger.Warn("database unavailable, falling back to volatile in-memory store", zap.Error(err))
			return memoryStore(), nil
		}
		return nil, fmt.Errorf("open mysql store: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("mysql pool: %w", err)
	}
	logger.Info("connected to mysql")
	return &Store{
		Users:  repository.NewUserRepository(gormDB),
		Driver: config.StoreMySQL,
		close:  sqlDB.Close,
	}, nil
}

func memoryStore() *Store {
	return &Store{Users: repository.NewMemoryUserRepository(), Driver: config.StoreMemory}
}
