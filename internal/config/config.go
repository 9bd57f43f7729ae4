package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreAuto   = "auto"
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	AppEnv     string `env:"APP_ENV" envDefault:"development"`
	ServerPort string `env:"SERVER_PORT" envDefault:"3001"`

	// User store
	StoreDriver    string        `env:"STORE_DRIVER" envDefault:"auto"`
	MySQLDSN       string        `env:"MYSQL_DSN"`
	StoreFallback  bool          `env:"STORE_FALLBACK" envDefault:"true"`
	StorageTimeout time.Duration `env:"STORAGE_TIMEOUT" envDefault:"3s"`

	// Token store (Redis); empty address disables it
	RedisAddr string `env:"REDIS_ADDR"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret       string        `env:"JWT_SECRET,required,notEmpty"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"168h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`

	CORSOrigin      string        `env:"CORS_ORIGIN" envDefault:"http://localhost:5173"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	SwaggerHost     string        `env:"SWAGGER_HOST"`
}

// Load reads an optional .env file, then builds Config from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case StoreAuto, StoreMemory:
	case StoreMySQL:
		if c.MySQLDSN == "" {
			return errors.New("STORE_DRIVER=mysql requires MYSQL_DSN")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.StorageTimeout <= 0 {
		return errors.New("STORAGE_TIMEOUT must be positive")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	return nil
}

// EffectiveStoreDriver resolves "auto" to the driver that will be tried first.
func (c *Config) EffectiveStoreDriver() string {
	if c.StoreDriver == StoreAuto {
		if c.MySQLDSN != "" {
			return StoreMySQL
		}
		return StoreMemory
	}
	return c.StoreDriver
}

// AllowsMemoryFallback reports whether an unreachable database may be replaced
// by the volatile store at startup.
func (c *Config) AllowsMemoryFallback() bool {
	return c.StoreDriver == StoreAuto && c.StoreFallback
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
