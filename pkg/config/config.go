package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable read by the engine.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Storage driver names accepted by STOREFRONT_STORAGE_DRIVER.
const (
	StorageDriverMemory = "memory"
	StorageDriverSQLite = "sqlite"
	StorageDriverRedis  = "redis"
)

type Config struct {
	App       AppConfig
	Gateway   GatewayConfig
	Storage   StorageConfig
	Retention RetentionConfig
	Redis     RedisConfig
	JWT       JWTConfig
}

// Load reads configuration from the environment, honoring a local .env file
// the way the embedding storefront's launchers do.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type GatewayConfig struct {
	BaseURL string        `envconfig:"STOREFRONT_GATEWAY_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"STOREFRONT_GATEWAY_TIMEOUT" default:"10s"`
}

type StorageConfig struct {
	Driver     string `envconfig:"STOREFRONT_STORAGE_DRIVER" default:"sqlite"`
	SQLitePath string `envconfig:"STOREFRONT_STORAGE_SQLITE_PATH" default:"storefront.db"`
}

func (s StorageConfig) validate() error {
	switch s.Driver {
	case StorageDriverMemory, StorageDriverSQLite, StorageDriverRedis:
		return nil
	}
	return fmt.Errorf("unknown storage driver %q", s.Driver)
}

type RetentionConfig struct {
	Cart     time.Duration `envconfig:"STOREFRONT_RETENTION_CART" default:"24h"`
	Wishlist time.Duration `envconfig:"STOREFRONT_RETENTION_WISHLIST" default:"720h"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
}
