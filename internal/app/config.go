package app

import (
	"fmt"
	"strings"
	"time"

	server "github.com/admin/loventia/discover/internal/adapters/primary/http"
	"github.com/admin/loventia/discover/internal/adapters/primary/http/middlewares"
	kafkaAdapter "github.com/admin/loventia/discover/internal/adapters/secondary/kafka"
	"github.com/admin/loventia/discover/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/admin/loventia/discover/internal/adapters/secondary/storage/redis"
	s3Adapter "github.com/admin/loventia/discover/internal/adapters/secondary/storage/s3"
	"github.com/admin/loventia/discover/internal/domain"
	"github.com/admin/loventia/discover/internal/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

type Config struct {
	Storage   string                    `envconfig:"STORAGE" default:"postgres"` // postgres | memory
	Postgres  *pg.Config                `envconfig:"POSTGRES"`
	Redis     *redisAdapter.Config      `envconfig:"REDIS"`
	S3        *s3Adapter.Config         `envconfig:"S3"`
	Log       *logger.Config            `envconfig:"LOG"`
	Server    *server.Config            `envconfig:"APISERVER"`
	Auth      middlewares.AuthConfig    `envconfig:"AUTH"`
	RateLimit RateLimitConfig           `envconfig:"RATELIMIT"`
	Discover  DiscoverConfig            `envconfig:"DISCOVER"`
	Jobs      JobsConfig                `envconfig:"JOBS"`
	Kafka     kafkaAdapter.KafkaConfigs `envconfig:"KAFKA"`
}

// RateLimitConfig лимиты запросов по группам маршрутов; 0 отключает группу
type RateLimitConfig struct {
	Backend         string        `envconfig:"BACKEND" default:"memory"` // memory | redis
	Window          time.Duration `envconfig:"WINDOW" default:"1m"`
	DiscoverLimit   int           `envconfig:"DISCOVER_LIMIT" default:"60"`
	ActionsLimit    int           `envconfig:"ACTIONS_LIMIT" default:"120"`
	VisibilityLimit int           `envconfig:"VISIBILITY_LIMIT" default:"30"`
	KeyHeader       string        `envconfig:"KEY_HEADER"`
	TrustXFF        bool          `envconfig:"TRUST_XFF" default:"false"`
}

// DiscoverConfig параметры выдачи, действий и квот
type DiscoverConfig struct {
	RewindMax                int           `envconfig:"REWIND_MAX" default:"50"`
	FreeSuperLikesPerWeek    int           `envconfig:"FREE_SUPERLIKES_PER_WEEK" default:"0"`
	PremiumSuperLikesPerWeek int           `envconfig:"PREMIUM_SUPERLIKES_PER_WEEK" default:"5"`
	DefaultLimit             int           `envconfig:"DEFAULT_LIMIT" default:"100"`
	MaxLimit                 int           `envconfig:"MAX_LIMIT" default:"100"`
	CandidateScanLimit       int           `envconfig:"CANDIDATE_SCAN_LIMIT" default:"2000"`
	IdempotencyTTL           time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
}

// QuotaPolicy лимиты суперлайков по тарифам
func (c DiscoverConfig) QuotaPolicy() domain.QuotaPolicy {
	return domain.QuotaPolicy{
		FreeSuperLikesPerWeek:    c.FreeSuperLikesPerWeek,
		PremiumSuperLikesPerWeek: c.PremiumSuperLikesPerWeek,
	}
}

// JobsConfig периодические задачи
type JobsConfig struct {
	Enabled                 bool          `envconfig:"ENABLED" default:"true"`
	EntitlementExpiry       time.Duration `envconfig:"ENTITLEMENT_EXPIRY_INTERVAL" default:"10m"`
	ExpiryBatch             int           `envconfig:"EXPIRY_BATCH" default:"500"`
	ExpiryRatePerSec        float64       `envconfig:"EXPIRY_RATE_PER_SEC" default:"50"`
	VisibilityResume        time.Duration `envconfig:"VISIBILITY_RESUME_INTERVAL" default:"5m"`
	VisibilityResumeBatch   int           `envconfig:"VISIBILITY_RESUME_BATCH" default:"500"`
	RateLimitBucketSweeping time.Duration `envconfig:"RATELIMIT_SWEEP_INTERVAL" default:"1m"`
}

func NewEnvConfig(envPrefix string) (*Config, error) {
	cfg := &Config{}

	_ = godotenv.Load("deployments/local/.env")

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, err
	}

	// Загружаем Kafka конфигурацию вручную (envconfig не умеет определять размер слайса)
	if err := cfg.Kafka.Load(envPrefix); err != nil {
		return nil, fmt.Errorf("failed to load kafka config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate проверяет перечислимые значения
func (c *Config) Validate() error {
	c.Storage = strings.ToLower(strings.TrimSpace(c.Storage))
	switch c.Storage {
	case StoragePostgres:
		if c.Postgres == nil {
			return fmt.Errorf("postgres config is required for storage %q", c.Storage)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}

	c.RateLimit.Backend = strings.ToLower(strings.TrimSpace(c.RateLimit.Backend))
	switch c.RateLimit.Backend {
	case RateLimitBackendMemory:
	case RateLimitBackendRedis:
		if c.Redis == nil || !c.Redis.Enabled {
			return fmt.Errorf("ratelimit backend %q requires REDIS_ENABLED", c.RateLimit.Backend)
		}
	default:
		return fmt.Errorf("unknown ratelimit backend %q", c.RateLimit.Backend)
	}

	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("ratelimit window must be positive")
	}

	return nil
}
