package discover

import (
	"log/slog"
	"time"

	"github.com/admin/loventia/discover/internal/domain"
	"github.com/admin/loventia/discover/internal/ports/cache"
	"github.com/admin/loventia/discover/internal/ports/kafka"
	"github.com/admin/loventia/discover/internal/ports/repository"
	"github.com/admin/loventia/discover/internal/ports/storage"
	"github.com/admin/loventia/discover/internal/ports/usecase"
)

const (
	defaultPageLimit      = 100
	defaultMaxPageLimit   = 100
	defaultScanLimit      = 2000
	defaultIdempotencyTTL = 24 * time.Hour
	defaultLikedYouLimit  = 50
)

// Config параметры выдачи и действий
type Config struct {
	RewindMax          int
	DefaultLimit       int
	MaxLimit           int
	CandidateScanLimit int
	IdempotencyTTL     time.Duration
	Quota              domain.QuotaPolicy
}

func (c Config) withDefaults() Config {
	if c.RewindMax <= 0 {
		c.RewindMax = domain.DefaultRewindMax
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = defaultMaxPageLimit
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = defaultPageLimit
	}
	if c.DefaultLimit > c.MaxLimit {
		c.DefaultLimit = c.MaxLimit
	}
	if c.CandidateScanLimit <= 0 {
		c.CandidateScanLimit = defaultScanLimit
	}
	if c.IdempotencyTTL <= 0 {
		c.IdempotencyTTL = defaultIdempotencyTTL
	}
	return c
}

// Service выдача Discover, действия like/pass/superlike, rewind и видимость
type Service struct {
	UserRepo   repository.IUserRepo
	ActionRepo repository.IActionRepo
	// Cache ключи идемпотентности; nil - заголовок игнорируется
	Cache cache.Cache
	// Publisher события о действиях; nil - не публикуем
	Publisher kafka.IActionPublisher
	// Photos подпись ссылок на фото; nil - отдаём пути /uploads/...
	Photos storage.IPhotoURLResolver
	Cfg    Config
	Now    func() time.Time
	Log    *slog.Logger
}

// New создаёт сервис Discover
func New(
	userRepo repository.IUserRepo,
	actionRepo repository.IActionRepo,
	cache cache.Cache,
	publisher kafka.IActionPublisher,
	photos storage.IPhotoURLResolver,
	cfg Config,
	log *slog.Logger,
) *Service {
	return &Service{
		UserRepo:   userRepo,
		ActionRepo: actionRepo,
		Cache:      cache,
		Publisher:  publisher,
		Photos:     photos,
		Cfg:        cfg.withDefaults(),
		Now:        time.Now,
		Log:        log,
	}
}

var (
	_ usecase.IDiscoverUseCase   = (*Service)(nil)
	_ usecase.IVisibilityUseCase = (*Service)(nil)
)
