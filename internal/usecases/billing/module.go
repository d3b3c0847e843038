package billing

import (
	"log/slog"
	"time"

	"github.com/admin/loventia/discover/internal/domain"
	"github.com/admin/loventia/discover/internal/ports/repository"
	"github.com/admin/loventia/discover/internal/ports/usecase"
	"golang.org/x/time/rate"
)

const (
	defaultExpiryBatch      = 500
	defaultExpiryRatePerSec = 50
)

// Config параметры применения событий подписки
type Config struct {
	Quota domain.QuotaPolicy
	// ExpiryBatch сколько истёкших подписок снимается за один проход
	ExpiryBatch int
	// ExpiryRatePerSec темп записей при снятии, чтобы не забивать базу
	ExpiryRatePerSec float64
}

// Service права пользователя и их изменение по событиям биллинга
type Service struct {
	UserRepo repository.IUserRepo
	Cfg      Config
	Now      func() time.Time
	Log      *slog.Logger

	expiryLimiter *rate.Limiter
}

// New создаёт сервис биллинга
func New(userRepo repository.IUserRepo, cfg Config, log *slog.Logger) *Service {
	if cfg.ExpiryBatch <= 0 {
		cfg.ExpiryBatch = defaultExpiryBatch
	}
	if cfg.ExpiryRatePerSec <= 0 {
		cfg.ExpiryRatePerSec = defaultExpiryRatePerSec
	}
	return &Service{
		UserRepo:      userRepo,
		Cfg:           cfg,
		Now:           time.Now,
		Log:           log,
		expiryLimiter: rate.NewLimiter(rate.Limit(cfg.ExpiryRatePerSec), 1),
	}
}

var (
	_ usecase.IBillingUseCase     = (*Service)(nil)
	_ usecase.IEntitlementUseCase = (*Service)(nil)
)
