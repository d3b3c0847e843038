package usecase

import (
	"context"
	"time"

	"github.com/admin/loventia/discover/internal/domain"
)

// IBillingUseCase применяет эффект событий подписки к правам пользователя
type IBillingUseCase interface {
	ApplyEvent(ctx context.Context, event domain.BillingEvent) error
	// ExpireDue снимает премиум с истёкшим until, возвращает число обработанных
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}
