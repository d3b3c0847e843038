package usecase

import (
	"context"
	"time"

	"github.com/admin/loventia/discover/internal/domain"
	"github.com/google/uuid"
)

// IDiscoverUseCase выдача кандидатов и действия над ними
type IDiscoverUseCase interface {
	Discover(ctx context.Context, requesterID uuid.UUID, filters domain.DiscoverFilters) (*domain.DiscoverResult, error)
	Act(ctx context.Context, actorID, targetID uuid.UUID, actionType domain.ActionType, idempotencyKey string) (*domain.ActionResult, error)
	Rewind(ctx context.Context, actorID uuid.UUID) (*domain.RewindResult, error)
	LikedYou(ctx context.Context, requesterID uuid.UUID, limit int) ([]domain.PublicUser, error)
}

// IVisibilityUseCase скрытие профиля из выдачи
type IVisibilityUseCase interface {
	Hide(ctx context.Context, userID uuid.UUID, duration time.Duration, resumeOnLogin bool) (*domain.Visibility, error)
	Unhide(ctx context.Context, userID uuid.UUID) (*domain.Visibility, error)
	// ResumeOnLogin снимает скрытие при входе, если пользователь так просил
	ResumeOnLogin(ctx context.Context, userID uuid.UUID) (*domain.Visibility, error)
}

// IEntitlementUseCase права и квоты пользователя
type IEntitlementUseCase interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.EntitlementsView, error)
}
