package repository

import (
	"context"
	"time"

	"github.com/admin/loventia/discover/internal/domain"
	"github.com/admin/loventia/discover/internal/ports/persistence"
	"github.com/google/uuid"
)

// IUserRepo интерфейс для работы с профилями
type IUserRepo interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error)
	// ListCandidates базовая выборка кандидатов в порядке query.Sort; скрытые отсекаются
	// по query.VisibleAt, dealbreakers применяются выше
	ListCandidates(ctx context.Context, query domain.CandidateQuery) ([]*domain.User, error)
	ListExpiredPremium(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	ListExpiredHidden(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	UpdateLastActive(ctx context.Context, id uuid.UUID, at time.Time) error

	BeginTx(ctx context.Context) (persistence.Transaction, error)
	WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error

	// Транзакционные методы
	// GetByIDForUpdateTx читает профиль с блокировкой строки до конца транзакции
	GetByIDForUpdateTx(ctx context.Context, tx persistence.Transaction, id uuid.UUID) (*domain.User, error)
	GetByStripeCustomerIDForUpdateTx(ctx context.Context, tx persistence.Transaction, customerID string) (*domain.User, error)
	// UpdateStateTx сохраняет изменяемые блоки: видимость, права, rewind, legacy-зеркала
	UpdateStateTx(ctx context.Context, tx persistence.Transaction, user *domain.User) error
}
