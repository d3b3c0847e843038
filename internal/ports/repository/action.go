package repository

import (
	"context"

	"github.com/admin/loventia/discover/internal/domain"
	"github.com/admin/loventia/discover/internal/ports/persistence"
	"github.com/google/uuid"
)

// IActionRepo интерфейс для журнала действий like/pass/superlike
type IActionRepo interface {
	// ListIncoming кто совершил действия над пользователем, новые первыми
	ListIncoming(ctx context.Context, targetID uuid.UUID, types []domain.ActionType, limit int) ([]domain.Action, error)

	// RecordTx записывает действие; false если такое уже было
	RecordTx(ctx context.Context, tx persistence.Transaction, action domain.Action) (bool, error)
	// DeleteTx удаляет действие; false если записи не было
	DeleteTx(ctx context.Context, tx persistence.Transaction, actorID, targetID uuid.UUID, actionType domain.ActionType) (bool, error)
}
