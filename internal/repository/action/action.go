package actionRepo

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/admin/loventia/discover/internal/domain"
	"github.com/admin/loventia/discover/internal/ports/persistence"
	ports "github.com/admin/loventia/discover/internal/ports/repository"
	"github.com/google/uuid"
)

type actionColumns struct {
	TableName  string
	ActorID    string
	TargetID   string
	ActionType string
	CreatedAt  string
}

type Repository struct {
	db      persistence.Database
	Log     *slog.Logger
	columns actionColumns
}

// New создаёт репозиторий журнала действий
func New(db persistence.Database, log *slog.Logger) ports.IActionRepo {
	return &Repository{
		db:  db,
		Log: log,
		columns: actionColumns{
			TableName:  "user_actions",
			ActorID:    "actor_id",
			TargetID:   "target_id",
			ActionType: "action_type",
			CreatedAt:  "created_at",
		},
	}
}

// ListIncoming действия над пользователем, новые первыми
func (r *Repository) ListIncoming(ctx context.Context, targetID uuid.UUID, types []domain.ActionType, limit int) ([]domain.Action, error) {
	typeNames := make([]string, 0, len(types))
	for _, t := range types {
		typeNames = append(typeNames, string(t))
	}

	var actions []domain.Action
	query := fmt.Sprintf(`SELECT %s, %s, %s, %s FROM %s
		WHERE %s = $1 AND %s = ANY($2)
		ORDER BY %s DESC LIMIT $3`,
		r.columns.ActorID, r.columns.TargetID, r.columns.ActionType, r.columns.CreatedAt,
		r.columns.TableName,
		r.columns.TargetID, r.columns.ActionType,
		r.columns.CreatedAt)
	if err := r.db.Select(ctx, &actions, query, targetID, typeNames, limit); err != nil {
		r.Log.Error("failed to list incoming actions",
			"error", err,
			"target_id", targetID)
		return nil, fmt.Errorf("failed to list incoming actions: %w: %w", domain.ErrTransientStore, err)
	}
	r.Log.Debug("incoming actions listed", "target_id", targetID, "count", len(actions))
	return actions, nil
}

// RecordTx записывает действие, повтор того же действия не создаёт дубль
func (r *Repository) RecordTx(ctx context.Context, tx persistence.Transaction, action domain.Action) (bool, error) {
	query := fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s) VALUES ($1, $2, $3, $4)
		ON CONFLICT (%s, %s, %s) DO NOTHING`,
		r.columns.TableName,
		r.columns.ActorID, r.columns.TargetID, r.columns.ActionType, r.columns.CreatedAt,
		r.columns.ActorID, r.columns.TargetID, r.columns.ActionType)
	rowsAffected, err := tx.ExecWithResult(ctx, query, action.ActorID, action.TargetID, string(action.Type), action.CreatedAt)
	if err != nil {
		r.Log.Error("failed to record action in transaction",
			"error", err,
			"actor_id", action.ActorID,
			"target_id", action.TargetID,
			"action", action.Type)
		return false, fmt.Errorf("failed to record action: %w: %w", domain.ErrTransientStore, err)
	}
	r.Log.Debug("action recorded in transaction",
		"actor_id", action.ActorID,
		"target_id", action.TargetID,
		"action", action.Type,
		"inserted", rowsAffected > 0)
	return rowsAffected > 0, nil
}

// DeleteTx удаляет действие при отмене
func (r *Repository) DeleteTx(ctx context.Context, tx persistence.Transaction, actorID, targetID uuid.UUID, actionType domain.ActionType) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2 AND %s = $3`,
		r.columns.TableName,
		r.columns.ActorID, r.columns.TargetID, r.columns.ActionType)
	rowsAffected, err := tx.ExecWithResult(ctx, query, actorID, targetID, string(actionType))
	if err != nil {
		r.Log.Error("failed to delete action in transaction",
			"error", err,
			"actor_id", actorID,
			"target_id", targetID)
		return false, fmt.Errorf("failed to delete action: %w: %w", domain.ErrTransientStore, err)
	}
	if rowsAffected == 0 {
		r.Log.Warn("action not found for delete", "actor_id", actorID, "target_id", targetID, "action", actionType)
		return false, nil
	}
	r.Log.Debug("action deleted in transaction", "actor_id", actorID, "target_id", targetID, "action", actionType)
	return true, nil
}
