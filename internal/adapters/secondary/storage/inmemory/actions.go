package inmemory

import (
	"context"
	"log/slog"
	"sort"

	"github.com/admin/loventia/discover/internal/domain"
	"github.com/admin/loventia/discover/internal/ports/persistence"
	ports "github.com/admin/loventia/discover/internal/ports/repository"
	"github.com/google/uuid"
)

// ActionRepo in-memory журнал действий
type ActionRepo struct {
	store *Store
	Log   *slog.Logger
}

// NewActionRepo создаёт журнал поверх общего хранилища
func NewActionRepo(store *Store, log *slog.Logger) ports.IActionRepo {
	return &ActionRepo{store: store, Log: log}
}

func (r *ActionRepo) ListIncoming(ctx context.Context, targetID uuid.UUID, types []domain.ActionType, limit int) ([]domain.Action, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	wanted := make(map[domain.ActionType]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}

	var actions []domain.Action
	for _, a := range r.store.actions {
		if a.TargetID == targetID && wanted[a.Type] {
			actions = append(actions, a)
		}
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i].CreatedAt.After(actions[j].CreatedAt) })
	if limit > 0 && len(actions) > limit {
		actions = actions[:limit]
	}
	return actions, nil
}

func (r *ActionRepo) RecordTx(ctx context.Context, tx persistence.Transaction, action domain.Action) (bool, error) {
	t, err := r.store.txOf(tx)
	if err != nil {
		return false, err
	}

	key := actionKey{actor: action.ActorID, target: action.TargetID, kind: action.Type}
	if _, exists := r.store.actions[key]; exists {
		return false, nil
	}
	r.store.actions[key] = action
	t.onRollback(func() { delete(r.store.actions, key) })

	r.Log.Debug("action recorded in transaction", "actor_id", action.ActorID, "target_id", action.TargetID, "action", action.Type)
	return true, nil
}

func (r *ActionRepo) DeleteTx(ctx context.Context, tx persistence.Transaction, actorID, targetID uuid.UUID, actionType domain.ActionType) (bool, error) {
	t, err := r.store.txOf(tx)
	if err != nil {
		return false, err
	}

	key := actionKey{actor: actorID, target: targetID, kind: actionType}
	previous, exists := r.store.actions[key]
	if !exists {
		return false, nil
	}
	delete(r.store.actions, key)
	t.onRollback(func() { r.store.actions[key] = previous })
	return true, nil
}
