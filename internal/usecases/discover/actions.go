package discover

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/admin/loventia/discover/internal/domain"
	"github.com/admin/loventia/discover/internal/ports/persistence"
	"github.com/google/uuid"
)

const idempotencyKeyPrefix = "idem:action:"

// Act like/pass/superlike. Квота суперлайков, запись действия и стек rewind
// меняются в одной транзакции под блокировкой профиля.
func (s *Service) Act(ctx context.Context, actorID, targetID uuid.UUID, actionType domain.ActionType, idempotencyKey string) (*domain.ActionResult, error) {
	if _, err := domain.ParseActionType(string(actionType)); err != nil {
		return nil, err
	}
	if actorID == targetID {
		return nil, fmt.Errorf("%w: %w", domain.ErrSelfAction, domain.NewValidationError("userId", "cannot act on yourself"))
	}

	release, duplicate := s.claimIdempotencyKey(ctx, actorID, idempotencyKey)
	if duplicate {
		s.Log.Info("duplicate action request replayed",
			"user_id", actorID,
			"target_id", targetID,
			"action", actionType)
		return &domain.ActionResult{OK: true, Action: actionType, TargetID: targetID, Duplicate: true}, nil
	}

	now := s.Now()
	result := &domain.ActionResult{OK: true, Action: actionType, TargetID: targetID}

	fn := func(ctx context.Context, tx persistence.Transaction) error {
		actor, err := s.lockPair(ctx, tx, actorID, targetID)
		if err != nil {
			return err
		}
		actor.Normalize(now)

		recorded, err := s.ActionRepo.RecordTx(ctx, tx, domain.Action{
			ActorID:   actorID,
			TargetID:  targetID,
			Type:      actionType,
			CreatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("failed to record action: %w", err)
		}

		week := domain.WeekKey(now)
		limit := s.Cfg.Quota.SuperLikeLimit(actor)
		quota := &actor.Entitlements.Quotas.SuperLikes

		// повтор того же действия не списывает квоту и не растит стек
		if !recorded {
			result.Duplicate = true
			if actionType == domain.ActionSuperlike {
				result.Quota = quotaView(*quota, limit, week)
			}
			return nil
		}

		if actionType == domain.ActionSuperlike {
			if err := quota.TryConsume(limit, week); err != nil {
				return err
			}
			result.Quota = quotaView(*quota, limit, week)
		}

		actor.Rewind.Max = s.Cfg.RewindMax
		actor.Rewind.Push(domain.RewindEntry{
			Type:      actionType,
			TargetID:  targetID,
			CreatedAt: now,
		})
		actor.UpdatedAt = now

		if err := s.UserRepo.UpdateStateTx(ctx, tx, actor); err != nil {
			return fmt.Errorf("failed to save actor state: %w", err)
		}
		return nil
	}

	if err := s.UserRepo.WithTransaction(ctx, fn); err != nil {
		release()
		if errors.Is(err, domain.ErrQuotaExceeded) {
			s.Log.Info("superlike quota exceeded", "user_id", actorID, "error", err)
		} else if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrUnauthorized) {
			s.Log.Error("action failed",
				"user_id", actorID,
				"target_id", targetID,
				"action", actionType,
				"error", err)
		}
		return nil, fmt.Errorf("failed to %s: %w", actionType, err)
	}

	if !result.Duplicate {
		s.publish(ctx, domain.ActionEvent{
			ID:        uuid.New(),
			ActorID:   actorID,
			TargetID:  targetID,
			Type:      actionType,
			CreatedAt: now,
		})
	}

	s.Log.Debug("action applied",
		"user_id", actorID,
		"target_id", targetID,
		"action", actionType,
		"duplicate", result.Duplicate)

	return result, nil
}

// Rewind отменяет последнее действие. Нужна функция unlimitedRewinds.
// Суперлайк текущей недели возвращает единицу квоты.
func (s *Service) Rewind(ctx context.Context, actorID uuid.UUID) (*domain.RewindResult, error) {
	now := s.Now()
	var entry domain.RewindEntry

	fn := func(ctx context.Context, tx persistence.Transaction) error {
		actor, err := s.UserRepo.GetByIDForUpdateTx(ctx, tx, actorID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: user %s not found", domain.ErrUnauthorized, actorID)
			}
			return err
		}
		actor.Normalize(now)

		if !domain.HasFeature(actor, domain.FeatureUnlimitedRewinds) {
			return fmt.Errorf("%w: %s", domain.ErrFeatureLocked, domain.FeatureUnlimitedRewinds)
		}

		var ok bool
		entry, ok = actor.Rewind.Pop()
		if !ok {
			return fmt.Errorf("%w: nothing to rewind", domain.ErrNotFound)
		}

		deleted, err := s.ActionRepo.DeleteTx(ctx, tx, actorID, entry.TargetID, entry.Type)
		if err != nil {
			return fmt.Errorf("failed to delete action: %w", err)
		}
		if !deleted {
			s.Log.Warn("rewound action was not recorded",
				"user_id", actorID,
				"target_id", entry.TargetID,
				"action", entry.Type)
		}

		week := domain.WeekKey(now)
		if entry.Type == domain.ActionSuperlike && domain.WeekKey(entry.CreatedAt) == week {
			actor.Entitlements.Quotas.SuperLikes.Refund(week)
		}
		actor.UpdatedAt = now

		if err := s.UserRepo.UpdateStateTx(ctx, tx, actor); err != nil {
			return fmt.Errorf("failed to save actor state: %w", err)
		}
		return nil
	}

	if err := s.UserRepo.WithTransaction(ctx, fn); err != nil {
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrFeatureLocked) && !errors.Is(err, domain.ErrUnauthorized) {
			s.Log.Error("rewind failed", "user_id", actorID, "error", err)
		}
		return nil, fmt.Errorf("failed to rewind: %w", err)
	}

	s.publish(ctx, domain.ActionEvent{
		ID:        uuid.New(),
		ActorID:   actorID,
		TargetID:  entry.TargetID,
		Type:      entry.Type,
		Rewound:   true,
		CreatedAt: now,
	})

	s.Log.Debug("action rewound",
		"user_id", actorID,
		"target_id", entry.TargetID,
		"action", entry.Type)

	return &domain.RewindResult{OK: true, Rewound: entry}, nil
}

// lockPair блокирует оба профиля в порядке id, возвращает актора
func (s *Service) lockPair(ctx context.Context, tx persistence.Transaction, actorID, targetID uuid.UUID) (*domain.User, error) {
	ids := []uuid.UUID{actorID, targetID}
	if targetID.String() < actorID.String() {
		ids[0], ids[1] = targetID, actorID
	}

	var actor *domain.User
	for _, id := range ids {
		u, err := s.UserRepo.GetByIDForUpdateTx(ctx, tx, id)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
			if id == actorID {
				return nil, fmt.Errorf("%w: user %s not found", domain.ErrUnauthorized, actorID)
			}
			return nil, fmt.Errorf("%w: target user %s", domain.ErrNotFound, targetID)
		}
		if id == actorID {
			actor = u
		}
	}
	return actor, nil
}

// claimIdempotencyKey занимает ключ запроса. release освобождает его после
// неудачи, чтобы клиент мог повторить. Без кэша или ключа проверка пропускается.
func (s *Service) claimIdempotencyKey(ctx context.Context, actorID uuid.UUID, key string) (release func(), duplicate bool) {
	release = func() {}
	if s.Cache == nil || key == "" {
		return release, false
	}

	cacheKey := idempotencyKeyPrefix + actorID.String() + ":" + key
	ok, err := s.Cache.SetNX(ctx, cacheKey, time.Now().UTC().Format(time.RFC3339), s.Cfg.IdempotencyTTL)
	if err != nil {
		s.Log.Warn("idempotency cache unavailable, proceeding without it",
			"user_id", actorID,
			"error", err)
		return release, false
	}
	if !ok {
		return release, true
	}

	return func() {
		if err := s.Cache.Delete(context.WithoutCancel(ctx), cacheKey); err != nil {
			s.Log.Warn("failed to release idempotency key",
				"user_id", actorID,
				"error", err)
		}
	}, false
}

// publish события не влияют на результат действия
func (s *Service) publish(ctx context.Context, event domain.ActionEvent) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.PublishAction(ctx, event); err != nil {
		s.Log.Warn("failed to publish action event",
			"user_id", event.ActorID,
			"target_id", event.TargetID,
			"action", event.Type,
			"rewound", event.Rewound,
			"error", err)
	}
}

func quotaView(q domain.QuotaState, limit int, week string) *domain.QuotaView {
	used := q.Used
	if q.WeekKey != week {
		used = 0
	}
	return &domain.QuotaView{
		Limit:     limit,
		Used:      used,
		Remaining: q.Remaining(limit, week),
		WeekKey:   week,
	}
}
