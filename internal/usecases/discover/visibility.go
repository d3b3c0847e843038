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

// Hide скрывает профиль из выдачи; duration 0 - до ручного unhide
func (s *Service) Hide(ctx context.Context, userID uuid.UUID, duration time.Duration, resumeOnLogin bool) (*domain.Visibility, error) {
	if duration < 0 {
		return nil, domain.NewValidationError("durationMinutes", "must be >= 0")
	}
	return s.updateVisibility(ctx, userID, "hide", func(u *domain.User, now time.Time) bool {
		u.Hide(now, duration, resumeOnLogin)
		return true
	})
}

// Unhide возвращает профиль в выдачу
func (s *Service) Unhide(ctx context.Context, userID uuid.UUID) (*domain.Visibility, error) {
	return s.updateVisibility(ctx, userID, "unhide", func(u *domain.User, _ time.Time) bool {
		u.Unhide()
		return true
	})
}

// ResumeOnLogin хук входа: снимает скрытие, если оно просило сняться при входе
func (s *Service) ResumeOnLogin(ctx context.Context, userID uuid.UUID) (*domain.Visibility, error) {
	v, err := s.updateVisibility(ctx, userID, "resume on login", func(u *domain.User, _ time.Time) bool {
		if !u.Visibility.ResumeOnLogin {
			return false
		}
		u.Unhide()
		return true
	})
	if err != nil {
		return nil, err
	}

	if err := s.UserRepo.UpdateLastActive(ctx, userID, s.Now()); err != nil {
		s.Log.Warn("failed to update last active on login", "user_id", userID, "error", err)
	}
	return v, nil
}

func (s *Service) updateVisibility(ctx context.Context, userID uuid.UUID, op string, mutate func(*domain.User, time.Time) bool) (*domain.Visibility, error) {
	now := s.Now()
	var result domain.Visibility

	fn := func(ctx context.Context, tx persistence.Transaction) error {
		u, err := s.UserRepo.GetByIDForUpdateTx(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: user %s not found", domain.ErrUnauthorized, userID)
			}
			return err
		}
		changed := u.Normalize(now)

		if mutate(u, now) {
			changed = true
		}
		result = u.Visibility
		if !changed {
			return nil
		}

		u.UpdatedAt = now
		if err := s.UserRepo.UpdateStateTx(ctx, tx, u); err != nil {
			return fmt.Errorf("failed to save visibility: %w", err)
		}
		return nil
	}

	if err := s.UserRepo.WithTransaction(ctx, fn); err != nil {
		if !errors.Is(err, domain.ErrUnauthorized) {
			s.Log.Error("visibility update failed", "user_id", userID, "op", op, "error", err)
		}
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}

	s.Log.Info("visibility updated",
		"user_id", userID,
		"op", op,
		"hidden", result.IsHidden,
		"hidden_until", result.HiddenUntil)

	return &result, nil
}

// ResumeExpired сохраняет снятие истёкших временных скрытий.
// Чтение и так считает их истёкшими, здесь только запись в хранилище.
func (s *Service) ResumeExpired(ctx context.Context, limit int) (int, error) {
	now := s.Now()
	ids, err := s.UserRepo.ListExpiredHidden(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired hidden users: %w", err)
	}

	resumed := 0
	for _, id := range ids {
		changed := false
		fn := func(ctx context.Context, tx persistence.Transaction) error {
			u, err := s.UserRepo.GetByIDForUpdateTx(ctx, tx, id)
			if err != nil {
				return err
			}
			if !u.Normalize(now) {
				return nil
			}
			u.UpdatedAt = now
			if err := s.UserRepo.UpdateStateTx(ctx, tx, u); err != nil {
				return err
			}
			changed = true
			return nil
		}
		if err := s.UserRepo.WithTransaction(ctx, fn); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return resumed, fmt.Errorf("failed to resume user %s: %w", id, err)
		}
		if changed {
			resumed++
		}
	}

	if resumed > 0 {
		s.Log.Info("expired hides resumed", "count", resumed)
	}
	return resumed, nil
}
