package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/admin/loventia/discover/internal/domain"
	"github.com/admin/loventia/discover/internal/ports/persistence"
	"github.com/google/uuid"
)

// ApplyEvent применяет эффект события подписки. Повторное активное событие
// для премиума только продлевает until и не обнуляет квоты.
func (s *Service) ApplyEvent(ctx context.Context, event domain.BillingEvent) error {
	now := s.Now()
	var (
		userID  uuid.UUID
		outcome string
	)

	fn := func(ctx context.Context, tx persistence.Transaction) error {
		u, err := s.findSubscriber(ctx, tx, event)
		if err != nil {
			return err
		}
		userID = u.ID
		u.Normalize(now)

		switch {
		case event.IsActive() && domain.EffectiveTier(u) == domain.TierPremium:
			outcome = "extended"
		case event.IsActive():
			s.Cfg.Quota.StartPremium(u, now)
			outcome = "started"
		case event.SubscriptionID != "" && u.Billing.SubscriptionID != "" && event.SubscriptionID != u.Billing.SubscriptionID:
			// отмена старой подписки не трогает текущую
			outcome = "ignored"
			return nil
		default:
			domain.StopPremium(u)
			outcome = "stopped"
		}

		if event.IsActive() {
			u.Entitlements.Until = event.CurrentPeriodEnd
			if event.SubscriptionID != "" {
				u.Billing.SubscriptionID = event.SubscriptionID
			}
		}
		u.UpdatedAt = now

		if err := s.UserRepo.UpdateStateTx(ctx, tx, u); err != nil {
			return fmt.Errorf("failed to save entitlements: %w", err)
		}
		return nil
	}

	if err := s.UserRepo.WithTransaction(ctx, fn); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.Log.Warn("billing event for unknown user",
				"customer_id", event.CustomerID,
				"app_user_id", event.AppUserID,
				"status", event.Status)
			return domain.WrapBusinessError(fmt.Errorf("failed to apply billing event: %w", err))
		}
		s.Log.Error("failed to apply billing event",
			"customer_id", event.CustomerID,
			"status", event.Status,
			"error", err)
		return fmt.Errorf("failed to apply billing event: %w", err)
	}

	s.Log.Info("billing event applied",
		"user_id", userID,
		"customer_id", event.CustomerID,
		"subscription_id", event.SubscriptionID,
		"status", event.Status,
		"outcome", outcome)
	return nil
}

// findSubscriber ищет по stripeCustomerId, затем по appUserId из события.
// Найденный по appUserId пользователь без клиента привязывается к нему.
func (s *Service) findSubscriber(ctx context.Context, tx persistence.Transaction, event domain.BillingEvent) (*domain.User, error) {
	if event.CustomerID != "" {
		u, err := s.UserRepo.GetByStripeCustomerIDForUpdateTx(ctx, tx, event.CustomerID)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	if event.AppUserID == "" {
		return nil, fmt.Errorf("%w: customer %s", domain.ErrNotFound, event.CustomerID)
	}
	id, err := uuid.Parse(event.AppUserID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid appUserId %q", domain.ErrNotFound, event.AppUserID)
	}

	u, err := s.UserRepo.GetByIDForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if u.Billing.StripeCustomerID == "" && event.CustomerID != "" {
		u.Billing.StripeCustomerID = event.CustomerID
	}
	return u, nil
}

// ExpireDue снимает премиум у пользователей с прошедшим until.
// Записи идут с ограничением темпа.
func (s *Service) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.UserRepo.ListExpiredPremium(ctx, now, s.Cfg.ExpiryBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired premium: %w", err)
	}

	expired := 0
	for _, id := range ids {
		if err := s.expiryLimiter.Wait(ctx); err != nil {
			return expired, err
		}

		stopped := false
		fn := func(ctx context.Context, tx persistence.Transaction) error {
			u, err := s.UserRepo.GetByIDForUpdateTx(ctx, tx, id)
			if err != nil {
				return err
			}
			u.Normalize(now)

			// продлили между выборкой и блокировкой
			until := u.Entitlements.Until
			if domain.EffectiveTier(u) != domain.TierPremium || until == nil || until.After(now) {
				return nil
			}

			domain.StopPremium(u)
			u.UpdatedAt = now
			if err := s.UserRepo.UpdateStateTx(ctx, tx, u); err != nil {
				return err
			}
			stopped = true
			return nil
		}
		if err := s.UserRepo.WithTransaction(ctx, fn); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return expired, fmt.Errorf("failed to expire premium for %s: %w", id, err)
		}
		if stopped {
			expired++
		}
	}

	if expired > 0 {
		s.Log.Info("expired premium stopped", "count", expired)
	}
	return expired, nil
}

// Get права и остаток квот пользователя
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*domain.EntitlementsView, error) {
	u, err := s.UserRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s not found", domain.ErrUnauthorized, userID)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	now := s.Now()
	u.Normalize(now)
	view := s.Cfg.Quota.View(u, now)
	return &view, nil
}
