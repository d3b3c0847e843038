package billing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/admin/loventia/discover/internal/adapters/secondary/storage/inmemory"
	"github.com/admin/loventia/discover/internal/domain"
	"github.com/admin/loventia/discover/internal/ports/repository"
	"github.com/google/uuid"
)

func newTestService(t *testing.T) (*Service, repository.IUserRepo, time.Time) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := inmemory.NewUserRepo(inmemory.NewStore(), log)
	svc := New(users, Config{Quota: domain.DefaultQuotaPolicy(), ExpiryRatePerSec: 1000}, log)

	now := time.Now().UTC().Truncate(time.Second)
	svc.Now = func() time.Time { return now }
	return svc, users, now
}

func createUser(t *testing.T, users repository.IUserRepo, now time.Time, mutate func(u *domain.User)) *domain.User {
	t.Helper()
	u := domain.NewUser("subscriber", now.Add(-time.Hour))
	if mutate != nil {
		mutate(u)
	}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return u
}

func reload(t *testing.T, users repository.IUserRepo, id uuid.UUID) *domain.User {
	t.Helper()
	u, err := users.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	return u
}

func TestApplyEvent_StartsPremiumByAppUserID(t *testing.T) {
	svc, users, now := newTestService(t)
	u := createUser(t, users, now, nil)
	end := now.Add(30 * 24 * time.Hour)

	err := svc.ApplyEvent(context.Background(), domain.BillingEvent{
		CustomerID:       "cus_1",
		AppUserID:        u.ID.String(),
		SubscriptionID:   "sub_1",
		Status:           "active",
		CurrentPeriodEnd: &end,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := reload(t, users, u.ID)
	if stored.Entitlements.Tier != domain.TierPremium || !stored.IsPremium || !stored.Premium {
		t.Fatalf("expected premium with legacy mirrors, got %+v", stored.Entitlements)
	}
	if stored.Entitlements.Until == nil || !stored.Entitlements.Until.Equal(end) {
		t.Fatalf("expected until %v, got %v", end, stored.Entitlements.Until)
	}
	if stored.Billing.StripeCustomerID != "cus_1" || stored.Billing.SubscriptionID != "sub_1" {
		t.Fatalf("expected customer linked, got %+v", stored.Billing)
	}
	if !stored.Entitlements.Features.SeeLikedYou || stored.Entitlements.Features.SuperLikesPerWeek != domain.DefaultPremiumSuperLikesPerWeek {
		t.Fatalf("expected full premium features, got %+v", stored.Entitlements.Features)
	}
}

func TestApplyEvent_RedeliveryOnlyExtends(t *testing.T) {
	svc, users, now := newTestService(t)
	week := domain.WeekKey(now)
	u := createUser(t, users, now, func(u *domain.User) {
		svc.Cfg.Quota.StartPremium(u, now.Add(-time.Hour))
		u.Billing = domain.Billing{StripeCustomerID: "cus_1", SubscriptionID: "sub_1"}
		u.Entitlements.Quotas.SuperLikes = domain.QuotaState{Used: 4, WeekKey: week}
	})

	end := now.Add(60 * 24 * time.Hour)
	err := svc.ApplyEvent(context.Background(), domain.BillingEvent{
		CustomerID:       "cus_1",
		SubscriptionID:   "sub_1",
		Status:           "trialing",
		CurrentPeriodEnd: &end,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := reload(t, users, u.ID)
	if q := stored.Entitlements.Quotas.SuperLikes; q.Used != 4 || q.WeekKey != week {
		t.Fatalf("redelivery must not refill quotas, got %+v", q)
	}
	if stored.Entitlements.Until == nil || !stored.Entitlements.Until.Equal(end) {
		t.Fatalf("expected until extended to %v, got %v", end, stored.Entitlements.Until)
	}
}

func TestApplyEvent_Cancel(t *testing.T) {
	cases := []struct {
		name        string
		eventSubID  string
		wantPremium bool
	}{
		{"current subscription stops premium", "sub_1", false},
		{"stale subscription ignored", "sub_old", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, users, now := newTestService(t)
			u := createUser(t, users, now, func(u *domain.User) {
				svc.Cfg.Quota.StartPremium(u, now.Add(-time.Hour))
				u.Billing = domain.Billing{StripeCustomerID: "cus_1", SubscriptionID: "sub_1"}
			})

			err := svc.ApplyEvent(context.Background(), domain.BillingEvent{
				CustomerID:     "cus_1",
				SubscriptionID: tc.eventSubID,
				Status:         "canceled",
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			stored := reload(t, users, u.ID)
			premium := stored.Entitlements.Tier == domain.TierPremium
			if premium != tc.wantPremium {
				t.Fatalf("expected premium=%v, got %+v", tc.wantPremium, stored.Entitlements)
			}
			if !premium && (stored.Billing.SubscriptionID != "" || stored.Entitlements.Features != (domain.Features{})) {
				t.Fatalf("expected subscription cleared and features reset, got %+v %+v", stored.Billing, stored.Entitlements.Features)
			}
		})
	}
}

func TestApplyEvent_UnknownUserIsBusinessError(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.ApplyEvent(context.Background(), domain.BillingEvent{CustomerID: "cus_missing", Status: "active"})
	if !domain.IsBusinessError(err) || !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected business not found error, got %v", err)
	}
}

func TestExpireDue(t *testing.T) {
	svc, users, now := newTestService(t)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	expired := createUser(t, users, now, func(u *domain.User) {
		svc.Cfg.Quota.StartPremium(u, now.Add(-48*time.Hour))
		u.Entitlements.Until = &past
	})
	active := createUser(t, users, now, func(u *domain.User) {
		svc.Cfg.Quota.StartPremium(u, now.Add(-48*time.Hour))
		u.Entitlements.Until = &future
	})

	n, err := svc.ExpireDue(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one expired user, got %d", n)
	}
	if tier := reload(t, users, expired.ID).Entitlements.Tier; tier != domain.TierFree {
		t.Fatalf("expected expired user downgraded, got %s", tier)
	}
	if tier := reload(t, users, active.ID).Entitlements.Tier; tier != domain.TierPremium {
		t.Fatalf("expected active user kept, got %s", tier)
	}

	n, err = svc.ExpireDue(context.Background(), now)
	if err != nil || n != 0 {
		t.Fatalf("expected second sweep to be a no-op, got %d, %v", n, err)
	}
}

func TestGet_EntitlementsView(t *testing.T) {
	svc, users, now := newTestService(t)
	u := createUser(t, users, now, func(u *domain.User) {
		svc.Cfg.Quota.StartPremium(u, now.Add(-time.Hour))
		u.Entitlements.Quotas.SuperLikes = domain.QuotaState{Used: 2, WeekKey: "2020-W01"}
	})

	view, err := svc.Get(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Tier != domain.TierPremium {
		t.Fatalf("expected premium, got %s", view.Tier)
	}
	// квота прошлой недели не учитывается
	if view.SuperLikes.Used != 0 || view.SuperLikes.Remaining != domain.DefaultPremiumSuperLikesPerWeek || view.SuperLikes.WeekKey != domain.WeekKey(now) {
		t.Fatalf("unexpected quota view %+v", view.SuperLikes)
	}

	if _, err := svc.Get(context.Background(), uuid.New()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
