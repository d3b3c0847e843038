package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/admin/loventia/discover/internal/ports/usecase"
)

const entitlementExpirerName = "entitlement-expirer"

// EntitlementExpirer снимает премиум с истёкшим until
type EntitlementExpirer struct {
	billing  usecase.IBillingUseCase
	interval time.Duration
	log      *slog.Logger
}

func NewEntitlementExpirer(billing usecase.IBillingUseCase, interval time.Duration, log *slog.Logger) *EntitlementExpirer {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &EntitlementExpirer{
		billing:  billing,
		interval: interval,
		log:      log,
	}
}

func (j *EntitlementExpirer) Name() string {
	return entitlementExpirerName
}

func (j *EntitlementExpirer) NextRun(now time.Time) time.Time {
	return everyInterval(now, j.interval)
}

func (j *EntitlementExpirer) Run(ctx context.Context) error {
	count, err := j.billing.ExpireDue(ctx, time.Now())
	if err != nil {
		return err
	}
	j.log.Debug("entitlement expiry pass finished", "expired", count)
	return nil
}
