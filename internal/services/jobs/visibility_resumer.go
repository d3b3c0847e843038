package jobs

import (
	"context"
	"log/slog"
	"time"
)

const visibilityResumerName = "visibility-resumer"

// ExpiredHideResumer сохраняет снятие истёкших временных скрытий
type ExpiredHideResumer interface {
	ResumeExpired(ctx context.Context, limit int) (int, error)
}

// VisibilityResumer чистит истёкшие hiddenUntil в хранилище
type VisibilityResumer struct {
	resumer  ExpiredHideResumer
	interval time.Duration
	batch    int
	log      *slog.Logger
}

func NewVisibilityResumer(resumer ExpiredHideResumer, interval time.Duration, batch int, log *slog.Logger) *VisibilityResumer {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if batch <= 0 {
		batch = 500
	}
	return &VisibilityResumer{
		resumer:  resumer,
		interval: interval,
		batch:    batch,
		log:      log,
	}
}

func (j *VisibilityResumer) Name() string {
	return visibilityResumerName
}

func (j *VisibilityResumer) NextRun(now time.Time) time.Time {
	return everyInterval(now, j.interval)
}

func (j *VisibilityResumer) Run(ctx context.Context) error {
	count, err := j.resumer.ResumeExpired(ctx, j.batch)
	if err != nil {
		return err
	}
	j.log.Debug("visibility resume pass finished", "resumed", count)
	return nil
}
