package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/admin/loventia/discover/internal/pkg/ratelimit"
)

const bucketSweeperName = "ratelimit-bucket-sweeper"

// BucketSweeper удаляет истёкшие окна rate limit
type BucketSweeper struct {
	store    ratelimit.BucketStore
	interval time.Duration
	log      *slog.Logger
}

func NewBucketSweeper(store ratelimit.BucketStore, interval time.Duration, log *slog.Logger) *BucketSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &BucketSweeper{
		store:    store,
		interval: interval,
		log:      log,
	}
}

func (j *BucketSweeper) Name() string {
	return bucketSweeperName
}

func (j *BucketSweeper) NextRun(now time.Time) time.Time {
	return everyInterval(now, j.interval)
}

func (j *BucketSweeper) Run(ctx context.Context) error {
	removed, err := j.store.Sweep(ctx, time.Now())
	if err != nil {
		return err
	}
	if removed > 0 {
		j.log.Debug("expired rate limit buckets removed", "count", removed)
	}
	return nil
}
