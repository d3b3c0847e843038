package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidConfig = errors.New("invalid rate limit config")

// Bucket счётчик запросов ключа в текущем окне
type Bucket struct {
	Count   int
	ResetAt time.Time
}

// BucketStore хранилище окон. Increment атомарно заводит новое окно,
// если now >= ResetAt, и увеличивает счётчик.
type BucketStore interface {
	Increment(ctx context.Context, key string, now time.Time, window time.Duration) (Bucket, error)
	// Sweep удаляет истёкшие окна, возвращает число удалённых
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Decision результат проверки одного запроса; ResetIn считается по часам лимитера
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	ResetIn   time.Duration
	Scope     string
}

type Config struct {
	Scope  string
	Limit  int
	Window time.Duration
}

// Limiter фиксированное окно поверх BucketStore
type Limiter struct {
	scope  string
	limit  int
	window time.Duration
	store  BucketStore
	now    func() time.Time
}

type Option func(*Limiter)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

func New(cfg Config, store BucketStore, opts ...Option) (*Limiter, error) {
	if cfg.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidConfig, cfg.Limit)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %s", ErrInvalidConfig, cfg.Window)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}

	l := &Limiter{
		scope:  cfg.Scope,
		limit:  cfg.Limit,
		window: cfg.Window,
		store:  store,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Limiter) Scope() string {
	return l.scope
}

func (l *Limiter) Limit() int {
	return l.limit
}

// Allow учитывает запрос по ключу. Ключ изолирован внутри scope.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	b, err := l.store.Increment(ctx, l.scope+":"+key, now, l.window)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to increment bucket: %w", err)
	}

	remaining := l.limit - b.Count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   b.Count <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   b.ResetAt,
		ResetIn:   max(b.ResetAt.Sub(now), 0),
		Scope:     l.scope,
	}, nil
}
