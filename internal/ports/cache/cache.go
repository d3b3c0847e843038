package cache

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound ключа нет в кэше
var ErrKeyNotFound = errors.New("key not found")

// Cache интерфейс для работы с кэшем
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// SetNX записывает значение только если ключа нет; false если ключ уже занят
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}
