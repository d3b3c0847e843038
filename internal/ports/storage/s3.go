package storage

import (
	"context"
	"time"
)

// IS3Client интерфейс для работы с S3-совместимым хранилищем (MinIO)
type IS3Client interface {
	GetPresignedURL(ctx context.Context, path string, expires time.Duration) (string, error)
}

// IPhotoURLResolver превращает сохранённый путь фото в URL для клиента
type IPhotoURLResolver interface {
	Resolve(ctx context.Context, stored string) string
}
