package s3

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/admin/loventia/discover/internal/domain"
	"github.com/admin/loventia/discover/internal/ports/storage"
	"github.com/minio/minio-go/v7"
)

// Client обёртка над minio.Client для работы с S3
type Client struct {
	client *minio.Client
	bucket string
	log    *slog.Logger
}

// NewClient создаёт новый S3 клиент
func NewClient(client *minio.Client, bucket string, log *slog.Logger) *Client {
	return &Client{
		client: client,
		bucket: bucket,
		log:    log,
	}
}

var _ storage.IS3Client = (*Client)(nil)

// GetPresignedURL генерирует presigned URL для файла
func (c *Client) GetPresignedURL(ctx context.Context, path string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = 5 * time.Minute // дефолтный TTL
	}

	url, err := c.client.PresignedGetObject(ctx, c.bucket, path, expires, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL for %s: %w", path, err)
	}

	return url.String(), nil
}

// PhotoResolver отдаёт presigned URL для фото из бакета.
// При ошибке подписи возвращает путь /uploads/..., который раздаёт сам сервер.
type PhotoResolver struct {
	client  storage.IS3Client
	expires time.Duration
	log     *slog.Logger
}

func NewPhotoResolver(client storage.IS3Client, expires time.Duration, log *slog.Logger) *PhotoResolver {
	return &PhotoResolver{
		client:  client,
		expires: expires,
		log:     log,
	}
}

var _ storage.IPhotoURLResolver = (*PhotoResolver)(nil)

func (r *PhotoResolver) Resolve(ctx context.Context, stored string) string {
	web := domain.UploadsPath(stored)
	if web == "" {
		return ""
	}

	key := strings.TrimPrefix(web, domain.UploadsPrefix)
	url, err := r.client.GetPresignedURL(ctx, key, r.expires)
	if err != nil {
		r.log.Warn("failed to presign photo, using uploads path",
			"key", key,
			"error", err)
		return web
	}
	return url
}
