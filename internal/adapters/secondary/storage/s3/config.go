package s3

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Enabled          bool   `envconfig:"ENABLED" default:"false"`
	Host             string `envconfig:"HOST"`                     // localhost:9000
	AccessKey        string `envconfig:"ACCESS_KEY"`               // minioadmin
	SecretKey        string `envconfig:"SECRET_KEY"`               // minioadmin
	Bucket           string `envconfig:"BUCKET" default:"uploads"` // uploads
	UseSSL           bool   `envconfig:"USE_SSL" default:"false"`  // false для локальной разработки
	PresignTTLMinute int    `envconfig:"PRESIGN_TTL_MINUTES" default:"15"`
}

// PresignTTL время жизни ссылки на фото
func (c *Config) PresignTTL() time.Duration {
	if c.PresignTTLMinute <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.PresignTTLMinute) * time.Minute
}

// NewClient создаёт новый MinIO клиент
func (c *Config) NewClient(ctx context.Context) (*minio.Client, error) {
	if c.Host == "" || c.AccessKey == "" || c.SecretKey == "" {
		return nil, fmt.Errorf("s3 host, access key and secret key are required")
	}

	client, err := minio.New(c.Host, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Проверяем существование bucket
	exists, err := client.BucketExists(checkCtx, c.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", c.Bucket)
	}

	return client, nil
}
