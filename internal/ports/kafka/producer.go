package kafka

import (
	"context"

	"github.com/admin/loventia/discover/internal/domain"
)

// IKafkaProducer интерфейс для отправки сообщений в Kafka
type IKafkaProducer interface {
	// Send отправляет произвольное сообщение
	Send(ctx context.Context, key string, value []byte) error
	// Close закрывает producer
	Close() error
}

// IActionPublisher публикация событий о действиях в Discover
type IActionPublisher interface {
	PublishAction(ctx context.Context, event domain.ActionEvent) error
}
