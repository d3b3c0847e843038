package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/admin/loventia/discover/internal/domain"
	kafkaPorts "github.com/admin/loventia/discover/internal/ports/kafka"
	"github.com/admin/loventia/discover/internal/ports/usecase"
)

// BillingEventHandler применяет события подписки из топика billing
type BillingEventHandler struct {
	Billing usecase.IBillingUseCase
	Log     *slog.Logger
}

// NewBillingEventHandler создаёт handler для событий биллинга
func NewBillingEventHandler(billing usecase.IBillingUseCase, log *slog.Logger) kafkaPorts.MessageHandler {
	return &BillingEventHandler{
		Billing: billing,
		Log:     log,
	}
}

// HandleMessage обрабатывает событие подписки
func (h *BillingEventHandler) HandleMessage(ctx context.Context, key string, value []byte) error {
	var msg BillingEventMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		h.Log.Warn("skipping malformed billing event", "key", key, "error", err)
		return domain.WrapBusinessError(fmt.Errorf("failed to unmarshal billing event: %w", err))
	}

	event := msg.toDomain()
	if event.CustomerID == "" && event.AppUserID == "" {
		h.Log.Warn("skipping billing event without customer", "key", key)
		return domain.WrapBusinessError(errors.New("billing event has neither customerId nor appUserId"))
	}

	h.Log.Debug("processing billing event",
		"customer_id", event.CustomerID,
		"app_user_id", event.AppUserID,
		"subscription_id", event.SubscriptionID,
		"status", event.Status,
	)

	if err := h.Billing.ApplyEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to apply billing event: %w", err)
	}

	return nil
}

// BillingEventMessage событие подписки, время в unix-секундах
type BillingEventMessage struct {
	CustomerID         string `json:"customerId"`
	AppUserID          string `json:"appUserId"`
	SubscriptionID     string `json:"subscriptionId"`
	Status             string `json:"status"`
	CurrentPeriodStart int64  `json:"currentPeriodStart"`
	CurrentPeriodEnd   int64  `json:"currentPeriodEnd"`
}

func (m BillingEventMessage) toDomain() domain.BillingEvent {
	return domain.BillingEvent{
		CustomerID:         m.CustomerID,
		AppUserID:          m.AppUserID,
		SubscriptionID:     m.SubscriptionID,
		Status:             m.Status,
		CurrentPeriodStart: unixPtr(m.CurrentPeriodStart),
		CurrentPeriodEnd:   unixPtr(m.CurrentPeriodEnd),
	}
}

func unixPtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
