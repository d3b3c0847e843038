package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActionType тип действия в Discover
type ActionType string

const (
	ActionLike      ActionType = "like"
	ActionPass      ActionType = "pass"
	ActionSuperlike ActionType = "superlike"
)

// ParseActionType проверяет тип действия
func ParseActionType(s string) (ActionType, error) {
	switch t := ActionType(normalizeValue(s)); t {
	case ActionLike, ActionPass, ActionSuperlike:
		return t, nil
	default:
		return "", NewValidationError("actionType", "must be one of like, pass, superlike")
	}
}

// Action запись о совершённом действии
type Action struct {
	ActorID   uuid.UUID  `json:"actorId" db:"actor_id"`
	TargetID  uuid.UUID  `json:"targetId" db:"target_id"`
	Type      ActionType `json:"type" db:"action_type"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
}

// ActionEvent событие о действии для шины
type ActionEvent struct {
	ID        uuid.UUID  `json:"id"`
	ActorID   uuid.UUID  `json:"actorId"`
	TargetID  uuid.UUID  `json:"targetId"`
	Type      ActionType `json:"type"`
	Rewound   bool       `json:"rewound"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ActionResult ответ на действие
type ActionResult struct {
	OK        bool       `json:"ok"`
	Action    ActionType `json:"action"`
	TargetID  uuid.UUID  `json:"targetId"`
	Quota     *QuotaView `json:"quota,omitempty"`
	Duplicate bool       `json:"duplicate,omitempty"`
}

// QuotaView состояние квоты для клиента
type QuotaView struct {
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	WeekKey   string `json:"weekKey"`
}

// RewindResult ответ на отмену
type RewindResult struct {
	OK      bool        `json:"ok"`
	Rewound RewindEntry `json:"rewound"`
}

// BillingEvent эффект события подписки от внешнего биллинга
type BillingEvent struct {
	CustomerID         string     `json:"customerId"`
	AppUserID          string     `json:"appUserId,omitempty"`
	SubscriptionID     string     `json:"subscriptionId"`
	Status             string     `json:"status"`
	CurrentPeriodStart *time.Time `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"currentPeriodEnd,omitempty"`
}

// IsActive статусы подписки, при которых премиум сохраняется
func (e BillingEvent) IsActive() bool {
	switch normalizeValue(e.Status) {
	case "active", "trialing", "past_due", "unpaid":
		return true
	default:
		return false
	}
}
