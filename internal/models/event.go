package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы событий жизненного цикла, они же ключи маршрутизации.
const (
	EventSubscriptionCreated   = "subscription.created"
	EventSubscriptionUpgraded  = "subscription.upgraded"
	EventSubscriptionCancelled = "subscription.cancelled"
)

// SubscriptionEvent публикуется после фиксации перехода в реестре.
type SubscriptionEvent struct {
	ID             uuid.UUID  `json:"id"`
	Type           string     `json:"type"`
	UserID         int64      `json:"user_id"`
	SubscriptionID int64      `json:"subscription_id"`
	PlanID         int64      `json:"plan_id"`
	PreviousID     *int64     `json:"previous_subscription_id,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	OccurredAt     time.Time  `json:"occurred_at"`
}

// NewSubscriptionEvent создаёт событие с новым идентификатором.
func NewSubscriptionEvent(eventType string, sub Subscription, at time.Time) SubscriptionEvent {
	return SubscriptionEvent{
		ID:             uuid.New(),
		Type:           eventType,
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		PlanID:         sub.PlanID,
		EndDate:        sub.EndDate,
		OccurredAt:     at,
	}
}
