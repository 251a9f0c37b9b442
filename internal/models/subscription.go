// Package models содержит доменные структуры подписочного реестра:
// записи о периодах подписки, их проекции для чтения и события жизненного цикла.
package models

import "time"

// SubscriptionStatus: хранимый статус записи реестра.
type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusInactive  SubscriptionStatus = "inactive"
	StatusCancelled SubscriptionStatus = "cancelled"
)

// Отображаемые статусы истории. Вычисляются только по end_date.
const (
	DisplayActive   = "Active"
	DisplayInactive = "Inactive"
)

// Subscription: запись реестра подписок. Записи никогда не удаляются.
// EndDate может быть nil только до момента создания записи.
type Subscription struct {
	ID        int64
	UserID    int64
	PlanID    int64
	StartDate time.Time
	EndDate   *time.Time
	Status    SubscriptionStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SubscriptionWithPlan: запись реестра вместе с разрешённым планом.
type SubscriptionWithPlan struct {
	Subscription
	PlanName  string
	PlanPrice int64
}

// DisplayStatus вычисляет отображаемый статус: "Active", если end_date позже now,
// иначе "Inactive". Хранимый статус не учитывается. Запись без end_date
// считается действующей, так же как в выборке активной подписки.
func (s Subscription) DisplayStatus(now time.Time) string {
	if s.EndDate == nil || s.EndDate.After(now) {
		return DisplayActive
	}
	return DisplayInactive
}

// ActiveSubscription: ответ на запрос текущей подписки.
type ActiveSubscription struct {
	PlanName  string     `json:"plan_name"`
	PlanPrice int64      `json:"plan_price"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

// HistoryEntry: элемент истории подписок.
type HistoryEntry struct {
	PlanName  string     `json:"plan_name"`
	PlanPrice int64      `json:"plan_price"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ActiveProjection: сырая строка оптимизированного запроса активных подписок.
type ActiveProjection struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Price        int64      `json:"price"`
	DurationDays int        `json:"duration_days"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
}

// HistoryProjection: сырая строка оптимизированного запроса истории.
// Status: хранимый статус записи.
type HistoryProjection struct {
	ActiveProjection
	Status SubscriptionStatus `json:"status"`
}

// Confirmation: подтверждение операций subscribe и upgrade.
type Confirmation struct {
	Message  string    `json:"message"`
	PlanName string    `json:"plan_name"`
	EndDate  time.Time `json:"end_date"`
}
