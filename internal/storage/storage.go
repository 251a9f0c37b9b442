// Package storage описывает контракты слоя хранения: ошибки-маркеры,
// которые возвращает реализация, и транзакционный интерфейс реестра подписок.
// Реализация на PostgreSQL находится в пакете repository.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/magabrotheeeer/subscription-manager/internal/models"
)

var (
	ErrUserNotFound             = errors.New("user not found")
	ErrPlanNotFound             = errors.New("plan not found")
	ErrSubscriptionNotFound     = errors.New("subscription not found")
	ErrUsernameExists           = errors.New("username already exists")
	ErrEmailExists              = errors.New("email already exists")
	ErrPlanNameExists           = errors.New("plan name already exists")
	ErrActiveSubscriptionExists = errors.New("active subscription already exists")
)

// LedgerTx: операции реестра, выполняемые внутри транзакции,
// удерживающей блокировку пользователя.
type LedgerTx interface {
	// FindActive возвращает запись пользователя со статусом active
	// независимо от end_date или ErrSubscriptionNotFound.
	FindActive(ctx context.Context, userID int64) (*models.Subscription, error)
	// CreateSubscription добавляет запись и возвращает её ID.
	CreateSubscription(ctx context.Context, sub models.Subscription) (int64, error)
	// CancelSubscription переводит запись в cancelled и обрезает end_date до at.
	CancelSubscription(ctx context.Context, id int64, at time.Time) error
}
