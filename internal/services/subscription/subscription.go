// Package subscription реализует жизненный цикл подписок пользователя:
// оформление, смену тарифа, отмену и запросы текущей подписки и истории.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/subscription-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-manager/internal/lib/clock"
	"github.com/magabrotheeeer/subscription-manager/internal/lib/metrics"
	"github.com/magabrotheeeer/subscription-manager/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-manager/internal/models"
	"github.com/magabrotheeeer/subscription-manager/internal/storage"
)

// Форматы даты окончания в подтверждениях: микросекунды печатаются
// всеми шестью знаками и только если они ненулевые.
const (
	endDateLayout       = "2006-01-02 15:04:05"
	endDateLayoutMicros = "2006-01-02 15:04:05.000000"
)

// Названия операций для метрик.
const (
	opSubscribe = "subscribe"
	opUpgrade   = "upgrade"
	opCancel    = "cancel"
)

// Ledger описывает хранилище реестра подписок.
type Ledger interface {
	// WithinUserLock выполняет fn атомарно, сериализуя операции одного пользователя.
	WithinUserLock(ctx context.Context, userID int64, fn func(tx storage.LedgerTx) error) error
	// ActiveSubscription возвращает активную неистёкшую подписку или storage.ErrSubscriptionNotFound.
	ActiveSubscription(ctx context.Context, userID int64, now time.Time) (*models.SubscriptionWithPlan, error)
	// SubscriptionHistory возвращает все записи пользователя, новые первыми.
	SubscriptionHistory(ctx context.Context, userID int64) ([]models.SubscriptionWithPlan, error)
	ActiveProjections(ctx context.Context, userID int64, now time.Time) ([]models.ActiveProjection, error)
	HistoryProjections(ctx context.Context, userID int64) ([]models.HistoryProjection, error)
}

// PlanReader возвращает план по ID или ошибку, оборачивающую storage.ErrPlanNotFound.
type PlanReader interface {
	Get(ctx context.Context, id int64) (*models.Plan, error)
}

// EventPublisher публикует события жизненного цикла.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// TransitionObserver учитывает исходы переходов.
type TransitionObserver interface {
	ObserveTransition(operation, result string)
}

// NoopPublisher используется, когда брокер сообщений не настроен.
type NoopPublisher struct{}

// Publish ничего не делает.
func (NoopPublisher) Publish(context.Context, string, any) error { return nil }

// Service: движок жизненного цикла подписок.
type Service struct {
	ledger    Ledger
	plans     PlanReader
	clock     clock.Clock
	publisher EventPublisher
	metrics   TransitionObserver
	log       *slog.Logger
}

// NewService создаёт движок. Время всех переходов берётся из clk.
func NewService(ledger Ledger, plans PlanReader, clk clock.Clock, publisher EventPublisher,
	observer TransitionObserver, log *slog.Logger) *Service {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &Service{
		ledger:    ledger,
		plans:     plans,
		clock:     clk,
		publisher: publisher,
		metrics:   observer,
		log:       log,
	}
}

// Subscribe оформляет подписку на план. Занятость проверяется только по хранимому
// статусу: запись active с прошедшим end_date тоже блокирует новую подписку.
func (s *Service) Subscribe(ctx context.Context, user models.Identity, planID int64) (*models.Confirmation, error) {
	plan, err := s.plans.Get(ctx, planID)
	if err != nil {
		if errors.Is(err, storage.ErrPlanNotFound) {
			s.observe(opSubscribe, metrics.ResultRejected)
			return nil, apperr.Wrap(err, apperr.KindNotFound, "Subscription plan not found")
		}
		s.observe(opSubscribe, metrics.ResultError)
		return nil, apperr.Internal(err)
	}

	var (
		now     time.Time
		created models.Subscription
	)
	err = s.ledger.WithinUserLock(ctx, user.UserID, func(tx storage.LedgerTx) error {
		now = s.clock.Now()
		_, err := tx.FindActive(ctx, user.UserID)
		if err == nil {
			return apperr.Conflict("User already has an active subscription. Cancel it first.")
		}
		if !errors.Is(err, storage.ErrSubscriptionNotFound) {
			return err
		}

		created = newPeriod(user.UserID, plan, now)
		created.ID, err = tx.CreateSubscription(ctx, created)
		return err
	})
	if err != nil {
		return nil, s.fail(opSubscribe, err)
	}

	s.observe(opSubscribe, metrics.ResultOK)
	s.log.Info("subscription created",
		slog.Int64("user_id", user.UserID),
		slog.Int64("subscription_id", created.ID),
		slog.String("plan", plan.Name))
	s.publish(ctx, models.NewSubscriptionEvent(models.EventSubscriptionCreated, created, now))

	return &models.Confirmation{
		Message:  fmt.Sprintf("Subscribed to %s until %s", plan.Name, formatEndDate(*created.EndDate)),
		PlanName: plan.Name,
		EndDate:  *created.EndDate,
	}, nil
}

// Upgrade атомарно отменяет текущую подписку и оформляет новую на план newPlanID.
func (s *Service) Upgrade(ctx context.Context, user models.Identity, newPlanID int64) (*models.Confirmation, error) {
	plan, err := s.plans.Get(ctx, newPlanID)
	if err != nil {
		if errors.Is(err, storage.ErrPlanNotFound) {
			s.observe(opUpgrade, metrics.ResultRejected)
			return nil, apperr.Wrap(err, apperr.KindNotFound, "New subscription plan not found")
		}
		s.observe(opUpgrade, metrics.ResultError)
		return nil, apperr.Internal(err)
	}

	var (
		now        time.Time
		created    models.Subscription
		previousID int64
	)
	err = s.ledger.WithinUserLock(ctx, user.UserID, func(tx storage.LedgerTx) error {
		now = s.clock.Now()
		current, err := tx.FindActive(ctx, user.UserID)
		if errors.Is(err, storage.ErrSubscriptionNotFound) {
			return apperr.BadRequest("No active subscription to upgrade")
		}
		if err != nil {
			return err
		}
		previousID = current.ID

		if err = tx.CancelSubscription(ctx, current.ID, now); err != nil {
			return err
		}
		created = newPeriod(user.UserID, plan, now)
		created.ID, err = tx.CreateSubscription(ctx, created)
		return err
	})
	if err != nil {
		return nil, s.fail(opUpgrade, err)
	}

	s.observe(opUpgrade, metrics.ResultOK)
	s.log.Info("subscription upgraded",
		slog.Int64("user_id", user.UserID),
		slog.Int64("previous_id", previousID),
		slog.Int64("subscription_id", created.ID),
		slog.String("plan", plan.Name))
	event := models.NewSubscriptionEvent(models.EventSubscriptionUpgraded, created, now)
	event.PreviousID = &previousID
	s.publish(ctx, event)

	return &models.Confirmation{
		Message:  fmt.Sprintf("Upgraded to %s until %s", plan.Name, formatEndDate(*created.EndDate)),
		PlanName: plan.Name,
		EndDate:  *created.EndDate,
	}, nil
}

// Cancel отменяет активную подписку: end_date обрезается до текущего момента.
func (s *Service) Cancel(ctx context.Context, user models.Identity) error {
	var (
		now       time.Time
		cancelled models.Subscription
	)
	err := s.ledger.WithinUserLock(ctx, user.UserID, func(tx storage.LedgerTx) error {
		now = s.clock.Now()
		current, err := tx.FindActive(ctx, user.UserID)
		if errors.Is(err, storage.ErrSubscriptionNotFound) {
			return apperr.BadRequest("No active subscription to cancel")
		}
		if err != nil {
			return err
		}
		if err = tx.CancelSubscription(ctx, current.ID, now); err != nil {
			return err
		}
		cancelled = *current
		cancelled.Status = models.StatusCancelled
		cancelled.EndDate = &now
		cancelled.UpdatedAt = now
		return nil
	})
	if err != nil {
		return s.fail(opCancel, err)
	}

	s.observe(opCancel, metrics.ResultOK)
	s.log.Info("subscription cancelled",
		slog.Int64("user_id", user.UserID),
		slog.Int64("subscription_id", cancelled.ID))
	s.publish(ctx, models.NewSubscriptionEvent(models.EventSubscriptionCancelled, cancelled, now))
	return nil
}

// Active возвращает текущую подписку. В отличие от Subscribe, учитывает и статус,
// и end_date: истёкшая запись со статусом active здесь не видна.
func (s *Service) Active(ctx context.Context, userID int64) (*models.ActiveSubscription, error) {
	sub, err := s.ledger.ActiveSubscription(ctx, userID, s.clock.Now())
	if err != nil {
		if errors.Is(err, storage.ErrSubscriptionNotFound) {
			return nil, apperr.Wrap(err, apperr.KindNotFound, "No active subscription found")
		}
		return nil, apperr.Internal(err)
	}
	return &models.ActiveSubscription{
		PlanName:  sub.PlanName,
		PlanPrice: sub.PlanPrice,
		StartDate: sub.StartDate,
		EndDate:   sub.EndDate,
	}, nil
}

// History возвращает историю подписок, новые первыми. Статус в каждой записи
// вычисляется по end_date и может расходиться с хранимым.
func (s *Service) History(ctx context.Context, userID int64) ([]models.HistoryEntry, error) {
	rows, err := s.ledger.SubscriptionHistory(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	now := s.clock.Now()
	history := make([]models.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		history = append(history, models.HistoryEntry{
			PlanName:  row.PlanName,
			PlanPrice: row.PlanPrice,
			StartDate: row.StartDate,
			EndDate:   row.EndDate,
			Status:    row.DisplayStatus(now),
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return history, nil
}

// ActiveProjections: облегчённый вариант Active, возвращает список (возможно пустой).
func (s *Service) ActiveProjections(ctx context.Context, userID int64) ([]models.ActiveProjection, error) {
	rows, err := s.ledger.ActiveProjections(ctx, userID, s.clock.Now())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return rows, nil
}

// HistoryProjections: облегчённый вариант History с хранимым статусом.
func (s *Service) HistoryProjections(ctx context.Context, userID int64) ([]models.HistoryProjection, error) {
	rows, err := s.ledger.HistoryProjections(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return rows, nil
}

// formatEndDate печатает дату без дробной части для целых секунд,
// иначе с шестью знаками микросекунд.
func formatEndDate(t time.Time) string {
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format(endDateLayout)
	}
	return t.Format(endDateLayoutMicros)
}

func newPeriod(userID int64, plan *models.Plan, now time.Time) models.Subscription {
	end := now.AddDate(0, 0, plan.DurationDays)
	return models.Subscription{
		UserID:    userID,
		PlanID:    plan.ID,
		StartDate: now,
		EndDate:   &end,
		Status:    models.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// fail переводит ошибку транзакции в ошибку приложения и учитывает её в метриках.
func (s *Service) fail(operation string, err error) error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		s.observe(operation, metrics.ResultRejected)
		return appErr
	case errors.Is(err, storage.ErrActiveSubscriptionExists):
		s.observe(operation, metrics.ResultRejected)
		return apperr.Wrap(err, apperr.KindConflict, "User already has an active subscription. Cancel it first.")
	case errors.Is(err, storage.ErrUserNotFound):
		s.observe(operation, metrics.ResultRejected)
		return apperr.Wrap(err, apperr.KindUnauthorized, "Invalid credentials")
	default:
		s.observe(operation, metrics.ResultError)
		s.log.Error("subscription transition failed", slog.String("operation", operation), sl.Err(err))
		return apperr.Internal(err)
	}
}

func (s *Service) observe(operation, result string) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(operation, result)
	}
}

func (s *Service) publish(ctx context.Context, event models.SubscriptionEvent) {
	if err := s.publisher.Publish(ctx, event.Type, event); err != nil {
		s.log.Warn("failed to publish subscription event",
			slog.String("type", event.Type),
			slog.Int64("subscription_id", event.SubscriptionID),
			sl.Err(err))
	}
}
