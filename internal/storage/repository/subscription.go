package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/subscription-manager/internal/models"
	"github.com/magabrotheeeer/subscription-manager/internal/storage"
)

// WithinUserLock выполняет fn в транзакции, удерживающей блокировку строки
// пользователя. Конкурентные переходы одного пользователя сериализуются,
// переходы разных пользователей друг друга не ждут. Транзакция фиксируется,
// только если fn вернула nil; ошибка fn возвращается без изменений.
func (s *Storage) WithinUserLock(ctx context.Context, userID int64, fn func(tx storage.LedgerTx) error) error {
	const op = "storage.WithinUserLock"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var lockedID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&lockedID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = fn(&ledgerTx{q: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	committed = true
	return nil
}

type ledgerTx struct {
	q querier
}

// FindActive возвращает запись со статусом active без учёта end_date.
func (l *ledgerTx) FindActive(ctx context.Context, userID int64) (*models.Subscription, error) {
	const op = "storage.FindActive"

	query := `SELECT id, user_id, plan_id, start_date, end_date, status, created_at, updated_at
			  FROM user_subscriptions
			  WHERE user_id = $1 AND status = $2
			  ORDER BY id
			  LIMIT 1`
	sub, err := scanSubscription(l.q.QueryRowContext(ctx, query, userID, models.StatusActive))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrSubscriptionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// CreateSubscription вставляет новую запись реестра и возвращает её ID.
func (l *ledgerTx) CreateSubscription(ctx context.Context, sub models.Subscription) (int64, error) {
	const op = "storage.CreateSubscription"

	query := `INSERT INTO user_subscriptions (user_id, plan_id, start_date, end_date, status,
			      created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id`
	var newID int64
	err := l.q.QueryRowContext(ctx, query,
		sub.UserID, sub.PlanID, sub.StartDate, sub.EndDate, sub.Status,
		sub.CreatedAt, sub.UpdatedAt).Scan(&newID)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == "ux_user_subscriptions_one_active" {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrActiveSubscriptionExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// CancelSubscription переводит запись в cancelled, end_date и updated_at становятся равны at.
func (l *ledgerTx) CancelSubscription(ctx context.Context, id int64, at time.Time) error {
	const op = "storage.CancelSubscription"

	query := `UPDATE user_subscriptions
			  SET status = $1, end_date = $2, updated_at = $2
			  WHERE id = $3`
	res, err := l.q.ExecContext(ctx, query, models.StatusCancelled, at, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrSubscriptionNotFound)
	}
	return nil
}

// ActiveSubscription возвращает активную и ещё не истёкшую подписку вместе с планом.
// В отличие от FindActive, запись с прошедшим end_date сюда не попадает.
func (s *Storage) ActiveSubscription(ctx context.Context, userID int64, now time.Time) (*models.SubscriptionWithPlan, error) {
	const op = "storage.ActiveSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT us.id, us.user_id, us.plan_id, us.start_date, us.end_date, us.status,
			      us.created_at, us.updated_at, sp.name, sp.price
			  FROM user_subscriptions us
			  JOIN subscription_plans sp ON us.plan_id = sp.id
			  WHERE us.user_id = $1 AND us.status = $2
			    AND (us.end_date IS NULL OR us.end_date > $3)
			  LIMIT 1`
	var res models.SubscriptionWithPlan
	var endDate sql.NullTime
	err := s.DB.QueryRowContext(ctx, query, userID, models.StatusActive, now).Scan(
		&res.ID, &res.UserID, &res.PlanID, &res.StartDate, &endDate, &res.Status,
		&res.CreatedAt, &res.UpdatedAt, &res.PlanName, &res.PlanPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrSubscriptionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if endDate.Valid {
		res.EndDate = &endDate.Time
	}
	return &res, nil
}

// SubscriptionHistory возвращает все записи пользователя с планами,
// от самой поздней start_date к самой ранней.
func (s *Storage) SubscriptionHistory(ctx context.Context, userID int64) ([]models.SubscriptionWithPlan, error) {
	const op = "storage.SubscriptionHistory"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT us.id, us.user_id, us.plan_id, us.start_date, us.end_date, us.status,
			      us.created_at, us.updated_at, sp.name, sp.price
			  FROM user_subscriptions us
			  JOIN subscription_plans sp ON us.plan_id = sp.id
			  WHERE us.user_id = $1
			  ORDER BY us.start_date DESC, us.id DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.SubscriptionWithPlan, 0)
	for rows.Next() {
		var item models.SubscriptionWithPlan
		var endDate sql.NullTime
		if err := rows.Scan(&item.ID, &item.UserID, &item.PlanID, &item.StartDate, &endDate,
			&item.Status, &item.CreatedAt, &item.UpdatedAt, &item.PlanName, &item.PlanPrice); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if endDate.Valid {
			item.EndDate = &endDate.Time
		}
		result = append(result, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ActiveProjections: оптимизированный вариант выборки активных подписок:
// только нужные колонки, без гидрации записей.
func (s *Storage) ActiveProjections(ctx context.Context, userID int64, now time.Time) ([]models.ActiveProjection, error) {
	const op = "storage.ActiveProjections"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT us.id, sp.name, sp.price, sp.duration_days, us.start_date, us.end_date
			  FROM user_subscriptions us
			  JOIN subscription_plans sp ON us.plan_id = sp.id
			  WHERE us.user_id = $1 AND us.status = $2
			    AND (us.end_date IS NULL OR us.end_date > $3)`
	rows, err := s.DB.QueryContext(ctx, query, userID, models.StatusActive, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.ActiveProjection, 0)
	for rows.Next() {
		var item models.ActiveProjection
		var endDate sql.NullTime
		if err := rows.Scan(&item.ID, &item.Name, &item.Price, &item.DurationDays,
			&item.StartDate, &endDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if endDate.Valid {
			item.EndDate = &endDate.Time
		}
		result = append(result, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// HistoryProjections: оптимизированный вариант истории с хранимым статусом.
func (s *Storage) HistoryProjections(ctx context.Context, userID int64) ([]models.HistoryProjection, error) {
	const op = "storage.HistoryProjections"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT us.id, sp.name, sp.price, sp.duration_days, us.start_date, us.end_date, us.status
			  FROM user_subscriptions us
			  JOIN subscription_plans sp ON us.plan_id = sp.id
			  WHERE us.user_id = $1
			  ORDER BY us.start_date DESC, us.id DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.HistoryProjection, 0)
	for rows.Next() {
		var item models.HistoryProjection
		var endDate sql.NullTime
		if err := rows.Scan(&item.ID, &item.Name, &item.Price, &item.DurationDays,
			&item.StartDate, &endDate, &item.Status); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if endDate.Valid {
			item.EndDate = &endDate.Time
		}
		result = append(result, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var sub models.Subscription
	var endDate sql.NullTime
	if err := row.Scan(&sub.ID, &sub.UserID, &sub.PlanID, &sub.StartDate, &endDate,
		&sub.Status, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	if endDate.Valid {
		sub.EndDate = &endDate.Time
	}
	return &sub, nil
}
