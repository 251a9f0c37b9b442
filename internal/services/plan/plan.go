// Package plan реализует каталог тарифных планов с кэшированием в Redis.
package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/subscription-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-manager/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-manager/internal/models"
	"github.com/magabrotheeeer/subscription-manager/internal/storage"
)

const allPlansKey = "plans:all"

func planKey(id int64) string {
	return fmt.Sprintf("plan:%d", id)
}

// Repository определяет методы хранилища планов.
type Repository interface {
	ListPlans(ctx context.Context) ([]models.Plan, error)
	GetPlan(ctx context.Context, id int64) (*models.Plan, error)
	CreatePlan(ctx context.Context, plan models.Plan) (int64, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(ctx context.Context, key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	// Invalidate удаляет значения из кеша по ключам.
	Invalidate(ctx context.Context, keys ...string) error
}

// Service: каталог планов.
type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(repo Repository, cache Cache, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

// List возвращает все планы каталога. Ошибки кэша не прерывают запрос.
func (s *Service) List(ctx context.Context) ([]models.Plan, error) {
	var plans []models.Plan
	found, err := s.cache.Get(ctx, allPlansKey, &plans)
	if err != nil {
		s.log.Warn("failed to read plans from cache", sl.Err(err))
	}
	if found && plans != nil {
		return plans, nil
	}

	plans, err = s.repo.ListPlans(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.cache.Set(ctx, allPlansKey, plans, s.ttl); err != nil {
		s.log.Warn("failed to cache plans", sl.Err(err))
	}
	return plans, nil
}

// Get возвращает план по ID. Если плана нет, ошибка оборачивает storage.ErrPlanNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*models.Plan, error) {
	key := planKey(id)
	var cached models.Plan
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("failed to read plan from cache", slog.String("key", key), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	plan, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, plan, s.ttl); err != nil {
		s.log.Warn("failed to cache plan", slog.String("key", key), sl.Err(err))
	}
	return plan, nil
}

// Create добавляет план в каталог. Доступно только администратору.
// Проверки выполняются в порядке: роль, обязательные поля, уникальность имени.
func (s *Service) Create(ctx context.Context, requester models.Identity, in models.PlanInput) (*models.Plan, error) {
	if !requester.IsAdmin() {
		return nil, apperr.Forbidden("Admin access required")
	}
	// Имя хранится без пробелов по краям, уникальность проверяется по нему же.
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Price == nil || in.DurationDays == nil {
		return nil, apperr.BadRequest("Name, price, and duration_days are required")
	}
	if *in.Price < 0 {
		return nil, apperr.BadRequest("Price must not be negative")
	}
	if *in.DurationDays <= 0 {
		return nil, apperr.BadRequest("Duration must be a positive number of days")
	}

	plan := models.Plan{
		Name:         name,
		Price:        *in.Price,
		Description:  in.Description,
		DurationDays: *in.DurationDays,
	}
	id, err := s.repo.CreatePlan(ctx, plan)
	if err != nil {
		if errors.Is(err, storage.ErrPlanNameExists) {
			return nil, apperr.Wrap(err, apperr.KindConflict, "Subscription plan name already exists")
		}
		return nil, apperr.Internal(err)
	}
	plan.ID = id

	s.log.Info("plan created", slog.Int64("id", id), slog.String("name", name),
		slog.String("by", requester.Username))
	if err := s.cache.Invalidate(ctx, allPlansKey); err != nil {
		s.log.Warn("failed to invalidate plans cache", sl.Err(err))
	}
	return &plan, nil
}
