// Package active реализует HTTP-обработчики получения текущей подписки:
// развёрнутый ответ с данными плана и оптимизированную проекцию.
package active

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-manager/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-manager/internal/http/response"
	"github.com/magabrotheeeer/subscription-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-manager/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-manager/internal/models"
)

// Service возвращает действующую подписку пользователя.
type Service interface {
	Active(ctx context.Context, userID int64) (*models.ActiveSubscription, error)
}

// ProjectionService возвращает сырые строки действующих подписок.
type ProjectionService interface {
	ActiveProjections(ctx context.Context, userID int64) ([]models.ActiveProjection, error)
}

// Handler обрабатывает GET /subscriptions/active.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Текущая подписка
// @Description Подписка со статусом active и не истёкшим сроком.
// @Tags Subscriptions
// @Produce  json
// @Security BearerAuth
// @Security BasicAuth
// @Success 200 {object} response.Response{data=models.ActiveSubscription}
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse "Активной подписки нет"
// @Router /subscriptions/active [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.active"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	identity, ok := middlewarectx.IdentityFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error(apperr.KindUnauthorized, "Invalid credentials"))
		return
	}

	sub, err := h.service.Active(r.Context(), identity.UserID)
	if err != nil {
		log.Info("active subscription lookup failed", slog.Int64("user_id", identity.UserID), sl.Err(err))
		response.RenderError(w, r, err, nil)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(sub))
}

// OptimizedHandler обрабатывает GET /subscriptions/active/optimized.
type OptimizedHandler struct {
	log     *slog.Logger
	service ProjectionService
}

// NewOptimized создает новый экземпляр OptimizedHandler.
func NewOptimized(log *slog.Logger, service ProjectionService) *OptimizedHandler {
	return &OptimizedHandler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Текущая подписка (проекция)
// @Description Список строк без вложенных объектов. Пустой список, если подписки нет.
// @Tags Subscriptions
// @Produce  json
// @Security BearerAuth
// @Security BasicAuth
// @Success 200 {object} response.Response{data=[]models.ActiveProjection}
// @Failure 401 {object} response.ErrorResponse
// @Router /subscriptions/active/optimized [get]
func (h *OptimizedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.active.optimized"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	identity, ok := middlewarectx.IdentityFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error(apperr.KindUnauthorized, "Invalid credentials"))
		return
	}

	rows, err := h.service.ActiveProjections(r.Context(), identity.UserID)
	if err != nil {
		log.Error("failed to load active projections", sl.Err(err))
		response.RenderError(w, r, err, nil)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(rows))
}
