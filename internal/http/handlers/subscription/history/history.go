// Package history реализует HTTP-обработчики истории подписок пользователя.
package history

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

// Service возвращает историю с вычисленным статусом.
type Service interface {
	History(ctx context.Context, userID int64) ([]models.HistoryEntry, error)
}

// ProjectionService возвращает историю с хранимым статусом.
type ProjectionService interface {
	HistoryProjections(ctx context.Context, userID int64) ([]models.HistoryProjection, error)
}

// Handler обрабатывает GET /subscriptions/history.
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
// @Summary История подписок
// @Description Все периоды подписки, новые первыми. Статус Active, если end_date ещё не наступил.
// @Tags Subscriptions
// @Produce  json
// @Security BearerAuth
// @Security BasicAuth
// @Success 200 {object} response.Response{data=[]models.HistoryEntry}
// @Failure 401 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /subscriptions/history [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.history"

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

	entries, err := h.service.History(r.Context(), identity.UserID)
	if err != nil {
		log.Error("failed to load history", slog.Int64("user_id", identity.UserID), sl.Err(err))
		response.RenderError(w, r, err, nil)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(entries))
}

// OptimizedHandler обрабатывает GET /subscriptions/history/optimized.
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
// @Summary История подписок (проекция)
// @Tags Subscriptions
// @Produce  json
// @Security BearerAuth
// @Security BasicAuth
// @Success 200 {object} response.Response{data=[]models.HistoryProjection}
// @Failure 401 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /subscriptions/history/optimized [get]
func (h *OptimizedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.history.optimized"

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

	rows, err := h.service.HistoryProjections(r.Context(), identity.UserID)
	if err != nil {
		log.Error("failed to load history projections", sl.Err(err))
		response.RenderError(w, r, err, nil)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(rows))
}
