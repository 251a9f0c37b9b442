// Package subscribe реализует HTTP-обработчик оформления подписки на план.
package subscribe

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-manager/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-manager/internal/http/response"
	"github.com/magabrotheeeer/subscription-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-manager/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-manager/internal/models"
)

// Service оформляет подписку.
type Service interface {
	Subscribe(ctx context.Context, user models.Identity, planID int64) (*models.Confirmation, error)
}

// Handler обрабатывает POST /subscribe/{plan_id}.
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
// @Summary Оформление подписки
// @Description Создаёт активную подписку на план. У пользователя может быть только одна активная подписка.
// @Tags Subscriptions
// @Produce  json
// @Security BearerAuth
// @Security BasicAuth
// @Param plan_id path int true "ID плана"
// @Success 201 {object} response.Response{data=models.Confirmation}
// @Failure 400 {object} response.ErrorResponse "Уже есть активная подписка"
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse "План не найден"
// @Failure 500 {object} response.ErrorResponse
// @Router /subscribe/{plan_id} [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.subscribe"

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

	planID, err := strconv.ParseInt(chi.URLParam(r, "plan_id"), 10, 64)
	if err != nil {
		log.Info("invalid plan id", slog.String("plan_id", chi.URLParam(r, "plan_id")))
		response.RenderError(w, r, apperr.NotFound("Subscription plan not found"), nil)
		return
	}

	confirmation, err := h.service.Subscribe(r.Context(), identity, planID)
	if err != nil {
		log.Info("subscribe rejected", slog.Int64("user_id", identity.UserID), slog.Int64("plan_id", planID), sl.Err(err))
		response.RenderError(w, r, err, response.ConflictAsBadRequest)
		return
	}

	log.Info("subscribed", slog.Int64("user_id", identity.UserID), slog.Int64("plan_id", planID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(confirmation))
}
