// Package upgrade реализует HTTP-обработчик перехода на другой план.
package upgrade

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

// Service переводит активную подписку на другой план.
type Service interface {
	Upgrade(ctx context.Context, user models.Identity, newPlanID int64) (*models.Confirmation, error)
}

// Handler обрабатывает POST /subscriptions/upgrade/{plan_id}.
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
// @Summary Смена плана
// @Description Отменяет текущую подписку и создаёт новую на указанный план одной транзакцией.
// @Tags Subscriptions
// @Produce  json
// @Security BearerAuth
// @Security BasicAuth
// @Param plan_id path int true "ID нового плана"
// @Success 200 {object} response.Response{data=models.Confirmation}
// @Failure 400 {object} response.ErrorResponse "Нет активной подписки"
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse "План не найден"
// @Failure 500 {object} response.ErrorResponse
// @Router /subscriptions/upgrade/{plan_id} [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.upgrade"

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
		response.RenderError(w, r, apperr.NotFound("New subscription plan not found"), nil)
		return
	}

	confirmation, err := h.service.Upgrade(r.Context(), identity, planID)
	if err != nil {
		log.Info("upgrade rejected", slog.Int64("user_id", identity.UserID), slog.Int64("plan_id", planID), sl.Err(err))
		response.RenderError(w, r, err, response.ConflictAsBadRequest)
		return
	}

	log.Info("upgraded", slog.Int64("user_id", identity.UserID), slog.Int64("plan_id", planID))
	render.JSON(w, r, response.StatusOKWithData(confirmation))
}
