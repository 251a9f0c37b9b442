// Package cancel реализует HTTP-обработчик отмены активной подписки.
package cancel

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

// Service отменяет активную подписку пользователя.
type Service interface {
	Cancel(ctx context.Context, user models.Identity) error
}

// Handler обрабатывает POST /subscriptions/cancel.
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
// @Summary Отмена подписки
// @Tags Subscriptions
// @Produce  json
// @Security BearerAuth
// @Security BasicAuth
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Нет активной подписки"
// @Failure 401 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /subscriptions/cancel [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.cancel"

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

	if err := h.service.Cancel(r.Context(), identity); err != nil {
		log.Info("cancel rejected", slog.Int64("user_id", identity.UserID), sl.Err(err))
		response.RenderError(w, r, err, nil)
		return
	}

	log.Info("subscription cancelled", slog.Int64("user_id", identity.UserID))
	render.JSON(w, r, response.StatusOKWithData(map[string]string{
		"message": "Subscription cancelled",
	}))
}
