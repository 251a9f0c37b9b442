// Package create реализует HTTP-обработчик добавления плана в каталог.
// Доступен только администратору.
package create

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subscription-manager/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-manager/internal/http/response"
	"github.com/magabrotheeeer/subscription-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-manager/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-manager/internal/models"
)

// Request: атрибуты нового плана. Указатели отличают отсутствующее поле от нуля.
type Request struct {
	Name         string  `json:"name" validate:"required"`
	Price        *int64  `json:"price" validate:"required"`
	DurationDays *int    `json:"duration_days" validate:"required"`
	Description  *string `json:"description,omitempty"`
}

// Service создаёт план.
type Service interface {
	Create(ctx context.Context, requester models.Identity, in models.PlanInput) (*models.Plan, error)
}

// Handler обрабатывает POST /plans.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создание тарифного плана
// @Tags Plans
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Security BasicAuth
// @Param request body Request true "Атрибуты плана"
// @Success 201 {object} response.Response{data=models.Plan}
// @Failure 400 {object} response.ErrorResponse "Не заполнены поля"
// @Failure 403 {object} response.ErrorResponse "Нет прав администратора"
// @Failure 409 {object} response.ErrorResponse "План с таким именем уже есть"
// @Router /plans [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plan.create"

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
	if !identity.IsAdmin() {
		log.Info("plan creation forbidden", slog.String("username", identity.Username))
		response.RenderError(w, r, apperr.Forbidden("Admin access required"), nil)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(apperr.KindBadRequest, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(apperr.KindBadRequest, "Name, price, and duration_days are required"))
		return
	}

	plan, err := h.service.Create(r.Context(), identity, models.PlanInput{
		Name:         req.Name,
		Price:        req.Price,
		DurationDays: req.DurationDays,
		Description:  req.Description,
	})
	if err != nil {
		log.Info("plan creation rejected", sl.Err(err))
		response.RenderError(w, r, err, nil)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(plan))
}
