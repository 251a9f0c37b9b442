package subscriptionmanager

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/subscription-manager/internal/config"
	"github.com/magabrotheeeer/subscription-manager/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/subscription-manager/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/subscription-manager/internal/http/handlers/health"
	"github.com/magabrotheeeer/subscription-manager/internal/http/handlers/plan/create"
	"github.com/magabrotheeeer/subscription-manager/internal/http/handlers/plan/list"
	"github.com/magabrotheeeer/subscription-manager/internal/http/handlers/subscription/active"
	"github.com/magabrotheeeer/subscription-manager/internal/http/handlers/subscription/cancel"
	"github.com/magabrotheeeer/subscription-manager/internal/http/handlers/subscription/history"
	"github.com/magabrotheeeer/subscription-manager/internal/http/handlers/subscription/subscribe"
	"github.com/magabrotheeeer/subscription-manager/internal/http/handlers/subscription/upgrade"
	"github.com/magabrotheeeer/subscription-manager/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/subscription-manager/internal/services/auth"
	planservice "github.com/magabrotheeeer/subscription-manager/internal/services/plan"
	subservice "github.com/magabrotheeeer/subscription-manager/internal/services/subscription"
)

// Services: зависимости, необходимые маршрутам.
type Services struct {
	Auth         *authservice.Service
	Plans        *planservice.Service
	Subscription *subservice.Service
	DB           health.Pinger
	Metrics      middlewarectx.RequestObserver
	Registry     *prometheus.Registry
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services, limit config.RateLimit) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middlewarectx.MetricsMiddleware(s.Metrics),
	)

	// Открытые конечные точки с ограничением частоты
	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger, limit.RPS, limit.Burst))
		r.Post("/register", register.New(logger, s.Auth).ServeHTTP)
		r.Post("/login", login.New(logger, s.Auth).ServeHTTP)
	})

	// Группа с аутентификацией по Bearer или Basic
	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.AuthMiddleware(s.Auth, logger))

		r.Get("/plans", list.New(logger, s.Plans).ServeHTTP)
		r.Post("/plans", create.New(logger, s.Plans).ServeHTTP)

		r.Post("/subscribe/{plan_id:[0-9]+}", subscribe.New(logger, s.Subscription).ServeHTTP)
		r.Get("/subscriptions/active", active.New(logger, s.Subscription).ServeHTTP)
		r.Get("/subscriptions/active/optimized", active.NewOptimized(logger, s.Subscription).ServeHTTP)
		r.Get("/subscriptions/history", history.New(logger, s.Subscription).ServeHTTP)
		r.Get("/subscriptions/history/optimized", history.NewOptimized(logger, s.Subscription).ServeHTTP)
		r.Post("/subscriptions/upgrade/{plan_id:[0-9]+}", upgrade.New(logger, s.Subscription).ServeHTTP)
		r.Post("/subscriptions/cancel", cancel.New(logger, s.Subscription).ServeHTTP)
	})

	r.Get("/health", health.New(logger, s.DB).ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}))
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
