// Package middlewarectx содержит HTTP middleware сервиса: аутентификацию
// (Bearer и HTTP Basic), ограничение частоты запросов и сбор метрик.
//
// AuthMiddleware проверяет заголовок Authorization и в случае успеха кладёт
// субъект запроса (models.Identity) в контекст для дальнейшего использования
// в обработчиках. При ошибке возвращает HTTP 401 Unauthorized.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-manager/internal/http/response"
	"github.com/magabrotheeeer/subscription-manager/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-manager/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-manager/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// IdentityKey: ключ субъекта запроса в контексте.
const IdentityKey Key = "identity"

// Authenticator проверяет учётные данные запроса.
type Authenticator interface {
	ValidateToken(ctx context.Context, token string) (models.Identity, error)
	Verify(ctx context.Context, username, password string) (models.Identity, error)
}

// WithIdentity возвращает контекст с субъектом запроса.
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// IdentityFromContext достаёт субъект запроса, положенный AuthMiddleware.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(models.Identity)
	return identity, ok
}

// AuthMiddleware принимает Bearer-токен или HTTP Basic.
func AuthMiddleware(auth Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.AuthMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			var (
				identity models.Identity
				err      error
			)
			authHeader := r.Header.Get("Authorization")
			switch {
			case strings.HasPrefix(authHeader, "Bearer "):
				identity, err = auth.ValidateToken(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
			case strings.HasPrefix(authHeader, "Basic "):
				username, password, ok := r.BasicAuth()
				if !ok {
					err = apperr.Unauthorized("Invalid credentials")
					break
				}
				identity, err = auth.Verify(r.Context(), username, password)
			default:
				log.Info("missing or invalid authorization header")
				w.Header().Set("WWW-Authenticate", `Basic realm="subscriptions"`)
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(apperr.KindUnauthorized, "missing or invalid authorization header"))
				return
			}
			if err != nil {
				if apperr.Is(err, apperr.KindInternal) {
					log.Error("authentication failed", sl.Err(err))
					response.RenderError(w, r, err, nil)
					return
				}
				log.Info("invalid credentials", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(apperr.KindUnauthorized, "Invalid credentials"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}
