// Package middlewarectx содержит HTTP middleware сервиса аутентификации.
//
// JWTMiddleware проверяет наличие и валидность bearer-токена в заголовке Authorization
// и в случае успеха добавляет в контекст имя пользователя для дальнейшего
// использования в обработчиках. В случае ошибки возвращает HTTP 401 Unauthorized.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/taskflow/internal/http/response"
	"github.com/magabrotheeeer/taskflow/internal/lib/jwt"
	"github.com/magabrotheeeer/taskflow/internal/lib/sl"
	"github.com/magabrotheeeer/taskflow/internal/metrics"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// User - ключ для имени пользователя в контексте.
const User Key = "username"

const bearerPrefix = "Bearer "

// Service описывает интерфейс сервиса для валидации JWT токена.
type Service interface {
	ValidateToken(ctx context.Context, token string) (*jwt.Principal, error)
}

// UsernameFromContext возвращает имя пользователя, положенное JWTMiddleware.
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(User).(string)
	return username, ok && username != ""
}

// WithUsername кладёт имя пользователя в контекст.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, User, username)
}

// JWTMiddleware возвращает HTTP middleware, который проверяет JWT в заголовке Authorization.
func JWTMiddleware(authService Service, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"

			log := log.With(
				sl.Op(op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, bearerPrefix) {
				log.Warn("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))

			principal, err := authService.ValidateToken(r.Context(), tokenStr)
			if err != nil {
				metrics.TokenValidationsTotal.WithLabelValues("invalid").Inc()
				log.Warn("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			metrics.TokenValidationsTotal.WithLabelValues("valid").Inc()

			next.ServeHTTP(w, r.WithContext(WithUsername(r.Context(), principal.Username)))
		})
	}
}
