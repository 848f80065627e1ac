// Package authapi собирает HTTP API аутентификации: маршруты и зависимости.
package authapi

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/taskflow/internal/config"
	"github.com/magabrotheeeer/taskflow/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/taskflow/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/taskflow/internal/http/handlers/auth/status"
	"github.com/magabrotheeeer/taskflow/internal/http/handlers/auth/verify"
	"github.com/magabrotheeeer/taskflow/internal/http/handlers/health"
	"github.com/magabrotheeeer/taskflow/internal/http/middlewarectx"
	services "github.com/magabrotheeeer/taskflow/internal/services/auth"

	// swagger-спецификация
	_ "github.com/magabrotheeeer/taskflow/docs"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, authService *services.AuthService, healthDeps health.Dependencies) {
	showDetails := !cfg.IsProduction()

	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Get("/", health.NewRoot(health.ServiceInfo{
		Environment:        cfg.Env,
		RegistrationMode:   string(authService.Mode()),
		DatabaseConfigured: cfg.StorageConnectionString != "",
		QueueConfigured:    cfg.RabbitMQURL != "",
	}, authService).ServeHTTP)
	r.Get("/health", health.New(logger, healthDeps).ServeHTTP)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middlewarectx.RateLimitMiddleware(logger, cfg.LoginRateLimit, cfg.LoginBurst)).
			Post("/login", login.New(logger, authService, showDetails).ServeHTTP)
		r.Post("/register", register.New(logger, authService, showDetails).ServeHTTP)
		r.Get("/register/{requestId}", status.New(logger, authService, showDetails).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Get("/verify", verify.New(logger, authService, showDetails).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
