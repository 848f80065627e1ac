// Package verify реализует обработчик проверки токена: возвращает
// пользователя, которому принадлежит bearer-токен запроса.
package verify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/taskflow/internal/http/middlewarectx"
	"github.com/magabrotheeeer/taskflow/internal/http/response"
	"github.com/magabrotheeeer/taskflow/internal/lib/sl"
	"github.com/magabrotheeeer/taskflow/internal/models"
	services "github.com/magabrotheeeer/taskflow/internal/services/auth"
)

// Response - данные успешной проверки токена.
type Response struct {
	User    *models.PublicUser `json:"user"`
	Message string             `json:"message"`
}

type Service interface {
	CurrentUser(ctx context.Context, username string) (*models.PublicUser, error)
}

type Handler struct {
	log         *slog.Logger
	authService Service
	showDetails bool
}

func New(log *slog.Logger, authService Service, showDetails bool) *Handler {
	return &Handler{
		log:         log,
		authService: authService,
		showDetails: showDetails,
	}
}

// ServeHTTP godoc
// @Summary Проверка токена
// @Description Возвращает пользователя, которому выдан bearer-токен.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=Response}
// @Failure 401 {object} response.ErrorResponse "Токен отсутствует или недействителен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/verify [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.verify"

	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	username, ok := middlewarectx.UsernameFromContext(r.Context())
	if !ok {
		log.Error("username missing in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid or expired token"))
		return
	}

	user, err := h.authService.CurrentUser(r.Context(), username)
	if errors.Is(err, services.ErrInvalidToken) {
		log.Warn("token owner not found", slog.String("username", username))
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid or expired token"))
		return
	}
	if err != nil {
		log.Error("failed to load user", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.InternalError("internal server error", err, h.showDetails))
		return
	}

	render.JSON(w, r, response.OKWithData(Response{
		User:    user,
		Message: "token verified successfully",
	}))
}
