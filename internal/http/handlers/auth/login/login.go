// Package login реализует HTTP-обработчик входа пользователя.
//
// Обработчик декодирует и валидирует тело запроса, делегирует проверку учётных
// данных сервису и при успехе возвращает JWT и публичные данные пользователя.
// Неизвестный пользователь и неверный пароль дают одинаковый ответ 401.
package login

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/taskflow/internal/http/response"
	"github.com/magabrotheeeer/taskflow/internal/lib/sl"
	"github.com/magabrotheeeer/taskflow/internal/metrics"
	services "github.com/magabrotheeeer/taskflow/internal/services/auth"
)

// Request - структура входных данных для авторизации.
type Request struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LogValue не пускает пароль в логи.
func (r Request) LogValue() slog.Value {
	return slog.GroupValue(slog.String("username", r.Username))
}

// Service описывает интерфейс бизнес-логики аутентификации.
type Service interface {
	Login(ctx context.Context, username, password string) (*services.LoginResult, error)
}

// Handler обрабатывает HTTP-запросы для авторизации.
type Handler struct {
	log         *slog.Logger
	authService Service
	validate    *validator.Validate
	showDetails bool
}

// New создает новый экземпляр Handler. showDetails включает текст внутренних
// ошибок в ответ и должен быть выключен в prod.
func New(log *slog.Logger, authService Service, showDetails bool) *Handler {
	return &Handler{
		log:         log,
		authService: authService,
		validate:    validator.New(),
		showDetails: showDetails,
	}
}

// ServeHTTP godoc
// @Summary Авторизация пользователя
// @Description Аутентифицирует пользователя по имени и паролю. Возвращает JWT и публичные данные пользователя.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Учетные данные пользователя"
// @Success 200 {object} response.Response{data=services.LoginResult} "Успешная авторизация"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или не заполнены поля"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.LoginValidationError).Inc()
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Debug("request body decoded", slog.Any("request", req))

	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.LoginValidationError).Inc()
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	res, err := h.authService.Login(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrValidation):
		log.Warn("validation failed", sl.Err(err))
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.LoginValidationError).Inc()
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("username and password are required"))
		return
	case errors.Is(err, services.ErrInvalidCredentials):
		log.Info("login rejected", slog.String("username", req.Username))
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.LoginInvalidCredentials).Inc()
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid username or password"))
		return
	default:
		log.Error("login failed", sl.Err(err))
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.LoginInternalError).Inc()
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.InternalError("internal server error", err, h.showDetails))
		return
	}

	log.Info("login success", slog.String("username", req.Username))
	metrics.LoginAttemptsTotal.WithLabelValues(metrics.LoginSuccess).Inc()
	render.JSON(w, r, response.OKWithData(res))
}
