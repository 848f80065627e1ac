// Package register реализует HTTP-обработчик регистрации пользователя.
//
// В прямом режиме пользователь создаётся сразу (201), в режиме очереди
// заявка публикуется в очередь и клиент получает requestId (202).
package register

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
	"github.com/magabrotheeeer/taskflow/internal/models"
	services "github.com/magabrotheeeer/taskflow/internal/services/auth"
)

// Request - входные данные для регистрации.
// Тег max считает символы, а предел bcrypt в 72 байта проверяет сервис.
type Request struct {
	Username string `json:"username" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// LogValue не пускает пароль в логи.
func (r Request) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", r.Username),
		slog.String("email", r.Email),
	)
}

// QueuedResponse - ответ на заявку, поставленную в очередь.
type QueuedResponse struct {
	RequestID string                    `json:"requestId"`
	Status    models.RegistrationStatus `json:"status"`
}

// Service описывает регистрацию пользователя.
type Service interface {
	Register(ctx context.Context, username, email, password string) (*services.RegisterResult, error)
	Mode() services.RegistrationMode
}

type Handler struct {
	log         *slog.Logger
	authService Service
	validate    *validator.Validate
	showDetails bool
}

func New(log *slog.Logger, authService Service, showDetails bool) *Handler {
	return &Handler{
		log:         log,
		authService: authService,
		validate:    validator.New(),
		showDetails: showDetails,
	}
}

// ServeHTTP godoc
// @Summary Регистрация пользователя
// @Description Создаёт пользователя (201) или ставит заявку в очередь (202), в зависимости от режима сервиса.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные нового пользователя"
// @Success 201 {object} response.Response{data=models.PublicUser} "Пользователь создан"
// @Success 202 {object} response.Response{data=QueuedResponse} "Заявка принята"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или не заполнены поля"
// @Failure 409 {object} response.ErrorResponse "Username или email уже заняты"
// @Failure 503 {object} response.ErrorResponse "Очередь регистрации недоступна"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		h.count("validation_error")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log = log.With(slog.Any("request", req))

	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		h.count("validation_error")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	res, err := h.authService.Register(r.Context(), req.Username, req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrPasswordTooLong):
		log.Warn("password exceeds bcrypt limit")
		h.count("validation_error")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("password must not exceed 72 bytes"))
		return
	case errors.Is(err, services.ErrValidation):
		log.Warn("validation failed", sl.Err(err))
		h.count("validation_error")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("username, email and password are required"))
		return
	case errors.Is(err, services.ErrUserExists):
		log.Info("registration conflict")
		h.count("conflict")
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.Error("username or email already exists"))
		return
	case errors.Is(err, services.ErrQueueUnavailable):
		log.Warn("registration queue unavailable")
		h.count("queue_unavailable")
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("registration service is temporarily unavailable, try again later"))
		return
	case errors.Is(err, services.ErrEnqueueFailed):
		log.Error("failed to enqueue registration", sl.Err(err))
		h.count("error")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.InternalError("failed to process registration request", err, h.showDetails))
		return
	default:
		log.Error("registration failed", sl.Err(err))
		h.count("error")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.InternalError("internal server error", err, h.showDetails))
		return
	}

	if res.Mode == services.ModeQueued {
		log.Info("registration queued", slog.String("registration_id", res.RequestID))
		h.count("queued")
		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, response.OKWithData(QueuedResponse{
			RequestID: res.RequestID,
			Status:    models.RegistrationPending,
		}))
		return
	}

	log.Info("user created", slog.Int64("user_id", res.User.ID))
	h.count("created")
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(res.User))
}

func (h *Handler) count(result string) {
	metrics.RegistrationsTotal.WithLabelValues(string(h.authService.Mode()), result).Inc()
}
