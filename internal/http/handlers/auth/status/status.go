// Package status отдаёт состояние заявки на регистрацию, поставленной в очередь.
package status

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/taskflow/internal/cache"
	"github.com/magabrotheeeer/taskflow/internal/http/response"
	"github.com/magabrotheeeer/taskflow/internal/lib/sl"
	services "github.com/magabrotheeeer/taskflow/internal/services/auth"
)

type Service interface {
	RegistrationStatus(ctx context.Context, requestID string) (*cache.RegistrationStatusRecord, error)
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
// @Summary Статус заявки на регистрацию
// @Tags Auth
// @Produce  json
// @Param requestId path string true "Идентификатор заявки"
// @Success 200 {object} response.Response{data=cache.RegistrationStatusRecord}
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор"
// @Failure 404 {object} response.ErrorResponse "Заявка не найдена"
// @Failure 503 {object} response.ErrorResponse "Хранилище статусов не настроено"
// @Router /auth/register/{requestId} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.status"

	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	requestID := chi.URLParam(r, "requestId")
	if _, err := uuid.Parse(requestID); err != nil {
		log.Warn("invalid registration request id", slog.String("registration_id", requestID))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request id"))
		return
	}

	rec, err := h.authService.RegistrationStatus(r.Context(), requestID)
	switch {
	case err == nil:
		render.JSON(w, r, response.OKWithData(rec))
	case errors.Is(err, services.ErrStatusNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("registration request not found"))
	case errors.Is(err, services.ErrStatusUnavailable):
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("registration status is not available"))
	default:
		log.Error("failed to read registration status", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.InternalError("internal server error", err, h.showDetails))
	}
}
