// Package health содержит обработчики /health и корневого статуса сервиса.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/taskflow/internal/http/response"
	"github.com/magabrotheeeer/taskflow/internal/lib/sl"
)

const checkTimeout = 2 * time.Second

// Component states.
const (
	StateOK          = "ok"
	StateFailed      = "failed"
	StateDisabled    = "disabled"
	StateAvailable   = "available"
	StateUnavailable = "unavailable"
)

// Pinger - зависимость, доступность которой можно проверить.
type Pinger interface {
	Ping(ctx context.Context) error
}

// UserCounter возвращает число пользователей.
type UserCounter interface {
	CountUsers(ctx context.Context) (int64, error)
}

// QueueState сообщает о доступности очереди регистрации.
type QueueState interface {
	QueueAvailable() bool
}

// Dependencies - то, что проверяет /health. Redis и Queue могут быть nil.
type Dependencies struct {
	DB    Pinger
	Users UserCounter
	Redis Pinger
	Queue QueueState
	// QueueRequired - очередь нужна для регистрации (режим queued).
	QueueRequired bool
}

// Report - тело ответа /health.
type Report struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
	UserCount  *int64            `json:"userCount,omitempty"`
}

type Handler struct {
	log  *slog.Logger
	deps Dependencies
}

func New(log *slog.Logger, deps Dependencies) *Handler {
	return &Handler{
		log:  log,
		deps: deps,
	}
}

// ServeHTTP проверяет базу данных, redis и очередь регистрации.
// База данных и обязательная очередь влияют на код ответа, redis нет.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"
	log := h.log.With(sl.Op(op))

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	report := Report{Status: StateOK, Components: map[string]string{}}
	healthy := true

	if err := h.deps.DB.Ping(ctx); err != nil {
		log.Error("database check failed", sl.Err(err))
		report.Components["database"] = StateFailed
		healthy = false
	} else {
		report.Components["database"] = StateOK
		if h.deps.Users != nil {
			if count, err := h.deps.Users.CountUsers(ctx); err == nil {
				report.UserCount = &count
			} else {
				log.Warn("failed to count users", sl.Err(err))
			}
		}
	}

	switch {
	case h.deps.Redis == nil:
		report.Components["redis"] = StateDisabled
	case h.deps.Redis.Ping(ctx) != nil:
		log.Warn("redis check failed")
		report.Components["redis"] = StateFailed
	default:
		report.Components["redis"] = StateOK
	}

	switch {
	case h.deps.Queue == nil:
		report.Components["queue"] = StateDisabled
	case h.deps.Queue.QueueAvailable():
		report.Components["queue"] = StateAvailable
	default:
		report.Components["queue"] = StateUnavailable
	}
	if h.deps.QueueRequired && report.Components["queue"] != StateAvailable {
		healthy = false
	}

	if !healthy {
		report.Status = StateFailed
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Response{Status: response.StatusError, Error: "service unhealthy", Data: report})
		return
	}
	render.JSON(w, r, response.OKWithData(report))
}
