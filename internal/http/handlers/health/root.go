package health

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/taskflow/internal/http/response"
)

// ServiceInfo - статичная часть корневого статуса.
type ServiceInfo struct {
	Environment        string
	RegistrationMode   string
	DatabaseConfigured bool
	QueueConfigured    bool
}

// RootStatus - тело ответа GET /.
type RootStatus struct {
	Message            string    `json:"message"`
	Timestamp          time.Time `json:"timestamp"`
	Environment        string    `json:"environment"`
	RegistrationMode   string    `json:"registrationMode"`
	DatabaseConfigured bool      `json:"databaseConfigured"`
	QueueConfigured    bool      `json:"queueConfigured"`
	QueueAvailable     bool      `json:"queueAvailable"`
}

// RootHandler отвечает на GET / кратким статусом сервиса без обращения к базе.
type RootHandler struct {
	info  ServiceInfo
	queue QueueState
	now   func() time.Time
}

// NewRoot создаёт RootHandler. queue может быть nil.
func NewRoot(info ServiceInfo, queue QueueState) *RootHandler {
	return &RootHandler{
		info:  info,
		queue: queue,
		now:   time.Now,
	}
}

func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.OKWithData(RootStatus{
		Message:            "TaskFlow auth API is running",
		Timestamp:          h.now().UTC(),
		Environment:        h.info.Environment,
		RegistrationMode:   h.info.RegistrationMode,
		DatabaseConfigured: h.info.DatabaseConfigured,
		QueueConfigured:    h.info.QueueConfigured,
		QueueAvailable:     h.queue != nil && h.queue.QueueAvailable(),
	}))
}
